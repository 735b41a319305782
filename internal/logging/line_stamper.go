package logging

import (
	"bytes"
	"io"
	"log/slog"
	"sync"
	"time"
)

// LineStamper is an io.Writer that prefixes every complete line with a
// sequence number and a timestamp before forwarding it to target. Partial
// lines are held until their newline arrives or Close is called.
type LineStamper struct {
	mu     sync.Mutex
	target io.Writer
	seq    uint64
	buf    bytes.Buffer
	now    func() time.Time
}

func NewLineStamper(target io.Writer) *LineStamper {
	return &LineStamper{target: target, now: time.Now}
}

func (s *LineStamper) writeLine(line []byte) error {
	s.seq++
	prefix := slog.Uint64("line", s.seq).String() + " " +
		slog.String("time", s.now().Format(time.RFC3339)).String() + " "

	out := make([]byte, 0, len(prefix)+len(line)+1)
	out = append(out, prefix...)
	out = append(out, line...)
	out = append(out, '\n')
	_, err := s.target.Write(out)
	return err
}

// Write buffers p and emits each complete line. It reports len(p) on success
// so callers such as slog handlers do not treat the prefixing as a short write.
func (s *LineStamper) Write(p []byte) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.buf.Write(p)
	for {
		idx := bytes.IndexByte(s.buf.Bytes(), '\n')
		if idx < 0 {
			break
		}
		line := bytes.TrimSuffix(s.buf.Next(idx+1)[:idx], []byte{'\r'})
		if err := s.writeLine(line); err != nil {
			return 0, err
		}
	}
	return len(p), nil
}

// Close flushes a trailing partial line, if any.
func (s *LineStamper) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.buf.Len() == 0 {
		return nil
	}
	line := append([]byte(nil), s.buf.Bytes()...)
	s.buf.Reset()
	return s.writeLine(line)
}
