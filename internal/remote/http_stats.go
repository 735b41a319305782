package remote

import (
	"io"
	"sync/atomic"
)

// httpStats tracks content traffic across concurrent downloads.
type httpStats struct {
	bytesRecv      atomic.Int64
	lastErrorValue atomic.Value // string
}

func newHTTPStats() *httpStats {
	s := &httpStats{}
	s.lastErrorValue.Store("")
	return s
}

func (s *httpStats) onRecv(n int) {
	if n <= 0 {
		return
	}
	s.bytesRecv.Add(int64(n))
}

func (s *httpStats) setLastError(err error) {
	if err == nil {
		return
	}
	s.lastErrorValue.Store(err.Error())
}

func (s *httpStats) snapshot() HTTPStatsSnapshot {
	return HTTPStatsSnapshot{
		BytesRecvTotal: s.bytesRecv.Load(),
		LastError:      s.lastErrorValue.Load().(string),
	}
}

type countingReadCloser struct {
	rc     io.ReadCloser
	onRead func(int)
}

func (c *countingReadCloser) Read(p []byte) (int, error) {
	n, err := c.rc.Read(p)
	if n > 0 && c.onRead != nil {
		c.onRead(n)
	}
	return n, err
}

func (c *countingReadCloser) Close() error {
	return c.rc.Close()
}

func wrapCounting(rc io.ReadCloser, onRead func(int)) io.ReadCloser {
	if rc == nil {
		return nil
	}
	return &countingReadCloser{rc: rc, onRead: onRead}
}

// HTTPStatsSnapshot is a point-in-time view of content traffic.
type HTTPStatsSnapshot struct {
	BytesRecvTotal int64  `json:"bytes_recv_total"`
	LastError      string `json:"last_error,omitempty"`
}
