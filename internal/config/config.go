package config

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/knzhou-cli/knzhou/internal/remote"
	"github.com/knzhou-cli/knzhou/internal/utils"
	"github.com/knzhou-cli/knzhou/internal/version"
	"github.com/pelletier/go-toml/v2"
)

// Placeholder is substituted with the handout identifier in Format.
const Placeholder = "{handout}"

const (
	DefaultFormat = Placeholder
	dbFileName    = "knzhou.db"
)

var (
	configDir, _      = os.UserConfigDir()
	DefaultConfigPath = filepath.Join(configDir, version.AppName, "config.toml")
)

var ErrMissingPlaceholder = errors.New("format must contain " + Placeholder)

type Config struct {
	Format    string `toml:"format" mapstructure:"format"`
	OutputDir string `toml:"output_dir,omitempty" mapstructure:"output_dir"`
	Workers   int    `toml:"workers" mapstructure:"workers"`
	DBPath    string `toml:"db_path,omitempty" mapstructure:"db_path"`
	APIURL    string `toml:"api_url" mapstructure:"api_url"`
	SiteURL   string `toml:"site_url" mapstructure:"site_url"`
	Repo      string `toml:"repo" mapstructure:"repo"`
	Branch    string `toml:"branch" mapstructure:"branch"`
	Path      string `toml:"-" mapstructure:"-"`
}

// Default returns the configuration used when no file exists.
func Default() *Config {
	return &Config{
		Format:  DefaultFormat,
		APIURL:  remote.DefaultAPIURL,
		SiteURL: remote.DefaultSiteURL,
		Repo:    remote.DefaultRepo,
		Branch:  remote.DefaultBranch,
		Path:    DefaultConfigPath,
	}
}

// DefaultDBPath is where the hours database lives unless db_path is set.
func DefaultDBPath() (string, error) {
	dir, err := utils.DataDir(version.AppName)
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, dbFileName), nil
}

func (c *Config) Validate() error {
	if !strings.Contains(c.Format, Placeholder) {
		return fmt.Errorf("config format %q: %w", c.Format, ErrMissingPlaceholder)
	}
	if c.Workers < 0 {
		return fmt.Errorf("config workers %d: must not be negative", c.Workers)
	}

	for _, u := range []struct{ key, val string }{
		{"api_url", c.APIURL},
		{"site_url", c.SiteURL},
	} {
		if u.val == "" {
			continue
		}
		if err := remote.ValidateHTTPURL(u.val); err != nil {
			return fmt.Errorf("config %s: %w", u.key, err)
		}
	}

	if c.OutputDir != "" {
		dir, err := utils.ResolvePath(c.OutputDir)
		if err != nil {
			return fmt.Errorf("config output_dir: %w", err)
		}
		c.OutputDir = dir
	}
	if c.DBPath != "" {
		p, err := utils.ResolvePath(c.DBPath)
		if err != nil {
			return fmt.Errorf("config db_path: %w", err)
		}
		c.DBPath = p
	}
	return nil
}

// Root is the directory handouts and the lockfile are written to.
func (c *Config) Root() string {
	if c.OutputDir == "" {
		return "."
	}
	return c.OutputDir
}

// OutputPath renders Format for a handout identifier.
func (c *Config) OutputPath(handout string) string {
	name := strings.ReplaceAll(c.Format, Placeholder, handout) + ".pdf"
	return filepath.Join(c.Root(), name)
}

// HoursDB returns the configured database path or the default one.
func (c *Config) HoursDB() (string, error) {
	if c.DBPath != "" {
		return c.DBPath, nil
	}
	return DefaultDBPath()
}

func (c *Config) RemoteConfig() remote.Config {
	return remote.Config{
		APIURL:  c.APIURL,
		SiteURL: c.SiteURL,
		Repo:    c.Repo,
		Branch:  c.Branch,
	}
}

func (c *Config) Save(path string) error {
	if err := utils.EnsureParent(path); err != nil {
		return err
	}

	var buf bytes.Buffer
	buf.WriteString("# knzhou configuration\n")
	if err := toml.NewEncoder(&buf).Encode(c); err != nil {
		return err
	}

	return os.WriteFile(path, buf.Bytes(), 0o644)
}

// LoadFromFile reads a TOML config file on top of the defaults.
func LoadFromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	cfg := Default()
	if err := toml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("config %s: %w", path, err)
	}
	cfg.Path = path

	return cfg, nil
}
