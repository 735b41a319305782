package remote

import (
	"fmt"
	"net/url"
	"strings"
	"time"
)

const (
	DefaultAPIURL  = "https://api.github.com"
	DefaultSiteURL = "https://knzhou.github.io"
	DefaultRepo    = "knzhou/knzhou.github.io"
	DefaultBranch  = "master"

	defaultTimeout = 2 * time.Minute
)

const (
	HeaderUserAgent     = "User-Agent"
	HeaderAccept        = "Accept"
	HeaderGitHubVersion = "X-GitHub-Api-Version"

	githubMediaType  = "application/vnd.github+json"
	githubAPIVersion = "2022-11-28"
)

// Config selects the upstream endpoints. Zero values fall back to the public
// knzhou site and its GitHub repository.
type Config struct {
	APIURL  string        // GitHub REST API root
	SiteURL string        // static site serving the handouts
	Repo    string        // owner/name of the repository backing the site
	Branch  string        // branch whose tree is listed
	Timeout time.Duration // per-request timeout
}

func (c *Config) applyDefaults() {
	if c.APIURL == "" {
		c.APIURL = DefaultAPIURL
	}
	if c.SiteURL == "" {
		c.SiteURL = DefaultSiteURL
	}
	if c.Repo == "" {
		c.Repo = DefaultRepo
	}
	if c.Branch == "" {
		c.Branch = DefaultBranch
	}
	if c.Timeout <= 0 {
		c.Timeout = defaultTimeout
	}
	c.APIURL = strings.TrimRight(c.APIURL, "/")
	c.SiteURL = strings.TrimRight(c.SiteURL, "/")
}

func (c *Config) Validate() error {
	if err := ValidateHTTPURL(c.APIURL); err != nil {
		return fmt.Errorf("api url: %w", err)
	}
	if err := ValidateHTTPURL(c.SiteURL); err != nil {
		return fmt.Errorf("site url: %w", err)
	}
	if owner, name, ok := strings.Cut(c.Repo, "/"); !ok || owner == "" || name == "" || strings.Contains(name, "/") {
		return fmt.Errorf("repo %q: expected owner/name", c.Repo)
	}
	if c.Branch == "" {
		return fmt.Errorf("branch missing")
	}
	return nil
}

// ValidateHTTPURL accepts absolute http and https URLs with a host.
func ValidateHTTPURL(raw string) error {
	u, err := url.Parse(raw)
	if err != nil {
		return err
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("%q: scheme must be http or https", raw)
	}
	if u.Host == "" {
		return fmt.Errorf("%q: host missing", raw)
	}
	return nil
}
