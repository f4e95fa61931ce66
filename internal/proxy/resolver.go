// Package proxy resolves optional corporate proxy settings from the
// environment. The validation pipeline only consumes the resolved URL; all
// precedence and caching logic lives here.
//
// Three variables configure the proxy:
//
//	PROXY_USER  authentication user name
//	PROXY_PWD   authentication password
//	PROXY_HOST  proxy address as <host>:<port>
//
// If any of them is unset, or the resolver is disabled, no proxy is used.
package proxy

import (
	"fmt"
	"net/url"
	"os"
	"regexp"
	"sync"
)

const (
	envUser = "PROXY_USER"
	envPwd  = "PROXY_PWD"
	envHost = "PROXY_HOST"
)

// Resolver supplies proxy settings for outgoing requests. The environment
// lookup runs once and is cached behind a RWMutex; bulk runs issue one
// Resolve per attempt and must not pay the environment round-trip each
// time. Invalidate forces a re-read, e.g. after the environment changes.
type Resolver struct {
	enabled bool
	lookup  func(string) string

	mu     sync.RWMutex
	loaded bool
	cached *url.URL
	err    error
}

// NewResolver creates a resolver. When enabled is false, Resolve always
// reports "no proxy".
func NewResolver(enabled bool) *Resolver {
	return &Resolver{
		enabled: enabled,
		lookup:  os.Getenv,
	}
}

// Resolve returns the proxy URL to use, or nil when no proxy is
// configured. The result is cached after the first call.
func (r *Resolver) Resolve() (*url.URL, error) {
	if !r.enabled {
		return nil, nil
	}

	r.mu.RLock()
	if r.loaded {
		u, err := r.cached, r.err
		r.mu.RUnlock()
		return u, err
	}
	r.mu.RUnlock()

	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.loaded {
		r.cached, r.err = r.resolve()
		r.loaded = true
	}
	return r.cached, r.err
}

// Invalidate discards the cached settings so the next Resolve re-reads the
// environment.
func (r *Resolver) Invalidate() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.loaded = false
	r.cached = nil
	r.err = nil
}

func (r *Resolver) resolve() (*url.URL, error) {
	user := r.lookup(envUser)
	pwd := r.lookup(envPwd)
	host := r.lookup(envHost)

	if user == "" || pwd == "" || host == "" {
		return nil, nil
	}

	u, err := url.Parse(fmt.Sprintf("http://%s:%s@%s", url.QueryEscape(user), url.QueryEscape(pwd), host))
	if err != nil {
		return nil, fmt.Errorf("proxy: invalid PROXY_HOST %q: %w", host, err)
	}
	return u, nil
}

var credentialPattern = regexp.MustCompile(`://([^:/]+):([^@]+)@`)

// Sanitize renders a proxy URL with the password masked, safe for logs.
func Sanitize(u *url.URL) string {
	if u == nil {
		return "none"
	}
	return credentialPattern.ReplaceAllString(u.String(), "://$1:****@")
}
