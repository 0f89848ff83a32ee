package driver

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"
)

// Query keys understood by every adapter.
const (
	HintMaxOpen     = "max_open"
	HintIdleTimeout = "idle_timeout"
)

var secretKeys = []string{"password", "token", "authToken", "auth_token"}

// Scheme returns the scheme of uri, lower-cased. A URI without "scheme://"
// is a configuration error.
func Scheme(uri string) (string, error) {
	i := strings.Index(uri, "://")
	if i <= 0 {
		return "", fmt.Errorf("%w: missing scheme in %q", ErrConfig, Redact(uri))
	}
	return strings.ToLower(uri[:i]), nil
}

// ParseURL parses uri as a URL, reporting failures as ErrConfig.
func ParseURL(uri string) (*url.URL, error) {
	u, err := url.Parse(uri)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrConfig, err)
	}
	return u, nil
}

// TakePoolHints reads and removes the shared pool hint keys from q.
func TakePoolHints(q url.Values) (PoolHints, error) {
	var h PoolHints
	if v := q.Get(HintMaxOpen); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			return h, fmt.Errorf("%w: %s must be a positive integer, got %q", ErrConfig, HintMaxOpen, v)
		}
		h.MaxOpen = n
	}
	if v := q.Get(HintIdleTimeout); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil || d < 0 {
			return h, fmt.Errorf("%w: %s must be a duration, got %q", ErrConfig, HintIdleTimeout, v)
		}
		h.IdleTimeout = d
	}
	q.Del(HintMaxOpen)
	q.Del(HintIdleTimeout)
	return h, nil
}

// Redact masks the password and any secret query parameters in uri.
// Unparseable input is reduced to its scheme.
func Redact(uri string) string {
	u, err := url.Parse(uri)
	if err != nil {
		if i := strings.Index(uri, "://"); i > 0 {
			return uri[:i] + "://***"
		}
		return "***"
	}
	return RedactURL(u)
}

// RedactURL is Redact for an already parsed URL.
func RedactURL(u *url.URL) string {
	c := *u
	q := c.Query()
	changed := false
	for _, k := range secretKeys {
		if q.Has(k) {
			q.Set(k, "xxxxx")
			changed = true
		}
	}
	if changed {
		c.RawQuery = q.Encode()
	}
	return c.Redacted()
}
