package turso

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/nerrad567/gray-logic-db/internal/driver"
)

const memoryURL = ":memory:"

// Options are parsed turso connection options.
//
// URI forms:
//
//	turso://:memory:                               in-memory
//	turso://                                       in-memory
//	turso://data/app.db                            local file
//	turso://?url=libsql://db.turso.io&token=TOKEN  remote
//	/tmp/app.db, :memory:                          bare forms, ParseOptions only
type Options struct {
	URL        string
	Token      string
	JSONDetect bool

	hints driver.PoolHints
}

func (o *Options) Scheme() string              { return Scheme }
func (o *Options) PoolHints() driver.PoolHints { return o.hints }

// Redacted implements driver.ConnectOptions.
func (o *Options) Redacted() string {
	if o.Token == "" {
		return Scheme + "://" + o.URL
	}
	return Scheme + "://?url=" + o.URL + "&token=xxxxx"
}

// InMemory reports whether the options target a private in-memory database.
func (o *Options) InMemory() bool { return o.URL == memoryURL }

// Remote reports whether the options target a network endpoint.
func (o *Options) Remote() bool {
	return strings.HasPrefix(o.URL, "libsql://") ||
		strings.HasPrefix(o.URL, "https://") ||
		strings.HasPrefix(o.URL, "http://")
}

// Validate checks the options are complete. Remote endpoints need a token.
func (o *Options) Validate() error {
	if o.URL == "" {
		return fmt.Errorf("%w: turso URL must not be empty", driver.ErrConfig)
	}
	if o.Remote() && strings.TrimSpace(o.Token) == "" {
		return fmt.Errorf("%w: token is required for remote turso connections", driver.ErrConfig)
	}
	return nil
}

func parseOptions(uri string) (*Options, error) {
	var rest string
	switch {
	case strings.HasPrefix(uri, Scheme+"://"):
		rest = uri[len(Scheme)+3:]
	case strings.HasPrefix(uri, Scheme+":"):
		return nil, fmt.Errorf("%w: invalid URI scheme %q, expected %s://", driver.ErrConfig, Scheme+":", Scheme)
	default:
		rest = uri
	}

	opts := &Options{URL: memoryURL}
	if rest == memoryURL || rest == "" {
		return opts, nil
	}

	path, rawQuery, _ := strings.Cut(rest, "?")
	q, err := url.ParseQuery(rawQuery)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", driver.ErrConfig, err)
	}
	if opts.hints, err = driver.TakePoolHints(q); err != nil {
		return nil, err
	}

	explicit := ""
	for key := range q {
		v := q.Get(key)
		switch key {
		case "url":
			explicit = v
		case "token":
			opts.Token = v
		case "json_detect":
			opts.JSONDetect = v == "true" || v == "1"
		default:
			return nil, fmt.Errorf("%w: unknown query parameter %q", driver.ErrConfig, key)
		}
	}

	switch {
	case explicit != "":
		opts.URL = explicit
	case path != "":
		opts.URL = path
	default:
		return nil, fmt.Errorf("%w: no database URL or path provided", driver.ErrConfig)
	}
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	return opts, nil
}
