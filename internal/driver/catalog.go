package driver

import (
	"fmt"
	"sort"
)

// Catalog maps URI schemes to adapters. It is built once at startup and
// never modified afterwards.
type Catalog struct {
	byScheme map[string]Driver
}

// Entry binds one or more schemes to a driver.
type Entry struct {
	Driver  Driver
	Schemes []string
}

// NewCatalog builds a catalog. Registering a scheme twice panics.
func NewCatalog(entries ...Entry) *Catalog {
	c := &Catalog{byScheme: make(map[string]Driver)}
	for _, e := range entries {
		for _, s := range e.Schemes {
			if prev, ok := c.byScheme[s]; ok {
				panic(fmt.Sprintf("driver: scheme %q registered by both %s and %s", s, prev.Name(), e.Driver.Name()))
			}
			c.byScheme[s] = e.Driver
		}
	}
	return c
}

// Lookup returns the driver registered for scheme.
func (c *Catalog) Lookup(scheme string) (Driver, bool) {
	d, ok := c.byScheme[scheme]
	return d, ok
}

// Schemes returns every registered scheme, sorted.
func (c *Catalog) Schemes() []string {
	out := make([]string, 0, len(c.byScheme))
	for s := range c.byScheme {
		out = append(out, s)
	}
	sort.Strings(out)
	return out
}

// Resolve selects exactly one adapter for uri and parses its options.
//
// Parameters:
//   - uri: connection URI; its scheme picks the adapter
//
// Returns:
//   - Driver: the adapter bound to the scheme
//   - ConnectOptions: validated options for that adapter
//   - error: ErrConfig for an unknown scheme or malformed URI
func (c *Catalog) Resolve(uri string) (Driver, ConnectOptions, error) {
	scheme, err := Scheme(uri)
	if err != nil {
		return nil, nil, err
	}
	d, ok := c.byScheme[scheme]
	if !ok {
		return nil, nil, fmt.Errorf("%w: unknown scheme %q (registered: %v)", ErrConfig, scheme, c.Schemes())
	}
	opts, err := d.ParseOptions(uri)
	if err != nil {
		return nil, nil, err
	}
	return d, opts, nil
}
