package pool

import (
	"context"
	"fmt"

	"github.com/nerrad567/gray-logic-db/internal/driver"
)

// Manager binds one adapter to one set of connection options. The binding
// is fixed for the Manager's lifetime.
type Manager struct {
	driver driver.Driver
	opts   driver.ConnectOptions
}

// NewManager resolves uri against the catalog and binds the chosen adapter.
//
// Parameters:
//   - catalog: the compiled-in adapters
//   - uri: connection URI; its scheme selects exactly one adapter
//
// Returns:
//   - *Manager: immutable driver+options binding
//   - error: ErrConfig when the scheme is unknown or the URI is malformed
func NewManager(catalog *driver.Catalog, uri string) (*Manager, error) {
	d, opts, err := catalog.Resolve(uri)
	if err != nil {
		return nil, err
	}
	return &Manager{driver: d, opts: opts}, nil
}

// NewManagerFor binds an already parsed driver and options.
func NewManagerFor(d driver.Driver, opts driver.ConnectOptions) *Manager {
	return &Manager{driver: d, opts: opts}
}

// Connect opens a new physical connection.
func (m *Manager) Connect(ctx context.Context) (driver.Conn, error) {
	conn, err := m.driver.Connect(ctx, m.opts)
	if err != nil {
		return nil, fmt.Errorf("connecting to %s: %w", m.opts.Redacted(), err)
	}
	return conn, nil
}

// Check verifies a connection is still usable.
func (m *Manager) Check(ctx context.Context, conn driver.Conn) error {
	return conn.Ping(ctx)
}

// DriverName returns the bound adapter's name.
func (m *Manager) DriverName() string { return m.driver.Name() }

// Options returns the bound connection options.
func (m *Manager) Options() driver.ConnectOptions { return m.opts }

// Placeholder returns the bound adapter's bind marker style.
func (m *Manager) Placeholder() driver.Placeholder { return m.driver.Placeholder() }
