// Package adapters assembles the catalog of every compiled-in backend.
package adapters

import (
	"github.com/nerrad567/gray-logic-db/internal/adapters/mssql"
	"github.com/nerrad567/gray-logic-db/internal/adapters/mysql"
	"github.com/nerrad567/gray-logic-db/internal/adapters/postgres"
	"github.com/nerrad567/gray-logic-db/internal/adapters/sqlite"
	"github.com/nerrad567/gray-logic-db/internal/adapters/turso"
	"github.com/nerrad567/gray-logic-db/internal/driver"
)

// Catalog returns a catalog binding each supported scheme to its adapter.
func Catalog() *driver.Catalog {
	return driver.NewCatalog(
		driver.Entry{Driver: sqlite.New(), Schemes: []string{sqlite.Scheme}},
		driver.Entry{Driver: turso.New(), Schemes: []string{turso.Scheme}},
		driver.Entry{Driver: postgres.New(), Schemes: postgres.Schemes},
		driver.Entry{Driver: mysql.New(), Schemes: []string{mysql.Scheme}},
		driver.Entry{Driver: mssql.New(), Schemes: mssql.Schemes},
	)
}
