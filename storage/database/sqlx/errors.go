package sqlxrepos

import (
	"database/sql"

	"github.com/lib/pq"
	"github.com/pkg/errors"
	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"

	"github.com/trezcool/hazira/core"
)

// isUniqueViolation tells whether err is a unique/primary key constraint violation (postgres or sqlite).
func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr.Code == "23505"
	}
	var liteErr *sqlite.Error
	if errors.As(err, &liteErr) {
		code := liteErr.Code()
		return code == sqlite3.SQLITE_CONSTRAINT_UNIQUE || code == sqlite3.SQLITE_CONSTRAINT_PRIMARYKEY
	}
	return false
}

// storeErr wraps a driver error into a *core.StoreError.
func storeErr(err error, op string) error {
	return core.NewStoreError(err, op)
}

// trapNoRowsErr maps sql.ErrNoRows to notFound
func trapNoRowsErr(err error, notFound error, op string) error {
	if errors.Cause(err) == sql.ErrNoRows {
		return notFound
	}
	return storeErr(err, op)
}
