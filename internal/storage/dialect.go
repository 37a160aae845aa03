package storage

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/Veraticus/transcat/internal/common"
)

type dialect string

const (
	dialectSQLite   dialect = "sqlite3"
	dialectPostgres dialect = "postgres"
)

func dialectFor(driver string) (dialect, error) {
	switch driver {
	case "sqlite3", "sqlite", "":
		return dialectSQLite, nil
	case "postgres", "postgresql", "pq":
		return dialectPostgres, nil
	default:
		return "", fmt.Errorf("%w: unsupported database driver %q", common.ErrInvalidConfig, driver)
	}
}

// rebind rewrites "?" placeholders into the "$n" form PostgreSQL expects.
func (d dialect) rebind(query string) string {
	if d != dialectPostgres {
		return query
	}

	var b strings.Builder
	b.Grow(len(query) + 8)
	n := 0
	for i := 0; i < len(query); i++ {
		if query[i] == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteByte(query[i])
	}
	return b.String()
}

// placeholders returns "?, ?, ..." with n entries.
func placeholders(n int) string {
	if n <= 0 {
		return ""
	}
	return strings.TrimSuffix(strings.Repeat("?, ", n), ", ")
}

// appendLock returns the statement that serializes appends across processes,
// or "" when the dialect relies on the in-process mutex alone.
func (d dialect) appendLock() string {
	if d == dialectPostgres {
		return "SELECT pg_advisory_xact_lock(hashtext(?))"
	}
	return ""
}
