// Package repository holds the MySQL data-access layer.  Store errors that
// callers need to tell apart are translated here: a missing row becomes
// ErrNotFound and a unique-key violation becomes a *DuplicateError carrying
// the offending value.
package repository

import (
	"database/sql"
	"errors"
	"fmt"
	"regexp"

	"github.com/go-sql-driver/mysql"
)

// ErrNotFound is returned when an id or lookup key matches no row.
var ErrNotFound = errors.New("not found")

// mysqlDuplicateEntry is ER_DUP_ENTRY.
const mysqlDuplicateEntry = 1062

// DuplicateError reports a unique-key violation.
type DuplicateError struct {
	Value string
	Key   string
}

func (e *DuplicateError) Error() string {
	return fmt.Sprintf("duplicate value %q for key %s", e.Value, e.Key)
}

var dupEntryRe = regexp.MustCompile(`Duplicate entry '(.*)' for key '?([^']*)'?`)

// translate maps driver errors onto the package's error values.  Anything
// it does not recognise is returned unchanged.
func translate(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, sql.ErrNoRows) {
		return ErrNotFound
	}
	var me *mysql.MySQLError
	if errors.As(err, &me) && me.Number == mysqlDuplicateEntry {
		d := &DuplicateError{}
		if m := dupEntryRe.FindStringSubmatch(me.Message); m != nil {
			d.Value, d.Key = m[1], m[2]
		}
		return d
	}
	return err
}

// affected turns a zero row count into ErrNotFound.  The DSN sets
// clientFoundRows, so the count is rows matched rather than rows changed.
func affected(res sql.Result, err error) error {
	if err != nil {
		return translate(err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}
