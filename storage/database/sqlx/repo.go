// Package sqlxrepos holds the SQL repositories, written once for postgres and sqlite: queries use "?"
// placeholders rebound to the driver, and set or map fields are stored as JSON.
package sqlxrepos

import (
	"context"
	"database/sql"
	"encoding/json"
	"strings"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/jmoiron/sqlx/types"
	"github.com/pkg/errors"
)

// where collects AND-ed conditions.
type where struct {
	conds []string
	args  []interface{}
}

func (w *where) add(cond string, args ...interface{}) {
	w.conds = append(w.conds, cond)
	w.args = append(w.args, args...)
}

// eqFold adds a case-insensitive equality on col when val is set.
func (w *where) eqFold(col, val string) {
	if val != "" {
		w.add("LOWER("+col+") = LOWER(?)", val)
	}
}

func (w *where) notIn(col string, vals []string) error {
	if len(vals) == 0 {
		return nil
	}
	cond, args, err := sqlx.In(col+" NOT IN (?)", vals)
	if err != nil {
		return err
	}
	w.add(cond, args...)
	return nil
}

func (w where) String() string {
	if len(w.conds) == 0 {
		return ""
	}
	return " WHERE " + strings.Join(w.conds, " AND ")
}

// validID reports whether id can be a primary key; postgres rejects malformed UUIDs outright.
func validID(id string) bool {
	_, err := uuid.Parse(id)
	return err == nil
}

func toJSON(v interface{}) (types.JSONText, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	return types.JSONText(b), nil
}

func fromJSON(j types.JSONText, v interface{}) error {
	if len(j) == 0 {
		return nil
	}
	return j.Unmarshal(v)
}

// trapNoRowsErr maps "no rows" to notFound.
func trapNoRowsErr(err, notFound error, msg string) error {
	if err == sql.ErrNoRows {
		return notFound
	}
	return errors.Wrap(err, msg)
}

// checkAffected maps an update or delete that touched no row to notFound.
func checkAffected(res sql.Result, notFound error) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return notFound
	}
	return nil
}

func exists(ctx context.Context, db *sqlx.DB, table string, w where) (bool, error) {
	var count int
	query := db.Rebind("SELECT COUNT(*) FROM " + table + w.String())
	if err := db.GetContext(ctx, &count, query, w.args...); err != nil {
		return false, err
	}
	return count > 0, nil
}
