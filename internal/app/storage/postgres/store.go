package postgres

import (
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/dabbahouse/foodorder/internal/app/storage"
	apperrors "github.com/dabbahouse/foodorder/internal/errors"
)

// PostgreSQL error codes the store translates.
const (
	errCodeUniqueViolation = "23505"
	errCodeCheckViolation  = "23514"
)

// Store implements the storage interfaces backed by PostgreSQL.
type Store struct {
	db *sqlx.DB
}

var _ storage.UserStore = (*Store)(nil)
var _ storage.AdminStore = (*Store)(nil)
var _ storage.MenuStore = (*Store)(nil)
var _ storage.OrderStore = (*Store)(nil)
var _ storage.AnnouncementStore = (*Store)(nil)
var _ storage.SessionStore = (*Store)(nil)

// New creates a Store using the provided database handle.
func New(db *sql.DB) *Store {
	return &Store{db: sqlx.NewDb(db, "postgres")}
}

// mapError translates driver errors into service errors. resource and key
// describe the row being read or written.
func mapError(err error, resource string, key any) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, sql.ErrNoRows) {
		return apperrors.NotFound(resource, key)
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		switch pqErr.Code {
		case errCodeUniqueViolation:
			return apperrors.DuplicateKey(resource, constraintField(pqErr.Constraint, pqErr.Table))
		case errCodeCheckViolation:
			return apperrors.Validationf("%s violates constraint %s", resource, pqErr.Constraint)
		}
	}
	return fmt.Errorf("%s: %w", resource, err)
}

// constraintField recovers the column from a default constraint name such as
// "users_email_key" or "orders_order_id_key".
func constraintField(constraint, table string) string {
	field := strings.TrimSuffix(constraint, "_key")
	if table != "" {
		field = strings.TrimPrefix(field, table+"_")
	} else if i := strings.Index(field, "_"); i >= 0 {
		field = field[i+1:]
	}
	if field == "" {
		return constraint
	}
	return field
}

func notFoundOnNoRows(result sql.Result, resource string, key any) error {
	if rows, _ := result.RowsAffected(); rows == 0 {
		return apperrors.NotFound(resource, key)
	}
	return nil
}
