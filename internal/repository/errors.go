// Package repository implements the data access layer for the relationship service.
package repository

import (
	"context"
	"errors"
	"strings"

	"habitpal/internal/models"
	"habitpal/internal/observability"

	mysqldriver "github.com/go-sql-driver/mysql"
	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
)

// ErrConflict reports an insert that lost a race on a unique index. Callers
// re-read the conflicting row to decide what the client sees.
var ErrConflict = errors.New("unique constraint conflict")

// Store error classes used as metric labels.
const (
	classConflict    = "conflict"
	classUnavailable = "unavailable"
	classInternal    = "internal"
)

var (
	pgUnavailableCodes = map[string]bool{
		"57014": true, // query_canceled (statement_timeout)
		"40001": true, // serialization_failure
		"40P01": true, // deadlock_detected
		"55P03": true, // lock_not_available
	}
	mysqlUnavailableCodes = map[uint16]bool{
		1205: true, // lock wait timeout
		1213: true, // deadlock
		3024: true, // max_execution_time exceeded
	}
)

// classify maps a driver error to ErrConflict, an Unavailable AppError or an
// Internal AppError. gorm.ErrRecordNotFound and AppErrors pass through.
func classify(err error) error {
	if err == nil || errors.Is(err, gorm.ErrRecordNotFound) || errors.Is(err, ErrConflict) {
		return err
	}
	var appErr *models.AppError
	if errors.As(err, &appErr) {
		return err
	}

	switch classOf(err) {
	case classConflict:
		observability.StoreErrors.WithLabelValues(classConflict).Inc()
		return errors.Join(ErrConflict, err)
	case classUnavailable:
		observability.StoreErrors.WithLabelValues(classUnavailable).Inc()
		return models.NewUnavailableError(err)
	default:
		observability.StoreErrors.WithLabelValues(classInternal).Inc()
		return models.NewInternalError(err)
	}
}

func classOf(err error) string {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return classUnavailable
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return classConflict
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		if pgErr.Code == "23505" {
			return classConflict
		}
		if pgUnavailableCodes[pgErr.Code] {
			return classUnavailable
		}
		return classInternal
	}

	var myErr *mysqldriver.MySQLError
	if errors.As(err, &myErr) {
		if myErr.Number == 1062 {
			return classConflict
		}
		if mysqlUnavailableCodes[myErr.Number] {
			return classUnavailable
		}
		return classInternal
	}

	// mattn/go-sqlite3 errors are matched on text so this package does not
	// link the cgo driver directly.
	msg := err.Error()
	switch {
	case strings.Contains(msg, "UNIQUE constraint failed"):
		return classConflict
	case strings.Contains(msg, "database is locked"), strings.Contains(msg, "database table is locked"):
		return classUnavailable
	}
	return classInternal
}

// IsConflict reports whether err came from a unique index violation.
func IsConflict(err error) bool {
	return errors.Is(err, ErrConflict)
}
