package repository

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"testing"

	"habitpal/internal/models"

	"github.com/DATA-DOG/go-sqlmock"
	mysqldriver "github.com/go-sql-driver/mysql"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// setupMockDB creates a GORM *gorm.DB backed by sqlmock for unit tests.
func setupMockDB(t *testing.T) (*gorm.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	gormDB, err := gorm.Open(postgres.New(postgres.Config{Conn: db}), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	return gormDB, mock
}

func TestClassify(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		conflict bool
		code     string
	}{
		{"pg unique", &pgconn.PgError{Code: "23505"}, true, ""},
		{"pg statement timeout", &pgconn.PgError{Code: "57014"}, false, models.CodeUnavailable},
		{"pg serialization", &pgconn.PgError{Code: "40001"}, false, models.CodeUnavailable},
		{"pg lock timeout", &pgconn.PgError{Code: "55P03"}, false, models.CodeUnavailable},
		{"pg check violation", &pgconn.PgError{Code: "23514"}, false, models.CodeInternal},
		{"mysql duplicate", &mysqldriver.MySQLError{Number: 1062}, true, ""},
		{"mysql lock wait", &mysqldriver.MySQLError{Number: 1205}, false, models.CodeUnavailable},
		{"mysql deadlock", &mysqldriver.MySQLError{Number: 1213}, false, models.CodeUnavailable},
		{"sqlite unique", errors.New("UNIQUE constraint failed: relationships.pair_low_id, relationships.pair_high_id"), true, ""},
		{"sqlite busy", errors.New("database is locked"), false, models.CodeUnavailable},
		{"deadline", fmt.Errorf("query: %w", context.DeadlineExceeded), false, models.CodeUnavailable},
		{"gorm duplicated key", gorm.ErrDuplicatedKey, true, ""},
		{"unknown", errors.New("disk on fire"), false, models.CodeInternal},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := classify(tt.err)
			require.Error(t, got)
			assert.Equal(t, tt.conflict, IsConflict(got))
			if !tt.conflict {
				assert.Equal(t, tt.code, models.ErrorCode(got))
			}
		})
	}
}

func TestClassify_PassThrough(t *testing.T) {
	assert.NoError(t, classify(nil))
	assert.ErrorIs(t, classify(gorm.ErrRecordNotFound), gorm.ErrRecordNotFound)

	notFound := models.NewNotFoundError("User", 1)
	assert.Same(t, notFound, classify(notFound))

	conflict := classify(&pgconn.PgError{Code: "23505"})
	assert.Equal(t, conflict, classify(conflict))
}

func TestRelationshipRepository_CreateUniqueViolationIsConflict(t *testing.T) {
	db, mock := setupMockDB(t)
	repo := NewRelationshipRepository(db)

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta(`INSERT INTO "relationships"`)).
		WillReturnError(&pgconn.PgError{Code: "23505", ConstraintName: "idx_relationship_pair"})
	mock.ExpectRollback()

	err := repo.Create(context.Background(), &models.Relationship{RequesterID: 2, AddresseeID: 1})
	assert.True(t, IsConflict(err))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRelationshipRepository_StatementTimeoutIsUnavailable(t *testing.T) {
	db, mock := setupMockDB(t)
	repo := NewRelationshipRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta(`SELECT * FROM "relationships" WHERE pair_low_id = $1 AND pair_high_id = $2`)).
		WithArgs(1, 2, 1).
		WillReturnError(&pgconn.PgError{Code: "57014", Message: "canceling statement due to statement timeout"})

	rel, err := repo.GetBetween(context.Background(), 2, 1)
	assert.Nil(t, rel)
	assert.ErrorIs(t, err, models.ErrUnavailable)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStore_WithinTxRollsBackOnError(t *testing.T) {
	db, mock := setupMockDB(t)
	store := NewStore(db)
	boom := models.NewCannotSendError()

	mock.ExpectBegin()
	mock.ExpectRollback()

	err := store.WithinTx(context.Background(), func(Store) error { return boom })
	assert.ErrorIs(t, err, models.ErrCannotSend)
	assert.NoError(t, mock.ExpectationsWereMet())
}
