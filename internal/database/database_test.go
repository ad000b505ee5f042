package database

import (
	"context"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"habitpal/internal/config"
	"habitpal/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func openMemory(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })
	return db
}

func TestConfigurePool(t *testing.T) {
	db := openMemory(t)

	cfg := &config.Config{
		DBDriver:          config.DriverPostgres,
		DBMaxOpenConns:    10,
		DBMaxIdleConns:    5,
		DBConnMaxLifetime: 15 * time.Minute,
	}
	require.NoError(t, configurePool(db, cfg))

	sqlDB, err := db.DB()
	require.NoError(t, err)
	assert.Equal(t, 10, sqlDB.Stats().MaxOpenConnections)

	cfg.DBDriver = config.DriverSQLite
	require.NoError(t, configurePool(db, cfg))
	assert.Equal(t, 1, sqlDB.Stats().MaxOpenConnections)
}

func TestPostgresDSN(t *testing.T) {
	cfg := &config.Config{
		DBHost: "db", DBPort: "5432", DBUser: "u", DBPassword: "p", DBName: "habitpal",
		DBStatementTimeout: 3 * time.Second,
	}
	dsn := PostgresDSN(cfg)
	assert.Contains(t, dsn, "sslmode=disable")
	assert.Contains(t, dsn, "statement_timeout=3000")
	assert.Contains(t, dsn, "lock_timeout=3000")

	cfg.DBStatementTimeout = 0
	cfg.DBSSLMode = "require"
	dsn = PostgresDSN(cfg)
	assert.Contains(t, dsn, "sslmode=require")
	assert.NotContains(t, dsn, "statement_timeout")
}

func TestMySQLDSN(t *testing.T) {
	cfg := &config.Config{
		DBHost: "db", DBPort: "3306", DBUser: "u", DBPassword: "p", DBName: "habitpal",
		DBStatementTimeout: 500 * time.Millisecond,
	}
	dsn := MySQLDSN(cfg)
	assert.True(t, strings.HasPrefix(dsn, "u:p@tcp(db:3306)/habitpal?"), dsn)
	assert.Contains(t, dsn, "clientFoundRows=true")
	assert.Contains(t, dsn, "parseTime=true")
	assert.Contains(t, dsn, "innodb_lock_wait_timeout=1")
}

func TestSQLiteDSN(t *testing.T) {
	cfg := &config.Config{SQLitePath: "dev.db"}
	assert.Equal(t, "dev.db?_busy_timeout=5000&_foreign_keys=on", SQLiteDSN(cfg))

	cfg.DBStatementTimeout = 2 * time.Second
	assert.Equal(t, "dev.db?_busy_timeout=2000&_foreign_keys=on", SQLiteDSN(cfg))
}

func TestDialector_RejectsUnknownDriver(t *testing.T) {
	_, err := Dialector(&config.Config{DBDriver: "oracle"})
	assert.Error(t, err)
}

func TestSchemaPolicy(t *testing.T) {
	tests := []struct {
		name    string
		cfg     config.Config
		runSQL  bool
		runAuto bool
		wantErr bool
	}{
		{name: "hybrid dev postgres", cfg: config.Config{Env: "development", DBDriver: "postgres"}, runSQL: true, runAuto: true},
		{name: "hybrid prod postgres", cfg: config.Config{Env: "production", DBDriver: "postgres"}, runSQL: true},
		{name: "hybrid sqlite", cfg: config.Config{Env: "test", DBDriver: "sqlite"}, runAuto: true},
		{name: "hybrid mysql prod", cfg: config.Config{Env: "production", DBDriver: "mysql"}, runAuto: true},
		{name: "sql postgres", cfg: config.Config{DBDriver: "postgres", DBSchemaMode: "sql"}, runSQL: true},
		{name: "sql mysql", cfg: config.Config{DBDriver: "mysql", DBSchemaMode: "sql"}, wantErr: true},
		{name: "auto dev", cfg: config.Config{Env: "development", DBSchemaMode: "auto"}, runAuto: true},
		{name: "auto staging refused", cfg: config.Config{Env: "staging", DBSchemaMode: "auto"}, wantErr: true},
		{name: "auto staging allowed", cfg: config.Config{Env: "staging", DBSchemaMode: "auto", DBAutoMigrateAllowed: true}, runAuto: true},
		{name: "unknown mode", cfg: config.Config{DBSchemaMode: "magic"}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			runSQL, runAuto, err := schemaPolicy(&tt.cfg)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.runSQL, runSQL)
			assert.Equal(t, tt.runAuto, runAuto)
		})
	}
}

func TestApplySchema_SQLiteUsesAutoMigrate(t *testing.T) {
	db := openMemory(t)
	cfg := &config.Config{Env: "test", DBDriver: config.DriverSQLite}

	require.NoError(t, ApplySchema(context.Background(), db, cfg))
	for _, model := range PersistentModels() {
		assert.True(t, db.Migrator().HasTable(model))
	}
	assert.False(t, db.Migrator().HasTable(&MigrationLog{}))

	status, err := GetSchemaStatus(context.Background(), db, cfg)
	require.NoError(t, err)
	assert.False(t, status.WillRunSQL)
	assert.True(t, status.WillRunAutoMigrate)
}

func TestEmbeddedMigrations(t *testing.T) {
	all := GetMigrations()
	require.NotEmpty(t, all)
	for i, m := range all {
		assert.NotEmpty(t, m.UpScript, m.String())
		assert.NotEmpty(t, m.DownScript, m.String())
		if i > 0 {
			assert.Greater(t, m.Version, all[i-1].Version)
		}
	}
	assert.Contains(t, all[0].UpScript, "relationships")
	assert.Equal(t, "000001_relationship_schema", all[0].String())
}

func testMigrations() []Migration {
	return []Migration{
		{Version: 1, Name: "widgets", UpScript: "CREATE TABLE widgets (id INTEGER PRIMARY KEY)", DownScript: "DROP TABLE widgets"},
		{Version: 2, Name: "gadgets", UpScript: "CREATE TABLE gadgets (id INTEGER PRIMARY KEY)", DownScript: "DROP TABLE gadgets"},
	}
}

func TestRunMigrations_AppliesPendingOnce(t *testing.T) {
	db := openMemory(t)
	ctx := context.Background()

	require.NoError(t, runMigrations(ctx, db, testMigrations()))
	require.NoError(t, runMigrations(ctx, db, testMigrations()))

	applied, err := NewMigrationStore(db).GetAppliedMigrations(ctx)
	require.NoError(t, err)
	assert.Equal(t, []int{1, 2}, applied)
	assert.True(t, db.Migrator().HasTable("widgets"))
	assert.True(t, db.Migrator().HasTable("gadgets"))
}

func TestRunMigrations_FailedScriptRollsBack(t *testing.T) {
	db := openMemory(t)
	ctx := context.Background()

	broken := append(testMigrations(), Migration{Version: 3, Name: "broken", UpScript: "CREATE TABLE", DownScript: ""})
	require.Error(t, runMigrations(ctx, db, broken))

	applied, err := NewMigrationStore(db).GetAppliedMigrations(ctx)
	require.NoError(t, err)
	assert.Equal(t, []int{1, 2}, applied)
}

func TestRunMigrations_UnknownAppliedVersion(t *testing.T) {
	db := openMemory(t)
	ctx := context.Background()
	require.NoError(t, runMigrations(ctx, db, testMigrations()))

	err := runMigrations(ctx, db, testMigrations()[:1])
	require.Error(t, err)
	assert.Contains(t, err.Error(), "000002")
}

func TestRevertMigration(t *testing.T) {
	db := openMemory(t)
	ctx := context.Background()
	ms := testMigrations()
	require.NoError(t, runMigrations(ctx, db, ms))

	store := NewMigrationStore(db)
	require.NoError(t, store.RevertMigration(ctx, ms[1]))

	applied, err := store.GetAppliedMigrations(ctx)
	require.NoError(t, err)
	assert.Equal(t, []int{1}, applied)
	assert.False(t, db.Migrator().HasTable("gadgets"))
}

func TestRollbackMigration(t *testing.T) {
	db := openMemory(t)
	ctx := context.Background()
	ms := testMigrations()
	require.NoError(t, runMigrations(ctx, db, ms))

	require.NoError(t, rollbackMigration(ctx, db, ms, 2))
	assert.False(t, db.Migrator().HasTable("gadgets"))
	assert.True(t, db.Migrator().HasTable("widgets"))

	err := rollbackMigration(ctx, db, ms, 2)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not applied")

	err = rollbackMigration(ctx, db, ms, 99)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not found")

	err = RollbackMigration(ctx, db, 999999)
	assert.Error(t, err)
}

func TestConnectWithOptions_SkipsSchema(t *testing.T) {
	cfg := &config.Config{
		Env:        "test",
		DBDriver:   config.DriverSQLite,
		SQLitePath: filepath.Join(t.TempDir(), "habitpal.db"),
	}

	db, err := ConnectWithOptions(cfg, ConnectOptions{ApplySchema: false})
	require.NoError(t, err)
	assert.False(t, db.Migrator().HasTable(&models.Relationship{}))

	status, err := GetSchemaStatus(context.Background(), db, cfg)
	require.NoError(t, err)
	assert.Equal(t, SchemaModeHybrid, status.Mode)
	assert.True(t, status.WillRunAutoMigrate)

	require.NoError(t, ApplySchema(context.Background(), db, cfg))
	assert.True(t, db.Migrator().HasTable(&models.Relationship{}))

	sqlDB, err := db.DB()
	require.NoError(t, err)
	require.NoError(t, sqlDB.Close())
}

func TestPersistentModels_IncludesRelationshipTables(t *testing.T) {
	db := openMemory(t)
	var names []string
	for _, model := range PersistentModels() {
		stmt := &gorm.Statement{DB: db}
		require.NoError(t, stmt.Parse(model))
		names = append(names, stmt.Schema.Table)
	}
	assert.Subset(t, names, []string{"accounts", "relationships", "notifications", "conversations"})
}
