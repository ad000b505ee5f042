// Package bootstrap opens the runtime dependencies shared by the commands.
package bootstrap

import (
	"fmt"
	"log"
	"os"
	"strings"

	"habitpal/internal/cache"
	"habitpal/internal/config"
	"habitpal/internal/database"
	"habitpal/internal/repository"
	"habitpal/internal/seed"

	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

// Options control runtime initialization behavior.
type Options struct {
	// SeedFixture is a YAML fixture applied after connecting. It is only
	// honored in development and test.
	SeedFixture string
}

// InitRuntime connects to the database and Redis and optionally seeds
// development data. The Redis client is nil when Redis is unreachable.
func InitRuntime(cfg *config.Config, opts Options) (*gorm.DB, *redis.Client, error) {
	db, err := database.Connect(cfg)
	if err != nil {
		return nil, nil, fmt.Errorf("database connection failed: %w", err)
	}

	r := cache.InitRedis(cfg.RedisURL)
	repository.SetAccountCacheTTL(cfg.AccountCacheTTL)

	if err := seedFixture(cfg, db, opts.SeedFixture); err != nil {
		return nil, nil, fmt.Errorf("failed to seed development fixture: %w", err)
	}

	return db, r, nil
}

func seedFixture(cfg *config.Config, db *gorm.DB, path string) error {
	if strings.TrimSpace(path) == "" {
		return nil
	}
	if cfg.Env != "development" && cfg.Env != "test" {
		log.Printf("ignoring DEV_SEED_FIXTURE outside development (env=%s)", cfg.Env)
		return nil
	}

	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	fixture, err := seed.LoadFixture(f)
	if err != nil {
		return err
	}
	if err := seed.NewSeeder(db, 0).Apply(fixture); err != nil {
		return err
	}
	log.Printf("development fixture applied from %s (%d accounts)", path, len(fixture.Accounts))
	return nil
}
