package repository

import (
	"context"
	"errors"
	"time"

	"habitpal/internal/cache"
	"habitpal/internal/models"

	"gorm.io/gorm"
)

// AccountRepository reads the identity directory. It never writes.
type AccountRepository interface {
	GetByID(ctx context.Context, id uint) (*models.Account, error)
	GetByPublicUID(ctx context.Context, uid string) (*models.Account, error)
}

type accountRepository struct {
	db  *gorm.DB
	ttl time.Duration
}

// NewAccountRepository returns an AccountRepository with cache-aside lookups
// using the default TTL.
func NewAccountRepository(db *gorm.DB) AccountRepository {
	return &accountRepository{db: db, ttl: accountTTL}
}

var accountTTL = cache.AccountTTL

// SetAccountCacheTTL changes the TTL used for cached account lookups.
func SetAccountCacheTTL(ttl time.Duration) {
	if ttl > 0 {
		accountTTL = ttl
	}
}

func (r *accountRepository) GetByID(ctx context.Context, id uint) (*models.Account, error) {
	var account models.Account
	err := cache.Aside(ctx, cache.AccountIDKey(id), &account, r.ttl, func() error {
		if err := r.db.WithContext(ctx).First(&account, id).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return models.NewNotFoundError("User", id)
			}
			return classify(err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &account, nil
}

func (r *accountRepository) GetByPublicUID(ctx context.Context, uid string) (*models.Account, error) {
	var account models.Account
	err := cache.Aside(ctx, cache.AccountUIDKey(uid), &account, r.ttl, func() error {
		if err := r.db.WithContext(ctx).Where("public_uid = ?", uid).First(&account).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return models.NewNotFoundError("User", uid)
			}
			return classify(err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &account, nil
}
