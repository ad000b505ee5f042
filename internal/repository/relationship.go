package repository

import (
	"context"
	"errors"

	"habitpal/internal/models"

	"gorm.io/gorm"
)

// RelationshipRepository persists relationship rows keyed by canonical pair.
type RelationshipRepository interface {
	Create(ctx context.Context, rel *models.Relationship) error
	GetByID(ctx context.Context, id uint) (*models.Relationship, error)
	// GetBetween returns the row for the unordered pair {a, b}, or nil.
	GetBetween(ctx context.Context, a, b uint) (*models.Relationship, error)
	// Transition moves row id from one status to another, applying cols in
	// the same statement. It reports false when the row was not in from.
	Transition(ctx context.Context, id uint, from, to models.RelationshipStatus, cols map[string]interface{}) (bool, error)
	UpdateColumns(ctx context.Context, id uint, cols map[string]interface{}) error
	// Delete hard-deletes row id only while it is still in status.
	Delete(ctx context.Context, id uint, status models.RelationshipStatus) error
	ListPending(ctx context.Context, userID uint, direction models.RequestDirection) ([]models.RequestRow, error)
	ListFriends(ctx context.Context, userID uint) ([]models.FriendRow, error)
}

type relationshipRepository struct {
	db *gorm.DB
}

// NewRelationshipRepository creates a new relationship repository
func NewRelationshipRepository(db *gorm.DB) RelationshipRepository {
	return &relationshipRepository{db: db}
}

func (r *relationshipRepository) Create(ctx context.Context, rel *models.Relationship) error {
	return classify(r.db.WithContext(ctx).Create(rel).Error)
}

func (r *relationshipRepository) GetByID(ctx context.Context, id uint) (*models.Relationship, error) {
	var rel models.Relationship
	if err := r.db.WithContext(ctx).First(&rel, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, models.NewNotFoundError("Friend request", id)
		}
		return nil, classify(err)
	}
	return &rel, nil
}

func (r *relationshipRepository) GetBetween(ctx context.Context, a, b uint) (*models.Relationship, error) {
	low, high := models.CanonicalPair(a, b)
	var rel models.Relationship
	if err := r.db.WithContext(ctx).
		Where("pair_low_id = ? AND pair_high_id = ?", low, high).
		First(&rel).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, classify(err)
	}
	return &rel, nil
}

func (r *relationshipRepository) Transition(ctx context.Context, id uint, from, to models.RelationshipStatus, cols map[string]interface{}) (bool, error) {
	updates := make(map[string]interface{}, len(cols)+1)
	for k, v := range cols {
		updates[k] = v
	}
	updates["status"] = to

	res := r.db.WithContext(ctx).
		Model(&models.Relationship{}).
		Where("id = ? AND status = ?", id, from).
		Updates(updates)
	if res.Error != nil {
		return false, classify(res.Error)
	}
	return res.RowsAffected == 1, nil
}

func (r *relationshipRepository) UpdateColumns(ctx context.Context, id uint, cols map[string]interface{}) error {
	if len(cols) == 0 {
		return nil
	}
	res := r.db.WithContext(ctx).Model(&models.Relationship{}).Where("id = ?", id).Updates(cols)
	if res.Error != nil {
		return classify(res.Error)
	}
	if res.RowsAffected == 0 {
		return models.NewNotFoundError("Friend", id)
	}
	return nil
}

func (r *relationshipRepository) Delete(ctx context.Context, id uint, status models.RelationshipStatus) error {
	res := r.db.WithContext(ctx).Where("status = ?", status).Delete(&models.Relationship{}, id)
	if res.Error != nil {
		return classify(res.Error)
	}
	if res.RowsAffected == 0 {
		return models.NewNotFoundError("Friend", id)
	}
	return nil
}

const otherPartyColumns = `a.id AS other_id, a.public_uid AS other_uid, a.display_name AS other_display_name,
	a.avatar_ref AS other_avatar_ref, a.last_seen_at AS other_last_seen_at`

func (r *relationshipRepository) ListPending(ctx context.Context, userID uint, direction models.RequestDirection) ([]models.RequestRow, error) {
	selfCol, otherCol := "r.addressee_id", "r.requester_id"
	if direction == models.DirectionSent {
		selfCol, otherCol = "r.requester_id", "r.addressee_id"
	}

	rows := []models.RequestRow{}
	err := r.db.WithContext(ctx).
		Table("relationships AS r").
		Select("r.id, r.status, r.requester_message, r.created_at, "+otherPartyColumns).
		Joins("JOIN accounts a ON a.id = "+otherCol).
		Where(selfCol+" = ? AND r.status = ?", userID, models.StatusPending).
		Order("r.created_at DESC, r.id DESC").
		Scan(&rows).Error
	if err != nil {
		return nil, classify(err)
	}
	return rows, nil
}

func (r *relationshipRepository) ListFriends(ctx context.Context, userID uint) ([]models.FriendRow, error) {
	rows := []models.FriendRow{}
	err := r.db.WithContext(ctx).
		Table("relationships AS r").
		Select("r.*, "+otherPartyColumns).
		Joins("JOIN accounts a ON a.id = CASE WHEN r.requester_id = ? THEN r.addressee_id ELSE r.requester_id END", userID).
		Where("(r.requester_id = ? OR r.addressee_id = ?) AND r.status = ?", userID, userID, models.StatusAccepted).
		// Starred first, then most recent message (nulls last), then most
		// recently seen (nulls last). CASE keeps null ordering portable.
		Order("r.is_starred DESC").
		Order("CASE WHEN r.last_message_at IS NULL THEN 1 ELSE 0 END").
		Order("r.last_message_at DESC").
		Order("CASE WHEN a.last_seen_at IS NULL THEN 1 ELSE 0 END").
		Order("a.last_seen_at DESC").
		Order("r.id ASC").
		Scan(&rows).Error
	if err != nil {
		return nil, classify(err)
	}
	return rows, nil
}
