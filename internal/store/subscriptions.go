package store

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"campus-facility-backend/internal/model"
)

// ErrSubscriptionNotFound is returned by Get for an unknown endpoint.
var ErrSubscriptionNotFound = errors.New("subscription not found")

// SubscriptionStore persists staff web-push subscriptions.
type SubscriptionStore interface {
	Upsert(ctx context.Context, sub *model.PushSubscription) error
	Get(ctx context.Context, endpoint string) (*model.PushSubscription, error)
	Delete(ctx context.Context, endpoint string) error
	// ForRole returns subscriptions targeted at role plus those without a role.
	ForRole(ctx context.Context, role string) ([]model.PushSubscription, error)
}

type gormSubscriptionStore struct {
	db *gorm.DB
}

// NewSubscriptionStore creates a GORM-backed subscription store.
func NewSubscriptionStore(db *gorm.DB) SubscriptionStore {
	return &gormSubscriptionStore{db: db}
}

func (s *gormSubscriptionStore) Upsert(ctx context.Context, sub *model.PushSubscription) error {
	if err := s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "endpoint"}},
		DoUpdates: clause.AssignmentColumns([]string{"p256dh", "auth", "staff_id", "role"}),
	}).Create(sub).Error; err != nil {
		return fmt.Errorf("failed to upsert subscription: %w", err)
	}
	return nil
}

func (s *gormSubscriptionStore) Get(ctx context.Context, endpoint string) (*model.PushSubscription, error) {
	var sub model.PushSubscription
	err := s.db.WithContext(ctx).First(&sub, "endpoint = ?", endpoint).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrSubscriptionNotFound
	}
	if err != nil {
		return nil, err
	}
	return &sub, nil
}

func (s *gormSubscriptionStore) Delete(ctx context.Context, endpoint string) error {
	return s.db.WithContext(ctx).Delete(&model.PushSubscription{Endpoint: endpoint}).Error
}

func (s *gormSubscriptionStore) ForRole(ctx context.Context, role string) ([]model.PushSubscription, error) {
	var subs []model.PushSubscription
	q := s.db.WithContext(ctx)
	if role != "" {
		q = q.Where("role = ? OR role = ''", role)
	}
	if err := q.Find(&subs).Error; err != nil {
		return nil, fmt.Errorf("failed to fetch subscriptions for role %q: %w", role, err)
	}
	return subs, nil
}
