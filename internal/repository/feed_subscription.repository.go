package repository

import (
	"context"

	"github.com/jmoiron/sqlx"
	"github.com/krobus00/fix-md-service/internal/entity"
)

type FeedSubscriptionRepository struct {
	db *sqlx.DB
}

func NewFeedSubscriptionRepository(db *sqlx.DB) *FeedSubscriptionRepository {
	return &FeedSubscriptionRepository{db: db}
}

func (r *FeedSubscriptionRepository) GetByExchange(ctx context.Context, exchange string) ([]entity.FeedSubscription, error) {
	var subscriptions []entity.FeedSubscription
	err := r.db.SelectContext(ctx, &subscriptions, "SELECT * FROM feed_subscriptions WHERE exchange = $1 order by created_at desc", exchange)
	return subscriptions, err
}
