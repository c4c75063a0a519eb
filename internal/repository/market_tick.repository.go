package repository

import (
	"context"

	sq "github.com/Masterminds/squirrel"
	"github.com/jmoiron/sqlx"
	"github.com/krobus00/fix-md-service/internal/entity"
)

type MarketTickRepository struct {
	db *sqlx.DB
}

func NewMarketTickRepository(db *sqlx.DB) *MarketTickRepository {
	return &MarketTickRepository{db: db}
}

func (r *MarketTickRepository) Create(ctx context.Context, data *entity.MarketTick) error {
	queryBuilder := sq.StatementBuilder.
		PlaceholderFormat(sq.Dollar).
		Insert(data.TableName()).
		Columns(
			"id",
			"exchange",
			"symbol",
			"entry_type",
			"price",
			"size",
			"trade_id",
			"update_time",
			"created_at",
		).
		Values(
			data.ID,
			data.Exchange,
			data.Symbol,
			data.EntryType,
			data.Price,
			data.Size,
			data.TradeID,
			data.UpdateTime,
			data.CreatedAt,
		).
		Suffix(`ON CONFLICT (id)
DO UPDATE SET
	price = EXCLUDED.price,
	size = EXCLUDED.size,
	trade_id = EXCLUDED.trade_id,
	update_time = EXCLUDED.update_time`)

	query, args, err := queryBuilder.ToSql()
	if err != nil {
		return err
	}

	_, err = r.db.ExecContext(ctx, query, args...)
	return err
}

func (r *MarketTickRepository) GetLatestBySymbol(ctx context.Context, exchange, symbol string, limit uint64) ([]entity.MarketTick, error) {
	queryBuilder := sq.StatementBuilder.
		PlaceholderFormat(sq.Dollar).
		Select("*").
		From(entity.MarketTick{}.TableName()).
		Where(sq.Eq{"exchange": exchange, "symbol": symbol}).
		OrderBy("update_time desc").
		Limit(limit)

	query, args, err := queryBuilder.ToSql()
	if err != nil {
		return nil, err
	}

	var ticks []entity.MarketTick
	err = r.db.SelectContext(ctx, &ticks, query, args...)
	return ticks, err
}
