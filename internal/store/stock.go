// internal/store/stock.go
package store

import (
	"context"
	"database/sql"

	"bloodlink/internal/common/errors"
	"bloodlink/internal/models"
)

// StockStore reads the blood stock snapshot. Never mutated by this service.
type StockStore struct {
	db *sql.DB
}

func NewStockStore(db *sql.DB) *StockStore {
	return &StockStore{db: db}
}

// Snapshot returns the current blood-group to unit-count mapping.
func (s *StockStore) Snapshot(ctx context.Context) (models.Stock, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT bloodgroup, unit FROM stocks ORDER BY bloodgroup`)
	if err != nil {
		return nil, errors.NewQueryExecutionFailedError("stock_snapshot", err)
	}
	defer rows.Close()

	stock := models.Stock{}
	for rows.Next() {
		var group string
		var units int
		if err := rows.Scan(&group, &units); err != nil {
			return nil, errors.NewQueryExecutionFailedError("scan_stock", err)
		}
		stock[group] = units
	}
	if err := rows.Err(); err != nil {
		return nil, errors.NewQueryExecutionFailedError("iterate_stock", err)
	}
	return stock, nil
}
