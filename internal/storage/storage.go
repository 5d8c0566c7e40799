// internal/storage/storage.go
package storage

import (
	"context"
	"errors"

	"github.com/rovshanmuradov/pumpfun-sniper/internal/storage/models"
)

// ErrNotFound is returned when no trade matches the query.
var ErrNotFound = errors.New("trade not found")

// Storage определяет интерфейс для работы с хранилищем сделок
type Storage interface {
	SaveTrade(ctx context.Context, trade *models.Trade) error
	GetTrade(ctx context.Context, recordID string) (*models.Trade, error)
	ListTradesByMint(ctx context.Context, mint string) ([]*models.Trade, error)
	ListTrades(ctx context.Context, limit, offset int) ([]*models.Trade, error)
	CountByOutcome(ctx context.Context) (map[string]int64, error)

	RunMigrations() error
	Close() error
}
