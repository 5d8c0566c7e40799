// internal/storage/sqlstore/sqlstore.go
package sqlstore

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/rovshanmuradov/pumpfun-sniper/internal/storage"
	"github.com/rovshanmuradov/pumpfun-sniper/internal/storage/models"
)

// Supported drivers
const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

const migrationLockID = 101

// sqlStorage реализует интерфейс storage.Storage поверх gorm
type sqlStorage struct {
	db     *gorm.DB
	driver string
	logger *zap.Logger
}

// NewStorage opens the database for driver. For sqlite dsn is a file path.
func NewStorage(driver, dsn string, zapLogger *zap.Logger) (storage.Storage, error) {
	var dialector gorm.Dialector
	switch driver {
	case DriverPostgres:
		dialector = postgres.Open(dsn)
	case DriverSQLite:
		if dir := filepath.Dir(dsn); dir != "." {
			if err := os.MkdirAll(dir, 0755); err != nil {
				return nil, fmt.Errorf("failed to create database directory: %w", err)
			}
		}
		dialector = sqlite.Open(dsn)
	default:
		return nil, fmt.Errorf("unsupported database driver %q", driver)
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		Logger: newGormLogger(zapLogger.Named("gorm")),
		NowFunc: func() time.Time {
			return time.Now().UTC()
		},
		DisableForeignKeyConstraintWhenMigrating: true,
		SkipDefaultTransaction:                   true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get database instance: %w", err)
	}

	// Настройка пула соединений
	if driver == DriverSQLite {
		sqlDB.SetMaxOpenConns(1)
	} else {
		sqlDB.SetMaxIdleConns(2)
		sqlDB.SetMaxOpenConns(10)
		sqlDB.SetConnMaxLifetime(time.Hour)
	}

	return &sqlStorage{
		db:     db,
		driver: driver,
		logger: zapLogger.Named("storage"),
	}, nil
}

// RunMigrations использует GORM AutoMigrate; на postgres под advisory lock.
func (s *sqlStorage) RunMigrations() error {
	if s.driver == DriverPostgres {
		var lockObtained bool
		err := s.db.Raw("SELECT pg_try_advisory_lock(?)", migrationLockID).Scan(&lockObtained).Error
		if err != nil {
			return fmt.Errorf("failed to acquire migration lock: %w", err)
		}
		if !lockObtained {
			return fmt.Errorf("another migration is in progress")
		}
		defer s.db.Exec("SELECT pg_advisory_unlock(?)", migrationLockID)
	}

	if err := s.db.AutoMigrate(&models.Trade{}); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}
	return nil
}

func (s *sqlStorage) SaveTrade(ctx context.Context, trade *models.Trade) error {
	return s.db.WithContext(ctx).Create(trade).Error
}

func (s *sqlStorage) GetTrade(ctx context.Context, recordID string) (*models.Trade, error) {
	var trade models.Trade
	err := s.db.WithContext(ctx).Where("record_id = ?", recordID).First(&trade).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, storage.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &trade, nil
}

func (s *sqlStorage) ListTradesByMint(ctx context.Context, mint string) ([]*models.Trade, error) {
	var trades []*models.Trade
	err := s.db.WithContext(ctx).
		Where("mint = ?", mint).
		Order("recorded_at asc").
		Find(&trades).Error
	return trades, err
}

func (s *sqlStorage) ListTrades(ctx context.Context, limit, offset int) ([]*models.Trade, error) {
	var trades []*models.Trade
	err := s.db.WithContext(ctx).
		Order("recorded_at desc").
		Limit(limit).
		Offset(offset).
		Find(&trades).Error
	return trades, err
}

func (s *sqlStorage) CountByOutcome(ctx context.Context) (map[string]int64, error) {
	var rows []struct {
		Outcome string
		Count   int64
	}
	err := s.db.WithContext(ctx).Model(&models.Trade{}).
		Select("outcome, count(*) as count").
		Group("outcome").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	counts := make(map[string]int64, len(rows))
	for _, r := range rows {
		counts[r.Outcome] = r.Count
	}
	return counts, nil
}

func (s *sqlStorage) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
