package storage

import (
	"context"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"
)

// Columns overwritten when an upsert hits an existing (source, source_id)
// row. Identity fields, created_at and url are immutable after creation;
// title and description are refreshed since sources revise wording.
var upsertColumns = []string{
	"title", "description", "yes_price", "no_price", "volume",
	"volume_24h", "liquidity", "status", "close_at", "updated_at",
}

// Whitelisted sort keys for ListMarkets. User-supplied sort names are only
// ever resolved through this map, never interpolated into query syntax.
var sortColumns = map[string]string{
	"created_at": "created_at",
	"volume":     "volume",
	"volume_24h": "volume_24h",
	"close_at":   "close_at",
}

var orderDirections = map[string]string{
	"asc":  "ASC",
	"desc": "DESC",
}

// ListOptions control pagination and ordering of ListMarkets. Unknown sort
// keys fall back to created_at, unknown orders to descending.
type ListOptions struct {
	Limit  int
	Offset int
	SortBy string
	Order  string
}

// DB wraps the GORM database connection
type DB struct {
	conn *gorm.DB
	log  *logrus.Logger
}

// New creates a new database connection with GORM
func New(dsn string, maxConns int, log *logrus.Logger) (*DB, error) {
	// Configure GORM logger
	gormLogger := logger.New(
		&gormLogAdapter{log: log},
		logger.Config{
			SlowThreshold:             200 * time.Millisecond,
			LogLevel:                  logger.Warn,
			IgnoreRecordNotFoundError: true,
			Colorful:                  false,
		},
	)

	conn, err := gorm.Open(mysql.Open(dsn), &gorm.Config{
		Logger: gormLogger,
	})
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	sqlDB, err := conn.DB()
	if err != nil {
		return nil, fmt.Errorf("get sql.DB: %w", err)
	}

	sqlDB.SetMaxOpenConns(maxConns)
	sqlDB.SetMaxIdleConns(maxConns / 2)
	sqlDB.SetConnMaxIdleTime(5 * time.Minute)

	// Verify connection
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := sqlDB.PingContext(ctx); err != nil {
		return nil, fmt.Errorf("ping database: %w", err)
	}

	log.Info("Database connection established")

	return &DB{conn: conn, log: log}, nil
}

// Close closes the database connection
func (db *DB) Close() error {
	sqlDB, err := db.conn.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// AutoMigrate runs GORM auto-migration (for development only)
func (db *DB) AutoMigrate() error {
	return db.conn.AutoMigrate(
		&Market{},
		&PriceHistory{},
	)
}

// UpsertMarket atomically inserts a market or, on a (source, source_id)
// conflict, overwrites its mutable fields. Returns the post-upsert row.
func (db *DB) UpsertMarket(ctx context.Context, create CreateMarket) (*Market, error) {
	market := Market{
		SourceID:    create.SourceID,
		Source:      create.Source,
		Title:       create.Title,
		Description: create.Description,
		Category:    create.Category,
		Tags:        create.Tags,
		YesPrice:    create.YesPrice,
		NoPrice:     create.NoPrice,
		Volume:      create.Volume,
		Volume24h:   create.Volume24h,
		Liquidity:   create.Liquidity,
		Status:      create.Status,
		CloseAt:     create.CloseAt,
		URL:         create.URL,
	}

	result := db.conn.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "source"}, {Name: "source_id"}},
		DoUpdates: clause.AssignmentColumns(upsertColumns),
	}).Create(&market)
	if result.Error != nil {
		return nil, fmt.Errorf("upsert market: %w", result.Error)
	}

	// MySQL has no RETURNING; read back the surviving row so callers see the
	// original id and created_at when the insert hit an existing market.
	var updated Market
	err := db.conn.WithContext(ctx).
		Where("source = ? AND source_id = ?", create.Source, create.SourceID).
		First(&updated).Error
	if err != nil {
		return nil, fmt.Errorf("reload market after upsert: %w", err)
	}
	return &updated, nil
}

// InsertSnapshot appends a price history row. A duplicate
// (market_id, recorded_at) pair is silently dropped.
func (db *DB) InsertSnapshot(ctx context.Context, snapshot *PriceHistory) error {
	result := db.conn.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "market_id"}, {Name: "recorded_at"}},
		DoNothing: true,
	}).Create(snapshot)
	return result.Error
}

// GetMarket retrieves a market by its internal id. Returns (nil, nil) when
// no such market exists.
func (db *DB) GetMarket(ctx context.Context, id string) (*Market, error) {
	var market Market
	result := db.conn.WithContext(ctx).Where("id = ?", id).First(&market)
	if result.Error == gorm.ErrRecordNotFound {
		return nil, nil
	}
	if result.Error != nil {
		return nil, result.Error
	}
	return &market, nil
}

// ListMarkets returns a page of markets ordered by a whitelisted sort column
func (db *DB) ListMarkets(ctx context.Context, opts ListOptions) ([]Market, error) {
	column, ok := sortColumns[opts.SortBy]
	if !ok {
		column = "created_at"
	}
	direction, ok := orderDirections[opts.Order]
	if !ok {
		direction = "DESC"
	}

	var markets []Market
	result := db.conn.WithContext(ctx).
		Order(column + " " + direction).
		Limit(opts.Limit).
		Offset(opts.Offset).
		Find(&markets)
	return markets, result.Error
}

// GetHistory returns a market's snapshots newest-first, optionally limited
// to a lookback window in hours.
func (db *DB) GetHistory(ctx context.Context, marketID string, limit int, hours int) ([]PriceHistory, error) {
	tx := db.conn.WithContext(ctx).Where("market_id = ?", marketID)
	if hours > 0 {
		cutoff := time.Now().UTC().Add(-time.Duration(hours) * time.Hour)
		tx = tx.Where("recorded_at >= ?", cutoff)
	}

	var history []PriceHistory
	result := tx.Order("recorded_at DESC").Limit(limit).Find(&history)
	return history, result.Error
}

// gormLogAdapter adapts logrus to GORM's logger interface
type gormLogAdapter struct {
	log *logrus.Logger
}

func (l *gormLogAdapter) Printf(format string, args ...interface{}) {
	l.log.Debugf(format, args...)
}
