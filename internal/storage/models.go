package storage

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Market source platforms
const (
	SourcePolymarket = "polymarket"
	SourceKalshi     = "kalshi"
)

// Market status values. Stored as free-form strings since sources may report
// additional states (e.g. Kalshi "settled").
const (
	StatusOpen     = "open"
	StatusClosed   = "closed"
	StatusResolved = "resolved"
)

// Market holds prediction market metadata and current state. A market is
// uniquely identified by its (source, source_id) pair.
type Market struct {
	ID          string     `gorm:"type:char(36);primaryKey" json:"id"`
	SourceID    string     `gorm:"size:128;not null;uniqueIndex:idx_markets_source_key,priority:2" json:"source_id"`
	Source      string     `gorm:"size:32;not null;uniqueIndex:idx_markets_source_key,priority:1" json:"source"`
	Title       string     `gorm:"size:512;not null" json:"title"`
	Description string     `gorm:"type:text;not null" json:"description"`
	Category    *string    `gorm:"size:128" json:"category"`
	Tags        []string   `gorm:"serializer:json;type:text" json:"tags"`
	YesPrice    float64    `gorm:"type:decimal(10,6);not null" json:"yes_price"`
	NoPrice     float64    `gorm:"type:decimal(10,6);not null" json:"no_price"`
	Volume      float64    `gorm:"type:decimal(20,6);not null;default:0;index" json:"volume"`
	Volume24h   float64    `gorm:"type:decimal(20,6);not null;default:0" json:"volume_24h"`
	Liquidity   *float64   `gorm:"type:decimal(20,6)" json:"liquidity"`
	Status      string     `gorm:"size:32;not null;index" json:"status"`
	CreatedAt   time.Time  `gorm:"not null;index" json:"created_at"`
	UpdatedAt   time.Time  `gorm:"not null" json:"updated_at"`
	CloseAt     *time.Time `json:"close_at"`
	URL         string     `gorm:"size:512;not null" json:"url"`
}

func (Market) TableName() string {
	return "markets"
}

// PriceHistory is an immutable time-series snapshot of a market's prices and
// volumes. recorded_at is truncated to the minute so the unique key allows at
// most one snapshot per market per minute.
type PriceHistory struct {
	ID         string    `gorm:"type:char(36);primaryKey" json:"id"`
	MarketID   string    `gorm:"type:char(36);not null;uniqueIndex:idx_price_history_market_ts,priority:1" json:"market_id"`
	YesPrice   float64   `gorm:"type:decimal(10,6);not null" json:"yes_price"`
	NoPrice    float64   `gorm:"type:decimal(10,6);not null" json:"no_price"`
	Volume     float64   `gorm:"type:decimal(20,6);not null;default:0" json:"volume"`
	Volume24h  float64   `gorm:"type:decimal(20,6);not null;default:0" json:"volume_24h"`
	Liquidity  *float64  `gorm:"type:decimal(20,6)" json:"liquidity"`
	RecordedAt time.Time `gorm:"not null;uniqueIndex:idx_price_history_market_ts,priority:2" json:"recorded_at"`
}

func (PriceHistory) TableName() string {
	return "price_history"
}

// CreateMarket is the canonical creation record produced by source adapters.
// It is never persisted directly, only through the recorder.
type CreateMarket struct {
	SourceID    string
	Source      string
	Title       string
	Description string
	Category    *string
	Tags        []string
	YesPrice    float64
	NoPrice     float64
	Volume      float64
	Volume24h   float64
	Liquidity   *float64
	Status      string
	CloseAt     *time.Time
	URL         string
}

// BeforeCreate hooks assign UUID primary keys

func (m *Market) BeforeCreate(tx *gorm.DB) error {
	if m.ID == "" {
		m.ID = uuid.NewString()
	}
	return nil
}

func (p *PriceHistory) BeforeCreate(tx *gorm.DB) error {
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	if p.RecordedAt.IsZero() {
		p.RecordedAt = time.Now().UTC().Truncate(time.Minute)
	}
	return nil
}
