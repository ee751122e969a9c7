package rate

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// RateRecord is one effective-dated hourly rate. Its identity is the pair
// (user_id, effective_from); both are immutable after creation and only
// hourly_rate may change. The table carries unique constraint
// uq_user_rates_effective on the pair, which is the authority that rejects
// duplicate dates under concurrent creates.
type RateRecord struct {
	UserID        uuid.UUID       `gorm:"column:user_id;type:uuid;primaryKey"`
	EffectiveFrom time.Time       `gorm:"column:effective_from;type:date;primaryKey"`
	HourlyRate    decimal.Decimal `gorm:"column:hourly_rate;type:numeric(10,2);not null"`
	CreatedAt     time.Time       `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt     time.Time       `gorm:"column:updated_at;autoUpdateTime"`
}

func (RateRecord) TableName() string {
	return "user_rates"
}

// CurrentRate is the roster projection row: one user with their currently
// effective rate (latest effective_from not in the future), if any.
type CurrentRate struct {
	UserID        uuid.UUID        `gorm:"column:user_id"`
	Username      string           `gorm:"column:username"`
	Avatar        string           `gorm:"column:avatar"`
	HourlyRate    *decimal.Decimal `gorm:"column:hourly_rate"`
	EffectiveFrom *time.Time       `gorm:"column:effective_from"`
}
