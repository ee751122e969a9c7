package rate

import (
	"context"
	"database/sql"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

//go:generate mockgen -source=rate_repo.go -destination=mock/rate_repo_mock.go -package=mock
type Repository interface {
	WithTx(tx *sql.Tx) Repository
	ListByUser(ctx context.Context, userID string) ([]RateRecord, error)
	FindByKey(ctx context.Context, userID string, effectiveFrom time.Time) (*RateRecord, error)
	Create(ctx context.Context, record *RateRecord) error
	UpdateRate(ctx context.Context, userID string, effectiveFrom time.Time, hourlyRate decimal.Decimal) error
	ListCurrent(ctx context.Context) ([]CurrentRate, error)
}

type repository struct {
	db    *gorm.DB
	sqlDB *sql.DB
	tx    *sql.Tx
}

func NewRepository(db *gorm.DB, sqlDB *sql.DB) Repository {
	return &repository{db: db, sqlDB: sqlDB}
}

func (r *repository) WithTx(tx *sql.Tx) Repository {
	return &repository{db: r.db, sqlDB: r.sqlDB, tx: tx}
}

type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func (r *repository) execer() execer {
	if r.tx != nil {
		return r.tx
	}
	return r.sqlDB
}

func (r *repository) ListByUser(ctx context.Context, userID string) ([]RateRecord, error) {
	var records []RateRecord
	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("effective_from DESC").
		Find(&records).Error
	return records, err
}

func (r *repository) FindByKey(ctx context.Context, userID string, effectiveFrom time.Time) (*RateRecord, error) {
	var record RateRecord
	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Where("effective_from = ?", effectiveFrom.Format("2006-01-02")).
		First(&record).Error
	if err != nil {
		return nil, err
	}
	return &record, nil
}

// Writes go through database/sql so they can share a transaction with the
// outbox repository.

func (r *repository) Create(ctx context.Context, record *RateRecord) error {
	query := `
        INSERT INTO user_rates (user_id, effective_from, hourly_rate)
        VALUES ($1, $2, $3)
    `

	_, err := r.execer().ExecContext(
		ctx, query,
		record.UserID, record.EffectiveFrom.Format("2006-01-02"), record.HourlyRate,
	)
	return err
}

func (r *repository) UpdateRate(ctx context.Context, userID string, effectiveFrom time.Time, hourlyRate decimal.Decimal) error {
	query := `
        UPDATE user_rates
        SET hourly_rate = $3, updated_at = NOW()
        WHERE user_id = $1 AND effective_from = $2
    `

	res, err := r.execer().ExecContext(
		ctx, query,
		userID, effectiveFrom.Format("2006-01-02"), hourlyRate,
	)
	if err != nil {
		return err
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return gorm.ErrRecordNotFound
	}

	return nil
}

func (r *repository) ListCurrent(ctx context.Context) ([]CurrentRate, error) {
	var rows []CurrentRate
	query := `
SELECT
	u.id AS user_id,
	u.username,
	COALESCE(u.avatar, '') AS avatar,
	cur.hourly_rate,
	cur.effective_from
FROM users u
LEFT JOIN LATERAL (
	SELECT hourly_rate, effective_from
	FROM user_rates
	WHERE user_id = u.id
		AND effective_from <= CURRENT_DATE
	ORDER BY effective_from DESC
	LIMIT 1
) cur ON TRUE
ORDER BY u.username ASC
`

	err := r.db.WithContext(ctx).Raw(query).Scan(&rows).Error
	return rows, err
}
