package rate_test

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"user-rates/internal/messaging/kafka"
	"user-rates/internal/rate"
	rateerrors "user-rates/internal/rate/errors"
	"user-rates/internal/user"
	usererrors "user-rates/internal/user/errors"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"gorm.io/gorm"
)

type fakeRateRepository struct {
	withTxFn      func(tx *sql.Tx) rate.Repository
	listByUserFn  func(ctx context.Context, userID string) ([]rate.RateRecord, error)
	findByKeyFn   func(ctx context.Context, userID string, effectiveFrom time.Time) (*rate.RateRecord, error)
	createFn      func(ctx context.Context, record *rate.RateRecord) error
	updateRateFn  func(ctx context.Context, userID string, effectiveFrom time.Time, hourlyRate decimal.Decimal) error
	listCurrentFn func(ctx context.Context) ([]rate.CurrentRate, error)
}

func (f *fakeRateRepository) WithTx(tx *sql.Tx) rate.Repository {
	if f.withTxFn != nil {
		return f.withTxFn(tx)
	}
	return f
}

func (f *fakeRateRepository) ListByUser(ctx context.Context, userID string) ([]rate.RateRecord, error) {
	if f.listByUserFn != nil {
		return f.listByUserFn(ctx, userID)
	}
	return nil, nil
}

func (f *fakeRateRepository) FindByKey(ctx context.Context, userID string, effectiveFrom time.Time) (*rate.RateRecord, error) {
	if f.findByKeyFn != nil {
		return f.findByKeyFn(ctx, userID, effectiveFrom)
	}
	return nil, nil
}

func (f *fakeRateRepository) Create(ctx context.Context, record *rate.RateRecord) error {
	if f.createFn != nil {
		return f.createFn(ctx, record)
	}
	return nil
}

func (f *fakeRateRepository) UpdateRate(ctx context.Context, userID string, effectiveFrom time.Time, hourlyRate decimal.Decimal) error {
	if f.updateRateFn != nil {
		return f.updateRateFn(ctx, userID, effectiveFrom, hourlyRate)
	}
	return nil
}

func (f *fakeRateRepository) ListCurrent(ctx context.Context) ([]rate.CurrentRate, error) {
	if f.listCurrentFn != nil {
		return f.listCurrentFn(ctx)
	}
	return nil, nil
}

type fakeUserRepository struct {
	findByIDFn func(ctx context.Context, id string) (*user.User, error)
	findAllFn  func(ctx context.Context) ([]user.User, error)
}

func (f *fakeUserRepository) FindByID(ctx context.Context, id string) (*user.User, error) {
	if f.findByIDFn != nil {
		return f.findByIDFn(ctx, id)
	}
	return nil, gorm.ErrRecordNotFound
}

func (f *fakeUserRepository) FindAll(ctx context.Context) ([]user.User, error) {
	if f.findAllFn != nil {
		return f.findAllFn(ctx)
	}
	return nil, nil
}

type fakeOutboxRepository struct {
	events []kafka.OutboxEvent
}

func (f *fakeOutboxRepository) WithTx(tx *sql.Tx) kafka.OutboxRepository { return f }

func (f *fakeOutboxRepository) Create(ctx context.Context, event kafka.OutboxEvent) error {
	f.events = append(f.events, event)
	return nil
}

func (f *fakeOutboxRepository) ListPending(ctx context.Context, limit int) ([]kafka.OutboxEvent, error) {
	return nil, nil
}

func (f *fakeOutboxRepository) MarkSent(ctx context.Context, id string) error { return nil }

func (f *fakeOutboxRepository) MarkFailed(ctx context.Context, id string, reason string) error {
	return nil
}

type serviceDeps struct {
	db      *sql.DB
	sqlMock sqlmock.Sqlmock
	service rate.Service
	repo    *fakeRateRepository
	users   *fakeUserRepository
	outbox  *fakeOutboxRepository
}

func setupServiceTest(t *testing.T) *serviceDeps {
	t.Helper()

	db, sqlMock, err := sqlmock.New()
	assert.NoError(t, err)

	repo := &fakeRateRepository{}
	users := &fakeUserRepository{}
	outbox := &fakeOutboxRepository{}
	svc := rate.NewServiceWithOutbox(db, repo, users, outbox)

	return &serviceDeps{
		db:      db,
		sqlMock: sqlMock,
		service: svc,
		repo:    repo,
		users:   users,
		outbox:  outbox,
	}
}

func knownUser(id uuid.UUID) func(ctx context.Context, uid string) (*user.User, error) {
	return func(ctx context.Context, uid string) (*user.User, error) {
		if uid == id.String() {
			return &user.User{ID: id, Username: "kostas"}, nil
		}
		return nil, gorm.ErrRecordNotFound
	}
}

func expectTx(t *testing.T, mock sqlmock.Sqlmock, commit bool) {
	t.Helper()
	mock.ExpectBegin()
	if commit {
		mock.ExpectCommit()
	} else {
		mock.ExpectRollback()
	}
}

func dateUTC(year int, month time.Month, day int) time.Time {
	return time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
}

func TestRateService_ListByUser(t *testing.T) {
	deps := setupServiceTest(t)
	defer deps.db.Close()

	ctx := context.Background()
	userID := uuid.New()
	deps.users.findByIDFn = knownUser(userID)

	t.Run("history is sorted newest first", func(t *testing.T) {
		deps.repo.listByUserFn = func(ctx context.Context, uid string) ([]rate.RateRecord, error) {
			assert.Equal(t, userID.String(), uid)
			// returned out of order on purpose
			return []rate.RateRecord{
				{UserID: userID, EffectiveFrom: dateUTC(2024, 1, 1), HourlyRate: decimal.RequireFromString("10.00")},
				{UserID: userID, EffectiveFrom: dateUTC(2026, 1, 1), HourlyRate: decimal.RequireFromString("12.00")},
				{UserID: userID, EffectiveFrom: dateUTC(2025, 1, 1), HourlyRate: decimal.RequireFromString("11.50")},
			}, nil
		}

		resp, err := deps.service.ListByUser(ctx, userID.String())

		assert.NoError(t, err)
		assert.Len(t, resp, 3)
		assert.Equal(t, "2026-01-01", resp[0].EffectiveFrom)
		assert.Equal(t, "2025-01-01", resp[1].EffectiveFrom)
		assert.Equal(t, "2024-01-01", resp[2].EffectiveFrom)
		assert.Equal(t, "12.00", resp[0].HourlyRate)
	})

	t.Run("unknown user", func(t *testing.T) {
		listCalled := false
		deps.repo.listByUserFn = func(ctx context.Context, uid string) ([]rate.RateRecord, error) {
			listCalled = true
			return nil, nil
		}

		_, err := deps.service.ListByUser(ctx, uuid.New().String())

		assert.ErrorIs(t, err, usererrors.ErrUserNotFound)
		assert.False(t, listCalled)
	})

	t.Run("malformed user id", func(t *testing.T) {
		_, err := deps.service.ListByUser(ctx, "not-a-uuid")
		assert.ErrorIs(t, err, usererrors.ErrInvalidUserID)
	})

	t.Run("repo error", func(t *testing.T) {
		deps.repo.listByUserFn = func(ctx context.Context, uid string) ([]rate.RateRecord, error) {
			return nil, errors.New("db error")
		}

		resp, err := deps.service.ListByUser(ctx, userID.String())

		assert.Error(t, err)
		assert.Nil(t, resp)
	})
}

func TestRateService_Create(t *testing.T) {
	deps := setupServiceTest(t)
	defer deps.db.Close()

	ctx := context.Background()
	userID := uuid.New()
	deps.users.findByIDFn = knownUser(userID)

	t.Run("success with decimal comma", func(t *testing.T) {
		req := rate.CreateRateRequest{
			UserID:        userID.String(),
			EffectiveFrom: "2026-01-01",
			HourlyRate:    "12,5",
		}

		expectTx(t, deps.sqlMock, true)

		deps.repo.createFn = func(ctx context.Context, record *rate.RateRecord) error {
			assert.Equal(t, userID, record.UserID)
			assert.Equal(t, "2026-01-01", record.EffectiveFrom.Format("2006-01-02"))
			assert.True(t, record.HourlyRate.Equal(decimal.RequireFromString("12.5")))
			return nil
		}

		resp, err := deps.service.Create(ctx, req)

		assert.NoError(t, err)
		assert.Equal(t, userID.String(), resp.UserID)
		assert.Equal(t, "2026-01-01", resp.EffectiveFrom)
		assert.Equal(t, "12.50", resp.HourlyRate)
		assert.NoError(t, deps.sqlMock.ExpectationsWereMet())

		assert.Len(t, deps.outbox.events, 1)
		assert.Equal(t, "rate_created", deps.outbox.events[0].EventType)
		assert.Equal(t, "hr.rate.changed.v1", deps.outbox.events[0].Topic)
		assert.Equal(t, userID.String(), deps.outbox.events[0].AggregateID)
	})

	t.Run("past dates are allowed", func(t *testing.T) {
		deps.outbox.events = nil
		expectTx(t, deps.sqlMock, true)

		deps.repo.createFn = func(ctx context.Context, record *rate.RateRecord) error {
			assert.Equal(t, "2019-06-15", record.EffectiveFrom.Format("2006-01-02"))
			return nil
		}

		_, err := deps.service.Create(ctx, rate.CreateRateRequest{
			UserID:        userID.String(),
			EffectiveFrom: "2019-06-15",
			HourlyRate:    "8.00",
		})

		assert.NoError(t, err)
		assert.NoError(t, deps.sqlMock.ExpectationsWereMet())
	})

	t.Run("invalid effective date never reaches the store", func(t *testing.T) {
		createCalled := false
		deps.repo.createFn = func(ctx context.Context, record *rate.RateRecord) error {
			createCalled = true
			return nil
		}

		_, err := deps.service.Create(ctx, rate.CreateRateRequest{
			UserID:        userID.String(),
			EffectiveFrom: "01/01/2026",
			HourlyRate:    "12.00",
		})

		assert.ErrorIs(t, err, rateerrors.ErrInvalidEffectiveDate)
		assert.False(t, createCalled)
	})

	t.Run("non-numeric rate never reaches the store", func(t *testing.T) {
		createCalled := false
		deps.repo.createFn = func(ctx context.Context, record *rate.RateRecord) error {
			createCalled = true
			return nil
		}

		_, err := deps.service.Create(ctx, rate.CreateRateRequest{
			UserID:        userID.String(),
			EffectiveFrom: "2026-01-01",
			HourlyRate:    "abc",
		})

		assert.Error(t, err)
		assert.False(t, createCalled)
	})

	t.Run("unknown user never reaches the store", func(t *testing.T) {
		createCalled := false
		deps.repo.createFn = func(ctx context.Context, record *rate.RateRecord) error {
			createCalled = true
			return nil
		}

		_, err := deps.service.Create(ctx, rate.CreateRateRequest{
			UserID:        uuid.New().String(),
			EffectiveFrom: "2026-01-01",
			HourlyRate:    "12.00",
		})

		assert.ErrorIs(t, err, usererrors.ErrUserNotFound)
		assert.False(t, createCalled)
	})

	t.Run("duplicate effective date", func(t *testing.T) {
		expectTx(t, deps.sqlMock, false)

		deps.repo.createFn = func(ctx context.Context, record *rate.RateRecord) error {
			return &pgconn.PgError{Code: "23505", ConstraintName: "uq_user_rates_effective"}
		}

		_, err := deps.service.Create(ctx, rate.CreateRateRequest{
			UserID:        userID.String(),
			EffectiveFrom: "2026-01-01",
			HourlyRate:    "12.00",
		})

		assert.ErrorIs(t, err, rateerrors.ErrDuplicateEffectiveDate)
		assert.NoError(t, deps.sqlMock.ExpectationsWereMet())
	})

	t.Run("repo create error", func(t *testing.T) {
		expectTx(t, deps.sqlMock, false)

		deps.repo.createFn = func(ctx context.Context, record *rate.RateRecord) error {
			return errors.New("db error")
		}

		_, err := deps.service.Create(ctx, rate.CreateRateRequest{
			UserID:        userID.String(),
			EffectiveFrom: "2026-01-01",
			HourlyRate:    "12.00",
		})

		assert.Error(t, err)
		assert.NoError(t, deps.sqlMock.ExpectationsWereMet())
	})
}

func TestRateService_Update(t *testing.T) {
	deps := setupServiceTest(t)
	defer deps.db.Close()

	ctx := context.Background()
	userID := uuid.New()
	deps.users.findByIDFn = knownUser(userID)

	t.Run("success", func(t *testing.T) {
		expectTx(t, deps.sqlMock, true)

		deps.repo.updateRateFn = func(ctx context.Context, uid string, effectiveFrom time.Time, hourlyRate decimal.Decimal) error {
			assert.Equal(t, userID.String(), uid)
			assert.Equal(t, "2025-01-01", effectiveFrom.Format("2006-01-02"))
			assert.True(t, hourlyRate.Equal(decimal.RequireFromString("13.25")))
			return nil
		}

		resp, err := deps.service.Update(ctx, rate.UpdateRateRequest{
			UserID:        userID.String(),
			EffectiveFrom: "2025-01-01",
			HourlyRate:    "13,25",
		})

		assert.NoError(t, err)
		assert.Equal(t, "13.25", resp.HourlyRate)
		assert.Equal(t, "2025-01-01", resp.EffectiveFrom)
		assert.NoError(t, deps.sqlMock.ExpectationsWereMet())

		last := deps.outbox.events[len(deps.outbox.events)-1]
		assert.Equal(t, "rate_updated", last.EventType)
	})

	t.Run("parse failure never reaches the store", func(t *testing.T) {
		updateCalled := false
		deps.repo.updateRateFn = func(ctx context.Context, uid string, effectiveFrom time.Time, hourlyRate decimal.Decimal) error {
			updateCalled = true
			return nil
		}

		_, err := deps.service.Update(ctx, rate.UpdateRateRequest{
			UserID:        userID.String(),
			EffectiveFrom: "2025-01-01",
			HourlyRate:    "abc",
		})

		assert.Error(t, err)
		assert.False(t, updateCalled)
	})

	t.Run("record not found", func(t *testing.T) {
		expectTx(t, deps.sqlMock, false)

		deps.repo.updateRateFn = func(ctx context.Context, uid string, effectiveFrom time.Time, hourlyRate decimal.Decimal) error {
			return gorm.ErrRecordNotFound
		}

		_, err := deps.service.Update(ctx, rate.UpdateRateRequest{
			UserID:        userID.String(),
			EffectiveFrom: "2030-01-01",
			HourlyRate:    "13.25",
		})

		assert.ErrorIs(t, err, rateerrors.ErrRateNotFound)
		assert.NoError(t, deps.sqlMock.ExpectationsWereMet())
	})

	t.Run("store failure", func(t *testing.T) {
		expectTx(t, deps.sqlMock, false)

		deps.repo.updateRateFn = func(ctx context.Context, uid string, effectiveFrom time.Time, hourlyRate decimal.Decimal) error {
			return errors.New("db error")
		}

		_, err := deps.service.Update(ctx, rate.UpdateRateRequest{
			UserID:        userID.String(),
			EffectiveFrom: "2025-01-01",
			HourlyRate:    "13.25",
		})

		assert.Error(t, err)
		assert.NoError(t, deps.sqlMock.ExpectationsWereMet())
	})
}

func TestRateService_ListCurrent(t *testing.T) {
	deps := setupServiceTest(t)
	defer deps.db.Close()

	ctx := context.Background()
	withRate := uuid.New()
	withoutRate := uuid.New()

	rateVal := decimal.RequireFromString("12.5")
	effective := dateUTC(2025, 1, 1)

	deps.repo.listCurrentFn = func(ctx context.Context) ([]rate.CurrentRate, error) {
		return []rate.CurrentRate{
			{UserID: withRate, Username: "anna", Avatar: "avatars/anna.png", HourlyRate: &rateVal, EffectiveFrom: &effective},
			{UserID: withoutRate, Username: "nikos"},
		}, nil
	}

	resp, err := deps.service.ListCurrent(ctx)

	assert.NoError(t, err)
	assert.Len(t, resp, 2)

	assert.Equal(t, "anna", resp[0].Username)
	assert.Equal(t, "12.50", resp[0].HourlyRate)
	assert.Equal(t, "2025-01-01", resp[0].EffectiveFrom)
	assert.Equal(t, "12.50 €", resp[0].Display)

	assert.Equal(t, "nikos", resp[1].Username)
	assert.Empty(t, resp[1].HourlyRate)
	assert.Empty(t, resp[1].EffectiveFrom)
	assert.Equal(t, "—", resp[1].Display)
}

func TestRateService_ProposeNew(t *testing.T) {
	deps := setupServiceTest(t)
	defer deps.db.Close()

	ctx := context.Background()
	userID := uuid.New()
	deps.users.findByIDFn = knownUser(userID)

	t.Run("proposal for known user", func(t *testing.T) {
		proposal, err := deps.service.ProposeNew(ctx, userID.String())

		assert.NoError(t, err)
		assert.Equal(t, userID.String(), proposal.UserID)
		assert.Empty(t, proposal.HourlyRate)

		expected := rate.DefaultEffectiveFrom(time.Now().UTC()).Format("2006-01-02")
		assert.Equal(t, expected, proposal.EffectiveFrom)
	})

	t.Run("unknown user", func(t *testing.T) {
		_, err := deps.service.ProposeNew(ctx, uuid.New().String())
		assert.ErrorIs(t, err, usererrors.ErrUserNotFound)
	})
}

func TestDefaultEffectiveFrom(t *testing.T) {
	t.Run("mid-year proposes next january 1", func(t *testing.T) {
		got := rate.DefaultEffectiveFrom(dateUTC(2026, 9, 1))
		assert.Equal(t, dateUTC(2027, 1, 1), got)
	})

	t.Run("december 31 proposes the very next day", func(t *testing.T) {
		got := rate.DefaultEffectiveFrom(dateUTC(2026, 12, 31))
		assert.Equal(t, dateUTC(2027, 1, 1), got)
	})

	t.Run("january 1 proposes today", func(t *testing.T) {
		got := rate.DefaultEffectiveFrom(dateUTC(2026, 1, 1))
		assert.Equal(t, dateUTC(2026, 1, 1), got)
	})
}
