package rate

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"sort"
	"time"

	"user-rates/internal/events"
	"user-rates/internal/messaging/kafka"
	"user-rates/internal/metrics"
	rateerrors "user-rates/internal/rate/errors"
	"user-rates/internal/shared/apperror"
	"user-rates/internal/shared/contextutil"
	"user-rates/internal/shared/money"
	"user-rates/internal/user"
	usererrors "user-rates/internal/user/errors"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const dateLayout = "2006-01-02"

//go:generate mockgen -source=rate_service.go -destination=mock/rate_service_mock.go -package=mock
type Service interface {
	// ListByUser returns the user's full rate history, newest effective
	// date first.
	ListByUser(ctx context.Context, userID string) ([]RateResponse, error)
	Create(ctx context.Context, req CreateRateRequest) (RateResponse, error)
	Update(ctx context.Context, req UpdateRateRequest) (RateResponse, error)
	ListCurrent(ctx context.Context) ([]CurrentRateResponse, error)
	ProposeNew(ctx context.Context, userID string) (NewRateProposal, error)
}

type service struct {
	db     *sql.DB
	repo   Repository
	users  user.Repository
	outbox kafka.OutboxRepository
	logger *zap.Logger
}

func NewService(db *sql.DB, repo Repository, users user.Repository) Service {
	return NewServiceWithOutbox(db, repo, users, nil)
}

func NewServiceWithOutbox(
	db *sql.DB,
	repo Repository,
	users user.Repository,
	outboxRepo kafka.OutboxRepository,
	logger ...*zap.Logger,
) Service {
	l := zap.L().Named("rate.service")
	if len(logger) > 0 && logger[0] != nil {
		l = logger[0].Named("rate.service")
	}

	return &service{
		db:     db,
		repo:   repo,
		users:  users,
		outbox: outboxRepo,
		logger: l,
	}
}

func (s *service) ListByUser(ctx context.Context, userID string) ([]RateResponse, error) {
	if _, err := s.resolveUser(ctx, userID); err != nil {
		return nil, err
	}

	records, err := s.repo.ListByUser(ctx, userID)
	if err != nil {
		return nil, mapRepositoryError(err)
	}

	// The repo already orders the query; sort again so the invariant does
	// not depend on the SQL alone.
	sort.Slice(records, func(i, j int) bool {
		return records[i].EffectiveFrom.After(records[j].EffectiveFrom)
	})

	resp := make([]RateResponse, len(records))
	for i, rec := range records {
		resp[i] = mapToResponse(rec)
	}

	return resp, nil
}

func (s *service) Create(ctx context.Context, req CreateRateRequest) (RateResponse, error) {
	l := contextutil.GetLogger(ctx, s.logger)

	record, err := s.validateNewRecord(ctx, req)
	if err != nil {
		metrics.RateWriteErrorsTotal.WithLabelValues("create", writeFailureReason(err)).Inc()
		return RateResponse{}, err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		l.Error("create rate begin tx failed", zap.Error(err))
		metrics.RateWriteErrorsTotal.WithLabelValues("create", "store").Inc()
		return RateResponse{}, err
	}
	defer tx.Rollback()

	qtx := s.repo.WithTx(tx)
	if err := qtx.Create(ctx, record); err != nil {
		mapped := mapRepositoryError(err)
		l.Warn("create rate persist failed",
			zap.String("user_id", req.UserID),
			zap.String("effective_from", req.EffectiveFrom),
			zap.Error(err),
		)
		metrics.RateWriteErrorsTotal.WithLabelValues("create", writeFailureReason(mapped)).Inc()
		return RateResponse{}, mapped
	}

	if err := s.queueRateChanged(ctx, tx, events.RateCreated, record); err != nil {
		metrics.RateWriteErrorsTotal.WithLabelValues("create", "store").Inc()
		return RateResponse{}, err
	}

	if err := tx.Commit(); err != nil {
		metrics.RateWriteErrorsTotal.WithLabelValues("create", "store").Inc()
		return RateResponse{}, err
	}

	metrics.RatesCreatedTotal.Inc()
	l.Info("rate created",
		zap.String("user_id", req.UserID),
		zap.String("effective_from", record.EffectiveFrom.Format(dateLayout)),
	)

	return mapToResponse(*record), nil
}

func (s *service) Update(ctx context.Context, req UpdateRateRequest) (RateResponse, error) {
	l := contextutil.GetLogger(ctx, s.logger)

	userID, err := uuid.Parse(req.UserID)
	if err != nil {
		metrics.RateWriteErrorsTotal.WithLabelValues("update", "invalid_input").Inc()
		return RateResponse{}, usererrors.ErrInvalidUserID
	}

	effectiveFrom, err := parseEffectiveDate(req.EffectiveFrom)
	if err != nil {
		metrics.RateWriteErrorsTotal.WithLabelValues("update", "invalid_input").Inc()
		return RateResponse{}, err
	}

	hourlyRate, err := money.ParseRate(req.HourlyRate)
	if err != nil {
		metrics.RateWriteErrorsTotal.WithLabelValues("update", "invalid_input").Inc()
		return RateResponse{}, err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		l.Error("update rate begin tx failed", zap.Error(err))
		metrics.RateWriteErrorsTotal.WithLabelValues("update", "store").Inc()
		return RateResponse{}, err
	}
	defer tx.Rollback()

	qtx := s.repo.WithTx(tx)
	if err := qtx.UpdateRate(ctx, userID.String(), effectiveFrom, hourlyRate); err != nil {
		mapped := mapRepositoryError(err)
		l.Warn("update rate persist failed",
			zap.String("user_id", req.UserID),
			zap.String("effective_from", req.EffectiveFrom),
			zap.Error(err),
		)
		metrics.RateWriteErrorsTotal.WithLabelValues("update", writeFailureReason(mapped)).Inc()
		return RateResponse{}, mapped
	}

	record := &RateRecord{
		UserID:        userID,
		EffectiveFrom: effectiveFrom,
		HourlyRate:    hourlyRate,
	}

	if err := s.queueRateChanged(ctx, tx, events.RateUpdated, record); err != nil {
		metrics.RateWriteErrorsTotal.WithLabelValues("update", "store").Inc()
		return RateResponse{}, err
	}

	if err := tx.Commit(); err != nil {
		metrics.RateWriteErrorsTotal.WithLabelValues("update", "store").Inc()
		return RateResponse{}, err
	}

	metrics.RatesUpdatedTotal.Inc()
	l.Info("rate updated",
		zap.String("user_id", req.UserID),
		zap.String("effective_from", record.EffectiveFrom.Format(dateLayout)),
	)

	return mapToResponse(*record), nil
}

func (s *service) ListCurrent(ctx context.Context) ([]CurrentRateResponse, error) {
	rows, err := s.repo.ListCurrent(ctx)
	if err != nil {
		return nil, mapRepositoryError(err)
	}

	resp := make([]CurrentRateResponse, len(rows))
	for i, row := range rows {
		item := CurrentRateResponse{
			UserID:   row.UserID.String(),
			Username: row.Username,
			Avatar:   row.Avatar,
			Display:  money.FormatRate(row.HourlyRate),
		}
		if row.HourlyRate != nil {
			item.HourlyRate = row.HourlyRate.StringFixed(2)
		}
		if row.EffectiveFrom != nil {
			item.EffectiveFrom = row.EffectiveFrom.Format(dateLayout)
		}
		resp[i] = item
	}

	return resp, nil
}

func (s *service) ProposeNew(ctx context.Context, userID string) (NewRateProposal, error) {
	u, err := s.resolveUser(ctx, userID)
	if err != nil {
		return NewRateProposal{}, err
	}

	return NewRateProposal{
		UserID:        u.ID.String(),
		EffectiveFrom: DefaultEffectiveFrom(time.Now().UTC()).Format(dateLayout),
		HourlyRate:    "",
	}, nil
}

// DefaultEffectiveFrom proposes the next upcoming January 1, or today when
// today already is January 1. Rate changes here are biased toward calendar
// year boundaries.
func DefaultEffectiveFrom(now time.Time) time.Time {
	if now.Month() == time.January && now.Day() == 1 {
		return time.Date(now.Year(), time.January, 1, 0, 0, 0, 0, time.UTC)
	}
	return time.Date(now.Year()+1, time.January, 1, 0, 0, 0, 0, time.UTC)
}

// validateNewRecord performs every local check before any store call: the
// user must resolve, the date must be a real calendar date (past dates are
// allowed, they back retroactive corrections), and the rate must pass the
// shared money parser.
func (s *service) validateNewRecord(ctx context.Context, req CreateRateRequest) (*RateRecord, error) {
	u, err := s.resolveUser(ctx, req.UserID)
	if err != nil {
		return nil, err
	}

	effectiveFrom, err := parseEffectiveDate(req.EffectiveFrom)
	if err != nil {
		return nil, err
	}

	hourlyRate, err := money.ParseRate(req.HourlyRate)
	if err != nil {
		return nil, err
	}

	return &RateRecord{
		UserID:        u.ID,
		EffectiveFrom: effectiveFrom,
		HourlyRate:    hourlyRate,
	}, nil
}

func (s *service) resolveUser(ctx context.Context, userID string) (*user.User, error) {
	if _, err := uuid.Parse(userID); err != nil {
		return nil, usererrors.ErrInvalidUserID
	}

	u, err := s.users.FindByID(ctx, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, usererrors.ErrUserNotFound
		}
		return nil, err
	}

	return u, nil
}

func (s *service) queueRateChanged(ctx context.Context, tx *sql.Tx, eventType string, record *RateRecord) error {
	if s.outbox == nil {
		return nil
	}

	rid := contextutil.GetRequestID(ctx)
	event := events.RateChangedEvent{
		EventType:     eventType,
		RequestID:     rid,
		UserID:        record.UserID.String(),
		EffectiveFrom: record.EffectiveFrom.Format(dateLayout),
		HourlyRate:    record.HourlyRate.StringFixed(2),
		OccurredAt:    time.Now().UTC(),
	}

	payload, err := json.Marshal(event)
	if err != nil {
		return err
	}

	outboxRepo := s.outbox.WithTx(tx)
	if err := outboxRepo.Create(ctx, kafka.OutboxEvent{
		ID:            uuid.NewString(),
		RequestID:     rid,
		AggregateType: "rate",
		AggregateID:   record.UserID.String(),
		EventType:     eventType,
		Topic:         events.RateChangedTopic,
		Payload:       payload,
		Status:        kafka.OutboxStatusPending,
	}); err != nil {
		s.logger.Error("queue rate_changed outbox event failed", zap.Error(err))
		return err
	}

	return nil
}

func parseEffectiveDate(input string) (time.Time, error) {
	d, err := time.Parse(dateLayout, input)
	if err != nil {
		return time.Time{}, rateerrors.ErrInvalidEffectiveDate
	}
	return d, nil
}

func writeFailureReason(err error) string {
	var appErr *apperror.AppError
	if errors.As(err, &appErr) {
		switch appErr.Code {
		case apperror.CodeDuplicateDate:
			return "duplicate_date"
		case apperror.CodeInvalidInput:
			return "invalid_input"
		case apperror.CodeNotFound:
			return "not_found"
		}
	}
	return "store"
}

func mapToResponse(record RateRecord) RateResponse {
	return RateResponse{
		UserID:        record.UserID.String(),
		EffectiveFrom: record.EffectiveFrom.Format(dateLayout),
		HourlyRate:    record.HourlyRate.StringFixed(2),
	}
}
