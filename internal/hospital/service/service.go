package service

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"scanbo/internal/hospital/metrics"
	"scanbo/internal/hospital/models"
	id "scanbo/pkg/domain"
	dErrors "scanbo/pkg/domain-errors"
	"scanbo/pkg/platform/sentinel"
	"scanbo/pkg/requestcontext"
)

// DefaultMaxLen is the name/location bound used when none is configured.
const DefaultMaxLen uint32 = 64

// Store is the keyed storage the registry keeps records in.
// Implementations join the transaction carried by ctx when there is one.
type Store interface {
	Contains(ctx context.Context, accountID id.AccountID) (bool, error)
	Insert(ctx context.Context, hospital *models.Hospital) error
	FindByID(ctx context.Context, accountID id.AccountID) (*models.Hospital, error)
}

// Notifier delivers HospitalRegistered to observers.
type Notifier interface {
	Notify(ctx context.Context, event models.HospitalRegistered) error
}

// TxRunner runs fn as one unit of work: either every effect of fn is kept
// or none is.
type TxRunner interface {
	RunInTx(ctx context.Context, fn func(ctx context.Context) error) error
}

// Service is the hospital registry.
type Service struct {
	store    Store
	notifier Notifier
	tx       TxRunner
	maxLen   uint32
	logger   *slog.Logger
	metrics  *metrics.Metrics
	tracer   trace.Tracer
}

type Option func(s *Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) {
		s.metrics = m
	}
}

func WithTracer(tracer trace.Tracer) Option {
	return func(s *Service) {
		s.tracer = tracer
	}
}

// WithMaxLen sets the inclusive bound on name and location length.
// Zero keeps the default.
func WithMaxLen(n uint32) Option {
	return func(s *Service) {
		if n > 0 {
			s.maxLen = n
		}
	}
}

// WithTxRunner overrides the transaction boundary. Without it every call
// runs under a per-account sharded lock with a rollback journal.
func WithTxRunner(runner TxRunner) Option {
	return func(s *Service) {
		s.tx = runner
	}
}

// New constructs a Service. Store and notifier are required.
func New(store Store, notifier Notifier, opts ...Option) (*Service, error) {
	if store == nil {
		return nil, errors.New("hospital store is required")
	}
	if notifier == nil {
		return nil, errors.New("notifier is required")
	}
	s := &Service{
		store:    store,
		notifier: notifier,
		maxLen:   DefaultMaxLen,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.tx == nil {
		s.tx = NewShardedTx()
	}
	if s.tracer == nil {
		s.tracer = otel.Tracer("scanbo/internal/hospital")
	}
	return s, nil
}

// MaxLen reports the configured bound.
func (s *Service) MaxLen() uint32 {
	return s.maxLen
}

// Register records a hospital for accountID.
//
// Checks run in a fixed order and the first failure wins: an existing record
// yields AlreadyRegistered, then an oversized name, then an oversized
// location yields TooLong. On any failure nothing is stored and nothing is
// notified. On success exactly one HospitalRegistered is delivered.
func (s *Service) Register(ctx context.Context, accountID id.AccountID, name, location []byte) (*models.Hospital, error) {
	start := time.Now()
	defer s.metrics.ObserveRegister(start)

	ctx, span := s.tracer.Start(ctx, "hospital.Register",
		trace.WithAttributes(
			attribute.String("hospital.account_id", accountID.String()),
			attribute.Int("hospital.name_len", len(name)),
			attribute.Int("hospital.location_len", len(location)),
		))
	defer span.End()

	hospital, err := s.register(ctx, accountID, name, location)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	span.SetStatus(codes.Ok, "")

	s.logAudit(ctx, "hospital_registered", "account_id", accountID.String())
	s.metrics.IncrementRegistered()
	return hospital, nil
}

func (s *Service) register(ctx context.Context, accountID id.AccountID, name, location []byte) (*models.Hospital, error) {
	if accountID.IsNil() {
		s.metrics.IncrementRejected(metrics.ReasonUnauthorized)
		return nil, dErrors.New(dErrors.CodeUnauthorized, "caller identity required")
	}

	var hospital *models.Hospital
	txErr := s.tx.RunInTx(withTxAccount(ctx, accountID), func(txCtx context.Context) error {
		exists, err := s.store.Contains(txCtx, accountID)
		if err != nil {
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to check registration")
		}
		if exists {
			return alreadyRegistered()
		}

		h, err := models.NewHospital(accountID, name, location, s.maxLen, requestcontext.Now(ctx))
		if err != nil {
			if errors.Is(err, models.ErrTooLong) {
				return dErrors.Wrap(err, dErrors.CodeValidation, "name and location must not exceed the maximum length")
			}
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to build hospital record")
		}

		if err := s.store.Insert(txCtx, h); err != nil {
			// Another writer won between Contains and Insert.
			if errors.Is(err, sentinel.ErrAlreadyUsed) {
				return alreadyRegistered()
			}
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to store hospital")
		}

		event := models.HospitalRegistered{AccountID: accountID, RegisteredAt: h.RegisteredAt}
		if err := s.notifier.Notify(txCtx, event); err != nil {
			s.metrics.IncrementNotificationFailed()
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to deliver registration notification")
		}

		hospital = h
		return nil
	})
	if txErr != nil {
		s.recordRejection(txErr)
		var coded *dErrors.Error
		if !errors.As(txErr, &coded) {
			return nil, dErrors.Wrap(txErr, dErrors.CodeInternal, "registration failed")
		}
		return nil, txErr
	}
	return hospital, nil
}

// Get returns the hospital stored for accountID.
func (s *Service) Get(ctx context.Context, accountID id.AccountID) (*models.Hospital, error) {
	ctx, span := s.tracer.Start(ctx, "hospital.Get",
		trace.WithAttributes(attribute.String("hospital.account_id", accountID.String())))
	defer span.End()

	hospital, err := s.store.FindByID(ctx, accountID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "hospital not found")
		}
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load hospital")
	}
	return hospital, nil
}

func alreadyRegistered() error {
	return dErrors.Wrap(models.ErrAlreadyRegistered, dErrors.CodeConflict, "account already has a registered hospital")
}

func (s *Service) recordRejection(err error) {
	switch {
	case errors.Is(err, models.ErrAlreadyRegistered):
		s.metrics.IncrementRejected(metrics.ReasonAlreadyRegistered)
	case errors.Is(err, models.ErrTooLong):
		s.metrics.IncrementRejected(metrics.ReasonTooLong)
	}
}

func (s *Service) logAudit(ctx context.Context, event string, attrs ...any) {
	if s.logger == nil {
		return
	}
	args := append(attrs, "event", event, "log_type", "audit")
	if requestID := requestcontext.RequestID(ctx); requestID != "" {
		args = append(args, "request_id", requestID)
	}
	s.logger.InfoContext(ctx, event, args...)
}
