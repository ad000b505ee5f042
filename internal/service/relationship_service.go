// Package service implements the relationship lifecycle on top of the
// repository layer.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"habitpal/internal/middleware"
	"habitpal/internal/models"
	"habitpal/internal/observability"
	"habitpal/internal/repository"

	"go.opentelemetry.io/otel/attribute"
)

const (
	defaultPresenceWindow   = 5 * time.Minute
	defaultOperationTimeout = 10 * time.Second
	publishTimeout          = 2 * time.Second

	maxUIDLength     = 32
	maxMessageLength = 500
	maxAliasLength   = 100
)

// EventPublisher delivers realtime events to a user. Delivery is best-effort.
type EventPublisher interface {
	PublishUser(ctx context.Context, userID uint, event models.RealtimeEvent) error
}

// RelationshipService orchestrates search, requests, friendship management
// and notifications. It holds no mutable state between calls.
type RelationshipService struct {
	store            repository.Store
	provisioner      ConversationProvisioner
	events           EventPublisher
	now              func() time.Time
	presenceWindow   time.Duration
	operationTimeout time.Duration
}

// Option configures a RelationshipService.
type Option func(*RelationshipService)

// WithProvisioner replaces the default conversation provisioner.
func WithProvisioner(p ConversationProvisioner) Option {
	return func(s *RelationshipService) { s.provisioner = p }
}

// WithEventPublisher sets where realtime events are sent after commit.
func WithEventPublisher(p EventPublisher) Option {
	return func(s *RelationshipService) { s.events = p }
}

// WithClock overrides time.Now.
func WithClock(now func() time.Time) Option {
	return func(s *RelationshipService) { s.now = now }
}

// WithPresenceWindow sets how recently an account must have been seen to be online.
func WithPresenceWindow(d time.Duration) Option {
	return func(s *RelationshipService) {
		if d > 0 {
			s.presenceWindow = d
		}
	}
}

// WithOperationTimeout bounds each operation. Zero disables the bound.
func WithOperationTimeout(d time.Duration) Option {
	return func(s *RelationshipService) { s.operationTimeout = d }
}

// NewRelationshipService returns a new RelationshipService.
func NewRelationshipService(store repository.Store, opts ...Option) *RelationshipService {
	s := &RelationshipService{
		store:            store,
		provisioner:      NewConversationProvisioner(),
		now:              time.Now,
		presenceWindow:   defaultPresenceWindow,
		operationTimeout: defaultOperationTimeout,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// begin starts an operation: it applies the timeout, opens a span and
// returns a finisher that records metrics and logs failures with the
// operation name, actor and target.
func (s *RelationshipService) begin(ctx context.Context, op string, actorID uint, target any) (context.Context, func(*error)) {
	cancel := func() {}
	if s.operationTimeout > 0 {
		ctx, cancel = context.WithTimeout(ctx, s.operationTimeout)
	}
	span, ctx := observability.NewSpan(ctx, "relationship."+op,
		attribute.Int64("actor.id", int64(actorID)),
		attribute.String("target", fmt.Sprint(target)),
	)
	track := observability.TrackOperation(op, outcomeLabel)

	return ctx, func(errp *error) {
		defer cancel()
		defer span.End()

		err := normalizeError(ctx, *errp)
		*errp = err
		track(err)
		span.AddAttributes(attribute.String("outcome", outcomeLabel(err)))
		if err == nil {
			return
		}
		span.SetError(err)
		logFailure(ctx, op, actorID, target, err)
	}
}

// normalizeError turns a context deadline into Unavailable and any
// unclassified error into Internal, so callers only see AppErrors.
func normalizeError(ctx context.Context, err error) error {
	if err == nil {
		return nil
	}
	var appErr *models.AppError
	if errors.As(err, &appErr) {
		return err
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return models.NewUnavailableError(err)
	}
	return models.NewInternalError(err)
}

func outcomeLabel(err error) string {
	if err == nil {
		return "ok"
	}
	return strings.ToLower(models.ErrorCode(err))
}

func logFailure(ctx context.Context, op string, actorID uint, target any, err error) {
	attrs := []any{
		slog.String("operation", op),
		slog.Uint64("actor_id", uint64(actorID)),
		slog.String("target", fmt.Sprint(target)),
		slog.String("code", models.ErrorCode(err)),
		slog.String("error", err.Error()),
	}
	switch models.ErrorCode(err) {
	case models.CodeInternal, models.CodeUnavailable:
		middleware.Logger.ErrorContext(ctx, "relationship operation failed", attrs...)
	default:
		middleware.Logger.InfoContext(ctx, "relationship operation rejected", attrs...)
	}
}

// effect is one write step of a unit of work.
type effect struct {
	name  string
	apply func(ctx context.Context, tx repository.Store) error
}

// runEffects applies effects in order inside one transaction. The first
// failure aborts and rolls back every earlier effect.
func (s *RelationshipService) runEffects(ctx context.Context, effects ...effect) error {
	return s.store.WithinTx(ctx, func(tx repository.Store) error {
		for _, e := range effects {
			if err := e.apply(ctx, tx); err != nil {
				return fmt.Errorf("%s: %w", e.name, err)
			}
		}
		return nil
	})
}

// retryRead runs a read-only query and retries it once when the store
// reports a transient failure.
func retryRead[T any](ctx context.Context, read func(context.Context) (T, error)) (T, error) {
	v, err := read(ctx)
	if err != nil && errors.Is(err, models.ErrUnavailable) && ctx.Err() == nil {
		middleware.Logger.DebugContext(ctx, "retrying read after transient store error", slog.String("error", err.Error()))
		return read(ctx)
	}
	return v, err
}

type userEvent struct {
	userID uint
	event  models.RealtimeEvent
}

// publish sends events after commit. Failures are logged and never change
// the operation result.
func (s *RelationshipService) publish(ctx context.Context, events ...userEvent) {
	if s.events == nil {
		return
	}
	pubCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), publishTimeout)
	defer cancel()
	for _, ev := range events {
		result := "ok"
		if err := s.events.PublishUser(pubCtx, ev.userID, ev.event); err != nil {
			result = "error"
			middleware.Logger.WarnContext(ctx, "failed to publish realtime event",
				slog.String("event_type", string(ev.event.Type)),
				slog.Uint64("user_id", uint64(ev.userID)),
				slog.String("error", err.Error()),
			)
		}
		observability.RealtimeEventsPublished.WithLabelValues(string(ev.event.Type), result).Inc()
	}
}

// activeAccountByUID resolves a public UID. Missing and inactive accounts
// are both NotFound.
func activeAccountByUID(ctx context.Context, accounts repository.AccountRepository, uid string) (*models.Account, error) {
	account, err := accounts.GetByPublicUID(ctx, uid)
	if err != nil {
		return nil, err
	}
	if !account.Active {
		return nil, models.NewNotFoundError("User", uid)
	}
	return account, nil
}

func activeAccountByID(ctx context.Context, accounts repository.AccountRepository, id uint) (*models.Account, error) {
	account, err := accounts.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !account.Active {
		return nil, models.NewNotFoundError("User", id)
	}
	return account, nil
}

func actorSnapshot(a *models.Account) *models.NotificationActor {
	if a == nil {
		return nil
	}
	return &models.NotificationActor{UserID: a.ID, UID: a.PublicUID, DisplayName: a.DisplayName}
}

func normalizeUID(uid string) (string, error) {
	uid = strings.TrimSpace(uid)
	if uid == "" {
		return "", models.NewValidationError("uid is required")
	}
	if len(uid) > maxUIDLength {
		return "", models.NewValidationError(fmt.Sprintf("uid must be at most %d characters", maxUIDLength))
	}
	return uid, nil
}

func validateMessage(field, msg string) (string, error) {
	msg = strings.TrimSpace(msg)
	if len([]rune(msg)) > maxMessageLength {
		return "", models.NewValidationError(fmt.Sprintf("%s must be at most %d characters", field, maxMessageLength))
	}
	return msg, nil
}
