package bruteforce

import (
	"context"
	"errors"
	"log/slog"

	dErrors "taskboard/pkg/domain-errors"
	"taskboard/pkg/requestcontext"
)

// Counter key prefixes. Short feeds delay/captcha decisions, long feeds
// block decisions.
const (
	shortCounterPrefix = "bf:short:"
	longCounterPrefix  = "bf:long:"
)

// Service implements the decision engine over an injected Store. It holds
// no state of its own; per-test isolation is a fresh in-memory store.
type Service struct {
	store  Store
	cfg    Config
	logger *slog.Logger
}

type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

func WithConfig(cfg Config) Option {
	return func(s *Service) {
		s.cfg = cfg
	}
}

func New(store Store, opts ...Option) (*Service, error) {
	if store == nil {
		return nil, errors.New("brute force store is required")
	}
	s := &Service{
		store:  store,
		cfg:    DefaultConfig(),
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Check decides whether an attempt from the identifier may proceed.
// The block check runs first and short-circuits everything else: a blocked
// identifier is rejected before counters are consulted or incremented.
func (s *Service) Check(ctx context.Context, identifier string) (*Decision, error) {
	now := requestcontext.Now(ctx)

	block, err := s.store.GetBlock(ctx, identifier)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeUnavailable, "failed to read security block")
	}
	if block.ActiveAt(now) {
		return &Decision{
			Allowed:    false,
			Block:      block,
			RetryAfter: block.RetryAfterAt(now),
		}, nil
	}

	count, err := s.store.Get(ctx, shortCounterPrefix+identifier)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeUnavailable, "failed to read failure counter")
	}

	return &Decision{
		Allowed:         true,
		Delay:           DelayForCount(count),
		RequiresCaptcha: count >= s.cfg.CaptchaThreshold,
		FailureCount:    count,
	}, nil
}

// RecordFailure registers one failed attempt and reports the transitions it
// caused. Both windows are bumped through the store's atomic increment so
// concurrent failures never undercount.
func (s *Service) RecordFailure(ctx context.Context, identifier string) (*FailureState, error) {
	now := requestcontext.Now(ctx)

	shortCount, err := s.store.Increment(ctx, shortCounterPrefix+identifier, s.cfg.ShortWindow)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeUnavailable, "failed to increment failure counter")
	}
	longCount, err := s.store.Increment(ctx, longCounterPrefix+identifier, s.cfg.LongWindow)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeUnavailable, "failed to increment failure counter")
	}

	state := &FailureState{
		ShortWindowCount: shortCount,
		LongWindowCount:  longCount,
		CaptchaTriggered: shortCount == s.cfg.CaptchaThreshold,
	}

	if longCount >= s.cfg.BlockThreshold {
		existing, err := s.store.GetBlock(ctx, identifier)
		if err != nil {
			return nil, dErrors.Wrap(err, dErrors.CodeUnavailable, "failed to read security block")
		}
		if existing.ActiveAt(now) {
			state.Block = existing
			return state, nil
		}

		block := &SecurityBlock{
			Identifier:     identifier,
			IdentifierType: TypeOf(identifier),
			Reason:         "failed attempt threshold exceeded",
			BlockedAt:      now,
			ExpiresAt:      now.Add(s.cfg.BlockDuration),
		}
		if err := s.store.PutBlock(ctx, block); err != nil {
			return nil, dErrors.Wrap(err, dErrors.CodeUnavailable, "failed to store security block")
		}
		state.Block = block
		state.BlockTriggered = true
		s.logger.Warn("security block created",
			"identifier_type", string(block.IdentifierType),
			"expires_at", block.ExpiresAt,
			"long_window_count", longCount,
		)
	}

	return state, nil
}

// Clear wipes an identifier's counters after a successful authentication.
func (s *Service) Clear(ctx context.Context, identifier string) error {
	if err := s.store.Reset(ctx, shortCounterPrefix+identifier); err != nil {
		return dErrors.Wrap(err, dErrors.CodeUnavailable, "failed to reset failure counter")
	}
	if err := s.store.Reset(ctx, longCounterPrefix+identifier); err != nil {
		return dErrors.Wrap(err, dErrors.CodeUnavailable, "failed to reset failure counter")
	}
	return nil
}

// Unblock removes an identifier's block (admin operation).
func (s *Service) Unblock(ctx context.Context, identifier string) error {
	if err := s.store.DeleteBlock(ctx, identifier); err != nil {
		return dErrors.Wrap(err, dErrors.CodeUnavailable, "failed to delete security block")
	}
	return nil
}
