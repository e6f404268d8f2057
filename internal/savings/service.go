package savings

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"

	"github.com/stashly/stashly/internal/backend"
)

const goalsCachePrefix = "goals:v1:"

var (
	// ErrPlanNotFound indicates the plan is not among the owner's plans.
	ErrPlanNotFound = errors.New("plan not found")
	// ErrPlanLocked indicates a SafeLock plan has not matured yet.
	ErrPlanLocked = errors.New("plan is locked until maturity")
	// ErrInsufficientFunds indicates a withdrawal larger than the plan balance.
	ErrInsufficientFunds = errors.New("insufficient funds")
	// ErrInvalidAmount indicates a non-positive amount.
	ErrInvalidAmount = errors.New("amount must be positive")
	// ErrMissingPlanID indicates a fund movement without a plan.
	ErrMissingPlanID = errors.New("plan id is required")
)

// Backend is the subset of the savings API the service needs.
type Backend interface {
	ListPlans(ctx context.Context, token string) ([]backend.Plan, error)
	Deposit(ctx context.Context, token, planID string, req backend.MoveFundsRequest) (backend.Transaction, error)
	Withdraw(ctx context.Context, token, planID string, req backend.MoveFundsRequest) (backend.Transaction, error)
}

// Service computes goal progress and forwards fund movements to the backend.
type Service struct {
	api    Backend
	cache  *redis.Client
	ttl    time.Duration
	logger *slog.Logger
	now    func() time.Time
}

// NewService builds a savings service. A nil cache disables caching.
func NewService(api Backend, cache *redis.Client, ttl time.Duration, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{api: api, cache: cache, ttl: ttl, logger: logger, now: time.Now}
}

// MoveInput captures a deposit or withdrawal request.
type MoveInput struct {
	Owner     string
	Token     string
	PlanID    string
	Amount    decimal.Decimal
	Reference string
}

// Goals returns the owner's plans with progress, served from cache when fresh.
func (s *Service) Goals(ctx context.Context, owner, token string) ([]Goal, error) {
	if cached, ok := s.cachedGoals(ctx, owner); ok {
		return cached, nil
	}

	goals, err := s.fetch(ctx, token)
	if err != nil {
		return nil, err
	}
	s.storeGoals(ctx, owner, goals)
	return goals, nil
}

// Deposit adds funds to a plan.
func (s *Service) Deposit(ctx context.Context, input MoveInput) (backend.Transaction, error) {
	if err := validateMove(&input); err != nil {
		return backend.Transaction{}, err
	}

	tx, err := s.api.Deposit(ctx, input.Token, input.PlanID, backend.MoveFundsRequest{Amount: input.Amount, Reference: input.Reference})
	if err != nil {
		return backend.Transaction{}, err
	}
	s.invalidate(ctx, input.Owner)
	return tx, nil
}

// Withdraw takes funds out of a plan. SafeLock plans refuse withdrawals
// before maturity.
func (s *Service) Withdraw(ctx context.Context, input MoveInput) (backend.Transaction, error) {
	if err := validateMove(&input); err != nil {
		return backend.Transaction{}, err
	}

	goals, err := s.fetch(ctx, input.Token)
	if err != nil {
		return backend.Transaction{}, err
	}
	var plan *Plan
	for i := range goals {
		if goals[i].Plan.ID == input.PlanID {
			plan = &goals[i].Plan
			break
		}
	}
	if plan == nil {
		return backend.Transaction{}, ErrPlanNotFound
	}
	if plan.LockedAt(s.now()) {
		return backend.Transaction{}, ErrPlanLocked
	}
	if input.Amount.GreaterThan(plan.Saved) {
		return backend.Transaction{}, ErrInsufficientFunds
	}

	tx, err := s.api.Withdraw(ctx, input.Token, input.PlanID, backend.MoveFundsRequest{Amount: input.Amount, Reference: input.Reference})
	if err != nil {
		return backend.Transaction{}, err
	}
	s.invalidate(ctx, input.Owner)
	return tx, nil
}

func validateMove(input *MoveInput) error {
	if input.PlanID == "" {
		return ErrMissingPlanID
	}
	if !input.Amount.IsPositive() {
		return ErrInvalidAmount
	}
	if input.Reference == "" {
		input.Reference = uuid.NewString()
	}
	return nil
}

func (s *Service) fetch(ctx context.Context, token string) ([]Goal, error) {
	plans, err := s.api.ListPlans(ctx, token)
	if err != nil {
		return nil, err
	}
	goals := make([]Goal, 0, len(plans))
	for _, p := range plans {
		plan, err := planFromBackend(p)
		if err != nil {
			s.logger.Warn("skipping plan", slog.String("plan_id", p.ID), slog.Any("error", err))
			continue
		}
		goals = append(goals, Goal{Plan: plan, Progress: ComputeProgress(plan.Target, plan.Saved)})
	}
	return goals, nil
}

func (s *Service) cachedGoals(ctx context.Context, owner string) ([]Goal, bool) {
	if s.cache == nil || owner == "" {
		return nil, false
	}
	raw, err := s.cache.Get(ctx, goalsCachePrefix+owner).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			s.logger.Warn("goals cache lookup failed", slog.String("owner", owner), slog.Any("error", err))
		}
		return nil, false
	}
	var goals []Goal
	if err := json.Unmarshal(raw, &goals); err != nil {
		s.logger.Warn("goals cache entry undecodable", slog.String("owner", owner), slog.Any("error", err))
		return nil, false
	}
	return goals, true
}

func (s *Service) storeGoals(ctx context.Context, owner string, goals []Goal) {
	if s.cache == nil || owner == "" || s.ttl <= 0 {
		return
	}
	payload, err := json.Marshal(goals)
	if err != nil {
		s.logger.Warn("encode goals for cache", slog.Any("error", err))
		return
	}
	if err := s.cache.Set(ctx, goalsCachePrefix+owner, payload, s.ttl).Err(); err != nil {
		s.logger.Warn("goals cache store failed", slog.String("owner", owner), slog.Any("error", err))
	}
}

func (s *Service) invalidate(ctx context.Context, owner string) {
	if s.cache == nil || owner == "" {
		return
	}
	if err := s.cache.Del(ctx, goalsCachePrefix+owner).Err(); err != nil {
		s.logger.Warn("goals cache invalidation failed", slog.String("owner", owner), slog.Any("error", err))
	}
}
