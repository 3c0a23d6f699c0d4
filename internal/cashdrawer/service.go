package cashdrawer

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"

	"github.com/ringmotos/ringpos/internal/apiclient"
)

const (
	closedRetention = 30 * 24 * time.Hour
	maxTxAttempts   = 5
)

func registerKey(terminal string) string {
	return "ringpos:cash:" + terminal + ":register"
}

func movementsKey(registerID string) string {
	return "ringpos:cash:movements:" + registerID
}

// Service manages drawers in Redis and reads upstream cash movements.
type Service struct {
	client *redis.Client
	api    *apiclient.Client
	logger *slog.Logger
	now    func() time.Time
}

// NewService builds a Service. api may be nil for tools that only touch Redis.
func NewService(client *redis.Client, api *apiclient.Client, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{client: client, api: api, logger: logger, now: time.Now}
}

// Open starts a register session with the given float.
func (s *Service) Open(ctx context.Context, terminal string, amount decimal.Decimal, name string) (*Register, error) {
	if amount.IsNegative() {
		return nil, ErrInvalidAmount
	}
	reg := &Register{
		ID:            uuid.NewString(),
		Name:          strings.TrimSpace(name),
		Terminal:      terminal,
		Status:        StatusOpen,
		OpeningAmount: amount,
		OpenedAt:      s.now().UTC(),
	}
	payload, err := json.Marshal(reg)
	if err != nil {
		return nil, err
	}
	ok, err := s.client.SetNX(ctx, registerKey(terminal), payload, 0).Result()
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrAlreadyOpen
	}
	s.logger.Info("cash register opened", slog.String("terminal", terminal), slog.String("register_id", reg.ID), slog.String("opening", amount.String()))
	return reg, nil
}

// Current returns the open register of the terminal.
func (s *Service) Current(ctx context.Context, terminal string) (*Register, error) {
	return readRegister(ctx, s.client, terminal)
}

// Close ends the open session and returns its summary. Movements are kept for
// a retention window after closing. The register and its movements are read
// and retired in one transaction; only one concurrent close succeeds.
func (s *Service) Close(ctx context.Context, terminal string) (*CloseSummary, error) {
	var summary CloseSummary
	err := s.watch(ctx, func(tx *redis.Tx) error {
		reg, err := readRegister(ctx, tx, terminal)
		if err != nil {
			return err
		}
		if err := tx.Watch(ctx, movementsKey(reg.ID)).Err(); err != nil {
			return err
		}
		movements, err := readMovements(ctx, tx, reg.ID)
		if err != nil {
			return err
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Del(ctx, registerKey(terminal))
			pipe.Expire(ctx, movementsKey(reg.ID), closedRetention)
			return nil
		})
		if err != nil {
			return err
		}
		closedAt := s.now().UTC()
		reg.Status = StatusClosed
		reg.ClosedAt = &closedAt
		summary = Summarize(*reg, movements)
		return nil
	}, registerKey(terminal))
	if err != nil {
		return nil, err
	}
	s.logger.Info("cash register closed", slog.String("terminal", terminal), slog.String("register_id", summary.Register.ID), slog.String("expected", summary.Expected.String()))
	return &summary, nil
}

// RecordMovement appends a manual movement to the open register. It fails with
// ErrNoOpenRegister when the register is closed concurrently.
func (s *Service) RecordMovement(ctx context.Context, terminal string, in MovementInput) (*Movement, error) {
	if !in.Amount.IsPositive() {
		return nil, ErrInvalidAmount
	}
	if in.Type != MovementIn && in.Type != MovementOut {
		return nil, ErrInvalidAmount
	}
	reason := strings.TrimSpace(in.Reason)
	if reason == "" {
		reason = DefaultReason
	}
	mv := &Movement{
		ID:        uuid.NewString(),
		Type:      in.Type,
		Amount:    in.Amount,
		Reason:    reason,
		CreatedAt: s.now().UTC(),
	}
	payload, err := json.Marshal(mv)
	if err != nil {
		return nil, err
	}
	err = s.watch(ctx, func(tx *redis.Tx) error {
		reg, err := readRegister(ctx, tx, terminal)
		if err != nil {
			return err
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.RPush(ctx, movementsKey(reg.ID), payload)
			return nil
		})
		return err
	}, registerKey(terminal))
	if err != nil {
		return nil, err
	}
	return mv, nil
}

// Movements lists the movements of a register in insertion order.
func (s *Service) Movements(ctx context.Context, registerID string) ([]Movement, error) {
	return readMovements(ctx, s.client, registerID)
}

// watch runs fn under WATCH on keys, retrying when another client touched them.
func (s *Service) watch(ctx context.Context, fn func(tx *redis.Tx) error, keys ...string) error {
	for attempt := 0; attempt < maxTxAttempts; attempt++ {
		err := s.client.Watch(ctx, fn, keys...)
		if !errors.Is(err, redis.TxFailedErr) {
			return err
		}
	}
	return ErrConcurrentUpdate
}

func readRegister(ctx context.Context, c redis.Cmdable, terminal string) (*Register, error) {
	payload, err := c.Get(ctx, registerKey(terminal)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrNoOpenRegister
	}
	if err != nil {
		return nil, err
	}
	var reg Register
	if err := json.Unmarshal(payload, &reg); err != nil {
		return nil, fmt.Errorf("cashdrawer: decode register: %w", err)
	}
	return &reg, nil
}

func readMovements(ctx context.Context, c redis.Cmdable, registerID string) ([]Movement, error) {
	raw, err := c.LRange(ctx, movementsKey(registerID), 0, -1).Result()
	if err != nil {
		return nil, err
	}
	out := make([]Movement, 0, len(raw))
	for _, item := range raw {
		var mv Movement
		if err := json.Unmarshal([]byte(item), &mv); err != nil {
			return nil, fmt.Errorf("cashdrawer: decode movement: %w", err)
		}
		out = append(out, mv)
	}
	return out, nil
}

// ServerMovements reads the upstream cash movements with running balances.
// It is read-only and independent of the local register.
func (s *Service) ServerMovements(ctx context.Context) (*ServerMovements, error) {
	if s.api == nil {
		return nil, errors.New("cashdrawer: api client not configured")
	}
	var rows []ServerMovement
	if err := s.api.Get(ctx, "/cash-movements", &rows); err != nil {
		return nil, err
	}
	if rows == nil {
		rows = []ServerMovement{}
	}
	total := RunningBalance(rows)
	return &ServerMovements{Movements: rows, Balance: total}, nil
}
