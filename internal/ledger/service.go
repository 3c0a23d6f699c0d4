package ledger

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/ringmotos/ringpos/internal/apiclient"
	"github.com/ringmotos/ringpos/internal/platform/httpx"
)

const dateLayout = "2006-01-02"

// Service reads ledger history and settles debt through a PaymentStrategy.
type Service struct {
	api       *apiclient.Client
	strategy  PaymentStrategy
	logger    *slog.Logger
	validator *validator.Validate
}

// NewService builds a Service.
func NewService(api *apiclient.Client, strategy PaymentStrategy, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{api: api, strategy: strategy, logger: logger, validator: validator.New()}
}

// History lists entries for a client, optionally bounded by YYYY-MM-DD dates.
func (s *Service) History(ctx context.Context, clientID, start, end string) ([]Entry, error) {
	if strings.TrimSpace(clientID) == "" {
		return nil, fmt.Errorf("%w: client id required", httpx.ErrValidation)
	}
	for _, d := range []string{start, end} {
		if d == "" {
			continue
		}
		if _, err := time.Parse(dateLayout, d); err != nil {
			return nil, fmt.Errorf("%w: invalid date %q", httpx.ErrValidation, d)
		}
	}
	path := apiclient.WithQuery("/account-entries/history/"+apiclient.Segment(clientID), url.Values{
		"start": {start},
		"end":   {end},
	})
	var entries []Entry
	if err := s.api.Get(ctx, path, &entries); err != nil {
		return nil, err
	}
	if entries == nil {
		entries = []Entry{}
	}
	for i := range entries {
		entries[i].Label = EntryLabel(entries[i].Type)
	}
	return entries, nil
}

// Summary returns the aggregates for one month.
func (s *Service) Summary(ctx context.Context, clientID string, month, year int) (*Summary, error) {
	if month < 1 || month > 12 {
		return nil, fmt.Errorf("%w: invalid month %d", httpx.ErrValidation, month)
	}
	if year < 2000 {
		return nil, fmt.Errorf("%w: invalid year %d", httpx.ErrValidation, year)
	}
	path := apiclient.WithQuery("/account-entries/summary/"+apiclient.Segment(clientID), url.Values{
		"month": {strconv.Itoa(month)},
		"year":  {strconv.Itoa(year)},
	})
	var out Summary
	if err := s.api.Get(ctx, path, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// PayDebt records a payment and returns the refreshed history.
func (s *Service) PayDebt(ctx context.Context, p DebtPayment) ([]Entry, error) {
	if !p.Amount.IsPositive() {
		return nil, ErrInvalidAmount
	}
	p.Method = strings.ToUpper(strings.TrimSpace(p.Method))
	if p.Method == "" {
		p.Method = "CASH"
	}
	if err := s.validator.Struct(p); err != nil {
		return nil, fmt.Errorf("%w: %v", httpx.ErrValidation, err)
	}
	if err := s.strategy.Pay(ctx, p); err != nil {
		s.logger.Warn("debt payment failed", slog.String("client_id", p.ClientID), slog.String("mode", s.strategy.Name()), slog.Any("error", err))
		return nil, err
	}
	s.logger.Info("debt payment recorded", slog.String("client_id", p.ClientID), slog.String("mode", s.strategy.Name()), slog.String("amount", p.Amount.String()))
	return s.History(ctx, p.ClientID, "", "")
}
