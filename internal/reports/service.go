package reports

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"

	"github.com/ringmotos/ringpos/internal/apiclient"
	"github.com/ringmotos/ringpos/internal/identity"
	"github.com/ringmotos/ringpos/internal/platform/httpx"
)

// Service loads sales reports.
type Service struct {
	api    *apiclient.Client
	cache  *Cache
	logger *slog.Logger
	group  singleflight.Group
	now    func() time.Time
}

// NewService builds a Service. cache may be nil.
func NewService(api *apiclient.Client, cache *Cache, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{api: api, cache: cache, logger: logger, now: time.Now}
}

// SalesByRange returns the aggregate for a bounded range.
func (s *Service) SalesByRange(ctx context.Context, r Range) (*RangeSalesReport, error) {
	r, err := ParseRange(r.From, r.To)
	if err != nil {
		return nil, err
	}
	if r.Empty() {
		return nil, fmt.Errorf("%w: from and to are required", httpx.ErrValidation)
	}
	out, err := fetch[RangeSalesReport](ctx, s, "range", r)
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// SalesByClient returns per-client aggregates. An empty range means all time.
func (s *Service) SalesByClient(ctx context.Context, r Range) ([]ClientSalesReport, error) {
	r, err := ParseRange(r.From, r.To)
	if err != nil {
		return nil, err
	}
	rows, err := fetch[[]ClientSalesReport](ctx, s, "by-client", r)
	if err != nil {
		return nil, err
	}
	return normalizeClientRows(append([]ClientSalesReport(nil), rows...)), nil
}

// SalesByUser returns per-seller aggregates. An empty range means all time.
func (s *Service) SalesByUser(ctx context.Context, r Range) ([]UserSalesReport, error) {
	r, err := ParseRange(r.From, r.To)
	if err != nil {
		return nil, err
	}
	rows, err := fetch[[]UserSalesReport](ctx, s, "by-user", r)
	if err != nil {
		return nil, err
	}
	if rows == nil {
		rows = []UserSalesReport{}
	}
	return rows, nil
}

// Dashboard loads the three reports concurrently.
func (s *Service) Dashboard(ctx context.Context, r Range) (*Dashboard, error) {
	out := &Dashboard{Range: r}
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		summary, err := s.SalesByRange(gctx, r)
		if err != nil {
			return err
		}
		out.Summary = *summary
		return nil
	})
	g.Go(func() error {
		rows, err := s.SalesByClient(gctx, r)
		out.ByClient = rows
		return err
	})
	g.Go(func() error {
		rows, err := s.SalesByUser(gctx, r)
		out.ByUser = rows
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

// Invalidate drops every cached report.
func (s *Service) Invalidate(ctx context.Context) error {
	ver, err := s.cache.Bump(ctx)
	if err != nil {
		return err
	}
	s.logger.Info("reports cache bumped", slog.Int64("version", ver))
	return nil
}

// fetch loads one report. Cache and in-flight entries are scoped to the
// caller's token, so a token the upstream would reject never reads another
// caller's report. Calls without a live token always go upstream.
func fetch[T any](ctx context.Context, s *Service, kind string, r Range) (T, error) {
	var zero T
	path := apiclient.WithQuery("/reports/sales/"+kind, url.Values{"from": {r.From}, "to": {r.To}})
	load := func(ctx context.Context) (any, error) {
		var out T
		if err := s.api.Get(ctx, path, &out); err != nil {
			return nil, err
		}
		return out, nil
	}

	token := apiclient.TokenFrom(ctx)
	scope := identity.Fingerprint(token)
	if scope == "" || identity.Expired(token, s.now()) {
		value, err := load(ctx)
		if err != nil {
			return zero, err
		}
		return value.(T), nil
	}

	key, err := s.cache.BuildKey(ctx, "ringpos", "reports", scope, kind, r.From, r.To)
	if err != nil {
		s.logger.Warn("reports cache unavailable", slog.Any("error", err))
		key = ""
	}
	v, err, _ := s.group.Do(scope+"|"+kind+"|"+r.From+"|"+r.To, func() (any, error) {
		if key == "" {
			return load(ctx)
		}
		var out T
		if err := s.cache.FetchJSON(ctx, key, &out, load); err != nil {
			return nil, err
		}
		return out, nil
	})
	if err != nil {
		return zero, err
	}
	return v.(T), nil
}
