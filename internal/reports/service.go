package reports

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"

	"github.com/odyssey-erp/backoffice/internal/platform/httpx"
	"github.com/odyssey-erp/backoffice/internal/sales"
)

// maxRangeDays bounds a single summary request.
const maxRangeDays = 366

// RepositoryPort describes the aggregates Service needs.
type RepositoryPort interface {
	TotalsByPaymentMethod(ctx context.Context, from, to time.Time) ([]MethodTotal, error)
	TotalsByDay(ctx context.Context, from, to time.Time) ([]DayTotal, error)
}

// Service builds sales reports.
type Service struct {
	repo  RepositoryPort
	cache *Cache
	group singleflight.Group
	now   func() time.Time
}

// NewService constructs the reports service. cache may be nil.
func NewService(repo RepositoryPort, cache *Cache) *Service {
	return &Service{repo: repo, cache: cache, now: time.Now}
}

// Today returns the filter covering the current UTC day.
func (s *Service) Today() Filter {
	day := s.now().UTC().Truncate(24 * time.Hour)
	return Filter{From: day, To: day}
}

// SalesSummary returns the cached summary for the range, computing it once
// for concurrent callers on a miss.
func (s *Service) SalesSummary(ctx context.Context, filter Filter) (SalesSummary, error) {
	if filter.From.IsZero() && filter.To.IsZero() {
		filter = s.Today()
	}
	if filter.From.IsZero() {
		filter.From = filter.To
	}
	if filter.To.IsZero() {
		filter.To = filter.From
	}
	if filter.To.Before(filter.From) {
		return SalesSummary{}, httpx.Invalid("to", "must not be before from")
	}
	if filter.To.Sub(filter.From) > maxRangeDays*24*time.Hour {
		return SalesSummary{}, httpx.Invalid("to", "range must not exceed a year")
	}
	from := filter.From.Format(sales.DateLayout)
	to := filter.To.Format(sales.DateLayout)
	key, err := s.cache.BuildKey(ctx, "reports", "sales_summary", from, to)
	if err != nil {
		return SalesSummary{}, err
	}
	// The shared flight is not tied to the first caller's request.
	flightCtx := context.WithoutCancel(ctx)
	ch := s.group.DoChan(key, func() (any, error) {
		var summary SalesSummary
		err := s.cache.FetchJSON(flightCtx, key, &summary, func(ctx context.Context) (any, error) {
			return s.compute(ctx, filter)
		})
		return summary, err
	})
	select {
	case <-ctx.Done():
		return SalesSummary{}, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return SalesSummary{}, res.Err
		}
		return res.Val.(SalesSummary), nil
	}
}

// Refresh invalidates cached reports and rebuilds today's summary.
func (s *Service) Refresh(ctx context.Context) (SalesSummary, error) {
	if err := s.cache.Bump(ctx); err != nil {
		return SalesSummary{}, err
	}
	return s.SalesSummary(ctx, s.Today())
}

func (s *Service) compute(ctx context.Context, filter Filter) (SalesSummary, error) {
	start := filter.From
	end := filter.To.AddDate(0, 0, 1)
	summary := SalesSummary{
		From: filter.From.Format(sales.DateLayout),
		To:   filter.To.Format(sales.DateLayout),
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		methods, err := s.repo.TotalsByPaymentMethod(gctx, start, end)
		if err != nil {
			return err
		}
		summary.ByPaymentMethod = methods
		return nil
	})
	g.Go(func() error {
		days, err := s.repo.TotalsByDay(gctx, start, end)
		if err != nil {
			return err
		}
		summary.ByDay = days
		return nil
	})
	if err := g.Wait(); err != nil {
		return SalesSummary{}, err
	}

	total := decimal.Zero
	for _, m := range summary.ByPaymentMethod {
		total = total.Add(decimal.NewFromFloat(m.Total))
		summary.TransactionCount += m.Count
	}
	summary.Total = total.Round(2).InexactFloat64()
	return summary, nil
}
