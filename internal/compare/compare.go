// Package compare fans a product query out to all retailer adapters
// concurrently and merges their outcomes into a ranked comparison.
package compare

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/ucuzla/pricescan/internal/model"
	"github.com/ucuzla/pricescan/internal/retailer"
)

// Service runs price comparisons over a fixed set of retailer adapters.
type Service struct {
	adapters []retailer.Adapter
}

// NewService creates a comparison service over the given adapters.
func NewService(adapters ...retailer.Adapter) *Service {
	return &Service{adapters: adapters}
}

// ComparePrices queries every retailer concurrently and returns one outcome
// per retailer: successes first, sorted ascending by price (ties keep
// completion order), then failures in completion order. A slow retailer
// never drops another's result; all workers are awaited.
func (s *Service) ComparePrices(ctx context.Context, query string) model.Comparison {
	var (
		mu       sync.Mutex
		outcomes []model.PriceOutcome
	)

	g, gCtx := errgroup.WithContext(ctx)
	if len(s.adapters) > 0 {
		g.SetLimit(len(s.adapters))
	}
	for _, a := range s.adapters {
		a := a
		g.Go(func() error {
			outcome := searchGuarded(gCtx, a, query)
			mu.Lock()
			outcomes = append(outcomes, outcome)
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()

	var successful, failed []model.PriceOutcome
	for _, o := range outcomes {
		if o.IsSuccessful() {
			successful = append(successful, o)
		} else {
			failed = append(failed, o)
		}
	}
	sort.SliceStable(successful, func(i, j int) bool {
		return *successful[i].Price < *successful[j].Price
	})

	results := make([]model.PriceOutcome, 0, len(outcomes))
	results = append(results, successful...)
	results = append(results, failed...)

	comparison := model.Comparison{Query: query, Results: results}
	if len(successful) > 0 {
		comparison.Cheapest = &results[0]
	}

	zap.L().Info("compare: query complete",
		zap.String("query", query),
		zap.Int("successful", len(successful)),
		zap.Int("failed", len(failed)),
	)
	return comparison
}

// searchGuarded runs one adapter lookup, converting a panic into a failed
// outcome so a faulty adapter cannot take down the whole comparison.
func searchGuarded(ctx context.Context, a retailer.Adapter, query string) (outcome model.PriceOutcome) {
	defer func() {
		if r := recover(); r != nil {
			zap.L().Error("compare: adapter fault recovered",
				zap.String("retailer", a.Name()),
				zap.Any("fault", r),
			)
			outcome = model.PriceOutcome{
				Retailer: a.Name(),
				Error:    fmt.Sprintf("%v", r),
			}
		}
	}()
	return a.Search(ctx, query)
}
