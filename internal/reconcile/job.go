// Package reconcile recomputes each product's reserved_quantity from the
// occupying orders and corrects drift. It is the safety net behind the
// admission path's optimistic counter writes.
package reconcile

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/omaressamii/high-class-sub002/internal/availability"
	"github.com/omaressamii/high-class-sub002/internal/cache"
	"github.com/omaressamii/high-class-sub002/internal/domain"
	"github.com/omaressamii/high-class-sub002/internal/repository"
)

// maxWriteRetries bounds the version-checked overwrite per product.
const maxWriteRetries = 3

type Correction struct {
	ProductID  string    `json:"product_id"`
	Before     int       `json:"before"`
	After      int       `json:"after"`
	DetectedAt time.Time `json:"detected_at"`
}

type Failure struct {
	ProductID string `json:"product_id"`
	Err       string `json:"error"`
}

type Report struct {
	RunID       string       `json:"run_id"`
	StartedAt   time.Time    `json:"started_at"`
	FinishedAt  time.Time    `json:"finished_at"`
	Checked     int          `json:"checked"`
	Corrections []Correction `json:"corrections"`
	Failures    []Failure    `json:"failures"`
}

type Job struct {
	orders   repository.OrderRepository
	products repository.ProductRepository
	cache    cache.ProductCache
	now      func() time.Time
}

func NewJob(orders repository.OrderRepository, products repository.ProductRepository, cache cache.ProductCache) *Job {
	return &Job{
		orders:   orders,
		products: products,
		cache:    cache,
		now:      time.Now,
	}
}

// Run reconciles the named products, or every product when productIDs is
// empty. A per-product failure is recorded and skipped; the batch never
// aborts on one product's error. Running twice with no intervening order
// changes yields zero corrections on the second pass.
func (j *Job) Run(ctx context.Context, productIDs []string) (*Report, error) {
	report := &Report{
		RunID:     uuid.New().String(),
		StartedAt: j.now(),
	}

	products, err := j.products.ListProducts(ctx, productIDs)
	if err != nil {
		return nil, fmt.Errorf("failed to list products: %w", err)
	}

	// The full run amortizes the order scan to a single pass. For an
	// explicit subset, intervals are fetched per product so one bad read
	// only fails that product.
	var batch map[string][]domain.Interval
	if len(productIDs) == 0 {
		batch, err = j.orders.IntervalsByProduct(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to build interval index: %w", err)
		}
	}

	for _, product := range products {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		report.Checked++

		var intervals []domain.Interval
		if batch != nil {
			intervals = batch[product.ID]
		} else {
			intervals, err = j.orders.IntervalsForProduct(ctx, product.ID)
			if err != nil {
				report.Failures = append(report.Failures, Failure{ProductID: product.ID, Err: err.Error()})
				continue
			}
		}

		correction, err := j.reconcileProduct(ctx, product, intervals)
		if err != nil {
			report.Failures = append(report.Failures, Failure{ProductID: product.ID, Err: err.Error()})
			continue
		}
		if correction != nil {
			report.Corrections = append(report.Corrections, *correction)
		}
	}

	report.FinishedAt = j.now()
	return report, nil
}

// reconcileProduct overwrites the counter when it disagrees with the flat
// occupying sum. The overwrite is version checked so an admission racing
// this job forces a re-read instead of being clobbered; a counter that
// became correct in the meantime is left alone.
func (j *Job) reconcileProduct(ctx context.Context, product domain.Product, intervals []domain.Interval) (*Correction, error) {
	trueReserved := availability.TotalCommitted(intervals)
	if product.ReservedQuantity == trueReserved {
		return nil, nil
	}

	before := product.ReservedQuantity
	current := product

	for attempt := 0; attempt < maxWriteRetries; attempt++ {
		err := j.products.UpdateReservedQuantity(ctx, current.ID, current.Version, trueReserved)
		if errors.Is(err, repository.ErrVersionConflict) {
			fresh, errGet := j.products.GetProduct(ctx, current.ID)
			if errGet != nil {
				return nil, errGet
			}
			if fresh.ReservedQuantity == trueReserved {
				return nil, nil
			}
			current = *fresh
			continue
		}
		if err != nil {
			return nil, err
		}

		if j.cache != nil {
			// Best effort: a stale cache entry is bounded by its TTL.
			_ = j.cache.Delete(ctx, current.ID)
		}

		return &Correction{
			ProductID:  current.ID,
			Before:     before,
			After:      trueReserved,
			DetectedAt: j.now(),
		}, nil
	}

	return nil, fmt.Errorf("counter overwrite conflicted %d times for product %s", maxWriteRetries, product.ID)
}
