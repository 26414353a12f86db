package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/omaressamii/high-class-sub002/internal/availability"
	"github.com/omaressamii/high-class-sub002/internal/cache"
	"github.com/omaressamii/high-class-sub002/internal/domain"
	"github.com/omaressamii/high-class-sub002/internal/repository"
	"golang.org/x/sync/singleflight"
)

// maxWriteRetries bounds the optimistic retry loop on the reserved counter.
const maxWriteRetries = 3

// Intent declares what the caller is doing to the order behind a
// reservation request.
type Intent string

const (
	IntentCreate Intent = "create"
	IntentModify Intent = "modify"
	IntentCancel Intent = "cancel"
)

// ReserveRequest describes one admission attempt against a product.
// ExcludeOrderID names the caller's own order so its existing interval is
// left out of the peak computation during edits; it is required for modify
// and cancel.
type ReserveRequest struct {
	ProductID      string
	Start          time.Time
	End            time.Time
	Quantity       int
	ExcludeOrderID string
	Intent         Intent
}

// OrderWriteFn performs the actual order persistence once admission is
// granted. Supplied by the caller; the engine never owns order writes on
// the admission path.
type OrderWriteFn func(ctx context.Context) error

// ReservationService is the single authorized path for committing
// reservations against product capacity.
type ReservationService struct {
	products repository.ProductRepository
	orders   repository.OrderRepository
	cache    cache.ProductCache
	sfg      singleflight.Group // Prevents cache stampede on product reads
	locks    *productLocks
}

func NewReservationService(products repository.ProductRepository, orders repository.OrderRepository, cache cache.ProductCache) *ReservationService {
	return &ReservationService{
		products: products,
		orders:   orders,
		cache:    cache,
		locks:    newProductLocks(),
	}
}

// CheckAvailability answers whether quantity units fit in [start, end]
// without committing anything. Stock is read through the cache; the
// interval index is always rebuilt from the order store so cancelled
// orders drop out immediately.
func (s *ReservationService) CheckAvailability(ctx context.Context, productID string, start, end time.Time, quantity int, excludeOrderID string) (availability.Verdict, error) {
	if start.After(end) {
		return availability.Verdict{}, ErrInvalidWindow
	}
	if quantity <= 0 {
		return availability.Verdict{}, ErrInvalidQuantity
	}

	product, err := s.loadProduct(ctx, productID)
	if err != nil {
		return availability.Verdict{}, err
	}

	intervals, err := s.orders.IntervalsForProduct(ctx, productID)
	if err != nil {
		return availability.Verdict{}, fmt.Errorf("%w: %v", ErrRepositoryUnavailable, err)
	}

	return availability.Check(product.StockQuantity, quantity, intervals, start, end, excludeOrderID), nil
}

// Calendar returns the day-by-day availability breakdown for a window.
func (s *ReservationService) Calendar(ctx context.Context, productID string, start, end time.Time) ([]availability.DayAvailability, error) {
	if start.After(end) {
		return nil, ErrInvalidWindow
	}

	product, err := s.loadProduct(ctx, productID)
	if err != nil {
		return nil, err
	}

	intervals, err := s.orders.IntervalsForProduct(ctx, productID)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrRepositoryUnavailable, err)
	}

	return availability.Calendar(product.StockQuantity, intervals, start, end, ""), nil
}

// Reserve admits or rejects a reservation and, when admitted, runs the
// caller's order write followed by the counter update. Admissions for one
// product serialize on a per-product lock; the capacity check, order write
// and counter delta happen under it. A rejection performs no writes.
func (s *ReservationService) Reserve(ctx context.Context, req ReserveRequest, write OrderWriteFn) error {
	if err := validateRequest(req); err != nil {
		return err
	}

	lock := s.locks.get(req.ProductID)
	lock.Lock()
	defer lock.Unlock()

	// Fresh reads on the write path: the cache never feeds an admission.
	product, err := s.products.GetProduct(ctx, req.ProductID)
	if err != nil {
		if errors.Is(err, repository.ErrProductNotFound) {
			return err
		}
		return fmt.Errorf("%w: %v", ErrRepositoryUnavailable, err)
	}

	intervals, err := s.orders.IntervalsForProduct(ctx, req.ProductID)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrRepositoryUnavailable, err)
	}

	committed := availability.CommittedForOrder(intervals, req.ExcludeOrderID)

	var delta int
	switch req.Intent {
	case IntentCancel:
		// Cancellation frees capacity, no check needed.
		delta = -committed
	case IntentModify:
		verdict := availability.Check(product.StockQuantity, req.Quantity, intervals, req.Start, req.End, req.ExcludeOrderID)
		if !verdict.Admissible {
			return ErrCapacityExceeded
		}
		delta = req.Quantity - committed
	default:
		verdict := availability.Check(product.StockQuantity, req.Quantity, intervals, req.Start, req.End, req.ExcludeOrderID)
		if !verdict.Admissible {
			return ErrCapacityExceeded
		}
		delta = req.Quantity
	}

	if err := write(ctx); err != nil {
		return fmt.Errorf("order write failed: %w", err)
	}

	if err := s.applyCounterDelta(ctx, req.ProductID, delta); err != nil {
		// The order is committed; the counter will be repaired by
		// reconciliation if this write never lands.
		log.Printf("counter update failed for product %s: %v", req.ProductID, err)
		return err
	}

	return nil
}

// applyCounterDelta shifts reserved_quantity by delta using the
// version-checked write, retrying a bounded number of times when an
// out-of-band writer bumps the version.
func (s *ReservationService) applyCounterDelta(ctx context.Context, productID string, delta int) error {
	if delta == 0 {
		return nil
	}

	for attempt := 0; attempt < maxWriteRetries; attempt++ {
		product, err := s.products.GetProduct(ctx, productID)
		if err != nil {
			return fmt.Errorf("%w: %v", ErrRepositoryUnavailable, err)
		}

		reserved := product.ReservedQuantity + delta
		if reserved < 0 {
			reserved = 0
		}

		err = s.products.UpdateReservedQuantity(ctx, productID, product.Version, reserved)
		if errors.Is(err, repository.ErrVersionConflict) {
			continue
		}
		if err != nil {
			return fmt.Errorf("%w: %v", ErrRepositoryUnavailable, err)
		}

		s.invalidateProduct(productID)
		return nil
	}

	return fmt.Errorf("%w: counter write conflicted %d times", ErrRepositoryUnavailable, maxWriteRetries)
}

// loadProduct serves cached product reads with singleflight so a burst of
// availability checks for one product issues a single store query.
func (s *ReservationService) loadProduct(ctx context.Context, productID string) (*domain.Product, error) {
	v, err, _ := s.sfg.Do(productID, func() (interface{}, error) {
		product, err := s.cache.Get(ctx, productID)
		if err == nil {
			return product, nil
		}
		if !errors.Is(err, cache.ErrCacheMiss) {
			log.Printf("cache get error: %v", err) // log cache error but continue
		}

		product, errGet := s.products.GetProduct(ctx, productID)
		if errGet != nil {
			if errors.Is(errGet, repository.ErrProductNotFound) {
				return nil, errGet
			}
			return nil, fmt.Errorf("%w: %v", ErrRepositoryUnavailable, errGet)
		}

		go func() {
			if errSet := s.cache.Set(context.Background(), productID, product); errSet != nil {
				log.Printf("cache set error: %v", errSet)
			}
		}()

		return product, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*domain.Product), nil
}

func (s *ReservationService) invalidateProduct(productID string) {
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if err := s.cache.Delete(ctx, productID); err != nil {
		log.Printf("cache invalidate error: %v", err)
	}
}

func validateRequest(req ReserveRequest) error {
	if req.Intent == IntentCancel {
		if req.ExcludeOrderID == "" {
			return ErrMissingOrderID
		}
		return nil
	}
	if req.Start.After(req.End) {
		return ErrInvalidWindow
	}
	if req.Quantity <= 0 {
		return ErrInvalidQuantity
	}
	if req.Intent == IntentModify && req.ExcludeOrderID == "" {
		return ErrMissingOrderID
	}
	return nil
}
