// Package consumer listens for order lifecycle events published by the
// back office and reacts by invalidating cached products and running a
// targeted reconciliation, so a status change is reflected in counters
// without waiting for the periodic full run.
package consumer

import (
	"context"
	"encoding/json"
	"log"

	"github.com/omaressamii/high-class-sub002/internal/cache"
	"github.com/omaressamii/high-class-sub002/internal/reconcile"
	"github.com/segmentio/kafka-go"
)

type orderEvent struct {
	OrderID    string   `json:"order_id"`
	ProductIDs []string `json:"product_ids"`
	Status     string   `json:"status"`
}

type OrderEventsConsumer struct {
	reader *kafka.Reader
	job    *reconcile.Job
	cache  cache.ProductCache
}

func NewOrderEventsConsumer(job *reconcile.Job, cache cache.ProductCache, brokers ...string) *OrderEventsConsumer {
	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:  brokers,
		Topic:    "order-events",
		GroupID:  "reservation-service",
		MaxBytes: 10e6, // 10MB
	})
	return &OrderEventsConsumer{reader: reader, job: job, cache: cache}
}

func (c *OrderEventsConsumer) Run(ctx context.Context) {
	for {
		if ctx.Err() != nil {
			return
		}

		m, err := c.reader.ReadMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			log.Printf("error reading order event: %v", err)
			continue
		}

		c.handleMessage(ctx, m.Value)
	}
}

func (c *OrderEventsConsumer) Close() {
	if err := c.reader.Close(); err != nil {
		log.Printf("error closing reader: %v", err)
	}
}

// handleMessage is the per-message body, split out so tests can feed raw
// payloads without a broker.
func (c *OrderEventsConsumer) handleMessage(ctx context.Context, value []byte) {
	var event orderEvent
	if err := json.Unmarshal(value, &event); err != nil {
		log.Printf("error parsing order event: %v", err)
		return
	}
	if len(event.ProductIDs) == 0 {
		log.Printf("order event %s carries no product ids, skipping", event.OrderID)
		return
	}

	for _, productID := range event.ProductIDs {
		if err := c.cache.Delete(ctx, productID); err != nil {
			log.Printf("failed to invalidate product %s: %v", productID, err)
		}
	}

	report, err := c.job.Run(ctx, event.ProductIDs)
	if err != nil {
		log.Printf("targeted reconcile failed for order %s: %v", event.OrderID, err)
		return
	}
	if len(report.Corrections) > 0 || len(report.Failures) > 0 {
		log.Printf("order %s reconcile: corrected=%d failed=%d",
			event.OrderID, len(report.Corrections), len(report.Failures))
	}
}
