package reconcile

import (
	"context"
	"log"
	"sync"
	"time"
)

// Runner triggers a full reconciliation on a fixed interval.
type Runner struct {
	job      *Job
	interval time.Duration

	stop chan struct{}
	wg   sync.WaitGroup
}

func NewRunner(job *Job, interval time.Duration) *Runner {
	return &Runner{
		job:      job,
		interval: interval,
		stop:     make(chan struct{}),
	}
}

func (r *Runner) Start() {
	r.wg.Add(1)
	go r.loop()
}

func (r *Runner) loop() {
	defer r.wg.Done()

	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			r.runOnce()
		case <-r.stop:
			return
		}
	}
}

func (r *Runner) runOnce() {
	ctx, cancel := context.WithTimeout(context.Background(), r.interval)
	defer cancel()

	report, err := r.job.Run(ctx, nil)
	if err != nil {
		log.Printf("reconciliation run failed: %v", err)
		return
	}

	log.Printf("reconciliation %s: checked=%d corrected=%d failed=%d",
		report.RunID, report.Checked, len(report.Corrections), len(report.Failures))
}

// Close stops the background loop and waits for it to finish
func (r *Runner) Close() error {
	close(r.stop)
	r.wg.Wait()
	return nil
}
