package ingestion

import (
	"context"
	"errors"
	"hash/fnv"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"community-token-tracker/internal/domain"
)

// FrameSource delivers raw feed frames until it fails or ctx is cancelled.
// feed.Client satisfies it.
type FrameSource interface {
	Run(ctx context.Context, out chan<- []byte) error
}

// Runner reads frames from a source and processes them on sharded workers.
// Events for the same pool always land on the same worker, so per-pool
// order is preserved while different pools proceed in parallel.
type Runner struct {
	source    FrameSource
	processor *Processor
	workers   int
	queueSize int
	logger    *zap.Logger
}

// RunnerOptions contains configuration for creating a Runner.
type RunnerOptions struct {
	Source    FrameSource
	Processor *Processor
	Workers   int // Default: 1 (single-threaded event loop)
	QueueSize int // Default: 256 - buffered events per worker
	Logger    *zap.Logger
}

// NewRunner creates a new ingestion runner.
func NewRunner(opts RunnerOptions) (*Runner, error) {
	if opts.Source == nil {
		return nil, errors.New("frame source is required")
	}
	if opts.Processor == nil {
		return nil, errors.New("processor is required")
	}

	workers := opts.Workers
	if workers <= 0 {
		workers = 1
	}

	queueSize := opts.QueueSize
	if queueSize <= 0 {
		queueSize = 256
	}

	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Runner{
		source:    opts.Source,
		processor: opts.Processor,
		workers:   workers,
		queueSize: queueSize,
		logger:    logger,
	}, nil
}

// Run blocks until the source ends or ctx is cancelled.
// On cancellation queued events are abandoned and in-flight events complete.
// When the source fails, frames already received are still processed and
// the source error is returned.
func (r *Runner) Run(ctx context.Context) error {
	frames := make(chan []byte, r.queueSize)
	queues := make([]chan *domain.PoolUpdateEvent, r.workers)
	for i := range queues {
		queues[i] = make(chan *domain.PoolUpdateEvent, r.queueSize)
	}

	r.logger.Info("runner started", zap.Int("workers", r.workers), zap.Int("queue_size", r.queueSize))

	var g errgroup.Group

	g.Go(func() error {
		defer close(frames)
		return r.source.Run(ctx, frames)
	})

	g.Go(func() error {
		defer func() {
			for _, q := range queues {
				close(q)
			}
		}()
		r.dispatch(ctx, frames, queues)
		return nil
	})

	for i, q := range queues {
		g.Go(func() error {
			r.work(ctx, i, q)
			return nil
		})
	}

	err := g.Wait()
	if ctx.Err() != nil {
		r.logger.Info("runner stopping")
		return ctx.Err()
	}
	return err
}

func (r *Runner) dispatch(ctx context.Context, frames <-chan []byte, queues []chan *domain.PoolUpdateEvent) {
	for raw := range frames {
		ev, ok := r.processor.decode(raw)
		if !ok {
			continue
		}

		q := queues[shardFor(ev.PoolAddress, len(queues))]
		select {
		case q <- ev:
		case <-ctx.Done():
			return
		}
	}
}

func (r *Runner) work(ctx context.Context, id int, q <-chan *domain.PoolUpdateEvent) {
	// Store writes of an in-flight event are not cut short by shutdown
	handleCtx := context.WithoutCancel(ctx)

	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-q:
			if !ok {
				return
			}
			if _, err := r.processor.HandleEvent(handleCtx, ev); err != nil {
				r.logger.Warn("event abandoned",
					zap.Int("worker", id),
					zap.String("pool", ev.PoolAddress),
					zap.Error(err),
				)
			}
		}
	}
}

// shardFor maps a pool address to a worker index.
func shardFor(pool string, n int) int {
	if n <= 1 {
		return 0
	}
	h := fnv.New32a()
	_, _ = h.Write([]byte(pool))
	return int(h.Sum32() % uint32(n))
}
