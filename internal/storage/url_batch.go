package storage

import (
	"context"
	"math"
	"math/rand"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"clusterize-backend/internal/domain"
	"clusterize-backend/internal/observability"
)

// BatchConfig tunes the signed-URL batch generator.
type BatchConfig struct {
	// URLLifetime is how long minted URLs stay valid.
	URLLifetime time.Duration
	// BatchTimeout bounds one whole batch. When it fires, the pool is
	// abandoned and the batch is retried sequentially.
	BatchTimeout time.Duration
	// TaskTimeout bounds a single URL generation, including retries.
	TaskTimeout time.Duration
	// MaxRetries is the number of retries after the first attempt for
	// transient failures.
	MaxRetries int
	// RetryBackoffMin and RetryBackoffMax bound the randomized base
	// delay before the exponential factor is applied.
	RetryBackoffMin time.Duration
	RetryBackoffMax time.Duration
	// SequentialDelay is the pause between items in the fallback path,
	// to avoid hammering a storage backend that just timed out.
	SequentialDelay time.Duration
}

// DefaultBatchConfig returns the production settings.
func DefaultBatchConfig() BatchConfig {
	return BatchConfig{
		URLLifetime:     24 * time.Hour,
		BatchTimeout:    120 * time.Second,
		TaskTimeout:     30 * time.Second,
		MaxRetries:      2,
		RetryBackoffMin: 100 * time.Millisecond,
		RetryBackoffMax: 500 * time.Millisecond,
		SequentialDelay: 50 * time.Millisecond,
	}
}

// retryableFragments mark transient storage failures worth retrying.
// Anything else (missing file, permission, malformed path) fails the
// item immediately.
var retryableFragments = []string{"disconnect", "connection", "timeout", "network"}

// URLBatchGenerator mints signed URLs for a batch of objects using an
// adaptive worker pool. A failed item never fails the batch: its URL is
// nil in the result. The output always has exactly one entry per input
// object, in input order.
type URLBatchGenerator struct {
	signer  URLSigner
	cfg     BatchConfig
	logger  *zap.Logger
	metrics *observability.Metrics
}

// NewURLBatchGenerator creates a batch generator.
func NewURLBatchGenerator(signer URLSigner, cfg BatchConfig, logger *zap.Logger, metrics *observability.Metrics) *URLBatchGenerator {
	return &URLBatchGenerator{
		signer:  signer,
		cfg:     cfg,
		logger:  logger,
		metrics: metrics,
	}
}

// workerCount scales the pool with the batch size.
func workerCount(batchSize int) int {
	switch {
	case batchSize <= 5:
		return 2
	case batchSize <= 15:
		return 4
	case batchSize <= 30:
		return 6
	default:
		return 8
	}
}

// Generate annotates each object with a signed URL for its stored file.
// When the pooled run exceeds the batch budget, the remaining work is
// redone sequentially so a wedged pool cannot sink the request.
func (g *URLBatchGenerator) Generate(ctx context.Context, bucket string, objects []domain.Object) []domain.ObjectWithURL {
	results := make([]domain.ObjectWithURL, len(objects))
	for i, obj := range objects {
		results[i] = domain.ObjectWithURL{Object: obj}
	}
	if len(objects) == 0 {
		return results
	}

	start := time.Now()
	defer func() {
		g.metrics.URLBatchObserved(time.Since(start))
	}()

	batchCtx, cancel := context.WithTimeout(ctx, g.cfg.BatchTimeout)
	defer cancel()

	workers := workerCount(len(objects))
	jobs := make(chan int)

	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range jobs {
				results[i].URL = g.signWithRetry(batchCtx, bucket, objects[i])
			}
		}()
	}

	go func() {
		defer close(jobs)
		for i := range objects {
			select {
			case jobs <- i:
			case <-batchCtx.Done():
				return
			}
		}
	}()

	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		g.logger.Debug("signed url batch complete",
			zap.String("bucket", bucket),
			zap.Int("objects", len(objects)),
			zap.Int("workers", workers),
			zap.Duration("elapsed", time.Since(start)))
		return results
	case <-batchCtx.Done():
		// The pool is abandoned; stragglers write into the discarded
		// slice and wind down on their own.
		g.metrics.URLBatchFallback()
		g.logger.Warn("signed url batch exceeded budget, falling back to sequential",
			zap.String("bucket", bucket),
			zap.Int("objects", len(objects)),
			zap.Duration("budget", g.cfg.BatchTimeout))
		return g.generateSequential(ctx, bucket, objects)
	}
}

// signWithRetry mints one URL, retrying transient failures with
// randomized exponential backoff. Returns nil when the item cannot be
// signed within its budget.
func (g *URLBatchGenerator) signWithRetry(ctx context.Context, bucket string, obj domain.Object) *string {
	for attempt := 0; attempt <= g.cfg.MaxRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-time.After(g.backoff(attempt)):
			case <-ctx.Done():
				return nil
			}
		}

		taskCtx, cancel := context.WithTimeout(ctx, g.cfg.TaskTimeout)
		url, err := g.signer.CreateSignedURL(taskCtx, bucket, objectFileName(obj.Name), g.cfg.URLLifetime)
		cancel()

		if err == nil {
			return &url
		}
		if !isTransientSignError(err) {
			g.logger.Warn("signed url generation failed",
				zap.String("bucket", bucket),
				zap.String("object", obj.Name),
				zap.Error(err))
			return nil
		}
		g.logger.Debug("retrying signed url generation",
			zap.String("object", obj.Name),
			zap.Int("attempt", attempt+1),
			zap.Error(err))
	}
	g.logger.Warn("signed url generation exhausted retries",
		zap.String("bucket", bucket),
		zap.String("object", obj.Name),
		zap.Int("retries", g.cfg.MaxRetries))
	return nil
}

// generateSequential is the fallback path: one item at a time, no
// retries, with a small delay between items.
func (g *URLBatchGenerator) generateSequential(ctx context.Context, bucket string, objects []domain.Object) []domain.ObjectWithURL {
	results := make([]domain.ObjectWithURL, len(objects))
	for i, obj := range objects {
		results[i] = domain.ObjectWithURL{Object: obj}

		taskCtx, cancel := context.WithTimeout(ctx, g.cfg.TaskTimeout)
		url, err := g.signer.CreateSignedURL(taskCtx, bucket, objectFileName(obj.Name), g.cfg.URLLifetime)
		cancel()

		if err != nil {
			g.logger.Warn("sequential signed url generation failed",
				zap.String("object", obj.Name),
				zap.Error(err))
		} else {
			results[i].URL = &url
		}

		if i < len(objects)-1 {
			select {
			case <-time.After(g.cfg.SequentialDelay):
			case <-ctx.Done():
				return results
			}
		}
	}
	return results
}

func (g *URLBatchGenerator) backoff(attempt int) time.Duration {
	spread := g.cfg.RetryBackoffMax - g.cfg.RetryBackoffMin
	base := g.cfg.RetryBackoffMin
	if spread > 0 {
		base += time.Duration(rand.Int63n(int64(spread)))
	}
	return time.Duration(float64(base) * math.Pow(1.5, float64(attempt-1)))
}

func isTransientSignError(err error) bool {
	msg := strings.ToLower(err.Error())
	for _, fragment := range retryableFragments {
		if strings.Contains(msg, fragment) {
			return true
		}
	}
	return false
}

// objectFileName maps an object name to its stored file path.
func objectFileName(name string) string {
	return name + ".png"
}
