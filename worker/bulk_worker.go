package worker

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"mailverify/models"
	"mailverify/verifier"
)

// ErrDeepNotAllowed is returned for bulk runs at deep depth. Mailbox probes
// are operator-triggered one at a time.
var ErrDeepNotAllowed = errors.New("deep verification is not available in bulk")

// Engine verifies one address. *verifier.Verifier satisfies it.
type Engine interface {
	Verify(ctx context.Context, email string, depth verifier.Depth) *verifier.Result
}

// BulkVerifier fans a list of addresses across a fixed pool of goroutines.
type BulkVerifier struct {
	Engine  Engine
	Workers int
	Logger  logrus.FieldLogger
}

func NewBulkVerifier(engine Engine, workers int, logger logrus.FieldLogger) *BulkVerifier {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &BulkVerifier{
		Engine:  engine,
		Workers: workers,
		Logger:  logger,
	}
}

type job struct {
	index int
	email string
}

type outcome struct {
	index  int
	result *verifier.Result
}

// Stream calls emit once per verified address, in completion order, from a
// single goroutine. It stops early when ctx is done or emit fails; addresses
// not yet verified at that point are never emitted.
func (bv *BulkVerifier) Stream(ctx context.Context, emails []string, depth verifier.Depth, emit func(index int, r *verifier.Result) error) error {
	if depth == verifier.DepthDeep {
		return ErrDeepNotAllowed
	}
	if len(emails) == 0 {
		return ctx.Err()
	}

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	workerCount := bv.Workers
	if workerCount <= 0 {
		workerCount = 1
	}
	if workerCount > len(emails) {
		workerCount = len(emails)
	}

	jobs := make(chan job)
	results := make(chan outcome)
	var wg sync.WaitGroup

	for i := 0; i < workerCount; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := range jobs {
				res := bv.Engine.Verify(runCtx, j.email, depth)
				// a verdict reached while shutting down may be a cancellation
				// artefact, so it is dropped rather than reported
				if runCtx.Err() != nil {
					return
				}
				select {
				case results <- outcome{index: j.index, result: res}:
				case <-runCtx.Done():
					return
				}
			}
		}()
	}

	// Feed emails to workers
	go func() {
		defer close(jobs)
		for i, email := range emails {
			select {
			case jobs <- job{index: i, email: email}:
			case <-runCtx.Done():
				return
			}
		}
	}()

	go func() {
		wg.Wait()
		close(results)
	}()

	var emitErr error
	for out := range results {
		if emitErr != nil {
			continue
		}
		if err := emit(out.index, out.result); err != nil {
			emitErr = err
			cancel()
		}
	}

	if emitErr != nil {
		return emitErr
	}
	return ctx.Err()
}

// Run verifies every address and returns results in input order. Entries
// skipped because ctx ended are nil and counted as skipped.
func (bv *BulkVerifier) Run(ctx context.Context, emails []string, depth verifier.Depth) ([]*verifier.Result, models.BulkSummary, error) {
	start := time.Now()
	results := make([]*verifier.Result, len(emails))
	err := bv.Stream(ctx, emails, depth, func(i int, r *verifier.Result) error {
		results[i] = r
		return nil
	})

	var summary models.BulkSummary
	if errors.Is(err, ErrDeepNotAllowed) {
		return nil, summary, err
	}
	for _, r := range results {
		summary.Add(r)
	}

	entry := bv.Logger.WithFields(logrus.Fields{
		"depth":      depth.String(),
		"total":      summary.Total,
		"valid":      summary.Valid,
		"invalid":    summary.Invalid,
		"skipped":    summary.Skipped,
		"elapsed_ms": time.Since(start).Milliseconds(),
	})
	if err != nil {
		entry.WithError(err).Warn("bulk verification interrupted")
	} else {
		entry.Info("bulk verification completed")
	}
	return results, summary, err
}
