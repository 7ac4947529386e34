package alignment

import (
	"context"
	"time"

	domainchem "github.com/xtalforge/ccmodel/internal/domain/chem"
	apperrors "github.com/xtalforge/ccmodel/pkg/errors"
	"github.com/xtalforge/ccmodel/pkg/types/chem"
)

// Aligner is the port to the external graph-alignment oracle.  align must be
// idempotent for identical inputs: the same reference, candidate file, and
// mode always yield the same Result.
type Aligner interface {
	Align(ctx context.Context, ref *domainchem.ReferenceMolecule, candidatePath string, mode chem.AlignMode) (*Result, error)
}

// ─────────────────────────────────────────────────────────────────────────────
// Timeout decorator
// ─────────────────────────────────────────────────────────────────────────────

// timeoutAligner bounds every alignment attempt with a wall-clock deadline.
// Expiry surfaces as CodeAlignmentTimeout, which the build loop treats as a
// rejection of that single candidate, never as a fatal error.
type timeoutAligner struct {
	inner   Aligner
	timeout time.Duration
}

// WithTimeout wraps inner so each Align call is bounded by timeout.
func WithTimeout(inner Aligner, timeout time.Duration) Aligner {
	return &timeoutAligner{inner: inner, timeout: timeout}
}

func (a *timeoutAligner) Align(ctx context.Context, ref *domainchem.ReferenceMolecule, candidatePath string, mode chem.AlignMode) (*Result, error) {
	ctx, cancel := context.WithTimeout(ctx, a.timeout)
	defer cancel()

	type outcome struct {
		res *Result
		err error
	}
	ch := make(chan outcome, 1)
	go func() {
		res, err := a.inner.Align(ctx, ref, candidatePath, mode)
		ch <- outcome{res, err}
	}()

	select {
	case <-ctx.Done():
		return nil, apperrors.Wrap(ctx.Err(), apperrors.CodeAlignmentTimeout,
			"alignment exceeded deadline").WithDetail(candidatePath)
	case out := <-ch:
		return out.res, out.err
	}
}

// ─────────────────────────────────────────────────────────────────────────────
// Cache decorator
// ─────────────────────────────────────────────────────────────────────────────

// Cache stores alignment results keyed by (targetID, candidatePath, mode).
// Because the aligner is idempotent, cached results are safe to replay across
// runs.  Implementations live in the infrastructure layer.
type Cache interface {
	Get(ctx context.Context, key string) (*Result, bool, error)
	Set(ctx context.Context, key string, res *Result) error
}

// CacheObserver receives hit/miss notifications; wired to metrics counters.
type CacheObserver interface {
	CacheHit()
	CacheMiss()
}

type cachingAligner struct {
	inner    Aligner
	cache    Cache
	observer CacheObserver
}

// WithCache wraps inner with read-through caching.  observer may be nil.
// Cache errors are swallowed: a broken cache degrades to recomputation, it
// never rejects a candidate.
func WithCache(inner Aligner, cache Cache, observer CacheObserver) Aligner {
	return &cachingAligner{inner: inner, cache: cache, observer: observer}
}

// CacheKey builds the canonical cache key for one alignment attempt.
func CacheKey(targetID, candidatePath string, mode chem.AlignMode) string {
	return targetID + "|" + candidatePath + "|" + mode.String()
}

func (a *cachingAligner) Align(ctx context.Context, ref *domainchem.ReferenceMolecule, candidatePath string, mode chem.AlignMode) (*Result, error) {
	key := CacheKey(ref.TargetID, candidatePath, mode)

	if res, ok, err := a.cache.Get(ctx, key); err == nil && ok {
		if a.observer != nil {
			a.observer.CacheHit()
		}
		return res, nil
	}
	if a.observer != nil {
		a.observer.CacheMiss()
	}

	res, err := a.inner.Align(ctx, ref, candidatePath, mode)
	if err != nil {
		return nil, err
	}
	_ = a.cache.Set(ctx, key, res)
	return res, nil
}
