package dedup

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"needthisdone-payments/apperr"
)

// Guard admits at most one request per fingerprint per TTL window.
type Guard struct {
	store Store
	cfg   config
}

// NewGuard returns a Guard backed by store. It panics if store is nil.
func NewGuard(store Store, opts ...Option) *Guard {
	if store == nil {
		panic("dedup.NewGuard: nil store")
	}
	cfg := config{
		ttl:       defaultTTL,
		timeout:   defaultTimeout,
		keyPrefix: defaultKeyPrefix,
		log:       zap.NewNop(),
	}
	for _, opt := range opts {
		opt(&cfg)
	}
	return &Guard{store: store, cfg: cfg}
}

// TTL returns the admission window.
func (g *Guard) TTL() time.Duration { return g.cfg.ttl }

// CheckAndMark claims fingerprint for the guard's TTL.
//
// It returns true for the single winner of the window and false for every
// other caller. label only feeds logs and metrics; it is not part of the key,
// so the same fingerprint under two labels is still one claim.
//
// Store failures, including the timeout applied here, return an error matching
// apperr.ErrStoreUnreachable and a false that must not be read as "duplicate".
func (g *Guard) CheckAndMark(ctx context.Context, fingerprint, label string) (bool, error) {
	ctx, cancel := context.WithTimeout(ctx, g.cfg.timeout)
	defer cancel()

	start := time.Now()
	ok, err := g.store.SetNX(ctx, g.key(fingerprint), g.cfg.ttl)
	storeLatency.Observe(time.Since(start).Seconds())

	if err != nil {
		decisionsTotal.WithLabelValues(label, resultStoreError).Inc()
		g.cfg.log.Warn("dedup store unavailable",
			zap.String("label", label),
			zap.String("fingerprint", fingerprint),
			zap.Error(err),
		)
		return false, apperr.Store(fmt.Errorf("dedup claim: %w", err))
	}

	if !ok {
		decisionsTotal.WithLabelValues(label, resultDuplicate).Inc()
		g.cfg.log.Debug("duplicate request rejected",
			zap.String("label", label),
			zap.String("fingerprint", fingerprint),
		)
		return false, nil
	}

	decisionsTotal.WithLabelValues(label, resultAdmitted).Inc()
	return true, nil
}

// Seen reports whether fingerprint currently holds a marker. It is a
// diagnostic read; admission decisions go through CheckAndMark only.
func (g *Guard) Seen(ctx context.Context, fingerprint string) (bool, error) {
	ctx, cancel := context.WithTimeout(ctx, g.cfg.timeout)
	defer cancel()

	ok, err := g.store.Exists(ctx, g.key(fingerprint))
	if err != nil {
		return false, apperr.Store(fmt.Errorf("dedup lookup: %w", err))
	}
	return ok, nil
}

// Clear releases fingerprint before its TTL runs out, so the next
// CheckAndMark is admitted. Used after a definitively failed attempt that
// should be retryable right away.
func (g *Guard) Clear(ctx context.Context, fingerprint string) error {
	ctx, cancel := context.WithTimeout(ctx, g.cfg.timeout)
	defer cancel()

	if err := g.store.Del(ctx, g.key(fingerprint)); err != nil {
		g.cfg.log.Warn("dedup marker not cleared",
			zap.String("fingerprint", fingerprint),
			zap.Error(err),
		)
		return apperr.Store(fmt.Errorf("dedup clear: %w", err))
	}
	clearsTotal.Inc()
	return nil
}

func (g *Guard) key(fingerprint string) string {
	return g.cfg.keyPrefix + fingerprint
}
