// Package route runs the full classification pipeline: signature, pattern
// cache, keyword classification, session boosting, escalation, and the
// best-effort persistence that feeds the next query's context.
package route

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/kordite/switchboard/internal/classify"
	"github.com/kordite/switchboard/internal/config"
	"github.com/kordite/switchboard/internal/errors"
	"github.com/kordite/switchboard/internal/signature"
	"github.com/kordite/switchboard/internal/store"
)

// Router wires the classification stages together. Store writes are
// fire-and-forget: a failed write is logged and the classification is still
// returned, because losing a cache entry only costs a future miss.
type Router struct {
	classifier *classify.Classifier
	policy     classify.Policy
	store      store.Store
	cfg        *config.Config
	logger     *zap.Logger
	now        func() time.Time
}

func New(classifier *classify.Classifier, st store.Store, cfg *config.Config, logger *zap.Logger) *Router {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Router{
		classifier: classifier,
		policy:     classify.Policy{FastPath: cfg.FastPathThreshold, Fallback: cfg.FallbackThreshold},
		store:      st,
		cfg:        cfg,
		logger:     logger,
		now:        time.Now,
	}
}

// Classify runs one query through the pipeline.
//
// Order matters: the cache is consulted before the keyword classifier, and
// the booster runs after scoring but before escalation so a boosted
// confidence can cross the fast-path threshold.
func (r *Router) Classify(ctx context.Context, query string) (*classify.Result, error) {
	if r.cfg.MaxQueryChars > 0 && len(query) > r.cfg.MaxQueryChars {
		return nil, errors.NewInvalidRequest(
			fmt.Sprintf("query exceeds %d characters", r.cfg.MaxQueryChars))
	}

	normalized := signature.Normalize(query)
	if normalized == "" {
		// Zero evidence, nothing to persist.
		return r.classifier.Classify(""), nil
	}
	sig := signature.Hash(normalized)

	if res, primary := r.fromCache(sig); res != nil {
		r.record(res, sig, query, primary)
		return res, nil
	}

	res, scored := r.classifier.Evaluate(normalized)
	primary := classify.PrimaryDomain(res, scored)

	// Archetype matches already sit at full confidence; only keyword-derived
	// results have room to boost, and boosted confidence stays below the
	// full-confidence band reserved for cache hits and archetype matches.
	if len(res.ArchetypeMatched) == 0 {
		if boost := r.sessionBoost(primary, res.Confidence); boost > 0 {
			res.PriorBoost = boost
			res.Confidence += boost
			if res.Confidence > classify.MaxKeywordConfidence {
				res.Confidence = classify.MaxKeywordConfidence
			}
			// Re-decide: the boost may have cleared the verification bar.
			r.policy.Apply(res)
		}
	}

	// Every classification refreshes the cache, whatever its state; a hit
	// carries the cache_hit marker so consumers can discount replayed
	// certainty themselves.
	entry := store.PatternEntry{Classification: *res, PrimaryDomain: primary, LastUsed: r.now().UTC()}
	if err := r.store.StorePattern(sig, entry); err != nil {
		r.logger.Warn("pattern store failed", zap.String("signature", sig), zap.Error(err))
	}
	r.record(res, sig, query, primary)
	return res, nil
}

// fromCache returns the cached classification for a signature, restamped as
// a cache hit, along with the primary domain recorded when the entry was
// stored. Lookup errors degrade to a miss.
func (r *Router) fromCache(sig string) (*classify.Result, string) {
	entry, err := r.store.LookupPattern(sig)
	if err != nil {
		r.logger.Warn("cache lookup failed", zap.String("signature", sig), zap.Error(err))
		return nil, ""
	}
	if entry == nil {
		return nil, ""
	}
	res := entry.Classification
	res.Confidence = 1.0
	res.PriorBoost = 0
	res.CacheHit = true
	res.Classifier = classify.ClassifierFastPath
	res.Pattern = sig
	res.State = classify.StateAccepted
	res.NeedsLLMVerification = false
	if err := r.store.TouchPattern(sig); err != nil {
		r.logger.Warn("cache touch failed", zap.String("signature", sig), zap.Error(err))
	}
	primary := entry.PrimaryDomain
	if primary == "" {
		primary = classify.PrimaryDomain(&res, nil)
	}
	return &res, primary
}

// sessionBoost looks at the recent history window and rewards topical
// continuity. It only ever raises an existing signal: a zero-confidence
// result or a result with no primary domain gets nothing.
func (r *Router) sessionBoost(primary string, confidence float64) float64 {
	if primary == "" || confidence <= 0 {
		return 0
	}
	recent, err := r.store.RecentHistory(r.cfg.HistoryWindow)
	if err != nil {
		r.logger.Warn("history read failed", zap.Error(err))
		return 0
	}
	return boostFor(recent, primary, r.cfg.BoostIncrement, r.cfg.BoostCap)
}

// record appends the query to session history and bumps the domain
// transition counter. Best-effort on every write.
func (r *Router) record(res *classify.Result, sig, query, primary string) {
	var prevSig, prevPrimary string
	if recent, err := r.store.RecentHistory(1); err != nil {
		r.logger.Warn("history read failed", zap.Error(err))
	} else if len(recent) > 0 {
		prevSig = recent[0].Signature
		prevPrimary = recent[0].PrimaryDomain
	}

	err := r.store.AppendHistory(store.HistoryEntry{
		Signature:      sig,
		Query:          query,
		Classification: *res,
		PrimaryDomain:  primary,
		Timestamp:      r.now().UTC(),
		PrevSignature:  prevSig,
	})
	if err != nil {
		r.logger.Warn("history append failed", zap.String("signature", sig), zap.Error(err))
	}

	if prevPrimary != "" && primary != "" {
		if err := r.store.BumpTransition(prevPrimary, primary); err != nil {
			r.logger.Warn("transition bump failed", zap.Error(err))
		}
	}
}

// History returns up to limit session history entries, newest first.
func (r *Router) History(ctx context.Context, limit int) ([]store.HistoryEntry, error) {
	return r.store.RecentHistory(limit)
}

// Transitions returns the domain transition table, hottest first.
func (r *Router) Transitions(ctx context.Context) ([]store.Transition, error) {
	return r.store.Transitions()
}

// CacheLookup returns the signature for a query and its cache entry if one
// exists. Unlike Classify's cache path this is read-only: no touch, no
// history.
func (r *Router) CacheLookup(ctx context.Context, query string) (string, *store.PatternEntry, error) {
	sig := signature.Of(query)
	entry, err := r.store.LookupPattern(sig)
	return sig, entry, err
}

// CacheStats reports store contents.
func (r *Router) CacheStats(ctx context.Context) (store.Stats, error) {
	return r.store.Stats()
}
