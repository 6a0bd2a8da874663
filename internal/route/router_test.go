package route

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/kordite/switchboard/internal/classify"
	"github.com/kordite/switchboard/internal/config"
	"github.com/kordite/switchboard/internal/errors"
	"github.com/kordite/switchboard/internal/store"
	"github.com/kordite/switchboard/internal/taxonomy"
)

func newTestRouter(t *testing.T) *Router {
	t.Helper()
	cfg := config.DefaultConfig()
	cls := classify.New(taxonomy.Builtin(), cfg.InclusionThreshold,
		classify.Policy{FastPath: cfg.FastPathThreshold, Fallback: cfg.FallbackThreshold})
	return New(cls, store.NewMemory(), cfg, zap.NewNop())
}

func TestArchetypeThenCacheHit(t *testing.T) {
	r := newTestRouter(t)
	ctx := context.Background()

	first, err := r.Classify(ctx, "Design a LOGIN   system")
	require.NoError(t, err)
	assert.Equal(t, 1.0, first.Confidence)
	assert.Equal(t, classify.StateAccepted, first.State)
	assert.False(t, first.NeedsLLMVerification)
	assert.False(t, first.CacheHit)
	assert.Contains(t, first.ArchetypeMatched, "login-system-design")
	assert.Equal(t, []string{"authentication"}, first.Systems)
	assert.Equal(t, []string{"backend-engineering", "security-engineering"}, first.Domains)

	// Same query, different surface form: normalization makes it the same
	// signature, so the pattern cache serves it.
	second, err := r.Classify(ctx, "design a login system")
	require.NoError(t, err)
	assert.True(t, second.CacheHit)
	assert.Equal(t, 1.0, second.Confidence)
	assert.Equal(t, classify.ClassifierFastPath, second.Classifier)
	assert.Equal(t, first.Domains, second.Domains)

	sig, entry, err := r.CacheLookup(ctx, "design a login system")
	require.NoError(t, err)
	require.NotNil(t, entry)
	assert.Equal(t, sig, second.Pattern)
	assert.Equal(t, 1, entry.HitCount)
}

func TestSessionBoostCrossesThreshold(t *testing.T) {
	ctx := context.Background()

	// Without prior context the query sits below the fast path.
	cold := newTestRouter(t)
	res, err := cold.Classify(ctx, "refactor the api handler")
	require.NoError(t, err)
	assert.InDelta(t, 0.80, res.Confidence, 1e-9)
	assert.Equal(t, classify.StateProvisional, res.State)
	assert.True(t, res.NeedsLLMVerification)

	// One prior query in the same domain adds one boost increment, which is
	// enough to cross the acceptance bar here.
	warm := newTestRouter(t)
	_, err = warm.Classify(ctx, "backend api service")
	require.NoError(t, err)

	res, err = warm.Classify(ctx, "refactor the api handler")
	require.NoError(t, err)
	assert.InDelta(t, 0.05, res.PriorBoost, 1e-9)
	assert.InDelta(t, 0.85, res.Confidence, 1e-9)
	assert.Equal(t, classify.StateAccepted, res.State)
	assert.False(t, res.NeedsLLMVerification)
}

func TestSessionBoostIsCappedAndAddsNoCandidates(t *testing.T) {
	r := newTestRouter(t)
	ctx := context.Background()

	for i := 0; i < 4; i++ {
		_, err := r.Classify(ctx, "backend api service")
		require.NoError(t, err)
	}

	res, err := r.Classify(ctx, "refactor the api handler")
	require.NoError(t, err)
	assert.InDelta(t, r.cfg.BoostCap, res.PriorBoost, 1e-9)
	assert.LessOrEqual(t, res.Confidence, 1.0)
	// Boosting raises confidence in what was found; it never invents
	// systems or domains the keywords did not produce.
	assert.Equal(t, []string{"backend-engineering"}, res.Domains)
	assert.Empty(t, res.Systems)
}

func TestKeywordSaturationNeverFullConfidence(t *testing.T) {
	r := newTestRouter(t)

	// Stacked keywords clamp at the keyword ceiling: a 1.0 without a
	// cache_hit or archetype marker would be certainty nothing downstream
	// could discount.
	res, err := r.Classify(context.Background(), "security vulnerability encryption injection xss csrf")
	require.NoError(t, err)
	assert.Equal(t, classify.MaxKeywordConfidence, res.Confidence)
	assert.Less(t, res.Confidence, 1.0)
	assert.False(t, res.CacheHit)
	assert.Empty(t, res.ArchetypeMatched)
}

func TestProvisionalResultIsCached(t *testing.T) {
	r := newTestRouter(t)
	ctx := context.Background()

	first, err := r.Classify(ctx, "refactor the api handler")
	require.NoError(t, err)
	assert.Equal(t, classify.StateProvisional, first.State)
	assert.InDelta(t, 0.80, first.Confidence, 1e-9)

	// The cache is written on every classification, not only on accepted
	// ones: an identical resubmission is served from the cache, restamped
	// with the cache_hit marker.
	second, err := r.Classify(ctx, "refactor the api handler")
	require.NoError(t, err)
	assert.True(t, second.CacheHit)
	assert.Equal(t, 1.0, second.Confidence)
	assert.Equal(t, classify.StateAccepted, second.State)

	_, entry, err := r.CacheLookup(ctx, "refactor the api handler")
	require.NoError(t, err)
	require.NotNil(t, entry)
	assert.Equal(t, classify.StateProvisional, entry.Classification.State)
	assert.Equal(t, 1, entry.HitCount)
}

func TestCacheHitKeepsPrimaryDomain(t *testing.T) {
	r := newTestRouter(t)
	ctx := context.Background()

	// Two domains included, and the top scorer (security-engineering) sorts
	// after the other in the result set.
	first, err := r.Classify(ctx, "api security vulnerability")
	require.NoError(t, err)
	assert.Equal(t, []string{"backend-engineering", "security-engineering"}, first.Domains)

	_, err = r.Classify(ctx, "api security vulnerability")
	require.NoError(t, err)

	// The cache-hit record reuses the primary domain stored with the entry
	// rather than falling back to the alphabetically first domain.
	hist, err := r.History(ctx, 1)
	require.NoError(t, err)
	require.Len(t, hist, 1)
	assert.Equal(t, "security-engineering", hist[0].PrimaryDomain)

	transitions, err := r.Transitions(ctx)
	require.NoError(t, err)
	require.Len(t, transitions, 1)
	assert.Equal(t, store.Transition{
		Prev: "security-engineering", Curr: "security-engineering", Count: 1,
	}, transitions[0])
}

func TestZeroEvidenceGetsNoBoost(t *testing.T) {
	r := newTestRouter(t)
	ctx := context.Background()

	_, err := r.Classify(ctx, "backend api service")
	require.NoError(t, err)

	res, err := r.Classify(ctx, "purple monkey dishwasher quux")
	require.NoError(t, err)
	assert.Equal(t, 0.0, res.Confidence)
	assert.Equal(t, 0.0, res.PriorBoost)
	assert.Equal(t, classify.StateUnclassified, res.State)
	assert.True(t, res.NeedsLLMVerification)
}

func TestHistoryChainAndTransitions(t *testing.T) {
	r := newTestRouter(t)
	ctx := context.Background()

	_, err := r.Classify(ctx, "backend api service")
	require.NoError(t, err)
	_, err = r.Classify(ctx, "security vulnerability audit")
	require.NoError(t, err)

	hist, err := r.History(ctx, 10)
	require.NoError(t, err)
	require.Len(t, hist, 2)
	assert.Equal(t, "security vulnerability audit", hist[0].Query)
	assert.Equal(t, hist[1].Signature, hist[0].PrevSignature)
	assert.Equal(t, "security-engineering", hist[0].PrimaryDomain)
	assert.Equal(t, "backend-engineering", hist[1].PrimaryDomain)
	assert.Empty(t, hist[1].PrevSignature)

	trans, err := r.Transitions(ctx)
	require.NoError(t, err)
	require.Len(t, trans, 1)
	assert.Equal(t, "backend-engineering", trans[0].Prev)
	assert.Equal(t, "security-engineering", trans[0].Curr)
	assert.Equal(t, 1, trans[0].Count)
}

func TestEmptyQueryIsUnclassifiedAndNotRecorded(t *testing.T) {
	r := newTestRouter(t)
	ctx := context.Background()

	res, err := r.Classify(ctx, "   \t  ")
	require.NoError(t, err)
	assert.Equal(t, classify.StateUnclassified, res.State)
	assert.Empty(t, res.Domains)

	hist, err := r.History(ctx, 10)
	require.NoError(t, err)
	assert.Empty(t, hist)
}

func TestOversizedQueryRejected(t *testing.T) {
	r := newTestRouter(t)
	_, err := r.Classify(context.Background(), strings.Repeat("a", r.cfg.MaxQueryChars+1))
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrInvalidRequest))
}

func TestAcceptedResultsPopulateStats(t *testing.T) {
	r := newTestRouter(t)
	ctx := context.Background()

	_, err := r.Classify(ctx, "backend api service")
	require.NoError(t, err)
	_, err = r.Classify(ctx, "backend api service")
	require.NoError(t, err)

	stats, err := r.CacheStats(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, stats.PatternCount)
	assert.Equal(t, 1, stats.TotalHits)
	assert.Equal(t, 2, stats.HistoryCount)
}
