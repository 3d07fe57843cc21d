package categorizer

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"fjacquet/csv-ingest/internal/cache"
	"fjacquet/csv-ingest/internal/logging"
	"fjacquet/csv-ingest/internal/models"
	"fjacquet/csv-ingest/internal/parsererror"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEngine_KeywordAndDefaultWithoutClassifier(t *testing.T) {
	catalogue, _ := seededCatalogue(t)
	engine := NewDefaultEngine(EngineOptions{Classifier: UnavailableClassifier{}, Cache: cache.NewMemoryCache()}, logging.NewMockLogger())

	tests := []struct {
		name          string
		description   string
		wantCategory  string
		wantConf      float64
		wantTier      models.Tier
		wantReasoning string
	}{
		{"fuel station", "POSTO SHELL", "Transporte", 0.6, models.TierKeyword, "Palavra-chave detectada: posto"},
		{"ride", "Uber Trip", "Transporte", 0.6, models.TierKeyword, "Palavra-chave detectada: uber"},
		{"no match", "XYZ QWERTY", "Outros", 0.3, models.TierDefault, "Classificação padrão - não identificado"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tx := sampleTransaction("tx-1", tt.description, tt.description, "10")
			got := engine.Categorize(context.Background(), tx, catalogue)
			assert.Equal(t, tt.wantCategory, got.CategoryName)
			assert.Equal(t, tt.wantConf, got.Confidence)
			assert.Equal(t, tt.wantTier, got.Tier)
			assert.Equal(t, tt.wantReasoning, got.Reasoning)
			require.NotNil(t, got.CategoryID)
		})
	}
}

func TestEngine_CacheHitBypassesClassifier(t *testing.T) {
	ctx := context.Background()
	catalogue, _ := seededCatalogue(t)
	c := cache.NewMemoryCache()
	tx := sampleTransaction("tx-1", "Netflix.com", "Netflix.com", "39.9")

	data, err := json.Marshal(CachedResult{CategoryName: "Lazer", Confidence: 0.95, Reasoning: "Streaming"})
	require.NoError(t, err)
	require.NoError(t, c.Put(ctx, CacheKey(tx.Description, tx.Establishment), data, time.Hour))

	classifier := &fakeClassifier{reply: Reply{CategoryName: "Outros", Confidence: 0.9}}
	engine := NewDefaultEngine(EngineOptions{Classifier: classifier, Cache: c}, logging.NewMockLogger())

	got := engine.Categorize(ctx, tx, catalogue)

	assert.Equal(t, int64(0), classifier.calls.Load())
	assert.Equal(t, "Lazer", got.CategoryName)
	assert.Equal(t, 0.95, got.Confidence)
	assert.Equal(t, models.TierCache, got.Tier)
	assert.True(t, got.IsAI())
}

func TestEngine_ExternalResultIsCached(t *testing.T) {
	ctx := context.Background()
	catalogue, _ := seededCatalogue(t)
	c := cache.NewMemoryCache()
	classifier := &fakeClassifier{reply: Reply{CategoryName: "saúde", Confidence: 0.91, Reasoning: "Farmácia"}}
	engine := NewDefaultEngine(EngineOptions{Classifier: classifier, Cache: c, CacheTTL: time.Hour}, logging.NewMockLogger())
	tx := sampleTransaction("tx-1", "DROGASIL 123", "DROGASIL", "50")

	first := engine.Categorize(ctx, tx, catalogue)
	second := engine.Categorize(ctx, tx, catalogue)

	assert.Equal(t, "Saúde", first.CategoryName)
	assert.Equal(t, models.TierExternal, first.Tier)
	assert.Equal(t, models.TierCache, second.Tier)
	assert.Equal(t, first.CategoryID, second.CategoryID)
	assert.Equal(t, int64(1), classifier.calls.Load())
	assert.Contains(t, classifier.lastPrompt(), "Descrição: DROGASIL 123")
}

func TestEngine_ClassifierFailuresFallThrough(t *testing.T) {
	catalogue, _ := seededCatalogue(t)
	tests := []struct {
		name       string
		classifier *fakeClassifier
		wantWarn   string
	}{
		{"unavailable", &fakeClassifier{err: parsererror.ErrClassifierUnavailable}, "AI categorization failed"},
		{"timeout", &fakeClassifier{err: parsererror.ErrClassifierTimeout}, "AI categorization failed"},
		{"malformed", &fakeClassifier{err: parsererror.ErrClassifierMalformedReply}, "AI categorization failed"},
		{"unknown category", &fakeClassifier{reply: Reply{CategoryName: "Criptomoedas", Confidence: 0.9}}, "AI returned an unknown category"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			logger := logging.NewMockLogger()
			c := cache.NewMemoryCache()
			engine := NewDefaultEngine(EngineOptions{Classifier: tt.classifier, Cache: c}, logger)
			tx := sampleTransaction("tx-1", "POSTO SHELL", "POSTO SHELL", "120")

			got := engine.Categorize(context.Background(), tx, catalogue)

			assert.Equal(t, "Transporte", got.CategoryName)
			assert.Equal(t, models.TierKeyword, got.Tier)
			assert.True(t, logger.HasEntry("WARN", tt.wantWarn))
			assert.Equal(t, 0, c.Len())
		})
	}
}

type failingStrategy struct{}

func (failingStrategy) Name() string { return "Failing" }

func (failingStrategy) Categorize(context.Context, models.Transaction, *Catalogue) (models.CategorizationResult, bool, error) {
	return models.CategorizationResult{}, false, errors.New("boom")
}

func TestEngine_StrategyErrorContinues(t *testing.T) {
	catalogue, _ := seededCatalogue(t)
	logger := logging.NewMockLogger()
	engine := NewEngine(logger, failingStrategy{}, NewKeywordStrategy(logger))

	got := engine.Categorize(context.Background(), sampleTransaction("tx-1", "POSTO SHELL", "", "1"), catalogue)
	assert.Equal(t, "Transporte", got.CategoryName)
	assert.True(t, logger.HasEntry("WARN", "Categorization strategy failed"))

	got = engine.Categorize(context.Background(), sampleTransaction("tx-2", "XYZ", "", "1"), catalogue)
	assert.Equal(t, models.TierDefault, got.Tier)
}

func TestEngine_MissingCatchAllHasNoCategory(t *testing.T) {
	catalogue := NewCatalogue([]models.Category{{ID: "c1", Name: "Transporte"}}, nil, nil)
	engine := NewDefaultEngine(EngineOptions{}, logging.NewMockLogger())

	got := engine.Categorize(context.Background(), sampleTransaction("tx-1", "XYZ", "", "1"), catalogue)

	assert.Nil(t, got.CategoryID)
	assert.Equal(t, "Outros", got.CategoryName)
	assert.False(t, got.Accepted(0.3))
}

type recordingObserver struct {
	tiers []models.Tier
}

func (r *recordingObserver) ObserveCategorization(tier models.Tier, _ time.Duration) {
	r.tiers = append(r.tiers, tier)
}

func TestEngine_Observer(t *testing.T) {
	catalogue, _ := seededCatalogue(t)
	engine := NewDefaultEngine(EngineOptions{}, logging.NewMockLogger())
	obs := &recordingObserver{}
	engine.SetObserver(obs)

	engine.Categorize(context.Background(), sampleTransaction("tx-1", "POSTO SHELL", "", "1"), catalogue)
	engine.Categorize(context.Background(), sampleTransaction("tx-2", "XYZ", "", "1"), catalogue)

	assert.Equal(t, []models.Tier{models.TierKeyword, models.TierDefault}, obs.tiers)
	assert.Equal(t, []string{"Keyword", "Default"}, engine.Strategies())
}

func TestEngine_CacheServedWithoutClassifier(t *testing.T) {
	ctx := context.Background()
	catalogue, _ := seededCatalogue(t)
	c := cache.NewMemoryCache()
	tx := sampleTransaction("tx-1", "Netflix.com", "Netflix.com", "39.9")

	data, err := json.Marshal(CachedResult{CategoryName: "Lazer", Confidence: 0.95, Reasoning: "Streaming"})
	require.NoError(t, err)
	require.NoError(t, c.Put(ctx, CacheKey(tx.Description, tx.Establishment), data, time.Hour))

	engine := NewDefaultEngine(EngineOptions{Cache: c}, logging.NewMockLogger())
	assert.Equal(t, []string{"Cache", "Keyword", "Default"}, engine.Strategies())

	got := engine.Categorize(ctx, tx, catalogue)
	assert.Equal(t, models.TierCache, got.Tier)
	assert.Equal(t, "Lazer", got.CategoryName)
	assert.Equal(t, 0.95, got.Confidence)

	miss := engine.Categorize(ctx, sampleTransaction("tx-2", "POSTO SHELL", "", "1"), catalogue)
	assert.Equal(t, models.TierKeyword, miss.Tier)
}

func TestCacheKey(t *testing.T) {
	assert.Equal(t, "ai_category_"+"d41d8cd98f00b204e9800998ecf8427e", CacheKey("", ""))
	assert.Equal(t, CacheKey("ab", "c"), CacheKey("a", "bc"))
	assert.NotEqual(t, CacheKey("Uber", "Uber"), CacheKey("uber", "uber"))
}
