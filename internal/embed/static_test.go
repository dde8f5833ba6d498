package embed

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStaticEmbedder_Embed_ReturnsConfiguredDimensions(t *testing.T) {
	embedder := NewStaticEmbedder(0)
	defer func() { _ = embedder.Close() }()

	embedding, err := embedder.Embed(context.Background(), "climate summit opens in geneva")

	require.NoError(t, err)
	assert.Len(t, embedding, DefaultDimensions)
}

func TestStaticEmbedder_Embed_CustomDimensions(t *testing.T) {
	embedder := NewStaticEmbedder(128)
	defer func() { _ = embedder.Close() }()

	embedding, err := embedder.Embed(context.Background(), "election results")

	require.NoError(t, err)
	assert.Len(t, embedding, 128)
	assert.Equal(t, 128, embedder.Dimensions())
}

func TestStaticEmbedder_Embed_VectorIsNormalized(t *testing.T) {
	embedder := NewStaticEmbedder(0)
	defer func() { _ = embedder.Close() }()

	embedding, err := embedder.Embed(context.Background(), "central bank raises interest rates")
	require.NoError(t, err)

	magnitude := vectorMagnitude(embedding)
	assert.InDelta(t, 1.0, magnitude, 0.001, "vector should be normalized to unit length")
}

func TestStaticEmbedder_Embed_IsDeterministic(t *testing.T) {
	embedder := NewStaticEmbedder(0)
	defer func() { _ = embedder.Close() }()

	text := "wildfire spreads across northern california"

	emb1, err1 := embedder.Embed(context.Background(), text)
	emb2, err2 := embedder.Embed(context.Background(), text)

	require.NoError(t, err1)
	require.NoError(t, err2)
	assert.Equal(t, emb1, emb2, "same text should produce identical vectors")
}

func TestStaticEmbedder_Embed_DeterministicAcrossInstances(t *testing.T) {
	embedder1 := NewStaticEmbedder(0)
	embedder2 := NewStaticEmbedder(0)
	defer func() { _ = embedder1.Close() }()
	defer func() { _ = embedder2.Close() }()

	text := "parliament votes on budget amendment"

	emb1, _ := embedder1.Embed(context.Background(), text)
	emb2, _ := embedder2.Embed(context.Background(), text)

	assert.Equal(t, emb1, emb2, "same text should produce identical vectors across instances")
}

func TestStaticEmbedder_Embed_DifferentTextsProduceDifferentVectors(t *testing.T) {
	embedder := NewStaticEmbedder(0)
	defer func() { _ = embedder.Close() }()

	emb1, _ := embedder.Embed(context.Background(), "stock markets rally")
	emb2, _ := embedder.Embed(context.Background(), "hurricane warning issued")

	assert.NotEqual(t, emb1, emb2, "different texts should produce different vectors")
}

func TestStaticEmbedder_Embed_EmptyInput_ReturnsZeroVector(t *testing.T) {
	embedder := NewStaticEmbedder(0)
	defer func() { _ = embedder.Close() }()

	embedding, err := embedder.Embed(context.Background(), "")

	require.NoError(t, err)
	assert.Len(t, embedding, DefaultDimensions)

	for i, v := range embedding {
		assert.Equal(t, float32(0), v, "element %d should be zero", i)
	}
}

func TestStaticEmbedder_Embed_WhitespaceOnly_ReturnsZeroVector(t *testing.T) {
	embedder := NewStaticEmbedder(0)
	defer func() { _ = embedder.Close() }()

	embedding, err := embedder.Embed(context.Background(), "   \t\n  ")

	require.NoError(t, err)
	assert.Len(t, embedding, DefaultDimensions)

	for _, v := range embedding {
		assert.Equal(t, float32(0), v)
	}
}

func TestStaticEmbedder_SimilarText_HasHigherSimilarity(t *testing.T) {
	embedder := NewStaticEmbedder(0)
	defer func() { _ = embedder.Close() }()

	floods := "heavy rainfall causes flooding in coastal towns"
	storms := "rainfall and storms flood several coastal villages"
	sports := "striker signs four year contract with madrid"

	floodsEmb, _ := embedder.Embed(context.Background(), floods)
	stormsEmb, _ := embedder.Embed(context.Background(), storms)
	sportsEmb, _ := embedder.Embed(context.Background(), sports)

	weatherSim := cosineSimilarity(floodsEmb, stormsEmb)
	crossSim := cosineSimilarity(floodsEmb, sportsEmb)

	assert.Greater(t, weatherSim, crossSim,
		"related headlines should score higher (weather: %.4f) than unrelated (cross: %.4f)",
		weatherSim, crossSim)
}

func TestStaticEmbedder_StopWordFiltering(t *testing.T) {
	embedder := NewStaticEmbedder(0)
	defer func() { _ = embedder.Close() }()

	// A query that is entirely stop words contributes only n-gram weight,
	// so it should diverge strongly from a content-bearing query.
	withStopWords := "the of and in on at to for"
	withoutStopWords := "earthquake tsunami evacuation"

	embWith, _ := embedder.Embed(context.Background(), withStopWords)
	embWithout, _ := embedder.Embed(context.Background(), withoutStopWords)

	similarity := cosineSimilarity(embWith, embWithout)
	assert.Less(t, similarity, float64(0.5),
		"stop words should be filtered, making vectors different (similarity: %.4f)", similarity)
}

func TestStaticEmbedder_Available_AlwaysTrue(t *testing.T) {
	embedder := NewStaticEmbedder(0)
	defer func() { _ = embedder.Close() }()

	assert.True(t, embedder.Available(context.Background()), "static embedder should always be available")
}

func TestStaticEmbedder_Available_TrueEvenWithCancelledContext(t *testing.T) {
	embedder := NewStaticEmbedder(0)
	defer func() { _ = embedder.Close() }()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	assert.True(t, embedder.Available(ctx), "static embedder should be available even with cancelled context")
}

func TestStaticEmbedder_Performance(t *testing.T) {
	embedder := NewStaticEmbedder(0)
	defer func() { _ = embedder.Close() }()

	texts := make([]string, 1000)
	for i := range texts {
		texts[i] = "breaking news story number " + string(rune('A'+i%26))
	}

	start := time.Now()
	for _, text := range texts {
		_, err := embedder.Embed(context.Background(), text)
		require.NoError(t, err)
	}
	elapsed := time.Since(start)

	assert.Less(t, elapsed, 1*time.Second,
		"embedding 1000 texts should take < 1s (took %v)", elapsed)
}

func TestStaticEmbedder_ImplementsEmbedderInterface(t *testing.T) {
	embedder := NewStaticEmbedder(0)
	defer func() { _ = embedder.Close() }()

	var _ Embedder = embedder
}

func TestStaticEmbedder_ModelName_ReturnsStatic(t *testing.T) {
	embedder := NewStaticEmbedder(0)
	defer func() { _ = embedder.Close() }()

	assert.Equal(t, "static", embedder.ModelName())
}

func TestStaticEmbedder_EmbedBatch_ReturnsCorrectCount(t *testing.T) {
	embedder := NewStaticEmbedder(0)
	defer func() { _ = embedder.Close() }()

	texts := []string{"ceasefire talks resume", "tech layoffs continue", "oil prices fall"}

	embeddings, err := embedder.EmbedBatch(context.Background(), texts)

	require.NoError(t, err)
	assert.Len(t, embeddings, 3)

	for i, emb := range embeddings {
		assert.Len(t, emb, DefaultDimensions, "embedding %d should have correct dimensions", i)
	}
}

func TestStaticEmbedder_EmbedBatch_EmptyList_ReturnsEmpty(t *testing.T) {
	embedder := NewStaticEmbedder(0)
	defer func() { _ = embedder.Close() }()

	embeddings, err := embedder.EmbedBatch(context.Background(), []string{})

	require.NoError(t, err)
	assert.Empty(t, embeddings)
}

func TestStaticEmbedder_EmbedBatch_HandlesEmptyStringsInBatch(t *testing.T) {
	embedder := NewStaticEmbedder(0)
	defer func() { _ = embedder.Close() }()

	texts := []string{
		"grid operator warns of blackouts",
		"",
		"summit concludes without agreement",
	}

	embeddings, err := embedder.EmbedBatch(context.Background(), texts)

	require.NoError(t, err)
	assert.Len(t, embeddings, 3)

	for _, v := range embeddings[1] {
		assert.Equal(t, float32(0), v)
	}
}

func TestStaticEmbedder_Close_IsIdempotent(t *testing.T) {
	embedder := NewStaticEmbedder(0)

	err1 := embedder.Close()
	err2 := embedder.Close()
	err3 := embedder.Close()

	assert.NoError(t, err1)
	assert.NoError(t, err2)
	assert.NoError(t, err3)
}

func TestStaticEmbedder_Embed_AfterClose_ReturnsError(t *testing.T) {
	embedder := NewStaticEmbedder(0)
	_ = embedder.Close()

	_, err := embedder.Embed(context.Background(), "test")

	require.Error(t, err)
	assert.Contains(t, err.Error(), "closed")
}

func TestStaticEmbedder_Available_AfterClose_ReturnsFalse(t *testing.T) {
	embedder := NewStaticEmbedder(0)
	_ = embedder.Close()

	assert.False(t, embedder.Available(context.Background()))
}

func TestStaticEmbedder_Embed_UnicodeText_NoError(t *testing.T) {
	embedder := NewStaticEmbedder(0)
	defer func() { _ = embedder.Close() }()

	texts := []string{
		"地震で新幹線が一時停止",
		"выборы пройдут в сентябре",
		"municipio anuncia nuevas líneas de metro",
	}

	for _, text := range texts {
		t.Run(text, func(t *testing.T) {
			embedding, err := embedder.Embed(context.Background(), text)
			require.NoError(t, err)
			assert.Len(t, embedding, DefaultDimensions)
		})
	}
}

func TestStaticEmbedder_Embed_LongText_NoError(t *testing.T) {
	embedder := NewStaticEmbedder(0)
	defer func() { _ = embedder.Close() }()

	longText := strings.Repeat("word ", 10000)

	embedding, err := embedder.Embed(context.Background(), longText)
	require.NoError(t, err)
	assert.Len(t, embedding, DefaultDimensions)
	assert.InDelta(t, 1.0, vectorMagnitude(embedding), 0.001)
}
