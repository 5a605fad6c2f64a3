package ml

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/blas/blas64"
)

const (
	fakeHeadline = "SHOCKING: the miracle cure they don't want you to see"
	realHeadline = "Official government report"
)

func loadTestVectorizer(t *testing.T) Vectorizer {
	t.Helper()
	v, err := LoadVectorizer("testdata/vectorizer.json")
	require.NoError(t, err)
	return v
}

func TestTfidfTransform(t *testing.T) {
	v := loadTestVectorizer(t)
	require.Equal(t, 7, v.Dim())
	assert.Equal(t, VectorizerTfidf, v.Kind())

	x, err := v.Transform(fakeHeadline)
	require.NoError(t, err)

	want := []float64{0.5207556439232955, 0.39056673294247163, 0.39056673294247163, 0, 0, 0, 0.6509445549041194}
	assert.InDeltaSlice(t, want, x.Data, 1e-9)
	assert.InDelta(t, 1.0, blas64.Nrm2(x), 1e-9)
}

func TestTfidfTransformUnknownTermsGiveZeroVector(t *testing.T) {
	v := loadTestVectorizer(t)

	x, err := v.Transform("nothing from the vocabulary here")
	require.NoError(t, err)
	assert.Zero(t, blas64.Asum(x))
}

func TestTfidfTransformIsCaseAndAccentInsensitive(t *testing.T) {
	v := loadTestVectorizer(t)

	a, err := v.Transform("Miracle CURE")
	require.NoError(t, err)
	b, err := v.Transform("mirácle cure")
	require.NoError(t, err)
	assert.Equal(t, a.Data, b.Data)
}

func TestCountVectorizerBinarySublinear(t *testing.T) {
	payload := []byte(`{
		"type": "count",
		"vocabulary": {"fake": 0, "news": 1},
		"binary": true
	}`)
	v, err := DecodeVectorizer(payload)
	require.NoError(t, err)
	assert.Equal(t, VectorizerCount, v.Kind())

	x, err := v.Transform("fake fake fake news")
	require.NoError(t, err)
	assert.Equal(t, []float64{1, 1}, x.Data)

	payload = []byte(`{
		"type": "tfidf",
		"vocabulary": {"fake": 0, "news": 1},
		"idf": [1, 1],
		"sublinear_tf": true,
		"norm": "l1"
	}`)
	v, err = DecodeVectorizer(payload)
	require.NoError(t, err)
	x, err = v.Transform("fake fake news")
	require.NoError(t, err)
	// tf 2 -> 1+ln 2, tf 1 -> 1, then l1 normalised
	total := 2 + 0.6931471805599453
	assert.InDeltaSlice(t, []float64{1.6931471805599453 / total, 1 / total}, x.Data, 1e-12)
}

func TestTfidfTerms(t *testing.T) {
	v := loadTestVectorizer(t).(*TfidfVectorizer)
	assert.Equal(t, []string{"shocking", "miracle", "cure", "miracle cure"}, v.Terms(fakeHeadline))
}

func TestDecodeVectorizerErrors(t *testing.T) {
	cases := map[string]string{
		"empty vocabulary": `{"type":"tfidf","vocabulary":{}}`,
		"idf length":       `{"type":"tfidf","vocabulary":{"a":0},"idf":[1,2]}`,
		"index range":      `{"type":"count","vocabulary":{"a":3}}`,
		"norm":             `{"type":"count","vocabulary":{"a":0},"norm":"max"}`,
		"ngram range":      `{"type":"count","vocabulary":{"a":0},"ngram_range":[1]}`,
		"bad json":         `{"type":"tfidf",`,
	}
	for name, payload := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := DecodeVectorizer([]byte(payload))
			assert.ErrorIs(t, err, ErrInvalidArtifact)
		})
	}

	_, err := DecodeVectorizer([]byte(`{"type":"hashing"}`))
	assert.ErrorIs(t, err, ErrUnknownArtifactType)
}
