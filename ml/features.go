package ml

import (
	"encoding/json"
	"fmt"
	"math"

	"gonum.org/v1/gonum/blas/blas64"
)

const (
	VectorizerTfidf = "tfidf"
	VectorizerCount = "count"
)

type vectorizerArtifact struct {
	Type         string         `json:"type"`
	Vocabulary   map[string]int `json:"vocabulary"`
	IDF          []float64      `json:"idf"`
	Lowercase    *bool          `json:"lowercase"`
	StripAccents string         `json:"strip_accents"`
	TokenPattern string         `json:"token_pattern"`
	NgramRange   []int          `json:"ngram_range"`
	StopWords    []string       `json:"stop_words"`
	Norm         *string        `json:"norm"`
	UseIDF       *bool          `json:"use_idf"`
	SublinearTF  bool           `json:"sublinear_tf"`
	Binary       bool           `json:"binary"`
}

// TfidfVectorizer reproduces a fitted sklearn TfidfVectorizer (or
// CountVectorizer when useIDF is false) for single documents.
type TfidfVectorizer struct {
	kind         string
	vocabulary   map[string]int
	idf          []float64
	preprocessor *TextPreprocessor
	norm         string
	useIDF       bool
	sublinearTF  bool
	binary       bool
}

func decodeTfidfVectorizer(payload []byte) (*TfidfVectorizer, error) {
	var a vectorizerArtifact
	if err := json.Unmarshal(payload, &a); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidArtifact, err)
	}
	if len(a.Vocabulary) == 0 {
		return nil, fmt.Errorf("%w: vocabulary is empty", ErrInvalidArtifact)
	}

	isCount := a.Type == VectorizerCount
	useIDF := !isCount
	if a.UseIDF != nil && !isCount {
		useIDF = *a.UseIDF
	}
	norm := "l2"
	if isCount {
		norm = ""
	}
	if a.Norm != nil {
		norm = *a.Norm
	}
	switch norm {
	case "", "l1", "l2":
	default:
		return nil, fmt.Errorf("%w: norm %q", ErrInvalidArtifact, norm)
	}

	dim := len(a.Vocabulary)
	for term, idx := range a.Vocabulary {
		if idx < 0 || idx >= dim {
			return nil, fmt.Errorf("%w: vocabulary index %d for %q out of range", ErrInvalidArtifact, idx, term)
		}
	}
	if useIDF && len(a.IDF) != dim {
		return nil, fmt.Errorf("%w: idf has %d entries, vocabulary has %d", ErrInvalidArtifact, len(a.IDF), dim)
	}

	opts := PreprocessorOptions{
		Lowercase:    true,
		StripAccents: a.StripAccents,
		TokenPattern: a.TokenPattern,
		StopWords:    a.StopWords,
	}
	if a.Lowercase != nil {
		opts.Lowercase = *a.Lowercase
	}
	switch len(a.NgramRange) {
	case 0:
	case 2:
		opts.NgramMin, opts.NgramMax = a.NgramRange[0], a.NgramRange[1]
	default:
		return nil, fmt.Errorf("%w: ngram_range must have two entries", ErrInvalidArtifact)
	}
	preprocessor, err := NewTextPreprocessor(opts)
	if err != nil {
		return nil, err
	}

	kind := VectorizerTfidf
	if isCount {
		kind = VectorizerCount
	}
	return &TfidfVectorizer{
		kind:         kind,
		vocabulary:   a.Vocabulary,
		idf:          a.IDF,
		preprocessor: preprocessor,
		norm:         norm,
		useIDF:       useIDF,
		sublinearTF:  a.SublinearTF,
		binary:       a.Binary,
	}, nil
}

func (v *TfidfVectorizer) Dim() int {
	return len(v.vocabulary)
}

func (v *TfidfVectorizer) Kind() string {
	return v.kind
}

func (v *TfidfVectorizer) Transform(text string) (Features, error) {
	x := newFeatures(v.Dim())
	for _, term := range v.preprocessor.Analyze(text) {
		if idx, ok := v.vocabulary[term]; ok {
			x.Data[idx]++
		}
	}

	for i, tf := range x.Data {
		if tf == 0 {
			continue
		}
		if v.binary {
			tf = 1
		}
		if v.sublinearTF {
			tf = math.Log(tf) + 1
		}
		if v.useIDF {
			tf *= v.idf[i]
		}
		x.Data[i] = tf
	}

	var n float64
	switch v.norm {
	case "l2":
		n = blas64.Nrm2(x)
	case "l1":
		n = blas64.Asum(x)
	}
	if n > 0 {
		blas64.Scal(1/n, x)
	}
	return x, nil
}

// Terms returns the vocabulary terms found in text, in document order.
func (v *TfidfVectorizer) Terms(text string) []string {
	var known []string
	for _, term := range v.preprocessor.Analyze(text) {
		if _, ok := v.vocabulary[term]; ok {
			known = append(known, term)
		}
	}
	return known
}
