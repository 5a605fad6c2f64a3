package ml

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

const DefaultTokenPattern = `(?u)\b\w\w+\b`

// TextPreprocessor turns a raw document into the term list the vocabulary
// was built from: preprocess, tokenize, drop stop words, expand n-grams.
type TextPreprocessor struct {
	lowercase    bool
	stripAccents string
	tokenPattern *regexp.Regexp
	minRunes     int
	stopWords    map[string]struct{}
	ngramMin     int
	ngramMax     int
}

type PreprocessorOptions struct {
	Lowercase    bool
	StripAccents string
	TokenPattern string
	StopWords    []string
	NgramMin     int
	NgramMax     int
}

func NewTextPreprocessor(opts PreprocessorOptions) (*TextPreprocessor, error) {
	if opts.NgramMin <= 0 {
		opts.NgramMin = 1
	}
	if opts.NgramMax <= 0 {
		opts.NgramMax = opts.NgramMin
	}
	if opts.NgramMin > opts.NgramMax {
		return nil, fmt.Errorf("%w: ngram_range [%d, %d]", ErrInvalidArtifact, opts.NgramMin, opts.NgramMax)
	}
	switch opts.StripAccents {
	case "", "ascii", "unicode":
	default:
		return nil, fmt.Errorf("%w: strip_accents %q", ErrInvalidArtifact, opts.StripAccents)
	}

	p := &TextPreprocessor{
		lowercase:    opts.Lowercase,
		stripAccents: opts.StripAccents,
		ngramMin:     opts.NgramMin,
		ngramMax:     opts.NgramMax,
	}

	pattern := opts.TokenPattern
	if pattern == "" {
		pattern = DefaultTokenPattern
	}
	if n, ok := wordRunPattern(pattern); ok {
		p.minRunes = n
	} else {
		re, err := compileTokenPattern(pattern)
		if err != nil {
			return nil, fmt.Errorf("%w: token_pattern: %v", ErrInvalidArtifact, err)
		}
		if re.NumSubexp() > 1 {
			return nil, fmt.Errorf("%w: token_pattern has more than one capturing group", ErrInvalidArtifact)
		}
		p.tokenPattern = re
	}

	if len(opts.StopWords) > 0 {
		p.stopWords = make(map[string]struct{}, len(opts.StopWords))
		for _, w := range opts.StopWords {
			p.stopWords[w] = struct{}{}
		}
	}
	return p, nil
}

func (p *TextPreprocessor) Preprocess(doc string) string {
	doc = strings.ToValidUTF8(doc, "�")
	if p.lowercase {
		doc = strings.ToLower(doc)
	}
	switch p.stripAccents {
	case "unicode":
		doc = stripAccentsUnicode(doc)
	case "ascii":
		doc = stripAccentsASCII(doc)
	}
	return doc
}

func (p *TextPreprocessor) Tokenize(doc string) []string {
	if p.tokenPattern == nil {
		return wordTokens(doc, p.minRunes)
	}
	if p.tokenPattern.NumSubexp() == 1 {
		matches := p.tokenPattern.FindAllStringSubmatch(doc, -1)
		tokens := make([]string, 0, len(matches))
		for _, m := range matches {
			tokens = append(tokens, m[1])
		}
		return tokens
	}
	return p.tokenPattern.FindAllString(doc, -1)
}

// Analyze runs the whole chain and returns every term, including n-grams.
func (p *TextPreprocessor) Analyze(doc string) []string {
	tokens := p.Tokenize(p.Preprocess(doc))
	if p.stopWords != nil {
		kept := tokens[:0]
		for _, t := range tokens {
			if _, stop := p.stopWords[t]; !stop {
				kept = append(kept, t)
			}
		}
		tokens = kept
	}
	return wordNgrams(tokens, p.ngramMin, p.ngramMax)
}

func wordNgrams(tokens []string, minN, maxN int) []string {
	if maxN == 1 {
		return tokens
	}
	terms := make([]string, 0, len(tokens)*(maxN-minN+1))
	if minN == 1 {
		terms = append(terms, tokens...)
		minN++
	}
	for n := minN; n <= maxN && n <= len(tokens); n++ {
		for i := 0; i+n <= len(tokens); i++ {
			terms = append(terms, strings.Join(tokens[i:i+n], " "))
		}
	}
	return terms
}

func isWordRune(r rune) bool {
	return r == '_' || unicode.IsLetter(r) || unicode.IsNumber(r)
}

// wordTokens matches runs of at least minRunes word runes, a \b-delimited
// \w run evaluated with unicode word semantics.
func wordTokens(doc string, minRunes int) []string {
	var tokens []string
	start, runeCount := -1, 0
	for i, r := range doc {
		if isWordRune(r) {
			if start < 0 {
				start, runeCount = i, 0
			}
			runeCount++
			continue
		}
		if start >= 0 && runeCount >= minRunes {
			tokens = append(tokens, doc[start:i])
		}
		start = -1
	}
	if start >= 0 && runeCount >= minRunes {
		tokens = append(tokens, doc[start:])
	}
	return tokens
}

// wordRunPattern reports whether pattern is a plain word run such as
// \b\w\w+\b, \b\w+\b or \b\w{3,}\b, and its minimum length in runes.
func wordRunPattern(pattern string) (int, bool) {
	body, ok := strings.CutPrefix(strings.TrimPrefix(pattern, "(?u)"), `\b`)
	if !ok {
		return 0, false
	}
	body, ok = strings.CutSuffix(body, `\b`)
	if !ok {
		return 0, false
	}
	n := 0
	for strings.HasPrefix(body, `\w`) {
		body = body[2:]
		n++
	}
	switch {
	case n == 0:
		return 0, false
	case body == "+":
		return n, true
	case n == 1 && strings.HasPrefix(body, "{") && strings.HasSuffix(body, ",}"):
		least, err := strconv.Atoi(body[1 : len(body)-2])
		if err != nil || least < 1 {
			return 0, false
		}
		return least, true
	}
	return 0, false
}

// compileTokenPattern accepts python-style patterns. The (?u) flag is implied
// and \w is widened to unicode word characters; \b keeps RE2 ASCII semantics,
// so plain word runs go through wordTokens instead.
func compileTokenPattern(pattern string) (*regexp.Regexp, error) {
	return regexp.Compile(widenWordClass(strings.TrimPrefix(pattern, "(?u)")))
}

func widenWordClass(pattern string) string {
	var b strings.Builder
	inClass := false
	for i := 0; i < len(pattern); i++ {
		c := pattern[i]
		if c == '\\' && i+1 < len(pattern) {
			next := pattern[i+1]
			i++
			if next == 'w' {
				if inClass {
					b.WriteString(`\p{L}\p{N}_`)
				} else {
					b.WriteString(`[\p{L}\p{N}_]`)
				}
				continue
			}
			b.WriteByte(c)
			b.WriteByte(next)
			continue
		}
		switch c {
		case '[':
			inClass = true
		case ']':
			inClass = false
		}
		b.WriteByte(c)
	}
	return b.String()
}

var (
	unicodeAccents = runes.Remove(runes.In(unicode.Mn))
	nonASCII       = runes.Remove(runes.Predicate(func(r rune) bool { return r > unicode.MaxASCII }))
)

func stripAccentsUnicode(s string) string {
	out, _, err := transform.String(transform.Chain(norm.NFKD, unicodeAccents), s)
	if err != nil {
		return s
	}
	return out
}

func stripAccentsASCII(s string) string {
	out, _, err := transform.String(transform.Chain(norm.NFKD, nonASCII), s)
	if err != nil {
		return s
	}
	return out
}
