package ml

import (
	"context"
	"hash/fnv"
	"strings"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/unicode/norm"
)

// HashEncoder produces deterministic vectors by feature hashing the tokens
// and adjacent token pairs of the text. It needs no model server and is meant
// for development and tests; its similarities only reflect shared words.
type HashEncoder struct {
	model     string
	dimension int
}

func NewHashEncoder(model string, dimension int) *HashEncoder {
	return &HashEncoder{
		model:     model,
		dimension: dimension,
	}
}

func (e *HashEncoder) Encode(ctx context.Context, text string) ([]float32, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	tokens := e.tokenize(text)
	if len(tokens) == 0 {
		return nil, ErrEmptyText
	}

	vector := make([]float32, e.dimension)
	for i, token := range tokens {
		e.add(vector, token, 1.0)
		if i > 0 {
			e.add(vector, tokens[i-1]+" "+token, 0.5)
		}
	}

	return l2Normalize(vector), nil
}

func (e *HashEncoder) add(vector []float32, feature string, weight float32) {
	h := fnv.New64a()
	_, _ = h.Write([]byte(feature))
	sum := h.Sum64()

	index := int(sum % uint64(e.dimension))
	if sum>>63 == 1 {
		weight = -weight
	}
	vector[index] += weight
}

// tokenize folds case, applies NFKC and splits on anything that is not a
// letter or digit.
func (e *HashEncoder) tokenize(text string) []string {
	// Casers are stateful, so one is made per call.
	text = norm.NFKC.String(cases.Fold().String(strings.TrimSpace(text)))
	return strings.FieldsFunc(text, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
}

func (e *HashEncoder) Dimension() int { return e.dimension }

func (e *HashEncoder) Model() string { return e.model }
