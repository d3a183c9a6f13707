// Package tokens estimates the token cost of prompts for quota accounting.
package tokens

import (
	"strings"

	"github.com/tiktoken-go/tokenizer"
)

// Estimator counts tokens with the cl100k_base encoding, which fits most
// chat models well enough for quota accounting. When the codec is
// unavailable it falls back to a conservative word-count heuristic.
type Estimator struct {
	codec tokenizer.Codec
}

// NewEstimator creates an estimator. A tokenizer load failure is not fatal;
// the estimator silently degrades to the heuristic.
func NewEstimator() *Estimator {
	codec, err := tokenizer.Get(tokenizer.Cl100kBase)
	if err != nil {
		codec = nil
	}
	return &Estimator{codec: codec}
}

// Estimate returns the estimated token count for text, always at least 1.
func (e *Estimator) Estimate(text string) int64 {
	if e.codec != nil {
		if ids, _, err := e.codec.Encode(text); err == nil {
			if n := int64(len(ids)); n > 0 {
				return n
			}
			return 1
		}
	}

	// Word count with padding, erring on the high side.
	n := int64(float64(len(strings.Fields(text))) * 1.3)
	if n < 1 {
		n = 1
	}
	return n
}
