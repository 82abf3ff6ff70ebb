// Package rouge scores generated text against references with ROUGE-1, ROUGE-2 and ROUGE-L.
//
// Text is lower-cased and split on every rune that is not a letter or a digit. There is no
// stemming and no stop-word removal, so punctuation and case never affect a score.
package rouge

import (
	"errors"
	"strings"
	"unicode"

	evalerrors "github.com/summarybench/batcheval/internal/eval_errors"
	"github.com/summarybench/batcheval/internal/types"
)

var ErrEmptyCorpus = errors.New("no pairs to score")

// Precision, recall and F-measure of one metric for one pair
type Measure struct {
	Precision float64 `json:"precision"`
	Recall    float64 `json:"recall"`
	F1        float64 `json:"f1"`
}

type PairScores struct {
	Rouge1 Measure `json:"rouge1"`
	Rouge2 Measure `json:"rouge2"`
	RougeL Measure `json:"rougeL"`
}

func Tokenize(text string) []string {
	return strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
}

// Scores a single prediction. An empty prediction or reference scores zero on every metric.
func ScorePair(prediction, reference string) PairScores {
	pred := Tokenize(prediction)
	ref := Tokenize(reference)

	return PairScores{
		Rouge1: ngramMeasure(pred, ref, 1),
		Rouge2: ngramMeasure(pred, ref, 2),
		RougeL: lcsMeasure(pred, ref),
	}
}

// Corpus scores are the arithmetic mean of the per-pair F-measures.
//
// An empty corpus returns zero scores together with a ScoringError wrapping ErrEmptyCorpus;
// callers decide whether that is fatal.
func Score(pairs []types.CorrelatedPair) (types.Scores, error) {
	if len(pairs) == 0 {
		return types.Scores{}, evalerrors.ScoringErrorWrap(ErrEmptyCorpus)
	}

	var sum types.Scores
	for _, p := range pairs {
		s := ScorePair(p.PredictionText, p.ReferenceText)
		sum.Rouge1 += s.Rouge1.F1
		sum.Rouge2 += s.Rouge2.F1
		sum.RougeL += s.RougeL.F1
	}

	n := float64(len(pairs))
	return types.Scores{
		Rouge1: sum.Rouge1 / n,
		Rouge2: sum.Rouge2 / n,
		RougeL: sum.RougeL / n,
	}, nil
}

func ngrams(tokens []string, n int) map[string]int {
	counts := make(map[string]int)
	for i := 0; i+n <= len(tokens); i++ {
		counts[strings.Join(tokens[i:i+n], "\x00")]++
	}

	return counts
}

func ngramMeasure(pred, ref []string, n int) Measure {
	predCounts := ngrams(pred, n)
	refCounts := ngrams(ref, n)

	predTotal := len(pred) - n + 1
	refTotal := len(ref) - n + 1
	if predTotal <= 0 || refTotal <= 0 {
		return Measure{}
	}

	// clipped: an n-gram matches at most as often as it occurs in the reference
	overlap := 0
	for gram, c := range predCounts {
		overlap += min(c, refCounts[gram])
	}

	return measure(overlap, predTotal, refTotal)
}

func lcsMeasure(pred, ref []string) Measure {
	if len(pred) == 0 || len(ref) == 0 {
		return Measure{}
	}

	return measure(lcsLength(pred, ref), len(pred), len(ref))
}

func lcsLength(a, b []string) int {
	prev := make([]int, len(b)+1)
	curr := make([]int, len(b)+1)

	for i := 1; i <= len(a); i++ {
		for j := 1; j <= len(b); j++ {
			if a[i-1] == b[j-1] {
				curr[j] = prev[j-1] + 1
			} else {
				curr[j] = max(prev[j], curr[j-1])
			}
		}
		prev, curr = curr, prev
	}

	return prev[len(b)]
}

func measure(matches, predTotal, refTotal int) Measure {
	if matches == 0 {
		return Measure{}
	}

	p := float64(matches) / float64(predTotal)
	r := float64(matches) / float64(refTotal)

	return Measure{Precision: p, Recall: r, F1: 2 * p * r / (p + r)}
}
