// Package correlate aligns backend outputs with the references they were generated from.
package correlate

import (
	"strings"

	"github.com/summarybench/batcheval/internal/types"
)

// Stats describes how a set of predictions lined up with the references
type Stats struct {
	Matched int `json:"matched"`
	// references without any prediction, they correlate with empty text
	Missing int `json:"missing"`
	// predictions whose record id falls outside the references
	Unmatched int `json:"unmatched"`
	// record ids seen more than once, the last one wins
	Duplicates int `json:"duplicates"`
}

// Produces exactly one pair per reference, in reference order.
//
// Reference i (0-based) is answered by the prediction with record id i+1. Prediction text is
// trimmed of surrounding whitespace. A reference with no prediction gets an empty prediction.
// Predictions whose id matches no reference, including the missing id sentinel, are ignored.
func Match(
	predictions []types.PredictionRecord,
	references []types.ReferenceRecord,
) ([]types.CorrelatedPair, Stats) {
	var stats Stats

	byID := make(map[int64]string, len(predictions))
	for _, p := range predictions {
		if p.RecordID < 1 || p.RecordID > int64(len(references)) {
			stats.Unmatched++
			continue
		}
		if _, ok := byID[p.RecordID]; ok {
			stats.Duplicates++
		}
		byID[p.RecordID] = p.GeneratedText
	}

	pairs := make([]types.CorrelatedPair, len(references))
	for i, ref := range references {
		text, ok := byID[int64(i+1)]
		if ok {
			stats.Matched++
		} else {
			stats.Missing++
		}

		pairs[i] = types.CorrelatedPair{
			InputText:      ref.InputText,
			ReferenceText:  ref.ReferenceText,
			PredictionText: strings.TrimSpace(text),
		}
	}

	return pairs, stats
}
