package correlate

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/summarybench/batcheval/internal/types"
)

func refs(n int) []types.ReferenceRecord {
	out := make([]types.ReferenceRecord, n)
	for i := range out {
		out[i] = types.ReferenceRecord{
			InputText:     "dialogue " + string(rune('a'+i)),
			ReferenceText: "summary " + string(rune('a'+i)),
		}
	}

	return out
}

func TestMatch(t *testing.T) {
	t.Run("out of order with whitespace", func(t *testing.T) {
		predictions := []types.PredictionRecord{
			{RecordID: 2, GeneratedText: "  second\n"},
			{RecordID: 1, GeneratedText: "first"},
		}

		pairs, stats := Match(predictions, refs(2))
		require.Len(t, pairs, 2)
		assert.Equal(t, types.CorrelatedPair{
			InputText: "dialogue a", ReferenceText: "summary a", PredictionText: "first",
		}, pairs[0])
		assert.Equal(t, "second", pairs[1].PredictionText)
		assert.Equal(t, Stats{Matched: 2}, stats)
	})

	t.Run("record id is reference index plus one", func(t *testing.T) {
		references := refs(5)
		predictions := make([]types.PredictionRecord, 0, len(references))
		for index := len(references) - 1; index >= 0; index-- {
			predictions = append(predictions, types.PredictionRecord{
				RecordID:      int64(index + 1),
				GeneratedText: references[index].ReferenceText,
			})
		}

		pairs, stats := Match(predictions, references)
		require.Len(t, pairs, len(references))
		for index, pair := range pairs {
			assert.Equal(t, references[index].InputText, pair.InputText)
			assert.Equal(t, references[index].ReferenceText, pair.PredictionText)
		}
		assert.Equal(t, Stats{Matched: 5}, stats)
	})

	t.Run("missing prediction is empty", func(t *testing.T) {
		predictions := []types.PredictionRecord{
			{RecordID: 1, GeneratedText: "x"},
			{RecordID: 3, GeneratedText: "z"},
		}

		pairs, stats := Match(predictions, refs(3))
		require.Len(t, pairs, 3)
		assert.Equal(t, "x", pairs[0].PredictionText)
		assert.Empty(t, pairs[1].PredictionText)
		assert.Equal(t, "summary b", pairs[1].ReferenceText)
		assert.Equal(t, "z", pairs[2].PredictionText)
		assert.Equal(t, 1, stats.Missing)
	})

	t.Run("out of range and sentinel ignored", func(t *testing.T) {
		predictions := []types.PredictionRecord{
			{RecordID: types.MissingRecordID, GeneratedText: "no id"},
			{RecordID: 0, GeneratedText: "zero"},
			{RecordID: 99, GeneratedText: "far"},
			{RecordID: 1, GeneratedText: "ok"},
		}

		pairs, stats := Match(predictions, refs(1))
		require.Len(t, pairs, 1)
		assert.Equal(t, "ok", pairs[0].PredictionText)
		assert.Equal(t, 3, stats.Unmatched)
	})

	t.Run("duplicate ids keep the last", func(t *testing.T) {
		predictions := []types.PredictionRecord{
			{RecordID: 1, GeneratedText: "old"},
			{RecordID: 1, GeneratedText: "new"},
		}

		pairs, stats := Match(predictions, refs(1))
		assert.Equal(t, "new", pairs[0].PredictionText)
		assert.Equal(t, 1, stats.Duplicates)
	})

	t.Run("no predictions", func(t *testing.T) {
		pairs, stats := Match(nil, refs(2))
		require.Len(t, pairs, 2)
		for _, p := range pairs {
			assert.Empty(t, p.PredictionText)
		}
		assert.Equal(t, 2, stats.Missing)
	})

	t.Run("no references", func(t *testing.T) {
		pairs, _ := Match([]types.PredictionRecord{{RecordID: 1}}, nil)
		assert.Empty(t, pairs)
	})
}
