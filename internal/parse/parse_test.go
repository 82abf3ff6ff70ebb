package parse

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	evalerrors "github.com/summarybench/batcheval/internal/eval_errors"
	"github.com/summarybench/batcheval/internal/types"
)

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestParseReader(t *testing.T) {
	t.Run("record id forms", func(t *testing.T) {
		input := strings.Join([]string{
			`{"recordId": 3, "modelOutput": {"generation": "three"}}`,
			`{"recordId": "00000000001", "modelInput": {"prompt": "p"}, "modelOutput": {"generation": " one "}}`,
			`{"recordId": 2.0, "modelOutput": {"generation": "two"}}`,
			`{"modelOutput": {"generation": "orphan"}}`,
			`{"recordId": null}`,
		}, "\n")

		records, err := ParseReader(strings.NewReader(input), "out.jsonl.out")
		require.NoError(t, err)
		assert.Equal(t, []types.PredictionRecord{
			{RecordID: 3, GeneratedText: "three"},
			{RecordID: 1, GeneratedText: " one "},
			{RecordID: 2, GeneratedText: "two"},
			{RecordID: types.MissingRecordID, GeneratedText: "orphan"},
			{RecordID: types.MissingRecordID},
		}, records, "text is kept verbatim, trimming happens when correlating")
	})

	t.Run("blank lines skipped", func(t *testing.T) {
		input := "\n" + `{"recordId": 1, "modelOutput": {"generation": "a"}}` + "\n\n  \n"
		records, err := ParseReader(strings.NewReader(input), "x")
		require.NoError(t, err)
		assert.Len(t, records, 1)
	})

	t.Run("record level error", func(t *testing.T) {
		input := `{"recordId": "00000000004", "error": {"errorCode": 400, "errorMessage": "Malformed input"}}`
		records, err := ParseReader(strings.NewReader(input), "x")
		require.NoError(t, err)
		require.Len(t, records, 1)
		assert.Equal(t, int64(4), records[0].RecordID)
		assert.Empty(t, records[0].GeneratedText)
		assert.Equal(t, "Malformed input", records[0].ErrorMessage)
	})

	t.Run("other output shapes", func(t *testing.T) {
		input := strings.Join([]string{
			`{"recordId": 1, "modelOutput": {"content": [{"type": "text", "text": "claude"}]}}`,
			`{"recordId": 2, "modelOutput": {"results": [{"outputText": "titan"}]}}`,
			`{"recordId": 3, "modelOutput": {"outputText": "flat"}}`,
			`{"recordId": 4, "modelOutput": {}}`,
		}, "\n")

		records, err := ParseReader(strings.NewReader(input), "x")
		require.NoError(t, err)
		require.Len(t, records, 4)
		assert.Equal(t, "claude", records[0].GeneratedText)
		assert.Equal(t, "titan", records[1].GeneratedText)
		assert.Equal(t, "flat", records[2].GeneratedText)
		assert.Empty(t, records[3].GeneratedText)
	})

	t.Run("malformed line is fatal", func(t *testing.T) {
		input := `{"recordId": 1, "modelOutput": {"generation": "a"}}` + "\n" + `{"recordId": 2, "modelOut`
		_, err := ParseReader(strings.NewReader(input), "bad.jsonl.out")
		require.Error(t, err)

		var parseErr evalerrors.ParseError
		require.ErrorAs(t, err, &parseErr)
		assert.Equal(t, "bad.jsonl.out", parseErr.File)
		assert.Equal(t, 2, parseErr.Line)
	})

	t.Run("non numeric record id is fatal", func(t *testing.T) {
		for _, id := range []string{`"abc"`, `1.5`, `true`, `{"a": 1}`} {
			_, err := ParseReader(strings.NewReader(`{"recordId": `+id+`}`), "x")
			require.Error(t, err, id)
			assert.ErrorIs(t, err, ErrInvalidRecordID, id)
		}
	})

	t.Run("record id beyond int64 is fatal", func(t *testing.T) {
		for _, id := range []string{`9223372036854775808`, `"9223372036854775808"`, `9.3e18`, `-1e19`} {
			_, err := ParseReader(strings.NewReader(`{"recordId": `+id+`}`), "x")
			require.Error(t, err, id)
			assert.ErrorIs(t, err, ErrInvalidRecordID, id)
		}
	})
}

func TestParse(t *testing.T) {
	dir := t.TempDir()
	a := writeFile(t, dir, "a.jsonl.out", `{"recordId": "00000000002", "modelOutput": {"generation": "b"}}`+"\n")
	b := writeFile(t, dir, "b.jsonl.out", `{"recordId": "00000000001", "modelOutput": {"generation": "a"}}`+"\n")

	records, err := Parse(context.Background(), []string{a, b})
	require.NoError(t, err)
	assert.Equal(t, []types.PredictionRecord{
		{RecordID: 2, GeneratedText: "b"},
		{RecordID: 1, GeneratedText: "a"},
	}, records)

	t.Run("missing file", func(t *testing.T) {
		_, err := Parse(context.Background(), []string{filepath.Join(dir, "nope")})
		var parseErr evalerrors.ParseError
		require.ErrorAs(t, err, &parseErr)
		assert.Equal(t, 0, parseErr.Line)
	})

	t.Run("no files", func(t *testing.T) {
		records, err := Parse(context.Background(), nil)
		require.NoError(t, err)
		assert.Empty(t, records)
	})
}

func TestManifest(t *testing.T) {
	dir := t.TempDir()
	manifest := writeFile(t, dir, ManifestFileName, `{
  "totalRecordCount": 3,
  "processedRecordCount": 3,
  "successRecordCount": 2,
  "errorRecordCount": 1,
  "inputTokenCount": 1200,
  "outputTokenCount": 300
}`)
	results := writeFile(t, dir, "validation.jsonl.out", "")

	found, rest := SplitManifest([]string{results, manifest})
	assert.Equal(t, manifest, found)
	assert.Equal(t, []string{results}, rest)

	m, err := ParseManifest(manifest)
	require.NoError(t, err)
	assert.Equal(t, types.JobManifest{
		TotalRecordCount:     3,
		ProcessedRecordCount: 3,
		SuccessRecordCount:   2,
		ErrorRecordCount:     1,
		InputTokenCount:      1200,
		OutputTokenCount:     300,
	}, m)
}
