// Package parse decodes the NDJSON result files written by batch inference backends.
package parse

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	evalerrors "github.com/summarybench/batcheval/internal/eval_errors"
	"github.com/summarybench/batcheval/internal/types"
)

var tracer = otel.Tracer("github.com/summarybench/batcheval/internal/parse")

const (
	ManifestFileName = "manifest.json.out"
	// generations can be long, the default 64KiB scanner limit is not enough
	maxLineSize = 16 << 20
)

var ErrInvalidRecordID = errors.New("recordId is not an integer")

type outputLine struct {
	RecordID    json.RawMessage `json:"recordId"`
	ModelOutput *modelOutput    `json:"modelOutput"`
	Error       *recordError    `json:"error"`
}

// Union of the output shapes of the text models we submit to
type modelOutput struct {
	Generation *string `json:"generation"`
	OutputText *string `json:"outputText"`
	Content    []struct {
		Text string `json:"text"`
	} `json:"content"`
	Results []struct {
		OutputText string `json:"outputText"`
	} `json:"results"`
}

type recordError struct {
	ErrorMessage string `json:"errorMessage"`
	ErrorCode    any    `json:"errorCode"`
}

// Parses every file in order and concatenates the records
func Parse(ctx context.Context, files []string) ([]types.PredictionRecord, error) {
	ctx, span := tracer.Start(ctx, "Parse", trace.WithAttributes(
		attribute.Int("files", len(files)),
	))
	defer span.End()

	var records []types.PredictionRecord
	for _, file := range files {
		fileRecords, err := ParseFile(ctx, file)
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, "failed to parse file")
			return nil, err
		}
		records = append(records, fileRecords...)
	}

	span.SetAttributes(attribute.Int("records", len(records)))
	span.RecordError(nil)
	span.SetStatus(codes.Ok, "parsed files")
	return records, nil
}

func ParseFile(ctx context.Context, path string) ([]types.PredictionRecord, error) {
	_, span := tracer.Start(ctx, "ParseFile", trace.WithAttributes(
		attribute.String("path", path),
	))
	defer span.End()

	f, err := os.Open(path)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to open file")
		return nil, evalerrors.ParseErrorWrap(path, 0, err)
	}
	defer f.Close()

	records, err := ParseReader(f, path)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to parse file")
		return nil, err
	}

	span.RecordError(nil)
	span.SetStatus(codes.Ok, "parsed file")
	return records, nil
}

// Decodes one record per non-blank line. name is only used in errors.
//
// A line that is not valid JSON, or whose recordId is neither an integer nor a string holding
// one, fails the whole read. A missing recordId maps to types.MissingRecordID and missing model
// output maps to empty text.
func ParseReader(r io.Reader, name string) ([]types.PredictionRecord, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 64*1024), maxLineSize)

	var records []types.PredictionRecord
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := bytes.TrimSpace(scanner.Bytes())
		if len(line) == 0 {
			continue
		}

		record, err := parseLine(line)
		if err != nil {
			return nil, evalerrors.ParseErrorWrap(name, lineNo, err)
		}
		records = append(records, record)
	}
	if err := scanner.Err(); err != nil {
		return nil, evalerrors.ParseErrorWrap(name, lineNo+1, err)
	}

	return records, nil
}

func parseLine(line []byte) (types.PredictionRecord, error) {
	var out outputLine
	if err := json.Unmarshal(line, &out); err != nil {
		return types.PredictionRecord{}, err
	}

	id, err := parseRecordID(out.RecordID)
	if err != nil {
		return types.PredictionRecord{}, err
	}

	record := types.PredictionRecord{RecordID: id}
	if out.ModelOutput != nil {
		record.GeneratedText = out.ModelOutput.text()
	}
	if out.Error != nil {
		record.ErrorMessage = out.Error.ErrorMessage
		if record.ErrorMessage == "" {
			record.ErrorMessage = fmt.Sprintf("error code %v", out.Error.ErrorCode)
		}
	}

	return record, nil
}

func parseRecordID(raw json.RawMessage) (int64, error) {
	if len(raw) == 0 || string(raw) == "null" {
		return types.MissingRecordID, nil
	}

	var value any
	decoder := json.NewDecoder(bytes.NewReader(raw))
	decoder.UseNumber()
	if err := decoder.Decode(&value); err != nil {
		return 0, err
	}

	var text string
	switch v := value.(type) {
	case json.Number:
		text = v.String()
	case string:
		text = strings.TrimSpace(v)
	default:
		return 0, fmt.Errorf("%w: %s", ErrInvalidRecordID, raw)
	}

	if id, err := strconv.ParseInt(text, 10, 64); err == nil {
		return id, nil
	}

	// 1.0 and 1e0 are still integers. float64(math.MaxInt64) rounds up to 2^63, which is out of range.
	f, err := strconv.ParseFloat(text, 64)
	if err != nil || f != math.Trunc(f) || math.Abs(f) >= math.MaxInt64 {
		return 0, fmt.Errorf("%w: %s", ErrInvalidRecordID, raw)
	}

	return int64(f), nil
}

func (m *modelOutput) text() string {
	switch {
	case m.Generation != nil:
		return *m.Generation
	case m.OutputText != nil:
		return *m.OutputText
	case len(m.Content) > 0:
		var b strings.Builder
		for _, c := range m.Content {
			b.WriteString(c.Text)
		}
		return b.String()
	case len(m.Results) > 0:
		return m.Results[0].OutputText
	default:
		return ""
	}
}

func IsManifest(path string) bool {
	return filepath.Base(path) == ManifestFileName
}

// Reads the job summary object that accompanies the result files
func ParseManifest(path string) (types.JobManifest, error) {
	var manifest types.JobManifest

	b, err := os.ReadFile(path)
	if err != nil {
		return manifest, evalerrors.ParseErrorWrap(path, 0, err)
	}

	if err := json.Unmarshal(b, &manifest); err != nil {
		return manifest, evalerrors.ParseErrorWrap(path, 1, err)
	}

	return manifest, nil
}

// Splits downloaded files into the manifest (if any) and the files holding records
func SplitManifest(files []string) (manifest string, results []string) {
	for _, f := range files {
		if IsManifest(f) {
			manifest = f
			continue
		}
		results = append(results, f)
	}

	return manifest, results
}
