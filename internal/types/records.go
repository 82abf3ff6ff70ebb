package types

// recordId value used when an output line carries none. It never matches a reference.
const MissingRecordID int64 = -1

type (
	// One model output line from a result file
	PredictionRecord struct {
		// Backend supplied reason the record has no output, if any
		ErrorMessage  string `json:"error_message,omitempty"`
		GeneratedText string `json:"generated_text"`
		// 1-based position of the reference this output answers
		RecordID int64 `json:"record_id"`
	}

	// One ground truth example. Its 0-based index in the reference slice is the record's index,
	// and the prediction answering it carries recordId index+1.
	ReferenceRecord struct {
		InputText     string `json:"input_text"`
		ReferenceText string `json:"reference_text"`
	}

	// Field names are part of the persisted predictions format
	CorrelatedPair struct {
		InputText      string `json:"dialogue"`
		ReferenceText  string `json:"reference"`
		PredictionText string `json:"prediction"`
	}

	// Summary object some backends write next to the result files
	JobManifest struct {
		TotalRecordCount     int64 `json:"totalRecordCount"`
		ProcessedRecordCount int64 `json:"processedRecordCount"`
		SuccessRecordCount   int64 `json:"successRecordCount"`
		ErrorRecordCount     int64 `json:"errorRecordCount"`
		InputTokenCount      int64 `json:"inputTokenCount"`
		OutputTokenCount     int64 `json:"outputTokenCount"`
	}
)
