package types

type (
	// Corpus level ROUGE F-measures, each in [0, 1]
	Scores struct {
		Rouge1 float64 `json:"rouge1" yaml:"rouge1"`
		Rouge2 float64 `json:"rouge2" yaml:"rouge2"`
		RougeL float64 `json:"rougeL" yaml:"rougeL"`
	}

	MetricReport struct {
		JobName    string `json:"job_name"    yaml:"job_name"`
		ModelID    string `json:"model_id"    yaml:"model_id"`
		NumSamples int    `json:"num_samples" yaml:"num_samples"`
		Scores     `yaml:",inline"`
	}
)

func NewMetricReport(jobName, modelID string, numSamples int, scores Scores) MetricReport {
	return MetricReport{
		JobName:    jobName,
		ModelID:    modelID,
		NumSamples: numSamples,
		Scores:     scores,
	}
}

// Kind of artifact copied to the archive
type ArchivedFile string

const (
	FilePredictions ArchivedFile = "predictions"
	FileMetrics     ArchivedFile = "metrics"
	FileManifest    ArchivedFile = "manifest"
)
