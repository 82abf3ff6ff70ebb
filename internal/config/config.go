package config

import (
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/summarybench/batcheval/internal/logger"
	"github.com/summarybench/batcheval/internal/validator"
)

type GenerationConfig struct {
	MaxGenLen   int     `mapstructure:"max_gen_len" validate:"gt=0"`
	Temperature float64 `mapstructure:"temperature" validate:"gte=0"`
	TopP        float64 `mapstructure:"top_p"       validate:"gt=0,lte=1"`
}

type S3Config struct {
	Endpoint string `mapstructure:"endpoint"`
}

type MinioConfig struct {
	Endpoint        string `mapstructure:"endpoint"`
	AccessKeyID     string `mapstructure:"access_key_id"`
	SecretAccessKey string `mapstructure:"secret_access_key"`
	SSLEnabled      bool   `mapstructure:"ssl_enabled"`
}

type AzureStorageConfig struct {
	AccountName string `mapstructure:"account_name"`
	AccountKey  string `mapstructure:"account_key"`
	ServiceURL  string `mapstructure:"service_url"`
}

type StorageConfig struct {
	S3      *S3Config           `mapstructure:"s3"`
	Minio   *MinioConfig        `mapstructure:"minio"`
	Azure   *AzureStorageConfig `mapstructure:"azure"`
	Backend string              `mapstructure:"backend" validate:"required,oneof=s3 minio azure"`
	Bucket  string              `mapstructure:"bucket"  validate:"required"`
}

// Object key prefixes inside the bucket, except ResultsDir which is local
type PathsConfig struct {
	DataDir         string `mapstructure:"data_dir"          validate:"required"`
	BatchOutputsDir string `mapstructure:"batch_outputs_dir" validate:"required"`
	ResultsDir      string `mapstructure:"results_dir"       validate:"required"`
	// Empty disables archiving
	ArchiveDir string `mapstructure:"archive_dir"`
}

type FieldMap struct {
	Input  string `mapstructure:"input"  validate:"required"`
	Output string `mapstructure:"output" validate:"required"`
}

type DatasetConfig struct {
	FieldMap FieldMap `mapstructure:"field_map"`
	// Directory or URL holding <split>.jsonl files
	Location string `mapstructure:"location"`
	Split    string `mapstructure:"split"    validate:"required"`
}

type K8SLabel struct {
	Key   string `mapstructure:"key"`
	Value string `mapstructure:"value"`
}

type KubernetesConfig struct {
	NodeAffinityLabel K8SLabel `mapstructure:"node_affinity_label"`
	Toleration        K8SLabel `mapstructure:"toleration"`
	Namespace         string   `mapstructure:"namespace"`
	Image             string   `mapstructure:"image"`
	Kubeconfig        string   `mapstructure:"kubeconfig"`
	ServiceAccount    string   `mapstructure:"service_account"`
	Memory            string   `mapstructure:"memory"`
	CPU               string   `mapstructure:"cpu"`
	TTLSeconds        int32    `mapstructure:"ttl_seconds"`
	InCluster         bool     `mapstructure:"in_cluster"`
}

type NotifyConfig struct {
	AccountName string `mapstructure:"account_name" validate:"required_if=Enabled true"`
	AccountKey  string `mapstructure:"account_key"  validate:"required_if=Enabled true"`
	ServiceURL  string `mapstructure:"service_url"  validate:"required_if=Enabled true"`
	Queue       string `mapstructure:"queue"        validate:"required_if=Enabled true"`
	Enabled     bool   `mapstructure:"enabled"`
}

type DatabaseConfig struct {
	User               string        `mapstructure:"user"                 validate:"required_if=Enabled true"`
	Password           string        `mapstructure:"password"             validate:"required_if=Enabled true"`
	Host               string        `mapstructure:"host"`
	Database           string        `mapstructure:"database"             validate:"required_if=Enabled true"`
	MaxIdleConnections int           `mapstructure:"max_idle_connections"`
	MaxOpenConnections int           `mapstructure:"max_open_connections"`
	ConnectionTTL      time.Duration `mapstructure:"connection_ttl"`
	Port               int16         `mapstructure:"port"`
	Enabled            bool          `mapstructure:"enabled"`
}

type SlogConfig struct {
	Level int `mapstructure:"level"`
}

type GormLogConfig struct {
	Level        int  `mapstructure:"level"`
	TraceQueries bool `mapstructure:"trace_queries"`
}

type LoggingConfig struct {
	Gorm    GormLogConfig `mapstructure:"gorm"`
	App     SlogConfig    `mapstructure:"app"`
	UseOTLP bool          `mapstructure:"use_otlp"`
}

// See batcheval.example.yaml for an example config
type Config struct {
	Generation          *GenerationConfig `mapstructure:"generation"           validate:"required"`
	Storage             *StorageConfig    `mapstructure:"storage"              validate:"required"`
	Paths               *PathsConfig      `mapstructure:"paths"                validate:"required"`
	Dataset             *DatasetConfig    `mapstructure:"dataset"              validate:"required"`
	Kubernetes          *KubernetesConfig `mapstructure:"kubernetes"`
	Notify              *NotifyConfig     `mapstructure:"notify"`
	Database            *DatabaseConfig   `mapstructure:"database"`
	Logging             *LoggingConfig    `mapstructure:"logging"              validate:"required"`
	ModelID             string            `mapstructure:"model_id"             validate:"required"`
	RoleARN             string            `mapstructure:"role_arn"`
	Region              string            `mapstructure:"region"`
	JobBackend          string            `mapstructure:"job_backend"          validate:"required,oneof=bedrock kubernetes"`
	JobNamePrefix       string            `mapstructure:"job_name_prefix"`
	TaskInstruction     string            `mapstructure:"task_instruction"`
	PollInterval        time.Duration     `mapstructure:"poll_interval"        validate:"gt=0"`
	PollRetries         uint64            `mapstructure:"poll_retries"`
	DownloadConcurrency int               `mapstructure:"download_concurrency" validate:"gt=0"`
}

const (
	AppLogLevel                string = "logging.app.level"
	DatabaseConnectionTTL      string = "database.connection_ttl"
	DatabaseEnabled            string = "database.enabled"
	DatabaseHost               string = "database.host"
	DatabaseMaxIdleConnections string = "database.max_idle_connections"
	DatabaseMaxOpenConnections string = "database.max_open_connections"
	DatabasePassword           string = "database.password" // #nosec
	DatabasePort               string = "database.port"
	DatasetFieldMapInput       string = "dataset.field_map.input"
	DatasetFieldMapOutput      string = "dataset.field_map.output"
	DatasetLocation            string = "dataset.location"
	DatasetSplit               string = "dataset.split"
	DownloadConcurrency        string = "download_concurrency"
	EnvPrefix                  string = "batcheval"
	GenerationMaxGenLen        string = "generation.max_gen_len"
	GenerationTemperature      string = "generation.temperature"
	GenerationTopP             string = "generation.top_p"
	GormLogLevel               string = "logging.gorm.level"
	GormTraceQueries           string = "logging.gorm.trace_queries"
	JobBackend                 string = "job_backend"
	JobNamePrefix              string = "job_name_prefix"
	KubernetesImage            string = "kubernetes.image"
	KubernetesInCluster        string = "kubernetes.in_cluster"
	KubernetesNamespace        string = "kubernetes.namespace"
	KubernetesServiceAccount   string = "kubernetes.service_account"
	ModelID                    string = "model_id"
	NotifyAccountKey           string = "notify.account_key" // #nosec
	NotifyEnabled              string = "notify.enabled"
	PathsArchiveDir            string = "paths.archive_dir"
	PathsBatchOutputsDir       string = "paths.batch_outputs_dir"
	PathsDataDir               string = "paths.data_dir"
	PathsResultsDir            string = "paths.results_dir"
	PollInterval               string = "poll_interval"
	PollRetries                string = "poll_retries"
	Region                     string = "region"
	RoleARN                    string = "role_arn"
	StorageAzureAccountKey     string = "storage.azure.account_key" // #nosec
	StorageBackend             string = "storage.backend"
	StorageBucket              string = "storage.bucket"
	StorageMinioAccessKeyID    string = "storage.minio.access_key_id"
	StorageMinioSSLEnabled     string = "storage.minio.ssl_enabled"
	StorageMinioSecretKey      string = "storage.minio.secret_access_key" // #nosec
	TaskInstruction            string = "task_instruction"
	UseOTLP                    string = "logging.use_otlp"
)

const DefaultTaskInstruction = "Summarize the following dialogue."

var configReady = false
var config Config

func GetConfig() (*Config, error) {
	if configReady {
		logger.Logger.Debug("returning already-loaded config")
		return &config, nil
	}
	logger.Logger.Info("loading config")

	v := viper.New()

	v.SetConfigName("batcheval")

	v.AddConfigPath("/etc/batcheval/")
	v.AddConfigPath(".")

	v.SetConfigType("yaml")

	err := v.ReadInConfig()
	if err != nil {
		// ignore config file not found to allow pure env config
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, err
		}
	}

	loaded, err := Load(v)
	if err != nil {
		configReady = false
		return nil, err
	}

	config = *loaded
	configReady = true
	return &config, nil
}

// Applies env bindings and defaults to v, then unmarshals and validates
func Load(v *viper.Viper) (*Config, error) {
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	v.AutomaticEnv()

	// workaround for https://github.com/spf13/viper/issues/761
	// bind env vars explicitly so they unmarshal into the nested struct
	for _, key := range []string{
		ModelID,
		RoleARN,
		StorageBucket,
		StorageAzureAccountKey,
		StorageMinioAccessKeyID,
		StorageMinioSecretKey,
		DatabasePassword,
		NotifyAccountKey,
		KubernetesImage,
	} {
		if err := v.BindEnv(key); err != nil {
			return nil, err
		}
	}

	v.SetDefault(Region, "us-east-1")
	v.SetDefault(JobBackend, "bedrock")
	v.SetDefault(JobNamePrefix, "batch-inference")
	v.SetDefault(PollInterval, time.Minute)
	v.SetDefault(PollRetries, 3)
	v.SetDefault(DownloadConcurrency, 4)
	v.SetDefault(TaskInstruction, DefaultTaskInstruction)

	v.SetDefault(GenerationMaxGenLen, 512)
	v.SetDefault(GenerationTemperature, 0.7)
	v.SetDefault(GenerationTopP, 0.9)

	v.SetDefault(StorageBackend, "s3")
	v.SetDefault(StorageMinioSSLEnabled, true)

	v.SetDefault(PathsDataDir, "bedrock/data")
	v.SetDefault(PathsBatchOutputsDir, "bedrock/batch-outputs")
	v.SetDefault(PathsResultsDir, "data/batch_results")
	v.SetDefault(PathsArchiveDir, "")

	v.SetDefault(DatasetLocation, "data/datasets")
	v.SetDefault(DatasetSplit, "validation")
	v.SetDefault(DatasetFieldMapInput, "dialogue")
	v.SetDefault(DatasetFieldMapOutput, "summary")

	v.SetDefault(KubernetesNamespace, "default")
	v.SetDefault(KubernetesInCluster, false)
	v.SetDefault(KubernetesServiceAccount, "")

	v.SetDefault(NotifyEnabled, false)

	v.SetDefault(DatabaseEnabled, false)
	v.SetDefault(DatabaseHost, "localhost")
	v.SetDefault(DatabasePort, 5432)
	v.SetDefault(DatabaseMaxIdleConnections, 2)
	v.SetDefault(DatabaseMaxOpenConnections, 10)
	v.SetDefault(DatabaseConnectionTTL, 10*time.Minute)

	v.SetDefault(GormLogLevel, int(slog.LevelWarn))
	v.SetDefault(GormTraceQueries, false)
	v.SetDefault(AppLogLevel, int(slog.LevelInfo))
	v.SetDefault(UseOTLP, false)

	var c Config
	if err := v.Unmarshal(&c); err != nil {
		return nil, err
	}

	valid := validator.Create()
	if err := valid.Validate(&c); err != nil {
		return nil, err
	}

	if c.JobBackend == "bedrock" && c.RoleARN == "" {
		return nil, fmt.Errorf("%s is required for the bedrock job backend", RoleARN)
	}
	if c.JobBackend == "kubernetes" && c.Kubernetes.Image == "" {
		return nil, fmt.Errorf("%s is required for the kubernetes job backend", KubernetesImage)
	}
	if c.Storage.Backend == "minio" && (c.Storage.Minio == nil || c.Storage.Minio.Endpoint == "") {
		return nil, errors.New("storage.minio.endpoint is required for the minio storage backend")
	}
	if c.Storage.Backend == "azure" && (c.Storage.Azure == nil || c.Storage.Azure.ServiceURL == "") {
		return nil, errors.New("storage.azure.service_url is required for the azure storage backend")
	}

	return &c, nil
}

// scheme://bucket for object locations built from the configured paths
func (c *Config) StorageScheme() string {
	switch c.Storage.Backend {
	case "azure":
		return "az"
	default:
		return "s3"
	}
}

func (c *Config) DatabaseDSN() string {
	return fmt.Sprintf(
		"postgresql://%s:%s@%s:%d/%s",
		url.QueryEscape(c.Database.User),
		url.QueryEscape(c.Database.Password),
		c.Database.Host, c.Database.Port,
		url.QueryEscape(c.Database.Database),
	)
}
