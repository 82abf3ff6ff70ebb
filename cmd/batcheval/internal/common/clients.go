// Package common builds the backends and collaborators the commands share from the loaded config.
package common

import (
	"context"
	"fmt"
	"time"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"
	"k8s.io/client-go/kubernetes"
	"k8s.io/client-go/rest"
	"k8s.io/client-go/tools/clientcmd"
	"k8s.io/client-go/util/homedir"

	"github.com/summarybench/batcheval/internal/archive"
	"github.com/summarybench/batcheval/internal/batchinput"
	"github.com/summarybench/batcheval/internal/config"
	"github.com/summarybench/batcheval/internal/dataset"
	evalerrors "github.com/summarybench/batcheval/internal/eval_errors"
	"github.com/summarybench/batcheval/internal/fetch"
	"github.com/summarybench/batcheval/internal/jobs"
	"github.com/summarybench/batcheval/internal/jobs/templates"
	"github.com/summarybench/batcheval/internal/logger"
	"github.com/summarybench/batcheval/internal/pipeline"
	"github.com/summarybench/batcheval/internal/queue"
	"github.com/summarybench/batcheval/internal/storage"
	"github.com/summarybench/batcheval/internal/store"
	"github.com/summarybench/batcheval/internal/types"
)

var tracer = otel.Tracer("github.com/summarybench/batcheval/cmd/batcheval/internal/common")

// Notifications nobody picked up within a day are stale
const notificationTTL = 24 * time.Hour

// Object storage backend for the configured bucket, retried on transient errors
func GetStorageBackend(ctx context.Context, cfg *config.Config) (storage.Backend, error) {
	var backend storage.Backend

	switch cfg.Storage.Backend {
	case "azure":
		az, err := storage.NewAzureBackend(
			cfg.Storage.Azure.AccountName,
			cfg.Storage.Azure.AccountKey,
			cfg.Storage.Azure.ServiceURL,
			cfg.Storage.Bucket,
		)
		if err != nil {
			return nil, evalerrors.SetupErrorWrap(err)
		}
		backend = az
	case "minio":
		m, err := storage.NewMinioBackend(
			cfg.Storage.Minio.Endpoint,
			cfg.Storage.Minio.AccessKeyID,
			cfg.Storage.Minio.SecretAccessKey,
			cfg.Storage.Minio.SSLEnabled,
			cfg.Storage.Bucket,
		)
		if err != nil {
			return nil, evalerrors.SetupErrorWrap(err)
		}
		backend = m
	default:
		awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(cfg.Region))
		if err != nil {
			return nil, evalerrors.SetupErrorWrap(err)
		}
		endpoint := ""
		if cfg.Storage.S3 != nil {
			endpoint = cfg.Storage.S3.Endpoint
		}
		backend = storage.NewS3Backend(awsCfg, endpoint, cfg.Storage.Bucket)
	}

	return storage.NewRetryBackend(backend), nil
}

func GetJobBackend(ctx context.Context, cfg *config.Config) (jobs.Backend, error) {
	ctx, span := tracer.Start(ctx, "GetJobBackend")
	defer span.End()

	if cfg.JobBackend != "kubernetes" {
		awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(cfg.Region))
		if err != nil {
			err = evalerrors.SetupErrorWrap(err)
			span.RecordError(err)
			span.SetStatus(codes.Error, "failed to load aws config")
			return nil, err
		}

		span.RecordError(nil)
		span.SetStatus(codes.Ok, "created bedrock backend")
		return jobs.NewBedrockBackend(awsCfg), nil
	}

	var clusterConfig *rest.Config
	var err error
	if cfg.Kubernetes.InCluster {
		clusterConfig, err = rest.InClusterConfig()
	} else {
		kubeconfig := cfg.Kubernetes.Kubeconfig
		if kubeconfig == "" {
			kubeconfig = homedir.HomeDir() + "/.kube/config"
		}
		clusterConfig, err = clientcmd.BuildConfigFromFlags("", kubeconfig)
	}
	if err != nil {
		err = evalerrors.SetupErrorWrap(fmt.Errorf("failed to get kubernetes config: %w", err))
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to get kubernetes config")
		return nil, err
	}

	k8sClient, err := kubernetes.NewForConfig(clusterConfig)
	if err != nil {
		err = evalerrors.SetupErrorWrap(fmt.Errorf("failed to create kubernetes client: %w", err))
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to create kubernetes client")
		return nil, err
	}

	span.RecordError(nil)
	span.SetStatus(codes.Ok, "created kubernetes backend")
	return jobs.NewKubernetesBackend(k8sClient, jobs.KubernetesOptions{
		Affinity: templates.KeyValue{
			Key:   cfg.Kubernetes.NodeAffinityLabel.Key,
			Value: cfg.Kubernetes.NodeAffinityLabel.Value,
		},
		Toleration: templates.KeyValue{
			Key:   cfg.Kubernetes.Toleration.Key,
			Value: cfg.Kubernetes.Toleration.Value,
		},
		Namespace:  cfg.Kubernetes.Namespace,
		Image:      cfg.Kubernetes.Image,
		Memory:     cfg.Kubernetes.Memory,
		CPU:        cfg.Kubernetes.CPU,
		TTLSeconds: cfg.Kubernetes.TTLSeconds,
		UseOTLP:    cfg.Logging.UseOTLP,
	}), nil
}

// Role or service account the job backend runs inference as
func ExecutionRole(cfg *config.Config) string {
	if cfg.JobBackend == "kubernetes" {
		return cfg.Kubernetes.ServiceAccount
	}

	return cfg.RoleARN
}

// Resolves local paths, file://, http(s):// and object locations in the configured bucket
func GetFetcher(cfg *config.Config, backend storage.Backend) fetch.Fetcher {
	storageFetcher := fetch.NewStorageFetcher(backend)
	httpFetcher := fetch.NewRetryingHTTPFetcher()

	return fetch.NewMultiFetcher(map[string]fetch.Fetcher{
		"http":              httpFetcher,
		"https":             httpFetcher,
		cfg.StorageScheme(): storageFetcher,
	})
}

func GetDatasetProvider(cfg *config.Config, backend storage.Backend) *dataset.JSONLProvider {
	return dataset.NewJSONLProvider(GetFetcher(cfg, backend), cfg.Dataset.Location, dataset.FieldMap{
		Input:  cfg.Dataset.FieldMap.Input,
		Output: cfg.Dataset.FieldMap.Output,
	})
}

func GetPreparer(cfg *config.Config, backend storage.Backend) *batchinput.Preparer {
	return batchinput.NewPreparer(
		GetDatasetProvider(cfg, backend),
		backend,
		cfg.TaskInstruction,
		batchinput.GenerationParams{
			MaxGenLen:   cfg.Generation.MaxGenLen,
			Temperature: cfg.Generation.Temperature,
			TopP:        cfg.Generation.TopP,
		},
	)
}

// s3://<bucket>/<data_dir>
func DataDir(cfg *config.Config) storage.Location {
	return storage.NewLocation(cfg.StorageScheme(), cfg.Storage.Bucket, cfg.Paths.DataDir)
}

// s3://<bucket>/<batch_outputs_dir>
func BatchOutputsDir(cfg *config.Config) storage.Location {
	return storage.NewLocation(cfg.StorageScheme(), cfg.Storage.Bucket, cfg.Paths.BatchOutputsDir)
}

// Spec for a new job over the configured split, named <job_name_prefix>-YYYYMMDD-HHMMSS
func NewJobSpec(cfg *config.Config, now time.Time, tags map[string]string) types.JobSpec {
	return types.NewJobSpec(
		jobs.NewJobName(cfg.JobNamePrefix, now),
		cfg.ModelID,
		DataDir(cfg).Join(cfg.Dataset.Split+".jsonl").String(),
		BatchOutputsDir(cfg).String()+"/",
		ExecutionRole(cfg),
		tags,
	)
}

// Nil when the database is disabled
func GetRunStore(ctx context.Context, cfg *config.Config) (store.RunStore, error) {
	if !cfg.Database.Enabled {
		return nil, nil
	}

	db, err := store.Open(ctx, cfg.DatabaseDSN(), *cfg.Database, cfg.Logging.Gorm)
	if err != nil {
		return nil, evalerrors.SetupErrorWrap(err)
	}

	return store.NewGormRunStore(db), nil
}

// Nil when notifications are disabled
func GetQueuer(cfg *config.Config) (queue.Queuer, error) {
	if !cfg.Notify.Enabled {
		return nil, nil
	}

	q, err := queue.NewAzureQueuer(
		cfg.Notify.AccountName,
		cfg.Notify.AccountKey,
		cfg.Notify.ServiceURL,
		cfg.Notify.Queue,
		notificationTTL,
	)
	if err != nil {
		return nil, evalerrors.SetupErrorWrap(err)
	}

	return q, nil
}

// Nil when no archive dir is configured
func GetArchiver(cfg *config.Config, backend storage.Backend) archive.Archiver {
	if cfg.Paths.ArchiveDir == "" {
		return nil
	}

	return archive.NewStorageArchiver(
		backend,
		storage.NewLocation(cfg.StorageScheme(), cfg.Storage.Bucket, cfg.Paths.ArchiveDir),
	)
}

// Wires every configured collaborator into an orchestrator
func GetOrchestrator(
	ctx context.Context,
	cfg *config.Config,
	backend storage.Backend,
	allowPartial bool,
) (*pipeline.Orchestrator, error) {
	jobBackend, err := GetJobBackend(ctx, cfg)
	if err != nil {
		return nil, err
	}

	options := pipeline.Options{
		ResultsDir:   cfg.Paths.ResultsDir,
		PollInterval: cfg.PollInterval,
		AllowPartial: allowPartial,
		Archiver:     GetArchiver(cfg, backend),
	}

	options.Store, err = GetRunStore(ctx, cfg)
	if err != nil {
		return nil, err
	}

	options.Queuer, err = GetQueuer(cfg)
	if err != nil {
		return nil, err
	}

	logger.Logger.DebugContext(ctx, "built orchestrator",
		"job_backend", cfg.JobBackend,
		"storage_backend", cfg.Storage.Backend,
		"archive", options.Archiver != nil,
		"store", options.Store != nil,
		"notify", options.Queuer != nil,
	)

	return pipeline.New(
		jobs.NewSubmitter(jobBackend),
		jobs.NewPoller(jobBackend, cfg.PollRetries),
		fetch.NewResultFetcher(backend, cfg.DownloadConcurrency),
		options,
	), nil
}
