package jobs

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	batchv1 "k8s.io/api/batch/v1"
	corev1 "k8s.io/api/core/v1"
	apierrors "k8s.io/apimachinery/pkg/api/errors"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/client-go/kubernetes"

	evalerrors "github.com/summarybench/batcheval/internal/eval_errors"
	"github.com/summarybench/batcheval/internal/jobs/templates"
	otelbatcheval "github.com/summarybench/batcheval/internal/otel"
	"github.com/summarybench/batcheval/internal/storage"
	"github.com/summarybench/batcheval/internal/types"
)

const (
	JobNameLabel             = "batcheval.dev/job-name"
	ModelIDAnnotation        = "batcheval.dev/model-id"
	OutputLocationAnnotation = "batcheval.dev/output-location"
	tagAnnotationPrefix      = "batcheval.dev/tag-"
)

// Ensure KubernetesBackend implements Backend interface.
var _ Backend = (*KubernetesBackend)(nil)

type KubernetesOptions struct {
	Affinity   templates.KeyValue
	Toleration templates.KeyValue
	Namespace  string
	Image      string
	Memory     string
	CPU        string
	Args       []string
	TTLSeconds int32
	UseOTLP    bool
}

// Runs batch inference as a kubernetes Job in the cluster. The container reads the NDJSON input
// and writes its output to the locations passed in its environment.
type KubernetesBackend struct {
	kubeClient kubernetes.Interface
	options    KubernetesOptions
}

func NewKubernetesBackend(client kubernetes.Interface, options KubernetesOptions) *KubernetesBackend {
	if options.Namespace == "" {
		options.Namespace = corev1.NamespaceDefault
	}

	return &KubernetesBackend{
		kubeClient: client,
		options:    options,
	}
}

func (kb *KubernetesBackend) SubmitJob(ctx context.Context, spec types.JobSpec) (types.JobHandle, error) {
	ctx, span := tracer.Start(ctx, "KubernetesBackend.SubmitJob", trace.WithAttributes(
		attribute.String("job.name", spec.JobName),
		attribute.String("namespace", kb.options.Namespace),
	))
	defer span.End()

	output, err := storage.ParseLocation(spec.OutputLocation)
	if err != nil {
		err = evalerrors.SetupErrorWrap(err)
		span.RecordError(err)
		span.SetStatus(codes.Error, "invalid output location")
		return types.JobHandle{}, err
	}

	annotations := map[string]string{
		ModelIDAnnotation:        spec.ModelID,
		OutputLocationAnnotation: spec.OutputLocation,
	}
	for k, v := range spec.Tags {
		annotations[tagAnnotationPrefix+k] = v
	}

	labels := map[string]string{
		JobNameLabel: spec.JobName,
	}

	env := []corev1.EnvVar{
		{
			Name:  "JOB_NAME",
			Value: spec.JobName,
		},
		{
			Name:  "MODEL_ID",
			Value: spec.ModelID,
		},
		{
			Name:  "INPUT_LOCATION",
			Value: spec.InputLocation,
		},
		{
			Name:  "OUTPUT_LOCATION",
			Value: output.Join(spec.JobName + "/").String(),
		},
	}

	env = append(env, otelbatcheval.InferencePodEnv(ctx)...)
	env = append(env,
		corev1.EnvVar{
			Name:  "USE_OTLP",
			Value: strconv.FormatBool(kb.options.UseOTLP),
		},
		corev1.EnvVar{
			Name:  "OTEL_EXPORTER_OTLP_ENDPOINT",
			Value: os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT"),
		},
		corev1.EnvVar{
			Name:  "OTEL_RESOURCE_ATTRIBUTES",
			Value: os.Getenv("OTEL_RESOURCE_ATTRIBUTES"),
		},
		corev1.EnvVar{
			Name:  "OTEL_SERVICE_NAME",
			Value: "batcheval-inference",
		},
	)

	data := templates.InferenceData{
		Name:           spec.JobName,
		Labels:         labels,
		Annotations:    annotations,
		Image:          kb.options.Image,
		ServiceAccount: spec.ExecutionRole,
		Memory:         kb.options.Memory,
		CPU:            kb.options.CPU,
		Args:           kb.options.Args,
		Env:            env,
		Affinity:       kb.options.Affinity,
		Toleration:     kb.options.Toleration,
		TTLSeconds:     kb.options.TTLSeconds,
	}

	rendered := data.Render(ctx)
	rendered.Namespace = kb.options.Namespace

	job, err := kb.kubeClient.BatchV1().
		Jobs(kb.options.Namespace).
		Create(ctx, rendered, metav1.CreateOptions{})
	if err != nil {
		if apierrors.IsForbidden(err) || apierrors.IsUnauthorized(err) || apierrors.IsInvalid(err) {
			err = evalerrors.SetupErrorWrap(err)
		}
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to create job")
		return types.JobHandle{}, err
	}

	span.AddEvent("created_job", trace.WithAttributes(
		attribute.String("job.name", job.Name),
	))

	span.RecordError(nil)
	span.SetStatus(codes.Ok, "created job")
	return types.NewJobHandle(fmt.Sprintf("%s/%s", kb.options.Namespace, job.Name)), nil
}

func (kb *KubernetesBackend) GetJobStatus(
	ctx context.Context,
	handle types.JobHandle,
) (types.StatusReport, error) {
	ctx, span := tracer.Start(ctx, "KubernetesBackend.GetJobStatus", trace.WithAttributes(
		attribute.String("job.id", handle.ID),
	))
	defer span.End()

	namespace := kb.options.Namespace
	if ns, _, ok := strings.Cut(handle.Identifier, "/"); ok && ns != "" {
		namespace = ns
	}

	job, err := kb.kubeClient.BatchV1().Jobs(namespace).Get(ctx, handle.ID, metav1.GetOptions{})
	if err != nil {
		if apierrors.IsNotFound(err) {
			err = fmt.Errorf("%w: %w", ErrJobNotFound, err)
		} else if apierrors.IsForbidden(err) || apierrors.IsUnauthorized(err) {
			err = evalerrors.SetupErrorWrap(err)
		}
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to get job")
		return types.StatusReport{}, err
	}

	for k, v := range jobTags(job) {
		span.SetAttributes(attribute.String("job.tag."+k, v))
	}

	report := jobStatus(job)
	if report.Status == types.JobStatusCompleted {
		if output := job.Annotations[OutputLocationAnnotation]; output != "" {
			loc, err := storage.ParseLocation(output)
			if err != nil {
				span.RecordError(err)
				span.SetStatus(codes.Error, "invalid output location")
				return types.StatusReport{}, err
			}
			report.OutputLocation = loc.Join(job.Name).String()
		}
	}

	span.SetAttributes(attribute.String("status", report.Status.String()))
	span.RecordError(nil)
	span.SetStatus(codes.Ok, "got job")
	return report, nil
}

func jobStatus(job *batchv1.Job) types.StatusReport {
	conditions := make(map[batchv1.JobConditionType]batchv1.JobCondition, len(job.Status.Conditions))
	for _, c := range job.Status.Conditions {
		if c.Status == corev1.ConditionTrue {
			conditions[c.Type] = c
		}
	}

	if c, ok := conditions[batchv1.JobFailed]; ok {
		message := c.Message
		if message == "" {
			message = c.Reason
		}
		return types.StatusReport{Status: types.JobStatusFailed, FailureMessage: message}
	}
	if _, ok := conditions[batchv1.JobComplete]; ok {
		return types.StatusReport{Status: types.JobStatusCompleted}
	}
	// a suspended job can be resumed, so it is waiting rather than stopped
	if _, ok := conditions[batchv1.JobSuspended]; ok {
		return types.StatusReport{Status: types.JobStatusPending}
	}
	if job.Status.Active > 0 {
		return types.StatusReport{Status: types.JobStatusInProgress}
	}

	return types.StatusReport{Status: types.JobStatusPending}
}

// JobSpec tags, recovered from the job's annotations
func jobTags(job *batchv1.Job) map[string]string {
	tags := make(map[string]string)
	for k, v := range job.Annotations {
		if tag, ok := strings.CutPrefix(k, tagAnnotationPrefix); ok {
			tags[tag] = v
		}
	}

	return tags
}
