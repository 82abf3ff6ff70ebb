package jobs_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	batchv1 "k8s.io/api/batch/v1"
	corev1 "k8s.io/api/core/v1"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/client-go/kubernetes/fake"

	evalerrors "github.com/summarybench/batcheval/internal/eval_errors"
	"github.com/summarybench/batcheval/internal/jobs"
	otelbatcheval "github.com/summarybench/batcheval/internal/otel"
	"github.com/summarybench/batcheval/internal/types"
)

const namespace = "inference"

func kubeSpec() types.JobSpec {
	return types.NewJobSpec(
		"batch-inference-20240601-120000",
		"llama3-8b-instruct",
		"s3://bucket/bedrock/data/validation.jsonl",
		"s3://bucket/bedrock/batch-outputs",
		"inference-sa",
		map[string]string{"project": "dialogsum"},
	)
}

func setCondition(
	t *testing.T,
	client *fake.Clientset,
	name string,
	status batchv1.JobStatus,
) {
	t.Helper()

	job, err := client.BatchV1().Jobs(namespace).Get(context.Background(), name, metav1.GetOptions{})
	require.NoError(t, err, "failed to get job")

	job.Status = status
	_, err = client.BatchV1().Jobs(namespace).UpdateStatus(context.Background(), job, metav1.UpdateOptions{})
	require.NoError(t, err, "failed to update job status")
}

func TestKubernetesBackend(t *testing.T) {
	ctx := context.Background()

	t.Run("SubmitJob", func(t *testing.T) {
		client := fake.NewClientset()
		backend := jobs.NewKubernetesBackend(client, jobs.KubernetesOptions{
			Namespace:  namespace,
			Image:      "inference:latest",
			TTLSeconds: 600,
		})

		spec := kubeSpec()
		h, err := backend.SubmitJob(ctx, spec)
		require.NoError(t, err, "failed to submit")
		assert.Equal(t, spec.JobName, h.ID)
		assert.Equal(t, namespace+"/"+spec.JobName, h.Identifier)

		job, err := client.BatchV1().Jobs(namespace).Get(ctx, spec.JobName, metav1.GetOptions{})
		require.NoError(t, err, "job was not created")

		assert.Equal(t, spec.JobName, job.Labels[jobs.JobNameLabel])
		assert.Equal(t, spec.ModelID, job.Annotations[jobs.ModelIDAnnotation])
		assert.Equal(t, spec.OutputLocation, job.Annotations[jobs.OutputLocationAnnotation])
		assert.Equal(t, "dialogsum", job.Annotations["batcheval.dev/tag-project"])
		assert.Equal(t, "inference-sa", job.Spec.Template.Spec.ServiceAccountName)

		env := map[string]string{}
		for _, e := range job.Spec.Template.Spec.Containers[0].Env {
			env[e.Name] = e.Value
		}
		assert.Equal(t, spec.InputLocation, env["INPUT_LOCATION"])
		assert.Equal(t, spec.ModelID, env["MODEL_ID"])
		assert.Equal(
			t,
			"s3://bucket/bedrock/batch-outputs/batch-inference-20240601-120000/",
			env["OUTPUT_LOCATION"],
		)
	})

	t.Run("SubmitJobPropagatesTrace", func(t *testing.T) {
		otel.SetTextMapPropagator(propagation.TraceContext{})
		provider := sdktrace.NewTracerProvider()
		t.Cleanup(func() { _ = provider.Shutdown(context.Background()) })

		spanCtx, span := provider.Tracer("test").Start(ctx, "run")
		defer span.End()

		client := fake.NewClientset()
		backend := jobs.NewKubernetesBackend(client, jobs.KubernetesOptions{Namespace: namespace, UseOTLP: true})

		h, err := backend.SubmitJob(spanCtx, kubeSpec())
		require.NoError(t, err)

		job, err := client.BatchV1().Jobs(namespace).Get(ctx, h.ID, metav1.GetOptions{})
		require.NoError(t, err)

		env := map[string]string{}
		for _, e := range job.Spec.Template.Spec.Containers[0].Env {
			env[e.Name] = e.Value
		}
		assert.Contains(t, env[otelbatcheval.PodEnvPrefix+"TRACEPARENT"], span.SpanContext().TraceID().String())
		assert.NotContains(t, env, otelbatcheval.PodEnvPrefix+"BAGGAGE", "only fields the propagator set")
		assert.Equal(t, "true", env["USE_OTLP"])
		assert.Equal(t, "batcheval-inference", env["OTEL_SERVICE_NAME"])
	})

	t.Run("SubmitJobDuplicateName", func(t *testing.T) {
		client := fake.NewClientset()
		backend := jobs.NewKubernetesBackend(client, jobs.KubernetesOptions{Namespace: namespace})

		_, err := backend.SubmitJob(ctx, kubeSpec())
		require.NoError(t, err)

		_, err = backend.SubmitJob(ctx, kubeSpec())
		assert.Error(t, err, "a job name can only be used once")
	})

	t.Run("SubmitJobInvalidOutput", func(t *testing.T) {
		backend := jobs.NewKubernetesBackend(fake.NewClientset(), jobs.KubernetesOptions{Namespace: namespace})

		spec := kubeSpec()
		spec.OutputLocation = "not a location"
		_, err := backend.SubmitJob(ctx, spec)

		var setupErr evalerrors.SetupError
		assert.ErrorAs(t, err, &setupErr)
	})

	t.Run("GetJobStatus", func(t *testing.T) {
		tests := []struct {
			name     string
			status   batchv1.JobStatus
			expected types.StatusReport
		}{
			{
				name:     "Pending",
				status:   batchv1.JobStatus{},
				expected: types.StatusReport{Status: types.JobStatusPending},
			},
			{
				name:     "Active",
				status:   batchv1.JobStatus{Active: 1},
				expected: types.StatusReport{Status: types.JobStatusInProgress},
			},
			{
				name: "Complete",
				status: batchv1.JobStatus{Conditions: []batchv1.JobCondition{
					{Type: batchv1.JobComplete, Status: corev1.ConditionTrue},
				}},
				expected: types.StatusReport{
					Status:         types.JobStatusCompleted,
					OutputLocation: "s3://bucket/bedrock/batch-outputs/batch-inference-20240601-120000",
				},
			},
			{
				name: "Failed",
				status: batchv1.JobStatus{Conditions: []batchv1.JobCondition{
					{Type: batchv1.JobFailed, Status: corev1.ConditionTrue, Reason: "BackoffLimitExceeded", Message: "Job has reached the specified backoff limit"},
				}},
				expected: types.StatusReport{
					Status:         types.JobStatusFailed,
					FailureMessage: "Job has reached the specified backoff limit",
				},
			},
			{
				name: "FailedWithoutMessage",
				status: batchv1.JobStatus{Conditions: []batchv1.JobCondition{
					{Type: batchv1.JobFailed, Status: corev1.ConditionTrue, Reason: "DeadlineExceeded"},
				}},
				expected: types.StatusReport{
					Status:         types.JobStatusFailed,
					FailureMessage: "DeadlineExceeded",
				},
			},
			{
				name: "Suspended",
				status: batchv1.JobStatus{Conditions: []batchv1.JobCondition{
					{Type: batchv1.JobSuspended, Status: corev1.ConditionTrue},
				}},
				expected: types.StatusReport{Status: types.JobStatusPending},
			},
			{
				name: "Resumed",
				status: batchv1.JobStatus{Active: 1, Conditions: []batchv1.JobCondition{
					{Type: batchv1.JobSuspended, Status: corev1.ConditionFalse, Reason: "JobResumed"},
				}},
				expected: types.StatusReport{Status: types.JobStatusInProgress},
			},
			{
				name: "ConditionNotTrue",
				status: batchv1.JobStatus{Active: 1, Conditions: []batchv1.JobCondition{
					{Type: batchv1.JobFailed, Status: corev1.ConditionFalse},
				}},
				expected: types.StatusReport{Status: types.JobStatusInProgress},
			},
		}

		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				client := fake.NewClientset()
				backend := jobs.NewKubernetesBackend(client, jobs.KubernetesOptions{Namespace: namespace})

				h, err := backend.SubmitJob(ctx, kubeSpec())
				require.NoError(t, err)

				setCondition(t, client, h.ID, tt.status)

				report, err := backend.GetJobStatus(ctx, h)
				require.NoError(t, err, "failed to get status")
				assert.Equal(t, tt.expected, report)
			})
		}
	})

	t.Run("GetJobStatusNotFound", func(t *testing.T) {
		backend := jobs.NewKubernetesBackend(fake.NewClientset(), jobs.KubernetesOptions{Namespace: namespace})

		_, err := backend.GetJobStatus(ctx, types.NewJobHandle(namespace+"/missing"))
		assert.ErrorIs(t, err, jobs.ErrJobNotFound)
	})
}
