package templates

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"
	batchv1 "k8s.io/api/batch/v1"
	corev1 "k8s.io/api/core/v1"
	"k8s.io/apimachinery/pkg/api/resource"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
)

var tracer = otel.Tracer("github.com/summarybench/batcheval/internal/jobs/templates")

// Node label or taint the inference pod is pinned to. An empty Key places no constraint.
type KeyValue struct {
	Key   string
	Value string
}

// Batch inference Job for one JobSpec
type InferenceData struct {
	Labels         map[string]string
	Annotations    map[string]string
	Affinity       KeyValue
	Toleration     KeyValue
	Name           string
	Image          string
	ServiceAccount string
	Memory         string
	CPU            string
	Args           []string
	Env            []corev1.EnvVar
	// Seconds a finished job is kept around, 0 keeps it forever
	TTLSeconds int32
}

func (d InferenceData) Render(ctx context.Context) *batchv1.Job {
	_, span := tracer.Start(ctx, "Render")
	defer span.End()

	completions := int32(1)
	backoff := int32(0)
	user := int64(1000)
	runAsNonRoot := true
	allowPrivilegeEscalation := false

	memory := d.Memory
	if memory == "" {
		memory = "1Gi"
	}
	cpu := d.CPU
	if cpu == "" {
		cpu = "500m"
	}

	var affinity *corev1.Affinity
	if d.Affinity.Key != "" {
		affinity = &corev1.Affinity{
			NodeAffinity: &corev1.NodeAffinity{
				RequiredDuringSchedulingIgnoredDuringExecution: &corev1.NodeSelector{
					NodeSelectorTerms: []corev1.NodeSelectorTerm{
						{
							MatchExpressions: []corev1.NodeSelectorRequirement{
								{
									Key:      d.Affinity.Key,
									Operator: corev1.NodeSelectorOpIn,
									Values: []string{
										d.Affinity.Value,
									},
								},
							},
						},
					},
				},
			},
		}
	}

	var tolerations []corev1.Toleration
	if d.Toleration.Key != "" {
		tolerations = append(tolerations, corev1.Toleration{
			Key:      d.Toleration.Key,
			Operator: corev1.TolerationOpEqual,
			Value:    d.Toleration.Value,
			Effect:   corev1.TaintEffectNoSchedule,
		})
	}

	var object = &batchv1.Job{
		ObjectMeta: metav1.ObjectMeta{
			Name:        d.Name,
			Labels:      d.Labels,
			Annotations: d.Annotations,
		},
		Spec: batchv1.JobSpec{
			Completions:  &completions,
			BackoffLimit: &backoff,
			PodFailurePolicy: &batchv1.PodFailurePolicy{
				// https://kubernetes.io/docs/tasks/job/pod-failure-policy/#using-pod-failure-policy-to-ignore-pod-disruptions
				Rules: []batchv1.PodFailurePolicyRule{
					{
						Action: batchv1.PodFailurePolicyActionIgnore,
						OnPodConditions: []batchv1.PodFailurePolicyOnPodConditionsPattern{
							{
								Type:   corev1.DisruptionTarget,
								Status: corev1.ConditionTrue,
							},
						},
					},
				},
			},
			Template: corev1.PodTemplateSpec{
				ObjectMeta: metav1.ObjectMeta{
					Labels: d.Labels,
				},
				Spec: corev1.PodSpec{
					ServiceAccountName: d.ServiceAccount,
					Affinity:           affinity,
					SecurityContext: &corev1.PodSecurityContext{
						FSGroup: &user,
					},
					Tolerations: tolerations,
					Containers: []corev1.Container{
						{
							Name:  "inference",
							Image: d.Image,
							Args:  d.Args,
							Env:   d.Env,
							SecurityContext: &corev1.SecurityContext{
								RunAsUser:                &user,
								RunAsGroup:               &user,
								RunAsNonRoot:             &runAsNonRoot,
								AllowPrivilegeEscalation: &allowPrivilegeEscalation,
								Capabilities: &corev1.Capabilities{
									Drop: []corev1.Capability{
										"ALL",
									},
								},
							},
							Resources: corev1.ResourceRequirements{
								Requests: corev1.ResourceList{
									corev1.ResourceMemory: resource.MustParse(memory),
									corev1.ResourceCPU:    resource.MustParse(cpu),
								},
								Limits: corev1.ResourceList{
									corev1.ResourceMemory: resource.MustParse(memory),
								},
							},
						},
					},
					RestartPolicy: corev1.RestartPolicyNever,
				},
			},
		},
	}

	if d.TTLSeconds > 0 {
		ttl := d.TTLSeconds
		object.Spec.TTLSecondsAfterFinished = &ttl
	}

	span.RecordError(nil)
	span.SetStatus(codes.Ok, "rendered inference job")
	return object
}
