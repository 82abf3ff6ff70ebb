package otel

import (
	"context"
	"os"
	"sort"
	"strings"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"
	corev1 "k8s.io/api/core/v1"
)

// Inference pods receive the submitting run's trace context as TRACE_CARRIER_<FIELD> variables
const PodEnvPrefix = "TRACE_CARRIER_"

// Trace context carried through a process environment.
//
// The kubernetes backend injects into an empty PodEnv and renders the propagator's fields onto the
// inference container. A process started that way reads its parent context back with FromEnviron.
type PodEnv struct {
	values  map[string]string
	lookup  func(string) (string, bool)
	environ func() []string
}

// Ensure PodEnv implements propagation.TextMapCarrier interface.
var _ propagation.TextMapCarrier = (*PodEnv)(nil)

// Empty carrier for injection, blind to the current process environment
func NewPodEnv() *PodEnv {
	return &PodEnv{
		values:  make(map[string]string),
		lookup:  func(string) (string, bool) { return "", false },
		environ: func() []string { return nil },
	}
}

// Carrier over the current process environment
func FromEnviron() *PodEnv {
	return &PodEnv{
		values:  make(map[string]string),
		lookup:  os.LookupEnv,
		environ: os.Environ,
	}
}

// traceparent -> TRACE_CARRIER_TRACEPARENT
func envName(field string) string {
	return PodEnvPrefix + strings.ToUpper(strings.ReplaceAll(field, "-", "_"))
}

// W3C propagation fields are lower case and never contain an underscore
func fieldName(name string) string {
	return strings.ToLower(strings.ReplaceAll(strings.TrimPrefix(name, PodEnvPrefix), "_", "-"))
}

func (e *PodEnv) Get(key string) string {
	name := envName(key)
	if v, ok := e.values[name]; ok {
		return v
	}

	v, _ := e.lookup(name)
	return v
}

func (e *PodEnv) Set(key, value string) {
	e.values[envName(key)] = value
}

func (e *PodEnv) Keys() []string {
	seen := make(map[string]struct{}, len(e.values))
	for name := range e.values {
		seen[fieldName(name)] = struct{}{}
	}
	for _, kv := range e.environ() {
		name, _, _ := strings.Cut(kv, "=")
		if strings.HasPrefix(name, PodEnvPrefix) {
			seen[fieldName(name)] = struct{}{}
		}
	}

	keys := make([]string, 0, len(seen))
	for k := range seen {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	return keys
}

// Container env for the given propagation fields, sorted by name. Unset fields are left out so an
// absent baggage header does not become an empty variable.
func (e *PodEnv) EnvVars(fields []string) []corev1.EnvVar {
	vars := make([]corev1.EnvVar, 0, len(fields))
	for _, field := range fields {
		name := envName(field)
		if v, ok := e.values[name]; ok && v != "" {
			vars = append(vars, corev1.EnvVar{Name: name, Value: v})
		}
	}
	sort.Slice(vars, func(i, j int) bool { return vars[i].Name < vars[j].Name })

	return vars
}

// Trace context of ctx as inference container env, limited to the global propagator's fields
func InferencePodEnv(ctx context.Context) []corev1.EnvVar {
	propagator := otel.GetTextMapPropagator()

	env := NewPodEnv()
	propagator.Inject(ctx, env)

	return env.EnvVars(propagator.Fields())
}

// Context carrying the trace that started this process, if it was started by a batcheval run
func ParentContext(ctx context.Context) context.Context {
	return otel.GetTextMapPropagator().Extract(ctx, FromEnviron())
}
