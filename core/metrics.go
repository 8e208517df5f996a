package core

import "context"

const metricPrefix = "tenants."

// operationCounter is tenants.<operation>.total.
func operationCounter(operation string) string {
	return metricPrefix + operation + ".total"
}

// operationLatency is tenants.<operation>.duration_ms.
func operationLatency(operation string) string {
	return metricPrefix + operation + ".duration_ms"
}

// NopMetricsRecorder is the recorder a host uses when none is configured.
type NopMetricsRecorder struct{}

func (NopMetricsRecorder) IncCounter(context.Context, string, int64, map[string]string) {}

func (NopMetricsRecorder) ObserveHistogram(context.Context, string, float64, map[string]string) {}

func cloneTags(tags map[string]string) map[string]string {
	out := make(map[string]string, len(tags))
	for key, value := range tags {
		out[key] = value
	}
	return out
}
