package metrics

import "time"

// NoopMetrics is a no-operation implementation of Recorder.
// All methods are empty, providing zero overhead when metrics are disabled.
type NoopMetrics struct{}

// Ensure NoopMetrics implements Recorder interface at compile time
var _ Recorder = (*NoopMetrics)(nil)

// NewNoopMetrics creates a new no-operation metrics recorder
func NewNoopMetrics() Recorder {
	return &NoopMetrics{}
}

func (n *NoopMetrics) RecordSettlement(flow, status string)                              {}
func (n *NoopMetrics) RecordDuplicateSelection()                                         {}
func (n *NoopMetrics) RecordRemoteCall(method string, success bool, d time.Duration)     {}
func (n *NoopMetrics) RecordEvent(kind string)                                           {}
func (n *NoopMetrics) RecordNotifyFallback(stage string)                                 {}
func (n *NoopMetrics) SetActiveConnections(count int)                                    {}
func (n *NoopMetrics) RecordHTTPRequest(method, path, status string, d time.Duration)    {}
func (n *NoopMetrics) AddHTTPInFlight(delta int)                                         {}
