package metrics

import "time"

// Recorder is the metrics interface handed to every component.
// Use Init to obtain a Prometheus-backed recorder or a noop one.
type Recorder interface {
	// Settlement flows
	RecordSettlement(flow, status string)
	RecordDuplicateSelection()

	// Remote custodial API
	RecordRemoteCall(method string, success bool, duration time.Duration)

	// Inbound transport events
	RecordEvent(kind string)

	// Outbound delivery degradations (photo -> text -> dropped)
	RecordNotifyFallback(stage string)

	// Gauges
	SetActiveConnections(count int)

	// HTTP server
	RecordHTTPRequest(method, path, status string, duration time.Duration)
	AddHTTPInFlight(delta int)
}
