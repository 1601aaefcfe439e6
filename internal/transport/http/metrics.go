package httptransport

import "expvar"

var (
	metricActionSubmitTotal  = expvar.NewInt("action_submit_total")
	metricActionSubmitErrors = expvar.NewInt("action_submit_errors_total")

	metricSSEConnectionsTotal  = expvar.NewInt("sse_connections_total")
	metricSSEConnectionsActive = expvar.NewInt("sse_connections_active")

	metricGameSelectTotal = expvar.NewInt("game_select_total")
	metricRetryKickTotal  = expvar.NewInt("retry_kick_total")
)
