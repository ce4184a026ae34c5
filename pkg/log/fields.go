package log

const (
	// Request
	FieldRequestID = "request_id"
	FieldMethod    = "method"
	FieldPath      = "path"
	FieldStatus    = "status"
	FieldLatency   = "latency_ms"
	FieldClientIP  = "client_ip"

	// Actor (matches internal/handler middleware keys)
	FieldUsername = "username"

	// Ledger
	FieldTxID      = "tx_id"
	FieldOperation = "operation"
	FieldRoomID    = "room_id"

	// Service
	FieldService = "service"
)
