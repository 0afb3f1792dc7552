package log

const (
	// Request
	FieldRequestID = "request_id"
	FieldMethod    = "method"
	FieldPath      = "path"
	FieldStatus    = "status"
	FieldLatency   = "latency_ms"
	FieldClientIP  = "client_ip"

	// Actor
	FieldUserID   = "user_id"
	FieldClientID = "client_id"

	// Chat pipeline
	FieldMessageID = "message_id"
	FieldRoomID    = "room_id"
	FieldTopic     = "topic"
	FieldChannel   = "channel"
	FieldBatchSize = "batch_size"

	// Service
	FieldService = "service"
)
