package errors

// Error codes for standardized error responses
const (
	// Authentication errors
	ErrCodeUnauthorized           = "unauthorized"
	ErrCodeInvalidToken           = "invalid_token"
	ErrCodeTokenExpired           = "token_expired"
	ErrCodeAuthenticationRequired = "authentication_required"

	// Validation errors
	ErrCodeInvalidRequest   = "invalid_request"
	ErrCodeValidationFailed = "validation_failed"
	ErrCodeInvalidKind      = "invalid_assessment_kind"
	ErrCodeInvalidJobID     = "invalid_job_id"

	// Resource errors
	ErrCodeNotFound    = "not_found"
	ErrCodeJobNotFound = "job_not_found"
	ErrCodeJobNotReady = "job_not_ready"

	// Generation outcomes
	ErrCodeContentUnavailable = "content_unavailable"
	ErrCodeServiceUnavailable = "service_unavailable"
	ErrCodeUpstreamError      = "upstream_error"
	ErrCodeNoParseableOutput  = "no_parseable_output"

	// Job errors
	ErrCodeEnqueueFailed = "enqueue_failed"
	ErrCodeJobTimeout    = "job_timeout"
	ErrCodeExportFailed  = "export_failed"

	// WebSocket errors
	ErrCodeInvalidPayload     = "invalid_payload"
	ErrCodeUnknownMessageType = "unknown_message_type"

	// Server errors
	ErrCodeInternalError = "internal_error"
)
