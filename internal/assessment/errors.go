package assessment

import "errors"

var (
	ErrInvalidRequest     = errors.New("invalid generation request")
	ErrContentUnavailable = errors.New("content store unavailable")
	ErrServiceUnavailable = errors.New("generation service unavailable")
	ErrUpstream           = errors.New("generation failed")
	ErrNoParseableOutput  = errors.New("no parseable questions in generated output")
)

// Stable codes for the outcomes above, shared by the HTTP layer and job records.
const (
	CodeInvalidRequest     = "invalid_request"
	CodeContentUnavailable = "content_unavailable"
	CodeServiceUnavailable = "service_unavailable"
	CodeUpstream           = "upstream_error"
	CodeNoParseableOutput  = "no_parseable_output"
	CodeInternal           = "internal_error"
)

// Code maps an error returned by Service.Generate to its stable code.
func Code(err error) string {
	switch {
	case errors.Is(err, ErrInvalidRequest):
		return CodeInvalidRequest
	case errors.Is(err, ErrContentUnavailable):
		return CodeContentUnavailable
	case errors.Is(err, ErrServiceUnavailable):
		return CodeServiceUnavailable
	case errors.Is(err, ErrUpstream):
		return CodeUpstream
	case errors.Is(err, ErrNoParseableOutput):
		return CodeNoParseableOutput
	default:
		return CodeInternal
	}
}
