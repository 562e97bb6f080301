package domain

import (
	"errors"
	"fmt"
)

// Processing stages, used for error attribution.
const (
	StageValidation      = "validation"
	StageRetrieval       = "autorag"
	StageContextBuilding = "context_building"
	StageSystemPrompt    = "system_prompt"
	StageLLM             = "llm"
	StageStreaming       = "streaming"
)

var (
	// ErrInvalidRequest indicates the request body failed validation.
	ErrInvalidRequest = errors.New("invalid request")
	// ErrGenerationFailed indicates both the primary and the fallback
	// generation calls failed.
	ErrGenerationFailed = errors.New("generation failed after fallback")
	// ErrNoResponseContent indicates a stream completed without yielding
	// any text. A success status with empty content is not a valid turn.
	ErrNoResponseContent = errors.New("no response content received")
)

// ProcessingError wraps a failure with the stage it occurred in and the
// request that produced it.
type ProcessingError struct {
	Stage          string
	Message        string
	Recoverable    bool
	FallbackAction string
	Request        *RequestContext
	Err            error
}

func (e *ProcessingError) Error() string {
	if e.Request != nil {
		return fmt.Sprintf("%s: %s (request %s)", e.Stage, e.Message, e.Request.RequestID)
	}
	return fmt.Sprintf("%s: %s", e.Stage, e.Message)
}

func (e *ProcessingError) Unwrap() error {
	return e.Err
}

// NewProcessingError builds a stage-tagged error for the given request.
func NewProcessingError(stage, message string, recoverable bool, rc *RequestContext, err error) *ProcessingError {
	return &ProcessingError{
		Stage:       stage,
		Message:     message,
		Recoverable: recoverable,
		Request:     rc,
		Err:         err,
	}
}
