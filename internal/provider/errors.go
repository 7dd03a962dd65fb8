package provider

import "fmt"

// Stage names the step at which lesson generation failed.
type Stage string

const (
	StageRequest  Stage = "request"
	StageDecode   Stage = "decode"
	StageValidate Stage = "validate"
)

// ContentGenerationError is returned when lesson content cannot be produced.
// It is never recovered locally.
type ContentGenerationError struct {
	Stage Stage
	Err   error
}

func (e *ContentGenerationError) Error() string {
	return fmt.Sprintf("generate lesson content (%s): %v", e.Stage, e.Err)
}

func (e *ContentGenerationError) Unwrap() error { return e.Err }

// ChatReplyError is a failed chat turn. The service replaces it with a fallback reply.
type ChatReplyError struct {
	Err error
}

func (e *ChatReplyError) Error() string { return "chat reply: " + e.Err.Error() }

func (e *ChatReplyError) Unwrap() error { return e.Err }

// SummaryError is a failed performance summary or conversation feedback call.
type SummaryError struct {
	Kind string
	Err  error
}

func (e *SummaryError) Error() string { return e.Kind + ": " + e.Err.Error() }

func (e *SummaryError) Unwrap() error { return e.Err }
