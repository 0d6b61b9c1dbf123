// Package progress defines the event values emitted while a report job runs.
package progress

import (
	"errors"
	"fmt"
)

// Status labels the kind of milestone an Event represents.
type Status string

// Supported progress statuses.
const (
	StatusStarted    Status = "started"
	StatusProcessing Status = "processing"
	StatusCompleted  Status = "completed"
	StatusError      Status = "error"
)

// Event is an ephemeral progress message for one job. It is a transmitted
// value, not an entity: nothing persists it, and within one job events are
// emitted in stage order with non-decreasing Progress.
type Event struct {
	Status   Status `json:"status"`
	Message  string `json:"message"`
	Progress int    `json:"progress"`
	Data     any    `json:"data,omitempty"`
}

// Validate performs coarse validation on Event payloads.
func (e Event) Validate() error {
	switch e.Status {
	case StatusStarted, StatusProcessing, StatusCompleted, StatusError:
	default:
		return fmt.Errorf("unknown status %q", e.Status)
	}
	if e.Progress < 0 || e.Progress > 100 {
		return fmt.Errorf("progress %d out of range", e.Progress)
	}
	if e.Message == "" {
		return errors.New("message is required")
	}
	if e.Status == StatusCompleted && e.Progress != 100 {
		return errors.New("completed event must report progress 100")
	}
	return nil
}

// Started builds the initial event for a job.
func Started(message string, pct int) Event {
	return Event{Status: StatusStarted, Message: message, Progress: pct}
}

// Processing builds an intermediate event.
func Processing(message string, pct int) Event {
	return Event{Status: StatusProcessing, Message: message, Progress: pct}
}

// Completed builds the terminal success event carrying the result payload.
func Completed(message string, data any) Event {
	return Event{Status: StatusCompleted, Message: message, Progress: 100, Data: data}
}

// Errored builds the terminal failure event.
func Errored(message string, pct int) Event {
	return Event{Status: StatusError, Message: message, Progress: pct}
}
