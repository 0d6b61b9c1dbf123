// Package gateway defines the wire envelope shared by every bus publisher.
package gateway

import "github.com/placelens/placelens/internal/progress"

// Envelope is the fixed wire format consumed by the realtime gateway that
// forwards bus messages to end users.
type Envelope struct {
	Status  int    `json:"status"`
	Message string `json:"message"`
	Data    any    `json:"data"`
	Error   any    `json:"error"`
}

// Wrap folds a progress event into the standard success envelope.
func Wrap(evt progress.Event) Envelope {
	return Envelope{
		Status:  200,
		Message: "Success",
		Data:    evt,
		Error:   nil,
	}
}
