package asyncop

import "time"

// Recorder observes operation outcomes. The manager calls it synchronously,
// so implementations must be cheap and must not call back into the manager.
type Recorder interface {
	OperationStarted(id string)
	OperationSucceeded(id string)
	OperationFailed(id string)
	RetryScheduled(id string, attempt int, delay time.Duration)
	RetriesExhausted(id string)
}

type nopRecorder struct{}

func (nopRecorder) OperationStarted(string)                      {}
func (nopRecorder) OperationSucceeded(string)                    {}
func (nopRecorder) OperationFailed(string)                       {}
func (nopRecorder) RetryScheduled(string, int, time.Duration)    {}
func (nopRecorder) RetriesExhausted(string)                      {}
