package resilience

import "time"

const (
	defaultBreakerInterval = time.Minute
	defaultBreakerTimeout  = 30 * time.Second
	defaultFailures        = 5
	defaultHalfOpenCalls   = 1
)

// BuildSettings turns the integer knobs read from the environment into
// Settings. Non-positive values select the defaults.
func BuildSettings(name string, intervalSeconds, timeoutSeconds, failureThreshold, successThreshold int) Settings {
	s := Settings{
		Name:             name,
		Interval:         defaultBreakerInterval,
		Timeout:          defaultBreakerTimeout,
		FailureThreshold: defaultFailures,
		SuccessThreshold: defaultHalfOpenCalls,
	}
	if intervalSeconds > 0 {
		s.Interval = time.Duration(intervalSeconds) * time.Second
	}
	if timeoutSeconds > 0 {
		s.Timeout = time.Duration(timeoutSeconds) * time.Second
	}
	if failureThreshold > 0 {
		s.FailureThreshold = uint32(failureThreshold)
	}
	if successThreshold > 0 {
		s.SuccessThreshold = uint32(successThreshold)
	}
	return s
}
