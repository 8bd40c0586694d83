package services

import (
	"net/http"
	"time"
)

// Outcome classifies a response for retry purposes.
type Outcome int

const (
	OutcomeOK Outcome = iota
	OutcomeAuthExpired
	OutcomeThrottled
	OutcomeFatal
	OutcomeTransient
)

func (o Outcome) String() string {
	switch o {
	case OutcomeOK:
		return "ok"
	case OutcomeAuthExpired:
		return "auth_expired"
	case OutcomeThrottled:
		return "throttled"
	case OutcomeFatal:
		return "fatal"
	case OutcomeTransient:
		return "transient"
	default:
		return "unknown"
	}
}

// Classify maps an HTTP status code to an [Outcome].
func Classify(status int) Outcome {
	switch {
	case status >= 200 && status < 300:
		return OutcomeOK
	case status == http.StatusUnauthorized:
		return OutcomeAuthExpired
	case status == http.StatusTooManyRequests:
		return OutcomeThrottled
	case status >= 500:
		return OutcomeTransient
	default:
		return OutcomeFatal
	}
}

// Backoff returns the delay before retry attempt (zero-based): base*2^attempt.
func Backoff(base time.Duration, attempt int) time.Duration {
	if attempt < 0 {
		attempt = 0
	}
	return base << attempt
}
