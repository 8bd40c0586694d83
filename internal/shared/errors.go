package shared

import "fmt"

var (
	// Configuration errors
	ErrMissingConfig      = fmt.Errorf("configuration not found")
	ErrInvalidConfig      = fmt.Errorf("invalid configuration")
	ErrMissingCredentials = fmt.Errorf("missing credentials")

	// Authentication errors
	ErrCredentialMissing = fmt.Errorf("credential missing")
	ErrRefreshFailed     = fmt.Errorf("token refresh failed")
	ErrAuthFailed        = fmt.Errorf("authentication failed")
	ErrSessionMismatch   = fmt.Errorf("pending session mismatch")
	ErrTimeout           = fmt.Errorf("operation timed out")

	// API and service errors
	ErrAPIRequest    = fmt.Errorf("API request failed")
	ErrRateLimited   = fmt.Errorf("rate limited")
	ErrUnavailable   = fmt.Errorf("service unavailable")
	ErrTrackNotFound = fmt.Errorf("track not found")

	// Answer errors
	ErrTrackNotEligible   = fmt.Errorf("track not eligible")
	ErrDuplicateQuestion  = fmt.Errorf("question already assigned to another slot")
	ErrNoQuestionAssigned = fmt.Errorf("no question assigned")
	ErrStoreWriteFailed   = fmt.Errorf("store write failed")
	ErrPermanentSlot      = fmt.Errorf("slot is permanent")
	ErrSlotNotFound       = fmt.Errorf("slot not found")
	ErrSlotBusy           = fmt.Errorf("slot operation in progress")
	ErrSessionClosed      = fmt.Errorf("session closed")

	// Input validation errors
	ErrInvalidInput    = fmt.Errorf("invalid input")
	ErrMissingArgument = fmt.Errorf("missing required argument")
	ErrInvalidArgument = fmt.Errorf("invalid argument")
)
