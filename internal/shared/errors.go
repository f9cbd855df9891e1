package shared

import "fmt"

var (
	ErrNotImplemented = fmt.Errorf("not implemented")

	// Configuration errors
	ErrMissingConfig      = fmt.Errorf("configuration not found")
	ErrInvalidConfig      = fmt.Errorf("invalid configuration")
	ErrMissingCredentials = fmt.Errorf("missing credentials")

	// Authentication errors
	ErrAuthFailed     = fmt.Errorf("authentication failed")
	ErrTokenExpired   = fmt.Errorf("access token expired")
	ErrRefreshFailed  = fmt.Errorf("token refresh failed")
	ErrNoRefreshToken = fmt.Errorf("no refresh token available")
	ErrReauthRequired = fmt.Errorf("manual re-authorization required")
	ErrStateMismatch  = fmt.Errorf("oauth state mismatch")
	ErrTimeout        = fmt.Errorf("operation timed out")

	// API and service errors
	ErrTransient    = fmt.Errorf("transient service failure")
	ErrRejected     = fmt.Errorf("update rejected by service")
	ErrProtocol     = fmt.Errorf("protocol failure")
	ErrUnresolvable = fmt.Errorf("entry cannot be correlated")

	// Persistence errors
	ErrPersistence = fmt.Errorf("persistence failure")

	// Input validation errors
	ErrInvalidInput    = fmt.Errorf("invalid input")
	ErrMissingArgument = fmt.Errorf("missing required argument")
	ErrInvalidArgument = fmt.Errorf("invalid argument")
	ErrInvalidFlag     = fmt.Errorf("invalid flag value")
)
