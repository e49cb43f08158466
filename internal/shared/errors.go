package shared

import "fmt"

var (
	ErrNotImplemented = fmt.Errorf("not implemented")

	// Configuration errors
	ErrMissingConfig      = fmt.Errorf("configuration not found")
	ErrInvalidConfig      = fmt.Errorf("invalid configuration")
	ErrMissingCredentials = fmt.Errorf("missing credentials")

	// Listener errors
	ErrTLSMaterial = fmt.Errorf("unable to load TLS certificate or key")
	ErrBind        = fmt.Errorf("unable to bind callback listener")

	// Authentication errors
	ErrAuthFailed     = fmt.Errorf("authentication failed")
	ErrInvalidState   = fmt.Errorf("invalid state parameter")
	ErrNoRefreshToken = fmt.Errorf("no refresh token available")
	ErrTimeout        = fmt.Errorf("operation timed out")

	// API and service errors
	ErrAPIRequest         = fmt.Errorf("API request failed")
	ErrServiceUnavailable = fmt.Errorf("service unavailable")
	ErrAssociation        = fmt.Errorf("association lookup failed")
	ErrTransaction        = fmt.Errorf("transaction rejected")
	ErrMissingRelation    = fmt.Errorf("company has no relation number")

	// Persistence errors
	ErrNotFound      = fmt.Errorf("record not found")
	ErrAlreadyExists = fmt.Errorf("record already exists")

	// Input validation errors
	ErrInvalidInput    = fmt.Errorf("invalid input")
	ErrMissingArgument = fmt.Errorf("missing required argument")
	ErrInvalidArgument = fmt.Errorf("invalid argument")
)
