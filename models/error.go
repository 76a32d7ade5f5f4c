package models

import (
	"errors"
	"net/http"
)

// StatusClientClosedRequest is the de facto status for requests whose client
// went away before a response could be written.
const StatusClientClosedRequest = 499

var (
	ErrRulesMissingPattern = err{
		code:  http.StatusBadRequest,
		error: errors.New("Missing rule pattern"),
	}
	ErrRulesInvalidPattern = err{
		code:  http.StatusBadRequest,
		error: errors.New("Rule pattern must begin with '/'"),
	}
	ErrRulesMissingEndpoint = err{
		code:  http.StatusBadRequest,
		error: errors.New("Missing endpoint for rule"),
	}
	ErrRulesMissingViewFunc = err{
		code:  http.StatusBadRequest,
		error: errors.New("Missing view function"),
	}
	ErrRulesInvalidMethod = err{
		code:  http.StatusBadRequest,
		error: errors.New("Invalid HTTP method on rule"),
	}
	ErrRulesExists = err{
		code:  http.StatusConflict,
		error: errors.New("Rule already registered for this path and method"),
	}
	ErrEndpointExists = err{
		code:  http.StatusConflict,
		error: errors.New("View function mapping is overwriting an existing endpoint"),
	}
	ErrEndpointNotFound = err{
		code:  http.StatusNotFound,
		error: errors.New("Endpoint not found"),
	}
	ErrHostMatchingDisabled = err{
		code:  http.StatusBadRequest,
		error: errors.New("Rule has a host but host matching is not enabled on this application"),
	}
	ErrSubdomainMatchingDisabled = err{
		code:  http.StatusBadRequest,
		error: errors.New("Rule has a subdomain but subdomain matching is not enabled on this application"),
	}
	ErrServerNameRequired = err{
		code:  http.StatusBadRequest,
		error: errors.New("Subdomain matching requires SERVER_NAME to be configured"),
	}
	ErrAppFrozen = err{
		code:  http.StatusConflict,
		error: errors.New("Cannot register rules on a running application"),
	}
	ErrStaticHostMismatch = err{
		code:  http.StatusBadRequest,
		error: errors.New("Invalid static_host/host_matching combination"),
	}
	ErrInstancePathRelative = err{
		code:  http.StatusBadRequest,
		error: errors.New("Instance path must be absolute"),
	}
	ErrResourceNotFound = err{
		code:  http.StatusNotFound,
		error: errors.New("Resource not found"),
	}
	ErrResourceEscapesRoot = err{
		code:  http.StatusBadRequest,
		error: errors.New("Resource path escapes the application root"),
	}
	ErrMissingSecretKey = err{
		code:  http.StatusInternalServerError,
		error: errors.New("The session is unavailable because no secret key was set"),
	}
	ErrPathNotFound = err{
		code:  http.StatusNotFound,
		error: errors.New("Path not found"),
	}
	ErrMethodNotAllowed = err{
		code:  http.StatusMethodNotAllowed,
		error: errors.New("Method not allowed"),
	}
	ErrHostNotAllowed = err{
		code:  http.StatusNotFound,
		error: errors.New("Rule is not bound for this host"),
	}
	ErrClientCancel = err{
		code:  StatusClientClosedRequest,
		error: errors.New("Client cancelled request"),
	}
	ErrTooManyRequests = err{
		code:  http.StatusTooManyRequests,
		error: errors.New("Too many requests submitted"),
	}
	ErrSessionExpired = err{
		code:  http.StatusUnauthorized,
		error: errors.New("Session has expired"),
	}
	ErrSessionInvalid = err{
		code:  http.StatusUnauthorized,
		error: errors.New("Session cookie is not valid"),
	}
)

// any error that implements this interface will return an API response
// with the provided status code and error message body
type APIError interface {
	Code() int
	error
}

type err struct {
	code int
	error
}

func (e err) Code() int { return e.code }

func NewAPIError(code int, e error) APIError { return err{code, e} }

// uniform error output
type Error struct {
	Message string `json:"message"`
}
