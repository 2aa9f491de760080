package model

import "errors"

// Error taxonomy shared by the workflows, the HTTP layer and the client.
// Workflow code wraps these with fmt.Errorf("...: %w", ...) so callers can
// match them with errors.Is.
var (
	ErrExpiredCredential         = errors.New("credential expired")
	ErrInvalidCredential         = errors.New("credential invalid")
	ErrForbidden                 = errors.New("forbidden")
	ErrNotFound                  = errors.New("not found")
	ErrAlreadyDecided            = errors.New("already decided")
	ErrInvalidTransition         = errors.New("invalid transition")
	ErrInvalidReservationRequest = errors.New("invalid reservation request")
	ErrInvalidMenuItem           = errors.New("invalid menu item")
	ErrUserNotFound              = errors.New("user not found")
	ErrNetwork                   = errors.New("network error")

	ErrUnauthorized       = errors.New("unauthorized")
	ErrEmailExists        = errors.New("email already exists")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrInvalidInput       = errors.New("invalid input")
)

var codes = []struct {
	err  error
	code string
}{
	{ErrExpiredCredential, "expired_credential"},
	{ErrInvalidCredential, "invalid_credential"},
	{ErrForbidden, "forbidden"},
	{ErrUserNotFound, "user_not_found"},
	{ErrNotFound, "not_found"},
	{ErrAlreadyDecided, "already_decided"},
	{ErrInvalidTransition, "invalid_transition"},
	{ErrInvalidReservationRequest, "invalid_reservation_request"},
	{ErrInvalidMenuItem, "invalid_menu_item"},
	{ErrNetwork, "network_error"},
	{ErrUnauthorized, "unauthorized"},
	{ErrEmailExists, "email_exists"},
	{ErrInvalidCredentials, "invalid_credentials"},
	{ErrInvalidInput, "invalid_input"},
}

// Code returns the wire code of the first taxonomy error found in err's
// chain, or "internal_error".
func Code(err error) string {
	for _, c := range codes {
		if errors.Is(err, c.err) {
			return c.code
		}
	}
	return "internal_error"
}

// FromCode is the inverse of Code. Unknown codes return nil.
func FromCode(code string) error {
	for _, c := range codes {
		if c.code == code {
			return c.err
		}
	}
	return nil
}
