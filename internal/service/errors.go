package service

import "errors"

// Boundary error taxonomy. Each maps to exactly one rejection response; the
// finer-grained cause (expired vs revoked vs unknown) stays in audit logging
// so the client cannot use it as a side channel.
var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrAccountLocked      = errors.New("account temporarily locked")
	ErrSessionInvalid     = errors.New("session invalid")
	ErrResetTokenInvalid  = errors.New("reset token invalid")

	// ErrRevokeCurrentSession is a policy rejection, not a security boundary:
	// terminating the authenticating session goes through logout.
	ErrRevokeCurrentSession = errors.New("cannot revoke the current session")
)
