// Package middleware provides HTTP middleware for authentication and
// request logging.
package middleware

import "errors"

var (
	errMissingToken = errors.New("missing authorization token")
	errInvalidToken = errors.New("invalid authorization token")
)
