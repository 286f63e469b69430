package auth

import "errors"

// Sentinel errors returned by token validation. The API layer matches on
// these to choose the client-facing message.
var (
	// ErrInvalidToken covers malformed tokens and bad signatures.
	ErrInvalidToken = errors.New("invalid authentication token")

	// ErrExpiredToken means the token's exp claim is in the past.
	ErrExpiredToken = errors.New("authentication token has expired")

	// ErrTokenNotYetValid means the nbf claim is in the future.
	ErrTokenNotYetValid = errors.New("authentication token not yet valid")

	// ErrMissingToken means a token was expected but absent.
	ErrMissingToken = errors.New("authentication token is missing")

	// ErrInvalidRefreshToken covers malformed refresh tokens and bad signatures.
	ErrInvalidRefreshToken = errors.New("invalid refresh token")

	// ErrExpiredRefreshToken means the refresh token's exp claim is in the past.
	ErrExpiredRefreshToken = errors.New("refresh token has expired")

	// ErrWrongTokenType means a token was presented in the wrong role,
	// such as a refresh token sent where an access token belongs.
	ErrWrongTokenType = errors.New("wrong token type")
)
