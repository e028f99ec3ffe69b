package gate

import "errors"

// Sentinel errors surfaced to the HTTP boundary. Verification failures are
// deliberately uniform: an unresolvable hash, an unreachable node, a wrong
// recipient, and a short payment all look the same to the caller so the
// response leaks nothing about node state.
var (
	ErrAssetNotFound      = errors.New("asset not found")
	ErrVerificationFailed = errors.New("payment verification failed")
	ErrStorage            = errors.New("storage failure")
	ErrInvalidInput       = errors.New("invalid input")
)
