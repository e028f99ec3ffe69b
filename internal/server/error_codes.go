package server

const (
	// Validation (1xxx)
	ErrCodeInvalidArgument = 1000
	ErrCodeInvalidJSON     = 1001
	ErrCodeRequestTooLarge = 1002
	ErrCodeInvalidID       = 1003
	ErrCodeMissingRequired = 1004
	ErrCodeInvalidPrice    = 1005
	ErrCodeInvalidWallet   = 1006

	// Domain state (2xxx)
	ErrCodeAssetNotFound      = 2001
	ErrCodePaymentRequired    = 2101
	ErrCodeVerificationFailed = 2102

	// Auth & limits (3xxx)
	ErrCodeUnauthorized = 3001
	ErrCodeForbidden    = 3002

	// Internal/system (4xxx)
	ErrCodeInternal     = 4001
	ErrCodeStoreFailure = 4002
	ErrCodeUploadFailed = 4003
)

func defaultErrorCodeByStatus(status int) int {
	switch status {
	case 400:
		return ErrCodeInvalidArgument
	case 401:
		return ErrCodeUnauthorized
	case 402:
		return ErrCodePaymentRequired
	case 403:
		return ErrCodeForbidden
	case 404:
		return ErrCodeAssetNotFound
	case 500:
		return ErrCodeInternal
	default:
		return 0
	}
}
