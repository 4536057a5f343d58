package errors

// ErrorCode represents a machine-readable error identifier for frontend error handling.
type ErrorCode string

// Validation Errors (request input validation)
const (
	ErrCodeMissingField       ErrorCode = "missing_field"
	ErrCodeInvalidField       ErrorCode = "invalid_field"
	ErrCodeEmptyCart          ErrorCode = "empty_cart"
	ErrCodeInvalidCartItem    ErrorCode = "invalid_cart_item"
	ErrCodeInvalidQuantity    ErrorCode = "invalid_quantity"
	ErrCodeIdempotencyKeyLong ErrorCode = "idempotency_key_too_long"
	ErrCodeInvalidUserID      ErrorCode = "invalid_user_id"
	ErrCodeInvalidSession     ErrorCode = "invalid_session"
)

// Resource/State Errors
const (
	ErrCodeProductUnavailable ErrorCode = "product_unavailable"
	ErrCodeInvalidPrice       ErrorCode = "invalid_product_price"
	ErrCodeSessionNotFound    ErrorCode = "session_not_found"
	ErrCodeOrderNotFound      ErrorCode = "order_not_found"
)

// Authentication/Authorization Errors
const (
	ErrCodeInvalidCredential ErrorCode = "invalid_credential"
	ErrCodeSessionNotLinked  ErrorCode = "session_not_linked"
)

// Webhook Errors
const (
	ErrCodeInvalidSignature ErrorCode = "invalid_signature"
)

// External Service Errors (Stripe, catalog, identity, storage)
const (
	ErrCodeUpstreamError ErrorCode = "upstream_error"
	ErrCodeStripeError   ErrorCode = "stripe_error"
	ErrCodeUnavailable   ErrorCode = "temporarily_unavailable"
)

// Internal/System Errors
const (
	ErrCodeInternalError ErrorCode = "internal_error"
	ErrCodeDatabaseError ErrorCode = "database_error"
	ErrCodeConfigError   ErrorCode = "config_error"
)

// IsRetryable returns whether an error code represents a retryable error.
// Retryable errors are transient network/service issues, never validation failures.
func (e ErrorCode) IsRetryable() bool {
	switch e {
	case ErrCodeUnavailable:
		return true
	default:
		return false
	}
}

// HTTPStatus returns the default HTTP status code for this error code.
// Errors carrying an upstream status override this via Error.Status.
func (e ErrorCode) HTTPStatus() int {
	switch e {
	// 400 Bad Request - client validation errors, webhook signature failures
	case ErrCodeMissingField,
		ErrCodeInvalidField,
		ErrCodeEmptyCart,
		ErrCodeInvalidCartItem,
		ErrCodeInvalidQuantity,
		ErrCodeIdempotencyKeyLong,
		ErrCodeInvalidUserID,
		ErrCodeInvalidSession,
		ErrCodeInvalidSignature:
		return 400

	// 401 Unauthorized - bad/expired credential
	case ErrCodeInvalidCredential:
		return 401

	// 403 Forbidden - session/user mismatch
	case ErrCodeSessionNotLinked:
		return 403

	// 404 Not Found
	case ErrCodeSessionNotFound,
		ErrCodeOrderNotFound:
		return 404

	// 422 Unprocessable - catalog resolution failures
	case ErrCodeProductUnavailable,
		ErrCodeInvalidPrice:
		return 422

	// 502 Bad Gateway - external dependency returned a structured error
	case ErrCodeUpstreamError,
		ErrCodeStripeError:
		return 502

	// 503 Service Unavailable - safe for the caller to retry
	case ErrCodeUnavailable:
		return 503

	// 500 Internal Server Error - config/system errors
	default:
		return 500
	}
}
