package errors

import "net/http"

type Code string

// Platform codes.
const (
	CodeValidation    Code = "VALIDATION_ERROR"
	CodeUnauthorized  Code = "UNAUTHORIZED"
	CodeForbidden     Code = "FORBIDDEN"
	CodeNotFound      Code = "NOT_FOUND"
	CodeConflict      Code = "CONFLICT"
	CodeStateConflict Code = "STATE_CONFLICT"
	CodeIdempotency   Code = "IDEMPOTENCY_KEY_REUSED"
	CodeRateLimit     Code = "RATE_LIMIT_EXCEEDED"
	CodeInternal      Code = "INTERNAL_ERROR"
	CodeDependency    Code = "DEPENDENCY_ERROR"
)

// Checkout and payment codes.
const (
	CodeInvalidSignature   Code = "INVALID_SIGNATURE"
	CodeInsufficientStock  Code = "INSUFFICIENT_STOCK"
	CodeProductUnavailable Code = "PRODUCT_UNAVAILABLE"
	CodeEmptyCart          Code = "EMPTY_CART"
	CodeInvalidAmount      Code = "INVALID_AMOUNT"
	CodeGateway            Code = "GATEWAY_ERROR"
)

// Metadata is how a code surfaces over HTTP. PublicMessage replaces the
// internal message in responses; Details are only echoed when DetailsAllowed.
type Metadata struct {
	HTTPStatus     int
	Retryable      bool
	PublicMessage  string
	DetailsAllowed bool
}

var metadataByCode = map[Code]Metadata{
	CodeValidation:    {http.StatusBadRequest, false, "validation failed", true},
	CodeUnauthorized:  {http.StatusUnauthorized, false, "authentication required", false},
	CodeForbidden:     {http.StatusForbidden, false, "access denied", false},
	CodeNotFound:      {http.StatusNotFound, false, "resource not found", false},
	CodeConflict:      {http.StatusConflict, false, "conflict detected", false},
	CodeStateConflict: {http.StatusUnprocessableEntity, false, "state transition disallowed", true},
	CodeIdempotency:   {http.StatusConflict, false, "idempotency key reused", true},
	CodeRateLimit:     {http.StatusTooManyRequests, false, "rate limit exceeded", false},
	CodeInternal:      {http.StatusInternalServerError, true, "internal server error", false},
	CodeDependency:    {http.StatusServiceUnavailable, true, "dependency unavailable", true},

	CodeInvalidSignature:   {http.StatusBadRequest, false, "signature verification failed", false},
	CodeInsufficientStock:  {http.StatusConflict, false, "insufficient stock", true},
	CodeProductUnavailable: {http.StatusConflict, false, "product unavailable", true},
	CodeEmptyCart:          {http.StatusUnprocessableEntity, false, "cart is empty", true},
	CodeInvalidAmount:      {http.StatusBadRequest, false, "invalid payment amount", true},
	CodeGateway:            {http.StatusBadGateway, true, "payment gateway unavailable, please try again", true},
}

// MetadataFor falls back to CodeInternal for codes it does not know.
func MetadataFor(code Code) Metadata {
	if meta, ok := metadataByCode[code]; ok {
		return meta
	}
	return metadataByCode[CodeInternal]
}
