package constants

// Error codes used in API responses.
// These are the machine-readable codes returned in the "error" field.
const (
	// Common error codes
	CodeInvalidRequest = "INVALID_REQUEST"
	CodeInternalError  = "INTERNAL_ERROR"
	CodeNotFound       = "NOT_FOUND"
	CodeUnauthorized   = "UNAUTHORIZED"
	CodeUnavailable    = "UNAVAILABLE"

	// Link-specific codes
	CodeInvalidURL        = "INVALID_URL"
	CodeInvalidOwner      = "INVALID_OWNER"
	CodeLinkExpired       = "LINK_EXPIRED"
	CodeLinkNotFound      = "LINK_NOT_FOUND"
	CodeKeySpaceExhausted = "KEY_ASSIGNMENT_FAILED"

	// Success codes
	CodeLinkIssued  = "LINK_ISSUED"
	CodeLinksListed = "LINKS_LISTED"
)
