package constants

// Error messages used in API responses.
// These are the human-readable messages returned in the "message" field.
const (
	// Common messages
	MsgInvalidRequestBody = "Invalid request body"
	MsgInternalError      = "An internal error occurred"
	MsgUnauthorized       = "Unauthorized"
	MsgUnavailable        = "Storage is not reachable"

	// Link-specific messages
	MsgBlankURL        = "url must not be blank"
	MsgMalformedURL    = "url could not be parsed"
	MsgInvalidOwner    = "owner requires both type and id"
	MsgLinkNotFound    = "Link not found"
	MsgLinkExpired     = "Link expired"
	MsgKeyAssignFailed = "Could not assign a unique key, try again"
)
