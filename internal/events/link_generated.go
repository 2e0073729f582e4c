package events

// LinkGenerated is emitted after the API hands out a short key, whether the
// link was created or reused.
type LinkGenerated struct {
	EventID    string  `json:"eventId"`
	Key        string  `json:"key"`
	URL        string  `json:"url"`
	OwnerType  string  `json:"ownerType,omitempty"`
	OwnerID    string  `json:"ownerId,omitempty"`
	ExpiresAt  *string `json:"expiresAt,omitempty"`
	OccurredAt string  `json:"occurredAt"`
}
