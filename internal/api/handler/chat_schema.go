package handler

// chatRequest is the single inbound payload of the natural-language surface.
// UserID is optional for client accounts (the token's binding is used) and
// required for admins acting on a user's behalf.
type chatRequest struct {
	Text   string `json:"text"    validate:"required"`
	UserID string `json:"user_id"`
}

// chatResponse pairs the rendered natural-language reply with the structured
// result it was generated from.
type chatResponse struct {
	Text           string `json:"text"`
	StructuredData any    `json:"structured_data"`
}
