package router

// GrantEstablished is delivered when a user grants (or re-grants) the
// assistant delegated access to their account.
type GrantEstablished struct {
	UserID      int64  `json:"user_id"`
	GrantHandle string `json:"grant_handle"`
	DisplayName string `json:"display_name,omitempty"`
	Handle      string `json:"handle,omitempty"`
}

// Command is an inbound text command from a user or the operator.
type Command struct {
	UserID int64  `json:"user_id"`
	Text   string `json:"text"`
}

// ButtonPressed is an inbound press of an interactive control.
// Payload has the form "action:arg1:arg2:...".
type ButtonPressed struct {
	UserID    int64  `json:"user_id"`
	MessageID int64  `json:"message_id"`
	Payload   string `json:"payload"`
}
