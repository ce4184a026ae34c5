package domain

// DocTypeMessage tags message records in the ledger state.
const DocTypeMessage = "message"

// Message is a room-scoped chat message as stored on the ledger. The
// timestamp is assigned by the ledger ordering clock, never by clients,
// and together with the room forms the record's composite key.
type Message struct {
	DocType   string `json:"docType"`
	RoomID    string `json:"roomId"`
	UserID    string `json:"userId"`
	Content   string `json:"content"`
	Timestamp string `json:"timestamp"`
}
