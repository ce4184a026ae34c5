package domain

// RegisterRequest represents a registration request.
type RegisterRequest struct {
	Username string `json:"username" binding:"required,min=3,max=50"`
	Password string `json:"password" binding:"required,min=6"`
}

// LoginRequest represents a login request.
type LoginRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// MessageRequest represents a send-message request. The author is taken
// from the session token, never from the request body.
type MessageRequest struct {
	RoomID  string `json:"roomId" binding:"required"`
	Content string `json:"content" binding:"required"`
}

// LoginResponse carries a freshly issued session token.
type LoginResponse struct {
	Token    string `json:"token"`
	Username string `json:"username"`
}
