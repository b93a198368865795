package dto

// RegisterRequest creates a new account from an email and password.
type RegisterRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// LoginRequest authenticates an existing account.
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// AuthResponse carries the signed bearer token for subsequent API calls.
type AuthResponse struct {
	Token string `json:"token"`
	Email string `json:"email"`
}
