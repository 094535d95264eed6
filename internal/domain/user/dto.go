package user

import "time"

// BaseRequest - тело POST /register и POST /login.
type BaseRequest struct {
	Login    string `json:"login" minLength:"3" maxLength:"32"`
	Password string `json:"password" minLength:"1"`
}

type RegisterResponse struct {
	ID int64 `json:"user_id"`
}

type LoginResponse struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
}
