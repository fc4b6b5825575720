package dto

// LoginRequest is the body of POST /auth/login. Field names follow the wire
// protocol the mobile client speaks.
type LoginRequest struct {
	Email string `json:"email" binding:"required,email"`
	Senha string `json:"senha" binding:"required"`
}

// UserInfo is the user block returned by login and profile endpoints.
type UserInfo struct {
	ID        uint   `json:"id"`
	Nome      string `json:"nome"`
	Email     string `json:"email"`
	EmpresaID uint   `json:"empresa_id"`
}

// LoginResponse is the body returned by a successful login.
type LoginResponse struct {
	Token string   `json:"token"`
	User  UserInfo `json:"user"`
}
