package models

// RoleAdmin grants access to back-office order routes
const RoleAdmin = "admin"

// TokenPayload is authorization token content
type TokenPayload struct {
	UserID string
	Role   string
}
