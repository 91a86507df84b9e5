package model

import "github.com/golang-jwt/jwt/v5"

// AdminClaims are JWT claims for administrative bearer tokens
type AdminClaims struct {
	AdminID string `json:"adminId"`
	jwt.RegisteredClaims
}

// LoginRequest is the request body for admin login
type LoginRequest struct {
	Password string `json:"password"`
}

// LoginResponse is returned after successful login
type LoginResponse struct {
	Token     string `json:"token"`
	ExpiresAt int64  `json:"expiresAt"`
}

// AdminRequest is the body of create-room and delete-room
type AdminRequest struct {
	Password string `json:"password"`
	RoomID   string `json:"roomId,omitempty"`
}
