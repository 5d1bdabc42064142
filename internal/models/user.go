package models

import (
	"time"

	"github.com/golang-jwt/jwt/v4"
)

// User is the directory entry the email channel resolves addresses from
type User struct {
	ID          string    `json:"id" gorm:"primaryKey;size:64"`
	Name        string    `json:"name"`
	Email       string    `json:"email" gorm:"size:255;index"`
	FirebaseUID string    `json:"firebase_uid,omitempty" gorm:"size:128;index"` // Link to Firebase User UID
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// JwtCustomClaims are custom claims extending standard jwt.RegisteredClaims
type JwtCustomClaims struct {
	UserID string `json:"user_id"`
	Email  string `json:"email"`
	jwt.RegisteredClaims
}
