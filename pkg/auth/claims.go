package auth

import (
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/sayyara-app/sayyara-backend/pkg/enums"
)

// AccessTokenClaims carries the identity facts the engine needs: who the
// caller is, their role, and (for dealer users) which dealer they act for.
// Identity management itself lives with the external provider.
type AccessTokenClaims struct {
	UserID   uuid.UUID      `json:"uid"`
	Role     enums.UserType `json:"role"`
	DealerID *uuid.UUID     `json:"dealer_id,omitempty"`
	jwt.RegisteredClaims
}

// AccessTokenPayload is the input to MintAccessToken.
type AccessTokenPayload struct {
	UserID   uuid.UUID
	Role     enums.UserType
	DealerID *uuid.UUID
	JTI      string
}
