// Package auth validates access tokens issued by the hosted auth service
package auth

import (
	"fmt"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/japanesestudent/learnplayer/internal/models"
)

// TokenValidator validates HS256 access tokens and extracts the learner they were issued for
type TokenValidator struct {
	secret string
}

// NewTokenValidator creates a new token validator
func NewTokenValidator(secret string) *TokenValidator {
	return &TokenValidator{
		secret: secret,
	}
}

// ValidateAccessToken validates an access token and returns the learner.
//
// The learner ID is read from the "sub" claim and must be a UUID.
// The "email" claim is optional.
func (v *TokenValidator) ValidateAccessToken(tokenString string) (models.Learner, error) {
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (any, error) {
		// Validate the signing method
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return []byte(v.secret), nil
	}, jwt.WithExpirationRequired())

	if err != nil {
		return models.Learner{}, fmt.Errorf("failed to parse token: %w", err)
	}

	if !token.Valid {
		return models.Learner{}, fmt.Errorf("token is invalid")
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return models.Learner{}, fmt.Errorf("invalid token claims")
	}

	sub, err := claims.GetSubject()
	if err != nil || sub == "" {
		return models.Learner{}, fmt.Errorf("sub not found in token")
	}
	id, err := uuid.Parse(sub)
	if err != nil {
		return models.Learner{}, fmt.Errorf("invalid sub in token: %w", err)
	}

	email, _ := claims["email"].(string)

	return models.Learner{ID: id, Email: email}, nil
}
