package utils

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const (
	accessAudience = "managenow-api"
	stateAudience  = "managenow-bank-connect"
	StateTTL       = 15 * time.Minute
)

var ErrInvalidToken = errors.New("invalid or expired token")

// AccessClaims bind a bearer token to a server-side session.
type AccessClaims struct {
	UserID    string `json:"uid"`
	SessionID string `json:"sid"`
	jwt.RegisteredClaims
}

// StateClaims travel through the aggregator redirect and identify who
// started a bank connection.
type StateClaims struct {
	UserID          string `json:"uid"`
	Provider        string `json:"provider"`
	InstitutionID   string `json:"institution_id"`
	InstitutionName string `json:"institution_name,omitempty"`
	jwt.RegisteredClaims
}

func GenerateAccessToken(secret, userID, sessionToken string, expiresAt time.Time) (string, error) {
	claims := AccessClaims{
		UserID:    userID,
		SessionID: sessionToken,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			Audience:  jwt.ClaimStrings{accessAudience},
			IssuedAt:  jwt.NewNumericDate(time.Now()),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
	}
	return sign(secret, claims)
}

func ParseAccessToken(secret, token string) (*AccessClaims, error) {
	claims := &AccessClaims{}
	if err := parse(secret, token, accessAudience, claims); err != nil {
		return nil, err
	}
	if claims.SessionID == "" {
		return nil, ErrInvalidToken
	}
	return claims, nil
}

func GenerateStateToken(secret string, state StateClaims) (string, error) {
	now := time.Now()
	state.RegisteredClaims = jwt.RegisteredClaims{
		Subject:   state.UserID,
		Audience:  jwt.ClaimStrings{stateAudience},
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(StateTTL)),
	}
	return sign(secret, state)
}

func ParseStateToken(secret, token string) (*StateClaims, error) {
	claims := &StateClaims{}
	if err := parse(secret, token, stateAudience, claims); err != nil {
		return nil, err
	}
	if claims.UserID == "" || claims.Provider == "" {
		return nil, ErrInvalidToken
	}
	return claims, nil
}

func sign(secret string, claims jwt.Claims) (string, error) {
	if secret == "" {
		return "", errors.New("jwt secret is not configured")
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
}

func parse(secret, token, audience string, claims jwt.Claims) error {
	_, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return []byte(secret), nil
	}, jwt.WithAudience(audience), jwt.WithExpirationRequired())
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	return nil
}
