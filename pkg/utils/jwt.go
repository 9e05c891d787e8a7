package utils

import (
	"errors"
	"log/slog"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const (
	issuer            = "redditflow"
	purposeSession    = "session"
	purposeOAuthState = "oauth_state"
)

var ErrInvalidToken = errors.New("invalid token")

type Claims struct {
	UserID  string `json:"user_id"`
	Purpose string `json:"purpose"`
	jwt.RegisteredClaims
}

// GenerateToken signs a session token for the user.
func GenerateToken(secretKey, userID string, tokenDuration time.Duration) (string, error) {
	return sign(secretKey, userID, purposeSession, tokenDuration)
}

// GenerateStateToken signs the state parameter of an account connection
// flow so the callback can recover which user started it.
func GenerateStateToken(secretKey, userID string, tokenDuration time.Duration) (string, error) {
	return sign(secretKey, userID, purposeOAuthState, tokenDuration)
}

func ValidateToken(secretKey, tokenString string) (*Claims, error) {
	return validate(secretKey, tokenString, purposeSession)
}

func ValidateStateToken(secretKey, tokenString string) (*Claims, error) {
	return validate(secretKey, tokenString, purposeOAuthState)
}

func sign(secretKey, userID, purpose string, d time.Duration) (string, error) {
	nonce, err := GenerateRandomKey(12)
	if err != nil {
		return "", err
	}
	now := time.Now()
	claims := Claims{
		UserID:  userID,
		Purpose: purpose,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        nonce,
			ExpiresAt: jwt.NewNumericDate(now.Add(d)),
			IssuedAt:  jwt.NewNumericDate(now),
			Issuer:    issuer,
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secretKey))
	if err != nil {
		slog.Info(err.Error())
		return "", err
	}
	return signed, nil
}

func validate(secretKey, tokenString, purpose string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("invalid token signing method")
		}
		return []byte(secretKey), nil
	}, jwt.WithIssuer(issuer))
	if err != nil {
		slog.Info(err.Error())
		return nil, err
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid || claims.Purpose != purpose || claims.UserID == "" {
		return nil, ErrInvalidToken
	}
	return claims, nil
}
