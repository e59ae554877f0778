package utils

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"mailverify/config"
)

var ErrJWTSecretMissing = errors.New("jwt secret not configured")

type Claims struct {
	Role string `json:"role"`
	jwt.RegisteredClaims
}

// GenerateJWTToken issues an operator token. Deep verification only accepts
// tokens whose role is models.RoleAdmin.
func GenerateJWTToken(subject, role string, ttl time.Duration) (string, error) {
	secret := config.AppConfig.JWTSecret
	if secret == "" {
		return "", ErrJWTSecretMissing
	}

	now := time.Now()
	claims := &Claims{
		Role: role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject,
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			IssuedAt:  jwt.NewNumericDate(now),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(secret))
}

func ParseJWTToken(tokenString string) (*Claims, error) {
	secret := config.AppConfig.JWTSecret
	if secret == "" {
		return nil, ErrJWTSecretMissing
	}

	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return []byte(secret), nil
	})
	if err != nil {
		return nil, err
	}

	if claims, ok := token.Claims.(*Claims); ok && token.Valid {
		if claims.Subject == "" {
			return nil, errors.New("token has no subject")
		}
		return claims, nil
	}

	return nil, errors.New("invalid token")
}
