package token

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v4"
)

// Claims токена: стандартные поля + код пользователя
type Claims struct {
	jwt.RegisteredClaims
	UserCode string
}

const tokenExp = time.Hour * 24

var ErrInvalidToken = errors.New("invalid token")

// BuildJWTString создает подписанный токен для пользователя
func BuildJWTString(userCode string, secret string) (string, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(tokenExp)),
		},
		UserCode: userCode,
	})

	return token.SignedString([]byte(secret))
}

// GetUserCode проверяет токен и возвращает код пользователя
func GetUserCode(tokenString string, secret string) (string, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims,
		func(t *jwt.Token) (interface{}, error) {
			if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, ErrInvalidToken
			}
			return []byte(secret), nil
		})
	if err != nil {
		return "", err
	}
	if !token.Valid {
		return "", ErrInvalidToken
	}

	return claims.UserCode, nil
}
