package server

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const (
	// 一局模拟的授权有效期
	SessionTTL = 30 * time.Minute

	tokenIssuer = "flashpoint-server"
)

var ErrInvalidToken = errors.New("invalid token")

// Claims 会话 Token 的声明
type Claims struct {
	GameID string `json:"game_id"`
	jwt.RegisteredClaims
}

// getSigningKey 从环境变量 FLASHPOINT_JWT_SECRET 读取签名密钥
func getSigningKey() []byte {
	secret := os.Getenv("FLASHPOINT_JWT_SECRET")
	if secret == "" {
		// 开发环境默认密钥
		secret = "flashpoint-dev-secret-change-in-production"
	}
	return []byte(secret)
}

// GenerateSessionToken 为一局模拟签发 Token
func GenerateSessionToken(gameID string) (string, error) {
	now := time.Now()
	claims := Claims{
		GameID: gameID,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    tokenIssuer,
			Subject:   "game-" + gameID,
			ExpiresAt: jwt.NewNumericDate(now.Add(SessionTTL)),
			IssuedAt:  jwt.NewNumericDate(now),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(getSigningKey())
}

// VerifySessionToken 验证 Token 并返回其中的 gameID
func VerifySessionToken(tokenString string) (string, error) {
	if tokenString == "" {
		return "", ErrInvalidToken
	}
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return getSigningKey(), nil
	}, jwt.WithIssuer(tokenIssuer))

	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}

	if claims, ok := token.Claims.(*Claims); ok && token.Valid {
		return claims.GameID, nil
	}
	return "", ErrInvalidToken
}
