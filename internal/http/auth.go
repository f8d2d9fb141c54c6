package http

import (
	"fmt"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"

	"wookie-books/internal/apperror"
	"wookie-books/internal/domain"
)

const userIDContextKey = "auth_user_id"

// Claims is the JWT payload issued at login.
type Claims struct {
	UserID int64 `json:"user_id"`
	jwt.RegisteredClaims
}

func (h *Handler) issueToken(user *domain.User) (string, error) {
	now := time.Now()
	claims := Claims{
		UserID: user.ID,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   user.Username,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(h.tokenTTL)),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(h.jwtSecret)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}

// authRequired validates the bearer token and stores the caller's user id on
// the request context.
func (h *Handler) authRequired() gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if header == "" {
			h.writeError(c, apperror.NewAuthentication("authorization header is missing", nil))
			return
		}

		parts := strings.SplitN(header, " ", 2)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
			h.writeError(c, apperror.NewAuthentication("authorization header format must be Bearer {token}", nil))
			return
		}

		claims := &Claims{}
		token, err := jwt.ParseWithClaims(parts[1], claims, func(token *jwt.Token) (any, error) {
			if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
			}
			return h.jwtSecret, nil
		})
		if err != nil || !token.Valid {
			h.writeError(c, apperror.NewAuthentication("invalid or expired token", err))
			return
		}
		if claims.UserID == 0 {
			h.writeError(c, apperror.NewAuthentication("invalid token: user_id claim is missing", nil))
			return
		}

		c.Set(userIDContextKey, claims.UserID)
		c.Next()
	}
}

// currentUserID returns the authenticated caller's id set by authRequired.
func currentUserID(c *gin.Context) (int64, bool) {
	id, ok := c.Get(userIDContextKey)
	if !ok {
		return 0, false
	}
	userID, ok := id.(int64)
	return userID, ok
}
