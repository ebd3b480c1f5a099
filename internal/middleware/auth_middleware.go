package middleware

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/heterodox-labs/funding-service/pkg/logger"
	"github.com/heterodox-labs/funding-service/pkg/res"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
)

// ContextKey тип для ключей контекста во избежание коллизий.
type ContextKey string

const (
	// ContextUserIDKey ключ для хранения ID пользователя в контексте Gin.
	// Идентичность выводится из проверенного токена на сервере, а не из
	// клиентского заголовка.
	ContextUserIDKey ContextKey = "userID"

	// ContextUserEmailKey ключ для email пользователя из клеймов токена.
	ContextUserEmailKey ContextKey = "userEmail"

	authHeaderPrefix = "Bearer "
)

// TokenValidator проверяет строку токена и возвращает клеймы.
type TokenValidator interface {
	Validate(tokenString string) (*TokenClaims, error)
}

// TokenClaims клеймы токена сессии.
type TokenClaims struct {
	UserEmail string `json:"email"`
	jwt.RegisteredClaims
}

// JWTMiddleware проверяет токен сессии и кладет ID участника в контекст.
type JWTMiddleware struct {
	log       *logger.Logger
	validator TokenValidator
}

// NewJWTMiddleware создает middleware аутентификации.
func NewJWTMiddleware(log *logger.Logger, validator TokenValidator) *JWTMiddleware {
	return &JWTMiddleware{
		log:       log,
		validator: validator,
	}
}

// RequireAuth возвращает gin.HandlerFunc, требующий валидный токен.
func (m *JWTMiddleware) RequireAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			m.handleAuthError(c, "Missing authorization token")
			return
		}

		tokenString := strings.TrimPrefix(authHeader, authHeaderPrefix)
		claims, err := m.validator.Validate(tokenString)
		if err != nil {
			m.handleAuthError(c, fmt.Sprintf("Token validation failed: %v", err))
			return
		}

		userID := claims.Subject
		if userID == "" {
			m.handleAuthError(c, "User ID (sub) missing in token")
			return
		}

		c.Set(string(ContextUserIDKey), userID)
		c.Set(string(ContextUserEmailKey), claims.UserEmail)
		m.log.Debugw("User authenticated", "userID", userID, "path", c.Request.URL.Path)
		c.Next()
	}
}

func (m *JWTMiddleware) handleAuthError(c *gin.Context, message string) {
	m.log.Warnw("Authentication failed", "path", c.Request.URL.Path, "error", message)
	res.JsonResponse(c.Writer, res.ErrorResponse{
		Error:     message,
		ErrorCode: http.StatusUnauthorized,
	}, http.StatusUnauthorized)
	c.Abort()
}

// UserID возвращает ID аутентифицированного участника из контекста Gin.
func UserID(c *gin.Context) (string, bool) {
	v, ok := c.Get(string(ContextUserIDKey))
	if !ok {
		return "", false
	}
	userID, ok := v.(string)
	return userID, ok && userID != ""
}

// DefaultTokenValidator - реализация валидатора HMAC-токенов по умолчанию.
type DefaultTokenValidator struct {
	Secret []byte
}

// Validate разбирает и проверяет токен, возвращая клеймы.
func (v *DefaultTokenValidator) Validate(tokenString string) (*TokenClaims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &TokenClaims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return v.Secret, nil
	})

	if err != nil {
		switch {
		case errors.Is(err, jwt.ErrTokenMalformed):
			return nil, errors.New("malformed token")
		case errors.Is(err, jwt.ErrTokenSignatureInvalid):
			return nil, errors.New("invalid token signature")
		case errors.Is(err, jwt.ErrTokenExpired), errors.Is(err, jwt.ErrTokenNotValidYet):
			return nil, errors.New("token expired")
		default:
			return nil, fmt.Errorf("invalid token: %w", err)
		}
	}

	if claims, ok := token.Claims.(*TokenClaims); ok && token.Valid {
		return claims, nil
	}

	return nil, errors.New("invalid token claims")
}
