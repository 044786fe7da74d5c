package middleware

import (
	"errors"
	"lesson-booking/internal/model"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
)

const callerKey = "caller"

// Claims access token 內容：sub 為 user id
type Claims struct {
	Role string `json:"role"`
	jwt.RegisteredClaims
}

// Auth 驗證 HS256 bearer token，把呼叫者放進 gin context
func Auth(secret string) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if !strings.HasPrefix(header, "Bearer ") {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing bearer token"})
			return
		}

		caller, err := ParseToken(secret, strings.TrimPrefix(header, "Bearer "))
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
			return
		}

		SetCaller(c, caller)
		c.Next()
	}
}

func ParseToken(secret string, raw string) (model.Caller, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(raw, claims, func(t *jwt.Token) (interface{}, error) {
		return []byte(secret), nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		return model.Caller{}, err
	}
	if !token.Valid {
		return model.Caller{}, errors.New("token is not valid")
	}

	userID, err := strconv.Atoi(claims.Subject)
	if err != nil || userID <= 0 {
		return model.Caller{}, errors.New("invalid subject")
	}
	role := model.Role(claims.Role)
	if !role.IsValid() {
		return model.Caller{}, errors.New("invalid role")
	}

	return model.Caller{UserID: userID, Role: role}, nil
}

// RequireRole 角色不符直接回 403
func RequireRole(roles ...model.Role) gin.HandlerFunc {
	allowed := make(map[model.Role]bool, len(roles))
	for _, r := range roles {
		allowed[r] = true
	}

	return func(c *gin.Context) {
		caller, ok := CallerFrom(c)
		if !ok || !allowed[caller.Role] {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "Forbidden"})
			return
		}
		c.Next()
	}
}

func SetCaller(c *gin.Context, caller model.Caller) {
	c.Set(callerKey, caller)
}

func CallerFrom(c *gin.Context) (model.Caller, bool) {
	v, ok := c.Get(callerKey)
	if !ok {
		return model.Caller{}, false
	}
	caller, ok := v.(model.Caller)
	return caller, ok
}
