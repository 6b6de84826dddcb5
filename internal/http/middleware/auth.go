package middleware

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"plate-service/internal/auth"
	"plate-service/internal/model"
)

const (
	claimsContextKey    = "tokenClaims"
	principalContextKey = "principal"
	authorizationHeader = "Authorization"
	bearerPrefix        = "Bearer"
)

var (
	errMissingHeader = errors.New("authorization header missing")
	errInvalidHeader = errors.New("invalid authorization header")
)

// TokenParser: проверка access-токена.
type TokenParser interface {
	Parse(token string) (*auth.Claims, error)
}

// Auth пропускает запрос только с действующим bearer-токеном охраны или администратора.
func Auth(parser TokenParser) gin.HandlerFunc {
	return func(c *gin.Context) {
		token, err := bearerToken(c.GetHeader(authorizationHeader))
		if err != nil {
			abort(c, http.StatusUnauthorized, err.Error())
			return
		}

		claims, err := parser.Parse(token)
		if err != nil {
			abort(c, http.StatusUnauthorized, "invalid token")
			return
		}

		c.Set(claimsContextKey, claims)
		c.Set(principalContextKey, model.Principal{UserID: claims.UserID, Role: claims.Role})
		c.Next()
	}
}

// RequireRole ставится после Auth. Остальные роли получают 403.
func RequireRole(roles ...model.UserRole) gin.HandlerFunc {
	return func(c *gin.Context) {
		principal, ok := MustPrincipal(c)
		if !ok {
			abort(c, http.StatusUnauthorized, "missing principal")
			return
		}
		for _, role := range roles {
			if principal.Role == role {
				c.Next()
				return
			}
		}
		abort(c, http.StatusForbidden, "permission denied")
	}
}

func bearerToken(header string) (string, error) {
	if header == "" {
		return "", errMissingHeader
	}
	scheme, token, found := strings.Cut(header, " ")
	token = strings.TrimSpace(token)
	if !found || !strings.EqualFold(scheme, bearerPrefix) || token == "" {
		return "", errInvalidHeader
	}
	return token, nil
}

func abort(c *gin.Context, status int, message string) {
	c.AbortWithStatusJSON(status, gin.H{"error": message})
}

func MustPrincipal(c *gin.Context) (model.Principal, bool) {
	value, exists := c.Get(principalContextKey)
	if !exists {
		return model.Principal{}, false
	}
	principal, ok := value.(model.Principal)
	return principal, ok
}
