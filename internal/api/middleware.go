package api

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"golfacademy/training-planner/internal/domain" // For domain.Role
	"golfacademy/training-planner/internal/logger"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v4"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Constants for context keys
const (
	ContextUserIDKey   = "userID"
	ContextUserRoleKey = "userRole"
	ContextTenantKey   = "tenantID"
)

// jwtClaims defines the structure we expect in the JWT payload. Tokens are
// issued by the academy's identity service; this API only verifies them.
type jwtClaims struct {
	UserID   string      `json:"uid"`
	Role     domain.Role `json:"role"`
	TenantID string      `json:"tid"`
	jwt.RegisteredClaims
}

// AuthMiddleware creates a Gin middleware for JWT authentication.
func AuthMiddleware(jwtSecret string) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			abortWithError(c, http.StatusUnauthorized, "Authorization header is missing")
			return
		}

		// Expecting "Bearer <token>"
		parts := strings.Split(authHeader, " ")
		if len(parts) != 2 || strings.ToLower(parts[0]) != "bearer" {
			abortWithError(c, http.StatusUnauthorized, "Authorization header format must be Bearer {token}")
			return
		}

		claims := &jwtClaims{}
		token, err := jwt.ParseWithClaims(parts[1], claims, func(token *jwt.Token) (interface{}, error) {
			if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
			}
			return []byte(jwtSecret), nil
		})
		if err != nil {
			if errors.Is(err, jwt.ErrTokenExpired) {
				abortWithError(c, http.StatusUnauthorized, "Token has expired")
			} else {
				abortWithError(c, http.StatusUnauthorized, fmt.Sprintf("Invalid token: %v", err))
			}
			return
		}

		if !token.Valid || claims.UserID == "" || claims.Role == "" || claims.ExpiresAt == nil {
			abortWithError(c, http.StatusUnauthorized, "Invalid token or missing claims")
			return
		}
		tenantID, err := primitive.ObjectIDFromHex(claims.TenantID)
		if err != nil {
			abortWithError(c, http.StatusUnauthorized, "Invalid tenant claim")
			return
		}

		c.Set(ContextUserIDKey, claims.UserID) // Hex representation
		c.Set(ContextUserRoleKey, claims.Role)
		c.Set(ContextTenantKey, tenantID)
		c.Next()
	}
}

// RequestLogger logs one line per request through the structured logger.
func RequestLogger(log *logger.Logger) gin.HandlerFunc {
	log = log.Component("http")
	return func(c *gin.Context) {
		c.Next()
		kv := []interface{}{
			"method", c.Request.Method,
			"path", c.FullPath(),
			"status", c.Writer.Status(),
		}
		if len(c.Errors) > 0 {
			kv = append(kv, "error", c.Errors.String())
		}
		if c.Writer.Status() >= http.StatusInternalServerError {
			log.Error("request failed", kv...)
			return
		}
		log.Debug("request", kv...)
	}
}

// Helper to return JSON error response and abort request
func abortWithError(c *gin.Context, code int, message string) {
	c.AbortWithStatusJSON(code, gin.H{"error": message})
}

// RoleMiddleware creates middleware to check if user has the required role(s).
// Must run AFTER AuthMiddleware.
func RoleMiddleware(allowedRoles ...domain.Role) gin.HandlerFunc {
	return func(c *gin.Context) {
		userRole, err := getUserRoleFromContext(c)
		if err != nil {
			abortWithError(c, http.StatusInternalServerError, err.Error())
			return
		}

		for _, allowedRole := range allowedRoles {
			if userRole == allowedRole {
				c.Next()
				return
			}
		}
		abortWithError(c, http.StatusForbidden, fmt.Sprintf("Access denied: Role '%s' does not have permission", userRole))
	}
}

// Helper function to get User ID from context (used by handlers)
func getUserIDFromContext(c *gin.Context) (string, error) {
	idRaw, exists := c.Get(ContextUserIDKey)
	if !exists {
		return "", errors.New("user ID not found in context")
	}
	idStr, ok := idRaw.(string)
	if !ok {
		return "", errors.New("invalid user ID type in context")
	}
	return idStr, nil
}

// Helper function to get User Role from context (used by handlers)
func getUserRoleFromContext(c *gin.Context) (domain.Role, error) {
	roleRaw, exists := c.Get(ContextUserRoleKey)
	if !exists {
		return "", errors.New("user role not found in context")
	}
	role, ok := roleRaw.(domain.Role)
	if !ok {
		return "", errors.New("invalid user role type in context")
	}
	return role, nil
}

func getTenantFromContext(c *gin.Context) (primitive.ObjectID, error) {
	raw, exists := c.Get(ContextTenantKey)
	if !exists {
		return primitive.NilObjectID, errors.New("tenant not found in context")
	}
	id, ok := raw.(primitive.ObjectID)
	if !ok {
		return primitive.NilObjectID, errors.New("invalid tenant type in context")
	}
	return id, nil
}
