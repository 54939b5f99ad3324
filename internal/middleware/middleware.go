package middleware

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/joshua-takyi/gigboard/internal/helpers"
	"github.com/joshua-takyi/gigboard/internal/metrics"
	"github.com/joshua-takyi/gigboard/internal/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// ClaimsKey is where authenticated claims are stored on the gin context.
const ClaimsKey = "user"

// AccountLookup loads the account behind a token.
type AccountLookup interface {
	Me(ctx context.Context, id primitive.ObjectID) (*models.User, error)
}

// RequestID middleware adds a unique request ID to each request
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		requestID := c.GetHeader("X-Request-ID")
		if requestID == "" {
			requestID = uuid.New().String()
		}
		c.Set("request_id", requestID)
		c.Header("X-Request-ID", requestID)
		c.Next()
	}
}

// StructuredLogger provides structured logging middleware
func StructuredLogger(logger *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path
		raw := c.Request.URL.RawQuery

		c.Next()

		if raw != "" {
			path = path + "?" + raw
		}
		requestID, _ := c.Get("request_id")
		role := "guest"
		if claims, ok := CurrentClaims(c); ok {
			role = claims.GetSafeRole()
		}

		logger.Info("HTTP Request",
			"request_id", requestID,
			"role", role,
			"method", c.Request.Method,
			"path", path,
			"status", c.Writer.Status(),
			"latency", time.Since(start),
			"client_ip", c.ClientIP(),
		)
	}
}

// Metrics records request count and latency by route template.
func Metrics(m *metrics.Metrics) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		m.HTTPRequestsTotal.WithLabelValues(c.Request.Method, route, strconv.Itoa(c.Writer.Status())).Inc()
		m.HTTPRequestLatency.WithLabelValues(c.Request.Method, route).Observe(time.Since(start).Seconds())
	}
}

// ErrorHandler provides centralized error handling
func ErrorHandler(logger *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if len(c.Errors) == 0 {
			return
		}
		err := c.Errors.Last()
		requestID, _ := c.Get("request_id")

		logger.Error("Request error",
			"request_id", requestID,
			"error", err.Error(),
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
		)

		// a handler that already answered keeps its response
		if c.Writer.Written() {
			return
		}
		c.JSON(http.StatusInternalServerError, models.ErrorResponse("Internal server error", ""))
	}
}

// AuthMiddleware requires a valid bearer token for an active account.
func AuthMiddleware(tokens *helpers.TokenManager, accounts AccountLookup, logger *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := bearerToken(c)
		if token == "" {
			abortUnauthorized(c, "Access denied. No token provided.")
			return
		}

		claims, err := authenticate(c, token, tokens, accounts)
		if err != nil {
			if !isAuthFailure(err) {
				requestID, _ := c.Get("request_id")
				logger.Error("account lookup failed", "request_id", requestID, "error", err)
				c.AbortWithStatusJSON(http.StatusInternalServerError, models.ErrorResponse("Server error during authentication", err.Error()))
				return
			}
			logger.Debug("authentication failed", "error", err)
			abortUnauthorized(c, err.Error())
			return
		}

		c.Set(ClaimsKey, claims)
		c.Next()
	}
}

// OptionalAuth attaches claims when a valid token is present and carries on
// anonymously otherwise.
func OptionalAuth(tokens *helpers.TokenManager, accounts AccountLookup) gin.HandlerFunc {
	return func(c *gin.Context) {
		if token := bearerToken(c); token != "" {
			if claims, err := authenticate(c, token, tokens, accounts); err == nil {
				c.Set(ClaimsKey, claims)
			}
		}
		c.Next()
	}
}

// RequireRole must run after AuthMiddleware. Admins pass every role check.
func RequireRole(role string) gin.HandlerFunc {
	return func(c *gin.Context) {
		claims, ok := CurrentClaims(c)
		if !ok || !(claims.HasRole(role) || claims.IsAdmin()) {
			c.AbortWithStatusJSON(http.StatusForbidden, models.ErrorResponse("Access denied. Insufficient permissions.", ""))
			return
		}
		c.Next()
	}
}

func CurrentClaims(c *gin.Context) (*helpers.Claims, bool) {
	value, exists := c.Get(ClaimsKey)
	if !exists {
		return nil, false
	}
	claims, ok := value.(*helpers.Claims)
	return claims, ok
}

func authenticate(c *gin.Context, token string, tokens *helpers.TokenManager, accounts AccountLookup) (*helpers.Claims, error) {
	claims, err := tokens.Validate(token)
	if err != nil {
		return nil, helpers.ErrInvalidToken
	}
	userID, err := claims.UserObjectID()
	if err != nil {
		return nil, helpers.ErrInvalidToken
	}

	user, err := accounts.Me(c.Request.Context(), userID)
	if err != nil {
		if models.IsNotFound(err) {
			return nil, models.NewUnauthenticatedError("Invalid token. User not found.")
		}
		return nil, err
	}
	if !user.IsActive {
		return nil, models.NewUnauthenticatedError("Account is deactivated.")
	}

	// role comes from the account, not from what the token claimed
	claims.Role = user.Role
	claims.PhoneNumber = user.PhoneNumber
	return claims, nil
}

// isAuthFailure separates bad or stale credentials from failures to reach
// the account store.
func isAuthFailure(err error) bool {
	return errors.Is(err, helpers.ErrInvalidToken) || models.KindOf(err) == models.KindUnauthenticated
}

func bearerToken(c *gin.Context) string {
	header := c.GetHeader("Authorization")
	if strings.HasPrefix(header, "Bearer ") {
		return strings.TrimSpace(strings.TrimPrefix(header, "Bearer "))
	}
	return ""
}

func abortUnauthorized(c *gin.Context, detail string) {
	c.AbortWithStatusJSON(http.StatusUnauthorized, models.ErrorResponse("Unauthorized access", detail))
}
