package handlers

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/joshua-takyi/gigboard/internal/middleware"
	"github.com/joshua-takyi/gigboard/internal/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

var statusByKind = map[models.ErrorKind]int{
	models.KindValidation:      http.StatusBadRequest,
	models.KindNotFound:        http.StatusNotFound,
	models.KindAuthorization:   http.StatusForbidden,
	models.KindUnauthenticated: http.StatusUnauthorized,
	models.KindConflict:        http.StatusConflict,
	models.KindRateLimited:     http.StatusTooManyRequests,
	models.KindProvider:        http.StatusBadGateway,
	models.KindPersistence:     http.StatusInternalServerError,
}

// respondError writes err with the status its kind maps to. Persistence and
// provider failures carry the underlying message in the error field.
func respondError(c *gin.Context, err error) {
	var appErr *models.AppError
	if !errors.As(err, &appErr) {
		_ = c.Error(err)
		c.JSON(http.StatusInternalServerError, models.ErrorResponse("Server error", err.Error()))
		return
	}

	status, ok := statusByKind[appErr.Kind]
	if !ok {
		status = http.StatusInternalServerError
	}
	detail := ""
	if appErr.Err != nil {
		detail = appErr.Err.Error()
	}
	if status >= http.StatusInternalServerError {
		_ = c.Error(err)
	}
	c.JSON(status, models.ErrorResponse(appErr.Message, detail))
}

func badRequest(c *gin.Context, message string, detail string) {
	c.JSON(http.StatusBadRequest, models.ErrorResponse(message, detail))
}

// currentUserID returns the authenticated user's id. Routes using it sit
// behind AuthMiddleware, so a miss is answered with 401.
func currentUserID(c *gin.Context) (primitive.ObjectID, bool) {
	claims, ok := middleware.CurrentClaims(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, models.ErrorResponse("Unauthorized access", ""))
		return primitive.NilObjectID, false
	}
	id, err := claims.UserObjectID()
	if err != nil {
		c.JSON(http.StatusUnauthorized, models.ErrorResponse("Unauthorized access", "invalid user ID in token"))
		return primitive.NilObjectID, false
	}
	return id, true
}

// optionalUserID is the zero id for anonymous requests.
func optionalUserID(c *gin.Context) primitive.ObjectID {
	claims, ok := middleware.CurrentClaims(c)
	if !ok {
		return primitive.NilObjectID
	}
	id, err := claims.UserObjectID()
	if err != nil {
		return primitive.NilObjectID
	}
	return id
}

// pathID parses the :id route parameter, tolerating stray quotes and spaces.
func pathID(c *gin.Context, what string) (primitive.ObjectID, bool) {
	raw := strings.Trim(strings.TrimSpace(c.Param("id")), "\"'")
	id, err := primitive.ObjectIDFromHex(raw)
	if err != nil {
		badRequest(c, "Invalid "+what+" ID format", "")
		return primitive.NilObjectID, false
	}
	return id, true
}

func queryInt(c *gin.Context, key string) int {
	n, err := strconv.Atoi(c.Query(key))
	if err != nil {
		return 0
	}
	return n
}

func pageParams(c *gin.Context, defaultLimit int) models.PageSpec {
	return models.NewPageSpec(queryInt(c, "page"), queryInt(c, "limit"), defaultLimit)
}

func sortParams(c *gin.Context) models.SortSpec {
	return models.NewSortSpec(c.Query("sortBy"), c.Query("sortOrder"))
}

// queryBool returns nil unless key is "true" or "false".
func queryBool(c *gin.Context, key string) *bool {
	switch c.Query(key) {
	case "true":
		v := true
		return &v
	case "false":
		v := false
		return &v
	}
	return nil
}
