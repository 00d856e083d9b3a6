package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/mamadbah2/farebook/internal/domain/models"
	"github.com/mamadbah2/farebook/internal/repository"
	"github.com/mamadbah2/farebook/internal/service/actions"
	"github.com/mamadbah2/farebook/internal/service/approval"
	"github.com/mamadbah2/farebook/internal/service/auth"
	"github.com/mamadbah2/farebook/internal/service/entries"
)

const (
	// RequestIDKey is the gin context key holding the request id.
	RequestIDKey = "request_id"
	ctxUserKey   = "farebook.user"
)

// ErrBadRequest marks request decoding failures.
var ErrBadRequest = errors.New("invalid request body")

// ErrAdminOnly is returned when a route needs the admin role.
var ErrAdminOnly = errors.New("admin role required")

// SetUser stores the authenticated user on the request context.
func SetUser(c *gin.Context, user models.User) {
	c.Set(ctxUserKey, user)
}

// CurrentUser returns the authenticated user. The auth middleware guarantees
// presence on protected routes.
func CurrentUser(c *gin.Context) (models.User, bool) {
	v, ok := c.Get(ctxUserKey)
	if !ok {
		return models.User{}, false
	}
	user, ok := v.(models.User)
	return user, ok
}

// StatusFor maps a service error onto an HTTP status.
func StatusFor(err error) int {
	var vErr *models.ValidationError
	switch {
	case errors.As(err, &vErr),
		errors.Is(err, ErrBadRequest),
		errors.Is(err, actions.ErrInvalidArguments),
		errors.Is(err, actions.ErrUnsupportedAction):
		return http.StatusBadRequest
	case errors.Is(err, auth.ErrInvalidCredentials),
		errors.Is(err, auth.ErrInvalidToken):
		return http.StatusUnauthorized
	case errors.Is(err, entries.ErrForbidden),
		errors.Is(err, approval.ErrForbidden),
		errors.Is(err, approval.ErrSelfReview),
		errors.Is(err, ErrAdminOnly):
		return http.StatusForbidden
	case errors.Is(err, repository.ErrEntryNotFound),
		errors.Is(err, repository.ErrUserNotFound):
		return http.StatusNotFound
	case errors.Is(err, entries.ErrDateOverlap),
		errors.Is(err, entries.ErrLocked),
		errors.Is(err, approval.ErrIllegalTransition),
		errors.Is(err, repository.ErrUserExists):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

// respondError writes {"error": ...}. Server-side failures are logged and
// their details kept out of the response.
func respondError(c *gin.Context, logger *zap.Logger, err error) {
	status := StatusFor(err)
	if status == http.StatusInternalServerError {
		logger.Error("request failed",
			zap.String("path", c.FullPath()),
			zap.String("request_id", c.GetString(RequestIDKey)),
			zap.Error(err))
		c.AbortWithStatusJSON(status, gin.H{"error": "internal error"})
		return
	}

	body := gin.H{"error": err.Error()}
	var overlap *entries.OverlapError
	if errors.As(err, &overlap) {
		body["conflict"] = overlap.Conflict
	}
	var vErr *models.ValidationError
	if errors.As(err, &vErr) {
		body["field"] = vErr.Field
	}
	c.AbortWithStatusJSON(status, body)
}

func entryIDParam(c *gin.Context) (int64, error) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		return 0, models.NewValidationError("entryId", c.Param("id"), "must be a positive integer")
	}
	return id, nil
}

func queryFilter(c *gin.Context) (models.Filter, error) {
	return models.ParseFilter(
		c.Query("from"),
		c.Query("to"),
		c.Query("submittedBy"),
		c.QueryArray("type"),
		c.QueryArray("status"),
	)
}

func mustUser(c *gin.Context, logger *zap.Logger) (models.User, bool) {
	user, ok := CurrentUser(c)
	if !ok {
		respondError(c, logger, auth.ErrInvalidToken)
	}
	return user, ok
}
