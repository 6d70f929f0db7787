package httpapi

import (
	"errors"
	"net/http"

	"bluff/internal/app"
	"bluff/internal/app/invite"
	"bluff/internal/domain"
	"bluff/internal/ports"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type errorBody struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// errorStatus maps an error to an HTTP status and a stable wire code.
func errorStatus(err error) (int, string) {
	switch {
	case errors.Is(err, ports.ErrRoomNotFound):
		return http.StatusNotFound, "room_not_found"
	case errors.Is(err, ports.ErrVersionConflict):
		return http.StatusConflict, "conflict"
	case errors.Is(err, ports.ErrCodeTaken):
		return http.StatusServiceUnavailable, "code_taken"
	case errors.Is(err, app.ErrNotSeated):
		return http.StatusForbidden, "not_seated"
	case errors.Is(err, invite.ErrInvalidToken):
		return http.StatusBadRequest, "invalid_invite"
	case errors.Is(err, invite.ErrNotConfigured):
		return http.StatusNotImplemented, "invites_disabled"
	}

	code := domain.ErrorCode(err)
	switch {
	case errors.Is(err, domain.ErrInvalidRank),
		errors.Is(err, domain.ErrEmptySelection),
		errors.Is(err, domain.ErrUnknownMoveKind):
		return http.StatusBadRequest, code
	case errors.Is(err, domain.ErrNotHost):
		return http.StatusForbidden, code
	case errors.Is(err, domain.ErrSeatNotFound):
		return http.StatusNotFound, code
	case domain.IsRuleViolation(err):
		return http.StatusConflict, code
	}
	return http.StatusInternalServerError, code
}

func (s *Server) writeError(c *gin.Context, err error) {
	status, code := errorStatus(err)
	msg := err.Error()
	if status == http.StatusInternalServerError {
		s.logger.Error("request failed", zap.String("path", c.FullPath()), zap.Error(err))
		msg = "internal error"
	}
	c.AbortWithStatusJSON(status, errorBody{Code: code, Message: msg})
}
