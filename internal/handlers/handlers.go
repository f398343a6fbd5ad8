// Package handlers is the HTTP layer: request binding, response shaping and
// the mapping from domain errors to status codes.
package handlers

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/duthaho/trello-clone-sub000/internal/auth"
	dom "github.com/duthaho/trello-clone-sub000/internal/domain"
	"github.com/duthaho/trello-clone-sub000/internal/dto"
	"github.com/duthaho/trello-clone-sub000/internal/service"
)

const (
	codeInvalidArgument = "invalid_argument"
	codeUnauthorized    = "unauthorized"
	codeForbidden       = "forbidden"
	codeNotFound        = "not_found"
	codeConflict        = "conflict"
	codeInternal        = "internal"
)

// errorStatus maps a service error to its HTTP status and error code.
func errorStatus(err error) (int, string) {
	switch {
	case errors.Is(err, dom.ErrInvalidArgument), errors.Is(err, dom.ErrInvalidDueDate):
		return http.StatusBadRequest, codeInvalidArgument
	case errors.Is(err, dom.ErrUnauthorized), errors.Is(err, dom.ErrInvalidCredentials):
		return http.StatusUnauthorized, codeUnauthorized
	case errors.Is(err, dom.ErrForbidden), errors.Is(err, dom.ErrInactiveUser):
		return http.StatusForbidden, codeForbidden
	case errors.Is(err, dom.ErrNotFound), errors.Is(err, dom.ErrNotMember):
		return http.StatusNotFound, codeNotFound
	case errors.Is(err, dom.ErrEmailTaken), errors.Is(err, dom.ErrUsernameTaken),
		errors.Is(err, dom.ErrConflict), errors.Is(err, dom.ErrOwnerImmutable):
		return http.StatusConflict, codeConflict
	default:
		return http.StatusInternalServerError, codeInternal
	}
}

// writeError renders err. Internal errors are attached to the gin context for
// the request logger and their message is hidden from the client.
func writeError(c *gin.Context, err error) {
	status, code := errorStatus(err)
	msg := err.Error()
	if status == http.StatusInternalServerError {
		_ = c.Error(err)
		msg = "internal server error"
	}
	c.AbortWithStatusJSON(status, dto.ErrorResponse{Error: dto.ErrorBody{Code: code, Message: msg}})
}

func badRequest(c *gin.Context, err error) {
	c.AbortWithStatusJSON(http.StatusBadRequest, dto.ErrorResponse{
		Error: dto.ErrorBody{Code: codeInvalidArgument, Message: err.Error()},
	})
}

func parseID(c *gin.Context, name string) (int64, bool) {
	id, err := strconv.ParseInt(c.Param(name), 10, 64)
	if err != nil || id <= 0 {
		c.AbortWithStatusJSON(http.StatusBadRequest, dto.ErrorResponse{
			Error: dto.ErrorBody{Code: codeInvalidArgument, Message: "invalid " + name},
		})
		return 0, false
	}
	return id, true
}

// reqCtx is the request context carrying caller details for audit and events.
func reqCtx(c *gin.Context) context.Context {
	return service.WithRequestMeta(c.Request.Context(), service.RequestMeta{
		ClientIP: c.ClientIP(),
		Username: auth.UsernameFromContext(c),
	})
}
