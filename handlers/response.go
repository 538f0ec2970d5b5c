package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"uikitstore/storefront"
)

var (
	errUnknownCommand = errors.New("unknown command")
	errBadRequest     = errors.New("invalid request")
)

// classify maps an error to its HTTP status, code and user-facing message.
func classify(err error) (int, string, string) {
	var aerr *storefront.ActionError
	if errors.As(err, &aerr) {
		switch aerr.Kind {
		case storefront.KindForbidden:
			return http.StatusForbidden, string(aerr.Kind), aerr.Message
		case storefront.KindNotFound:
			return http.StatusNotFound, string(aerr.Kind), aerr.Message
		case storefront.KindRemote:
			return http.StatusBadGateway, string(aerr.Kind), aerr.Message
		}
		if errors.Is(aerr, storefront.ErrNotSignedIn) {
			return http.StatusUnauthorized, "unauthorized", aerr.Message
		}
		if errors.Is(aerr, storefront.ErrSessionChanged) {
			return http.StatusConflict, "session_changed", aerr.Message
		}
		return http.StatusUnprocessableEntity, string(aerr.Kind), aerr.Message
	}

	switch {
	case errors.Is(err, errUnknownCommand):
		return http.StatusBadRequest, "unknown_command", "That action is not supported."
	case errors.Is(err, errBadRequest):
		return http.StatusBadRequest, "invalid_request", "The request could not be read."
	}
	return http.StatusInternalServerError, "internal_error", storefront.GenericFailure
}

// respondError writes the shared error body {code, message}.
func respondError(c *gin.Context, err error) {
	status, code, message := classify(err)
	c.JSON(status, gin.H{
		"code":    code,
		"message": message,
	})
}
