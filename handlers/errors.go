package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"chirp-backend/datastore"
	"chirp-backend/feed"
	"chirp-backend/minting"
	"chirp-backend/session"
	"chirp-backend/wallet"
)

// statusFor maps adapter and session errors onto HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, feed.ErrEmptyTweet),
		errors.Is(err, feed.ErrNoAuthor),
		errors.Is(err, minting.ErrMissingInput):
		return http.StatusBadRequest
	case errors.Is(err, session.ErrNoAccount),
		errors.Is(err, minting.ErrAccountNotAuthorized):
		return http.StatusUnauthorized
	case errors.Is(err, datastore.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, feed.ErrBusy),
		errors.Is(err, session.ErrConnecting),
		errors.Is(err, minting.ErrInProgress),
		errors.Is(err, datastore.ErrConflict):
		return http.StatusConflict
	case errors.Is(err, wallet.ErrNoWallet),
		errors.Is(err, session.ErrSessionFailed):
		return http.StatusPreconditionFailed
	case errors.Is(err, minting.ErrNoContract):
		return http.StatusServiceUnavailable
	}
	return http.StatusInternalServerError
}

func abortWithError(c *gin.Context, err error) {
	_ = c.Error(err)
	c.JSON(statusFor(err), gin.H{"error": err.Error()})
}
