package api

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/cleared-dev/asientos/internal/accounts"
	"github.com/cleared-dev/asientos/internal/journal"
	"github.com/cleared-dev/asientos/internal/store"
)

// Error kinds reported in the "kind" field of error responses.
const (
	KindBadRequest = "bad_request"
	KindValidation = "validation"
	KindNotFound   = "not_found"
	KindConflict   = "conflict"
	KindInternal   = "internal"
)

type errorResp struct {
	Kind    string `json:"kind"`
	Message string `json:"message"`
}

func badRequest(c *gin.Context, msg string) {
	c.JSON(http.StatusBadRequest, errorResp{Kind: KindBadRequest, Message: msg})
}

// fail maps a ledger error to its HTTP status.
func (h *Handler) fail(c *gin.Context, err error) {
	var (
		cancelled  *journal.AlreadyCancelledError
		notPosted  *journal.NotPostedError
		notPending *journal.NotPendingError
	)
	switch {
	case errors.Is(err, journal.ErrValidationFailed):
		c.JSON(http.StatusUnprocessableEntity, errorResp{Kind: KindValidation, Message: err.Error()})
	case errors.Is(err, store.ErrNotFound), errors.Is(err, accounts.ErrUnknownAccount):
		c.JSON(http.StatusNotFound, errorResp{Kind: KindNotFound, Message: err.Error()})
	case errors.Is(err, store.ErrDuplicateKey),
		errors.As(err, &cancelled),
		errors.As(err, &notPosted),
		errors.As(err, &notPending):
		c.JSON(http.StatusConflict, errorResp{Kind: KindConflict, Message: err.Error()})
	default:
		h.Log.Error("request failed", "method", c.Request.Method, "path", c.FullPath(), "err", err)
		c.JSON(http.StatusInternalServerError, errorResp{Kind: KindInternal, Message: "internal error"})
	}
}
