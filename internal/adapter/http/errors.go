package http

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"nftcredit-backend/internal/domain/ledger"
	domain "nftcredit-backend/internal/domain/loan"
	"nftcredit-backend/internal/domain/multisig"
)

// statusFor maps a failure reason to its HTTP status. Anything that is not a
// reason is an internal error.
func statusFor(err error) int {
	var lr domain.Reason
	if errors.As(err, &lr) {
		switch lr.Kind() {
		case domain.KindNotFound:
			return http.StatusNotFound
		case domain.KindAuth:
			return http.StatusForbidden
		case domain.KindParam:
			return http.StatusUnprocessableEntity
		}
		return http.StatusConflict
	}
	var mr multisig.Reason
	if errors.As(err, &mr) {
		switch mr {
		case multisig.ErrTxNotFound:
			return http.StatusNotFound
		case multisig.ErrNotOwner:
			return http.StatusForbidden
		case multisig.ErrInvalidCommand, multisig.ErrUnknownTarget:
			return http.StatusUnprocessableEntity
		}
		return http.StatusConflict
	}
	var vr ledger.Reason
	if errors.As(err, &vr) {
		return http.StatusConflict
	}
	return http.StatusInternalServerError
}

func writeError(c echo.Context, err error) error {
	code := statusFor(err)
	if code == http.StatusInternalServerError {
		slog.Error("request failed", "route", c.Path(), "error", err)
		return c.JSON(code, ErrorResponse{Error: "internal error"})
	}
	return c.JSON(code, ErrorResponse{Error: err.Error()})
}

// pathID reads a positive numeric id path param.
func pathID(c echo.Context) (uint64, bool) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	return id, err == nil && id > 0
}

func invalidID(c echo.Context) error {
	return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid id path param"})
}

func invalidBody(c echo.Context) error {
	return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid body"})
}

func validationFailed(c echo.Context, err error) error {
	return c.JSON(http.StatusUnprocessableEntity, ErrorResponse{
		Error:   "validation failed",
		Details: ToFieldErrors(err),
	})
}
