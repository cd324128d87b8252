package http

import (
	"encoding/json"
	"net/http"

	"github.com/labstack/echo/v4"

	"nftcredit-backend/internal/adapter/middleware"
	"nftcredit-backend/internal/domain/multisig"
	"nftcredit-backend/internal/usecase/gateway"
	"nftcredit-backend/pkg/money"
)

type MultisigHandler struct{ uc *gateway.Usecase }

func NewMultisigHandler(uc *gateway.Usecase) *MultisigHandler { return &MultisigHandler{uc: uc} }

type submitTxReq struct {
	Target  string          `json:"target"  validate:"required"`
	Value   string          `json:"value"   validate:"omitempty,amount"`
	Kind    string          `json:"kind"    validate:"required,oneof=approve_loan relay_collateral post_liquidation set_settings deposit deposit_nft"`
	Command json.RawMessage `json:"command" validate:"required"`
}

type confirmTxReq struct {
	Revoke bool `json:"revoke"`
}

func (h *MultisigHandler) Submit(c echo.Context) error {
	caller, _ := middleware.Caller(c)
	var req submitTxReq
	if err := c.Bind(&req); err != nil {
		return invalidBody(c)
	}
	if err := c.Validate(&req); err != nil {
		return validationFailed(c, err)
	}
	cmd, err := multisig.Decode(req.Kind, req.Command)
	if err != nil {
		return writeError(c, err)
	}
	dto, err := h.uc.Submit(c.Request().Context(), gateway.SubmitInput{
		Caller:  caller,
		Target:  req.Target,
		Value:   money.MustParse(req.Value),
		Command: cmd,
	})
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusCreated, dto)
}

func (h *MultisigHandler) Get(c echo.Context) error {
	id, ok := pathID(c)
	if !ok {
		return invalidID(c)
	}
	dto, err := h.uc.Get(c.Request().Context(), id)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, dto)
}

// Confirm records the caller's confirmation; {"revoke": true} withdraws it.
func (h *MultisigHandler) Confirm(c echo.Context) error {
	id, ok := pathID(c)
	if !ok {
		return invalidID(c)
	}
	caller, _ := middleware.Caller(c)
	var req confirmTxReq
	if err := c.Bind(&req); err != nil {
		return invalidBody(c)
	}
	dto, err := h.uc.Confirm(c.Request().Context(), caller, id, req.Revoke)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, dto)
}

func (h *MultisigHandler) Execute(c echo.Context) error {
	id, ok := pathID(c)
	if !ok {
		return invalidID(c)
	}
	caller, _ := middleware.Caller(c)
	dto, err := h.uc.Execute(c.Request().Context(), caller, id)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, dto)
}
