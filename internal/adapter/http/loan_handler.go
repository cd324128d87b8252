package http

import (
	"context"
	"net/http"

	"github.com/ethereum/go-ethereum/common"
	"github.com/labstack/echo/v4"

	"nftcredit-backend/internal/adapter/middleware"
	domain "nftcredit-backend/internal/domain/loan"
	"nftcredit-backend/internal/usecase/loan"
	"nftcredit-backend/pkg/money"
)

type LoanHandler struct{ uc *loan.Usecase }

func NewLoanHandler(uc *loan.Usecase) *LoanHandler { return &LoanHandler{uc: uc} }

type nftReq struct {
	Contract string `json:"contract"  validate:"required,address"`
	TokenID  string `json:"token_id"  validate:"required,amount"`
	Standard string `json:"standard"  validate:"required,oneof=erc721 erc1155"`
	Quantity uint64 `json:"quantity"`
}

type createLoanReq struct {
	Tenor              uint32   `json:"tenor"               validate:"required,gte=1"`
	LTVBps             uint32   `json:"ltv_bps"             validate:"required,gte=1,lte=10000"`
	InterestBps        uint32   `json:"interest_bps"`
	FundingCurrency    string   `json:"funding_currency"    validate:"required,address"`
	CollateralCurrency string   `json:"collateral_currency" validate:"required,address"`
	NFTs               []nftReq `json:"nfts"                validate:"required,min=1,dive"`
	Amount             string   `json:"amount"              validate:"required,amount"`
	SideCollateral     string   `json:"side_collateral"     validate:"omitempty,amount"`
	// Payment is the value sent with the request; it defaults to the side collateral.
	Payment string `json:"payment" validate:"omitempty,amount"`
}

type payInstallmentReq struct {
	Amount string `json:"amount" validate:"required,amount"`
	// Payment defaults to Amount.
	Payment string `json:"payment" validate:"omitempty,amount"`
}

func (r createLoanReq) input(borrower common.Address) loan.CreateLoanInput {
	in := loan.CreateLoanInput{
		Borrower: borrower,
		Rules: domain.Rules{
			Tenor:       r.Tenor,
			LTVBps:      r.LTVBps,
			InterestBps: r.InterestBps,
		},
		Currencies: domain.Currencies{
			FundingCurrency:    common.HexToAddress(r.FundingCurrency),
			CollateralCurrency: common.HexToAddress(r.CollateralCurrency),
		},
		Amount:         money.MustParse(r.Amount),
		SideCollateral: money.MustParse(r.SideCollateral),
	}
	in.Payment = in.SideCollateral
	if r.Payment != "" {
		in.Payment = money.MustParse(r.Payment)
	}
	for _, n := range r.NFTs {
		in.NFTs = append(in.NFTs, loan.NFTInput{
			Contract: common.HexToAddress(n.Contract),
			TokenID:  money.MustParse(n.TokenID),
			Standard: domain.Standard(n.Standard),
			Quantity: n.Quantity,
		})
	}
	return in
}

func (h *LoanHandler) CreateLoan(c echo.Context) error {
	caller, _ := middleware.Caller(c)
	var req createLoanReq
	if err := c.Bind(&req); err != nil {
		return invalidBody(c)
	}
	if err := c.Validate(&req); err != nil {
		return validationFailed(c, err)
	}
	dto, err := h.uc.Create(c.Request().Context(), req.input(caller))
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusCreated, dto)
}

func (h *LoanHandler) GetLoan(c echo.Context) error {
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

func (h *LoanHandler) GetDebt(c echo.Context) error {
	id, ok := pathID(c)
	if !ok {
		return invalidID(c)
	}
	dto, err := h.uc.Debt(c.Request().Context(), id)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, dto)
}

func (h *LoanHandler) ListInstallments(c echo.Context) error {
	id, ok := pathID(c)
	if !ok {
		return invalidID(c)
	}
	items, err := h.uc.Installments(c.Request().Context(), id)
	if err != nil {
		return writeError(c, err)
	}
	if items == nil {
		items = []domain.Installment{}
	}
	return c.JSON(http.StatusOK, items)
}

func (h *LoanHandler) PayInstallment(c echo.Context) error {
	id, ok := pathID(c)
	if !ok {
		return invalidID(c)
	}
	caller, _ := middleware.Caller(c)
	var req payInstallmentReq
	if err := c.Bind(&req); err != nil {
		return invalidBody(c)
	}
	if err := c.Validate(&req); err != nil {
		return validationFailed(c, err)
	}
	in := loan.PayInstallmentInput{
		Caller: caller,
		LoanID: id,
		Amount: money.MustParse(req.Amount),
	}
	in.Payment = in.Amount
	if req.Payment != "" {
		in.Payment = money.MustParse(req.Payment)
	}
	dto, err := h.uc.PayInstallment(c.Request().Context(), in)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, dto)
}

func (h *LoanHandler) Cancel(c echo.Context) error { return h.borrowerAction(c, h.uc.Cancel) }

func (h *LoanHandler) WithdrawNFT(c echo.Context) error { return h.borrowerAction(c, h.uc.WithdrawNFT) }

func (h *LoanHandler) ClaimRest(c echo.Context) error { return h.borrowerAction(c, h.uc.GetBackFund) }

// SetDefaulted, SetLiquidation and LockRest are guarded by time and status
// only, so any authenticated caller may trigger them.
func (h *LoanHandler) SetDefaulted(c echo.Context) error { return h.publicAction(c, h.uc.SetDefaulted) }

func (h *LoanHandler) SetLiquidation(c echo.Context) error {
	return h.publicAction(c, h.uc.SetLiquidation)
}

func (h *LoanHandler) LockRest(c echo.Context) error { return h.publicAction(c, h.uc.LockRest) }

type borrowerOp func(ctx context.Context, caller common.Address, loanID uint64) (*loan.LoanDTO, error)

type publicOp func(ctx context.Context, loanID uint64) (*loan.LoanDTO, error)

func (h *LoanHandler) borrowerAction(c echo.Context, op borrowerOp) error {
	id, ok := pathID(c)
	if !ok {
		return invalidID(c)
	}
	caller, _ := middleware.Caller(c)
	dto, err := op(c.Request().Context(), caller, id)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, dto)
}

func (h *LoanHandler) publicAction(c echo.Context, op publicOp) error {
	id, ok := pathID(c)
	if !ok {
		return invalidID(c)
	}
	dto, err := op(c.Request().Context(), id)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, dto)
}
