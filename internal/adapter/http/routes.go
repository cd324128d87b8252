package http

import "github.com/labstack/echo/v4"

// Register mounts the loan and gateway routes on g. g is expected to carry
// authentication and idempotency middleware.
func Register(g *echo.Group, loans *LoanHandler, msig *MultisigHandler) {
	g.POST("/loans", loans.CreateLoan)
	g.GET("/loans/:id", loans.GetLoan)
	g.GET("/loans/:id/debt", loans.GetDebt)
	g.GET("/loans/:id/installments", loans.ListInstallments)
	g.POST("/loans/:id/cancel", loans.Cancel)
	g.POST("/loans/:id/installments", loans.PayInstallment)
	g.POST("/loans/:id/withdraw", loans.WithdrawNFT)
	g.POST("/loans/:id/default", loans.SetDefaulted)
	g.POST("/loans/:id/liquidation", loans.SetLiquidation)
	g.POST("/loans/:id/rest", loans.ClaimRest)
	g.POST("/loans/:id/rest/lock", loans.LockRest)

	g.POST("/multisig/transactions", msig.Submit)
	g.GET("/multisig/transactions/:id", msig.Get)
	g.POST("/multisig/transactions/:id/confirm", msig.Confirm)
	g.POST("/multisig/transactions/:id/execute", msig.Execute)
}
