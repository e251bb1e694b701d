package wallet

import (
	"github.com/gin-gonic/gin"
)

func SetupWalletRoutes(rg *gin.RouterGroup, controller *Controller, auth gin.HandlerFunc) {
	wallet := rg.Group("/wallet")
	wallet.Use(auth)
	{
		wallet.GET("", controller.GetWallet)                     // GET /api/v1/wallet
		wallet.GET("/transactions", controller.ListTransactions) // GET /api/v1/wallet/transactions
	}
}
