package wallet

import (
	"net/http"
	"strconv"

	"github.com/fredrickBO/TwendeBus/internal/shared/middleware"
	"github.com/fredrickBO/TwendeBus/internal/shared/utils/response"

	"github.com/gin-gonic/gin"
)

type Controller struct {
	service Service
}

func NewController(service Service) *Controller {
	return &Controller{service: service}
}

// GetWallet handles GET /api/v1/wallet
func (c *Controller) GetWallet(ctx *gin.Context) {
	summary, err := c.service.GetWallet(ctx.Request.Context(), middleware.CallerFrom(ctx))
	if err != nil {
		response.RespondError(ctx, err)
		return
	}
	response.RespondJSON(ctx, "success", http.StatusOK, "Wallet retrieved successfully", summary, nil)
}

// ListTransactions handles GET /api/v1/wallet/transactions?page=&limit=
func (c *Controller) ListTransactions(ctx *gin.Context) {
	page, _ := strconv.Atoi(ctx.DefaultQuery("page", "1"))
	limit, _ := strconv.Atoi(ctx.DefaultQuery("limit", "20"))

	result, err := c.service.ListTransactions(ctx.Request.Context(), middleware.CallerFrom(ctx), page, limit)
	if err != nil {
		response.RespondError(ctx, err)
		return
	}
	response.RespondJSON(ctx, "success", http.StatusOK, "Transactions retrieved successfully", result, nil)
}
