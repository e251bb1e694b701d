package response

import (
	"log/slog"

	"github.com/fredrickBO/TwendeBus/internal/shared/apperrors"
	"github.com/fredrickBO/TwendeBus/pkg/logger"

	"github.com/gin-gonic/gin"
)

// RespondJSON writes the envelope. status is "success" or "error".
func RespondJSON(c *gin.Context, status string, code int, message string, data interface{}, errors interface{}) {
	c.JSON(code, StandardApiResponse{
		Success:    status == "success",
		Status:     status,
		StatusCode: code,
		Message:    message,
		Data:       data,
		Errors:     errors,
	})
}

// RespondError writes err using the status mapped from its kind. Internal
// causes are logged and never sent to the client.
func RespondError(c *gin.Context, err error) {
	kind := apperrors.KindOf(err)
	code := apperrors.HTTPStatus(kind)
	if kind == apperrors.KindInternal || kind == apperrors.KindGateway {
		_ = c.Error(err)
		logger.GetDefault().ErrorContext(c.Request.Context(), "request failed",
			slog.String("route", c.FullPath()),
			slog.String("kind", string(kind)),
			slog.String("error", err.Error()),
		)
	}
	RespondJSON(c, "error", code, apperrors.PublicMessage(err), nil, map[string]string{"code": string(kind)})
}
