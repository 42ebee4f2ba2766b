package broadcast

import (
	"errors"
	"log"
	"net/http"

	"cbridge_go/internal/httputil"
	telegrambroadcast "cbridge_go/pkg/telegram/broadcast"

	"github.com/gin-gonic/gin"
)

type Handler struct {
	Dispatcher *telegrambroadcast.Dispatcher
}

func NewHandler(d *telegrambroadcast.Dispatcher) *Handler {
	return &Handler{Dispatcher: d}
}

// Send рассылает текст всем известным пользователям.
// Допуск проверяется по operator_id до каких-либо отправок.
func (h *Handler) Send(c *gin.Context) {
	var req struct {
		OperatorID int64  `json:"operator_id" binding:"required"`
		Text       string `json:"text" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		httputil.RespondError(c, http.StatusBadRequest, "Invalid request format")
		return
	}

	report, err := h.Dispatcher.Broadcast(c.Request.Context(), req.OperatorID, req.Text)
	if errors.Is(err, telegrambroadcast.ErrUnauthorized) {
		httputil.RespondError(c, http.StatusForbidden, "Operator is not an administrator")
		return
	}
	if err != nil {
		log.Printf("[ERROR] Рассылка не выполнена: %v", err)
		httputil.RespondError(c, http.StatusInternalServerError, "Broadcast failed")
		return
	}

	c.JSON(http.StatusOK, report)
}
