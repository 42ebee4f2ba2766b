package relay

import (
	"errors"
	"log"
	"net/http"

	"cbridge_go/internal/httputil"
	telegramrelay "cbridge_go/pkg/telegram/relay"
	"cbridge_go/pkg/vault"

	"github.com/gin-gonic/gin"
)

type Handler struct {
	Pipeline *telegramrelay.Pipeline
}

func NewHandler(p *telegramrelay.Pipeline) *Handler {
	return &Handler{Pipeline: p}
}

// Send запускает пересылку диапазона для указанного пользователя.
// Выполняется синхронно: ответ содержит итоговый отчёт по каждому сообщению.
func (h *Handler) Send(c *gin.Context) {
	var req struct {
		UserID     int64  `json:"user_id" binding:"required"`
		SourceChat string `json:"source_chat" binding:"required"`
		StartID    int    `json:"start_id" binding:"required"`
		EndID      int    `json:"end_id" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		httputil.RespondError(c, http.StatusBadRequest, "Invalid request format")
		return
	}

	job, err := h.Pipeline.Run(c.Request.Context(), req.UserID, req.SourceChat, req.StartID, req.EndID)
	if err != nil {
		// Нечитаемую сессию отдаём так же, как отсутствующую
		if errors.Is(err, vault.ErrNoSession) || errors.Is(err, vault.ErrDecrypt) || errors.Is(err, vault.ErrStorage) {
			httputil.RespondError(c, http.StatusConflict, "Нет активной сессии, нужен /login")
			return
		}
		log.Printf("[ERROR] Пересылка не выполнена: %v", err)
		httputil.RespondError(c, http.StatusBadGateway, "Relay failed")
		return
	}

	c.JSON(http.StatusOK, job)
}
