package relay

import (
	telegramrelay "cbridge_go/pkg/telegram/relay"

	"github.com/gin-gonic/gin"
)

func SetupRoutes(r *gin.RouterGroup, p *telegramrelay.Pipeline) {
	h := NewHandler(p)
	r.POST("/send", h.Send)
}
