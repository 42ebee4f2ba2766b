package broadcast

import (
	telegrambroadcast "cbridge_go/pkg/telegram/broadcast"

	"github.com/gin-gonic/gin"
)

func SetupRoutes(r *gin.RouterGroup, d *telegrambroadcast.Dispatcher) {
	h := NewHandler(d)
	r.POST("/send", h.Send)
}
