package httputil

import "github.com/gin-gonic/gin"

// RespondError отдаёт ошибку в едином формате и прерывает цепочку обработчиков,
// чтобы после неё не выполнился ни один последующий хендлер.
func RespondError(c *gin.Context, status int, msg string) {
	c.AbortWithStatusJSON(status, gin.H{"error": msg})
}
