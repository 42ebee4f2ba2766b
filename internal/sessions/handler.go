package sessions

import (
	"database/sql"
	"errors"
	"log"
	"net/http"
	"strconv"

	"cbridge_go/internal/httputil"
	"cbridge_go/pkg/storage"
	"cbridge_go/pkg/vault"

	"github.com/gin-gonic/gin"
)

type Handler struct {
	DB    *storage.DB
	Vault *vault.Vault
}

func NewHandler(db *storage.DB, v *vault.Vault) *Handler {
	return &Handler{DB: db, Vault: v}
}

// ListUsers возвращает всех пользователей с сохранённой сессией.
// Сами сессии наружу не отдаются ни в каком виде.
func (h *Handler) ListUsers(c *gin.Context) {
	ids, err := h.Vault.ListUsers(c.Request.Context())
	if err != nil {
		log.Printf("[ERROR] Не удалось получить список пользователей: %v", err)
		httputil.RespondError(c, http.StatusInternalServerError, "DB error")
		return
	}
	c.JSON(http.StatusOK, gin.H{"users": ids, "count": len(ids)})
}

// GetUser возвращает служебные поля записи пользователя.
// Шифротекст сессии скрыт на уровне модели и в ответ не попадает.
func (h *Handler) GetUser(c *gin.Context) {
	userID, err := strconv.ParseInt(c.Param("user_id"), 10, 64)
	if err != nil {
		httputil.RespondError(c, http.StatusBadRequest, "Invalid user_id")
		return
	}

	rec, err := h.DB.GetSessionRecord(c.Request.Context(), userID)
	if errors.Is(err, sql.ErrNoRows) {
		httputil.RespondError(c, http.StatusNotFound, "User not found")
		return
	}
	if err != nil {
		log.Printf("[ERROR] Не удалось получить запись пользователя %d: %v", userID, err)
		httputil.RespondError(c, http.StatusInternalServerError, "DB error")
		return
	}

	c.JSON(http.StatusOK, gin.H{"record": rec, "has_session": len(rec.Session) > 0})
}
