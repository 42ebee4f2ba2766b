package sessions

import (
	"cbridge_go/pkg/storage"
	"cbridge_go/pkg/vault"

	"github.com/gin-gonic/gin"
)

func SetupRoutes(r *gin.RouterGroup, db *storage.DB, v *vault.Vault) {
	h := NewHandler(db, v)
	r.GET("/users", h.ListUsers)
	r.GET("/user/:user_id", h.GetUser)
}
