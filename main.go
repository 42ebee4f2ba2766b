package main

import (
	"context"
	"database/sql"
	"log"

	"cbridge_go/internal/broadcast"
	"cbridge_go/internal/config"
	"cbridge_go/internal/relay"
	"cbridge_go/internal/sessions"
	"cbridge_go/pkg/storage"
	"cbridge_go/pkg/telegram/bot"
	"cbridge_go/pkg/vault"

	"github.com/gin-gonic/gin"
	_ "github.com/lib/pq"
)

func main() {
	// Загрузка конфигурации: ключ шифрования и список администраторов
	// читаются один раз и дальше передаются явно
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// Инициализация подключения к БД
	dbConn, err := sql.Open("postgres", cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer dbConn.Close()

	// Проверка подключения
	if err := dbConn.Ping(); err != nil {
		log.Fatalf("Database ping failed: %v", err)
	}

	// Инициализация хранилищ
	db := storage.NewDB(dbConn)
	v, err := vault.New(cfg.EncryptionKey, db)
	if err != nil {
		log.Fatalf("Vault init failed: %v", err)
	}

	// Запуск соединения бота: обрабатывает /login, ссылки и /broadcast
	b := bot.New(cfg, db, v)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	b.Run(ctx)

	// Настройка роутера
	r := setupRouter(b, db, v)

	// Запуск сервера
	log.Printf("Starting server on port %s", cfg.Port)
	if err := r.Run(":" + cfg.Port); err != nil {
		log.Fatalf("Server failed: %v", err)
	}
}

// Настройка маршрутов
func setupRouter(b *bot.Bot, db *storage.DB, v *vault.Vault) *gin.Engine {
	r := gin.Default()

	// Группа роутов для пересылки диапазонов
	relayGroup := r.Group("/relay")
	relay.SetupRoutes(relayGroup, b.Pipeline)

	// Группа роутов для рассылки администраторов
	broadcastGroup := r.Group("/broadcast")
	broadcast.SetupRoutes(broadcastGroup, b.Dispatcher)

	// Группа роутов для просмотра сохранённых сессий
	sessionsGroup := r.Group("/sessions")
	sessions.SetupRoutes(sessionsGroup, db, v)

	// Health check endpoint
	r.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})

	// Логирование зарегистрированных роутов
	log.Printf("[ROUTER] Routes initialized:")
	log.Printf("[ROUTER] POST /relay/send")
	log.Printf("[ROUTER] POST /broadcast/send")
	log.Printf("[ROUTER] GET /sessions/users")
	log.Printf("[ROUTER] GET /sessions/user/:user_id")
	log.Printf("[ROUTER] GET /health")

	return r
}
