package module

import (
	"context"
	"database/sql"
	"log"

	"github.com/gotd/td/session"
)

// BotSessionStorage хранит сессию собственного аккаунта бота в таблице bot_session.
// Таблица содержит единственную строку, поэтому ключ фиксированный.
type BotSessionStorage struct {
	DB *sql.DB
}

// LoadSession загружает сессию бота из БД.
func (s *BotSessionStorage) LoadSession(ctx context.Context) ([]byte, error) {
	if s == nil || s.DB == nil {
		return nil, session.ErrNotFound
	}

	var data string
	err := s.DB.QueryRowContext(ctx, "SELECT data_json FROM bot_session WHERE id = 1").Scan(&data)
	if err == sql.ErrNoRows {
		return nil, session.ErrNotFound
	}
	if err != nil {
		log.Printf("[BotSessionStorage] ошибка чтения сессии: %v", err)
		return nil, err
	}
	return []byte(data), nil
}

// StoreSession сохраняет сессию бота в БД.
func (s *BotSessionStorage) StoreSession(ctx context.Context, data []byte) error {
	if s == nil || s.DB == nil {
		return session.ErrNotFound
	}
	// Обновляем единственную строку, чтобы не плодить записи
	_, err := s.DB.ExecContext(
		ctx,
		"INSERT INTO bot_session (id, data_json) VALUES (1, $1) "+
			"ON CONFLICT (id) DO UPDATE SET data_json = EXCLUDED.data_json, date_time = NOW()",
		string(data),
	)
	if err != nil {
		log.Printf("[BotSessionStorage] ошибка сохранения сессии: %v", err)
		return err
	}
	return nil
}
