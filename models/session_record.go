package models

import "time"

// SessionRecord хранит зашифрованную сессию Telegram конечного пользователя.
// На одного пользователя существует не более одной записи.
type SessionRecord struct {
	UserID     int64     `json:"user_id"`     // ID пользователя Telegram
	Session    []byte    `json:"-"`           // Шифротекст сессии; наружу не отдаём
	AccessHash int64     `json:"access_hash"` // Хеш доступа для отправки сообщений от имени бота
	DateTime   time.Time `json:"date_time"`   // Время последней записи
}
