package storage

import (
	"context"
	"database/sql"

	"cbridge_go/models"
)

// Таблица sessions:
//   user_id BIGINT PRIMARY KEY,
//   session BYTEA,
//   access_hash BIGINT NOT NULL DEFAULT 0,
//   date_time TIMESTAMP NOT NULL DEFAULT NOW()

// UpsertSession сохраняет шифротекст сессии пользователя.
// Повторная запись полностью заменяет предыдущую, дубликаты не создаются.
func (db *DB) UpsertSession(ctx context.Context, userID int64, ciphertext []byte) error {
	_, err := db.Conn.ExecContext(
		ctx,
		"INSERT INTO sessions (user_id, session, date_time) VALUES ($1, $2, NOW()) "+
			"ON CONFLICT (user_id) DO UPDATE SET session = EXCLUDED.session, date_time = NOW()",
		userID,
		ciphertext,
	)
	return err
}

// GetSession возвращает шифротекст сессии пользователя.
// Отсутствие записи отдаём как sql.ErrNoRows, решение принимает вызывающий.
func (db *DB) GetSession(ctx context.Context, userID int64) ([]byte, error) {
	var data []byte
	err := db.Conn.QueryRowContext(ctx,
		"SELECT session FROM sessions WHERE user_id = $1 AND session IS NOT NULL",
		userID,
	).Scan(&data)
	if err != nil {
		return nil, err
	}
	return data, nil
}

// ListUserIDs возвращает всех пользователей с сохранённой сессией.
// Порядок не важен, рассылка обходит список как есть.
func (db *DB) ListUserIDs(ctx context.Context) ([]int64, error) {
	rows, err := db.Conn.QueryContext(ctx, "SELECT user_id FROM sessions WHERE session IS NOT NULL")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// UpsertAccessHash запоминает хеш доступа пользователя из входящего апдейта.
// Без него бот не может адресовать пользователя в MTProto.
func (db *DB) UpsertAccessHash(ctx context.Context, userID, accessHash int64) error {
	_, err := db.Conn.ExecContext(
		ctx,
		"INSERT INTO sessions (user_id, access_hash, date_time) VALUES ($1, $2, NOW()) "+
			"ON CONFLICT (user_id) DO UPDATE SET access_hash = EXCLUDED.access_hash",
		userID,
		accessHash,
	)
	return err
}

// GetAccessHash возвращает сохранённый хеш доступа пользователя.
func (db *DB) GetAccessHash(ctx context.Context, userID int64) (int64, error) {
	var hash int64
	err := db.Conn.QueryRowContext(ctx,
		"SELECT access_hash FROM sessions WHERE user_id = $1",
		userID,
	).Scan(&hash)
	return hash, err
}

// GetSessionRecord возвращает запись целиком (для служебного API).
func (db *DB) GetSessionRecord(ctx context.Context, userID int64) (*models.SessionRecord, error) {
	var rec models.SessionRecord
	var access sql.NullInt64
	err := db.Conn.QueryRowContext(ctx,
		"SELECT user_id, session, access_hash, date_time FROM sessions WHERE user_id = $1",
		userID,
	).Scan(&rec.UserID, &rec.Session, &access, &rec.DateTime)
	if err != nil {
		return nil, err
	}
	rec.AccessHash = access.Int64
	return &rec, nil
}
