// Package vault отвечает за хранение долгоживущих сессий пользователей.
// Сессия шифруется симметричным ключом процесса и попадает в БД
// только в виде шифротекста; расшифровка выполняется при каждом чтении.
package vault

import (
	"context"
	"crypto/cipher"
	"crypto/rand"
	"database/sql"
	"errors"
	"fmt"
	"log"

	"golang.org/x/crypto/chacha20poly1305"
)

var (
	// ErrNoSession — у пользователя нет сохранённой сессии.
	ErrNoSession = errors.New("сессия не найдена")
	// ErrDecrypt — шифротекст повреждён или ключ процесса сменился.
	ErrDecrypt = errors.New("не удалось расшифровать сессию")
	// ErrStorage — хранилище недоступно.
	ErrStorage = errors.New("хранилище сессий недоступно")
)

// Store — узкий интерфейс персистентного хранилища записей сессий.
// Реализуется storage.DB; в тестах подменяется фейком.
type Store interface {
	UpsertSession(ctx context.Context, userID int64, ciphertext []byte) error
	GetSession(ctx context.Context, userID int64) ([]byte, error)
	ListUserIDs(ctx context.Context) ([]int64, error)
}

// Vault шифрует и сохраняет сессии пользователей.
type Vault struct {
	aead  cipher.AEAD
	store Store
}

// New создаёт хранилище с ключом процесса (ровно 32 байта).
func New(key []byte, store Store) (*Vault, error) {
	aead, err := chacha20poly1305.NewX(key)
	if err != nil {
		return nil, fmt.Errorf("ключ шифрования: %w", err)
	}
	return &Vault{aead: aead, store: store}, nil
}

// Store шифрует сессию и сохраняет её с заменой предыдущей записи.
// Открытый текст сессии в БД не попадает ни при каком исходе.
func (v *Vault) Store(ctx context.Context, userID int64, session []byte) error {
	nonce := make([]byte, chacha20poly1305.NonceSizeX)
	if _, err := rand.Read(nonce); err != nil {
		return fmt.Errorf("nonce: %w", err)
	}
	ciphertext := v.aead.Seal(nonce, nonce, session, nil)
	if err := v.store.UpsertSession(ctx, userID, ciphertext); err != nil {
		log.Printf("[VAULT] ошибка записи сессии пользователя %d: %v", userID, err)
		return fmt.Errorf("%w: %v", ErrStorage, err)
	}
	return nil
}

// Get читает и расшифровывает сессию пользователя.
// Каждое чтение идёт в хранилище, кеша нет.
func (v *Vault) Get(ctx context.Context, userID int64) ([]byte, error) {
	ciphertext, err := v.store.GetSession(ctx, userID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNoSession
	}
	if err != nil {
		log.Printf("[VAULT] ошибка чтения сессии пользователя %d: %v", userID, err)
		return nil, fmt.Errorf("%w: %v", ErrStorage, err)
	}
	if len(ciphertext) < chacha20poly1305.NonceSizeX+chacha20poly1305.Overhead {
		return nil, ErrDecrypt
	}
	nonce, sealed := ciphertext[:chacha20poly1305.NonceSizeX], ciphertext[chacha20poly1305.NonceSizeX:]
	session, err := v.aead.Open(nil, nonce, sealed, nil)
	if err != nil {
		// Сюда попадаем при смене ключа или порче данных; для вызывающего
		// это равнозначно отсутствию сессии.
		log.Printf("[VAULT] расшифровка сессии пользователя %d не удалась", userID)
		return nil, ErrDecrypt
	}
	return session, nil
}

// ListUsers возвращает всех пользователей с записью в хранилище.
func (v *Vault) ListUsers(ctx context.Context) ([]int64, error) {
	ids, err := v.store.ListUserIDs(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStorage, err)
	}
	return ids, nil
}
