package vault

import (
	"bytes"
	"context"
	"crypto/rand"
	"database/sql"
	"errors"
	"testing"
)

// memStore — фейковое хранилище записей в памяти.
type memStore struct {
	data    map[int64][]byte
	failing bool
}

func newMemStore() *memStore {
	return &memStore{data: make(map[int64][]byte)}
}

func (s *memStore) UpsertSession(ctx context.Context, userID int64, ciphertext []byte) error {
	if s.failing {
		return errors.New("БД недоступна")
	}
	s.data[userID] = ciphertext
	return nil
}

func (s *memStore) GetSession(ctx context.Context, userID int64) ([]byte, error) {
	if s.failing {
		return nil, errors.New("БД недоступна")
	}
	ct, ok := s.data[userID]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return ct, nil
}

func (s *memStore) ListUserIDs(ctx context.Context) ([]int64, error) {
	if s.failing {
		return nil, errors.New("БД недоступна")
	}
	ids := make([]int64, 0, len(s.data))
	for id := range s.data {
		ids = append(ids, id)
	}
	return ids, nil
}

func newTestVault(t *testing.T, store Store) *Vault {
	t.Helper()
	key := make([]byte, 32)
	if _, err := rand.Read(key); err != nil {
		t.Fatalf("не удалось сгенерировать ключ: %v", err)
	}
	v, err := New(key, store)
	if err != nil {
		t.Fatalf("не удалось создать vault: %v", err)
	}
	return v
}

// TestStoreGetRoundTrip проверяет, что сессия читается ровно такой,
// какой была записана.
func TestStoreGetRoundTrip(t *testing.T) {
	store := newMemStore()
	v := newTestVault(t, store)
	ctx := context.Background()

	session := []byte("1BVtsOKwBu63...session...")
	if err := v.Store(ctx, 7, session); err != nil {
		t.Fatalf("запись завершилась ошибкой: %v", err)
	}
	got, err := v.Get(ctx, 7)
	if err != nil {
		t.Fatalf("чтение завершилось ошибкой: %v", err)
	}
	if !bytes.Equal(got, session) {
		t.Fatalf("ожидалась сессия %q, получено %q", session, got)
	}
}

// TestCiphertextNeverEqualsSession проверяет, что в хранилище лежит
// именно шифротекст, а не открытый текст сессии.
func TestCiphertextNeverEqualsSession(t *testing.T) {
	store := newMemStore()
	v := newTestVault(t, store)
	ctx := context.Background()

	session := []byte("plaintext-session")
	if err := v.Store(ctx, 7, session); err != nil {
		t.Fatalf("запись завершилась ошибкой: %v", err)
	}
	if bytes.Equal(store.data[7], session) {
		t.Fatalf("в хранилище оказался открытый текст сессии")
	}
	if bytes.Contains(store.data[7], session) {
		t.Fatalf("шифротекст содержит открытый текст сессии")
	}
}

// TestStoreReplacesPrevious проверяет upsert: повторная запись полностью
// вытесняет прежнюю сессию.
func TestStoreReplacesPrevious(t *testing.T) {
	store := newMemStore()
	v := newTestVault(t, store)
	ctx := context.Background()

	if err := v.Store(ctx, 7, []byte("first")); err != nil {
		t.Fatalf("первая запись завершилась ошибкой: %v", err)
	}
	if err := v.Store(ctx, 7, []byte("second")); err != nil {
		t.Fatalf("вторая запись завершилась ошибкой: %v", err)
	}
	got, err := v.Get(ctx, 7)
	if err != nil {
		t.Fatalf("чтение завершилось ошибкой: %v", err)
	}
	if string(got) != "second" {
		t.Fatalf("ожидалась сессия second, получено %q", got)
	}
}

// TestGetAbsent проверяет, что отсутствие записи отдаётся как ErrNoSession.
func TestGetAbsent(t *testing.T) {
	v := newTestVault(t, newMemStore())
	if _, err := v.Get(context.Background(), 404); !errors.Is(err, ErrNoSession) {
		t.Fatalf("ожидалась ErrNoSession, получено %v", err)
	}
}

// TestGetAfterKeyRotation проверяет, что со сменой ключа процесса
// старый шифротекст отдаётся как ErrDecrypt, а не как паника или мусор.
func TestGetAfterKeyRotation(t *testing.T) {
	store := newMemStore()
	v1 := newTestVault(t, store)
	if err := v1.Store(context.Background(), 7, []byte("session")); err != nil {
		t.Fatalf("запись завершилась ошибкой: %v", err)
	}

	v2 := newTestVault(t, store) // другой ключ
	if _, err := v2.Get(context.Background(), 7); !errors.Is(err, ErrDecrypt) {
		t.Fatalf("ожидалась ErrDecrypt, получено %v", err)
	}
}

// TestGetMalformedCiphertext проверяет реакцию на обрезанный шифротекст.
func TestGetMalformedCiphertext(t *testing.T) {
	store := newMemStore()
	v := newTestVault(t, store)
	store.data[7] = []byte("короткий мусор")
	if _, err := v.Get(context.Background(), 7); !errors.Is(err, ErrDecrypt) {
		t.Fatalf("ожидалась ErrDecrypt, получено %v", err)
	}
}

// TestStorageFailure проверяет, что недоступность БД отдаётся как ErrStorage.
func TestStorageFailure(t *testing.T) {
	store := newMemStore()
	v := newTestVault(t, store)
	store.failing = true

	if err := v.Store(context.Background(), 7, []byte("s")); !errors.Is(err, ErrStorage) {
		t.Fatalf("ожидалась ErrStorage при записи, получено %v", err)
	}
	if _, err := v.Get(context.Background(), 7); !errors.Is(err, ErrStorage) {
		t.Fatalf("ожидалась ErrStorage при чтении, получено %v", err)
	}
	if _, err := v.ListUsers(context.Background()); !errors.Is(err, ErrStorage) {
		t.Fatalf("ожидалась ErrStorage при листинге, получено %v", err)
	}
}
