package relay

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"cbridge_go/models"
	"cbridge_go/pkg/vault"
)

// fakeVault отдаёт сессию только известным пользователям.
type fakeVault struct {
	sessions map[int64][]byte
}

func (v *fakeVault) Get(ctx context.Context, userID int64) ([]byte, error) {
	s, ok := v.sessions[userID]
	if !ok {
		return nil, vault.ErrNoSession
	}
	return s, nil
}

// fakeDialer считает открытия и закрытия делегированного соединения,
// чтобы проверять его освобождение на всех путях выхода.
type fakeDialer struct {
	opened  int
	closed  int
	dialErr error
	client  *fakeClient
}

func (d *fakeDialer) Run(ctx context.Context, session []byte, sourceChat string, fn func(context.Context, Client) error) error {
	if d.dialErr != nil {
		return d.dialErr
	}
	d.opened++
	defer func() { d.closed++ }()
	return fn(ctx, d.client)
}

// fakeClient отдаёт сообщения по сценарию: часть с медиа, часть недоступна.
type fakeClient struct {
	media       map[int]bool // ID -> сообщение с медиа
	unfetchable map[int]bool // ID -> получение падает
	copyFail    map[int]bool // ID -> копирование падает
	copied      []int
}

func (c *fakeClient) FetchMessage(ctx context.Context, msgID int) (*Item, error) {
	if c.unfetchable[msgID] {
		return nil, errors.New("MESSAGE_ID_INVALID")
	}
	return &Item{ID: msgID, Text: fmt.Sprintf("текст %d", msgID), HasMedia: c.media[msgID]}, nil
}

func (c *fakeClient) CopyToSaved(ctx context.Context, msgID int) error {
	if c.copyFail[msgID] {
		return errors.New("CHAT_FORWARDS_RESTRICTED")
	}
	c.copied = append(c.copied, msgID)
	return nil
}

// fakeNotifier записывает доставленные тексты.
type fakeNotifier struct {
	texts   []string
	failAll bool
}

func (n *fakeNotifier) Notify(ctx context.Context, userID int64, text string) error {
	if n.failAll {
		return errors.New("USER_IS_BLOCKED")
	}
	n.texts = append(n.texts, text)
	return nil
}

func newTestPipeline(dialer *fakeDialer, notifier *fakeNotifier) *Pipeline {
	return &Pipeline{
		Vault:    &fakeVault{sessions: map[int64][]byte{7: []byte("session")}},
		Dialer:   dialer,
		Notifier: notifier,
	}
}

// relayedOrder возвращает ID доставленных сообщений в порядке обработки.
func relayedOrder(job *models.RelayJob) []int {
	var ids []int
	for _, r := range job.Results {
		if r.Outcome == models.RelayOutcomeRelayed {
			ids = append(ids, r.MsgID)
		}
	}
	return ids
}

// TestSkipsUnfetchableAndKeepsOrder: выпавшее сообщение 12 не прерывает
// пакет, остальные доставляются по возрастанию ID.
func TestSkipsUnfetchableAndKeepsOrder(t *testing.T) {
	dialer := &fakeDialer{client: &fakeClient{unfetchable: map[int]bool{12: true}}}
	notifier := &fakeNotifier{}
	p := newTestPipeline(dialer, notifier)

	job, err := p.Run(context.Background(), 7, "somechannel", 10, 14)
	if err != nil {
		t.Fatalf("пакет не должен падать из-за одного сообщения: %v", err)
	}
	want := []int{10, 11, 13, 14}
	got := relayedOrder(job)
	if len(got) != len(want) {
		t.Fatalf("ожидались доставленными %v, получено %v", want, got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("нарушен порядок доставки: ожидалось %v, получено %v", want, got)
		}
	}
	if job.Relayed != 4 || job.Skipped != 1 {
		t.Fatalf("ожидалось 4 доставленных и 1 пропущенное, получено %d/%d", job.Relayed, job.Skipped)
	}
	if dialer.opened != 1 || dialer.closed != 1 {
		t.Fatalf("соединение утекло: открыто %d, закрыто %d", dialer.opened, dialer.closed)
	}
}

// TestNoSessionFailsFast: без сессии подключение не открывается вовсе.
func TestNoSessionFailsFast(t *testing.T) {
	dialer := &fakeDialer{client: &fakeClient{}}
	p := newTestPipeline(dialer, &fakeNotifier{})

	_, err := p.Run(context.Background(), 404, "somechannel", 10, 14)
	if !errors.Is(err, vault.ErrNoSession) {
		t.Fatalf("ожидалась ErrNoSession, получено %v", err)
	}
	if dialer.opened != 0 {
		t.Fatalf("без сессии не должно быть подключений, открыто %d", dialer.opened)
	}
}

// TestMediaGoesThroughCopy: сообщения с медиа копируются делегированным
// клиентом, текст уходит через бота.
func TestMediaGoesThroughCopy(t *testing.T) {
	client := &fakeClient{media: map[int]bool{11: true}}
	dialer := &fakeDialer{client: client}
	notifier := &fakeNotifier{}
	p := newTestPipeline(dialer, notifier)

	job, err := p.Run(context.Background(), 7, "somechannel", 10, 11)
	if err != nil {
		t.Fatalf("пакет завершился ошибкой: %v", err)
	}
	if len(client.copied) != 1 || client.copied[0] != 11 {
		t.Fatalf("медиа-сообщение должно копироваться, скопировано %v", client.copied)
	}
	if len(notifier.texts) != 1 || notifier.texts[0] != "текст 10" {
		t.Fatalf("текст должен уходить через бота, отправлено %v", notifier.texts)
	}
	if job.Relayed != 2 {
		t.Fatalf("ожидалось 2 доставленных, получено %d", job.Relayed)
	}
}

// TestRelayFailureDoesNotAbort: падение доставки одного сообщения
// не прерывает остальные.
func TestRelayFailureDoesNotAbort(t *testing.T) {
	client := &fakeClient{
		media:    map[int]bool{10: true, 11: true, 12: true},
		copyFail: map[int]bool{11: true},
	}
	dialer := &fakeDialer{client: client}
	p := newTestPipeline(dialer, &fakeNotifier{})

	job, err := p.Run(context.Background(), 7, "somechannel", 10, 12)
	if err != nil {
		t.Fatalf("пакет завершился ошибкой: %v", err)
	}
	if job.Relayed != 2 || job.Skipped != 1 {
		t.Fatalf("ожидалось 2 доставленных и 1 пропущенное, получено %d/%d", job.Relayed, job.Skipped)
	}
	if len(client.copied) != 2 {
		t.Fatalf("остальные сообщения должны дойти, скопировано %v", client.copied)
	}
	if dialer.opened != 1 || dialer.closed != 1 {
		t.Fatalf("соединение утекло: открыто %d, закрыто %d", dialer.opened, dialer.closed)
	}
}

// TestConnectFailureIsHardError: отказ в подключении — жёсткая ошибка
// всего пакета, а не пропуск отдельных сообщений.
func TestConnectFailureIsHardError(t *testing.T) {
	dialer := &fakeDialer{client: &fakeClient{}, dialErr: errors.New("connection refused")}
	p := newTestPipeline(dialer, &fakeNotifier{})

	if _, err := p.Run(context.Background(), 7, "somechannel", 10, 14); err == nil {
		t.Fatalf("отказ в подключении должен прерывать пакет")
	}
}

// TestInvalidRange: перевёрнутый диапазон отклоняется до чтения сессии.
func TestInvalidRange(t *testing.T) {
	dialer := &fakeDialer{client: &fakeClient{}}
	p := newTestPipeline(dialer, &fakeNotifier{})

	if _, err := p.Run(context.Background(), 7, "somechannel", 14, 10); err == nil {
		t.Fatalf("перевёрнутый диапазон должен отклоняться")
	}
	if dialer.opened != 0 {
		t.Fatalf("при некорректном диапазоне подключений быть не должно")
	}
}
