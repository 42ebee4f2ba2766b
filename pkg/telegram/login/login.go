// Package login реализует интерактивную авторизацию пользователя:
// /login -> номер телефона -> код подтверждения -> сохранение сессии.
// На каждого пользователя существует не более одного активного сценария;
// повторный /login вытесняет предыдущий и закрывает его соединение.
package login

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"sync"
	"time"
)

// Состояния сценария авторизации.
type State int

const (
	StateAwaitingPhone State = iota // Ждём номер телефона
	StateAwaitingCode               // Код отправлен, ждём его от пользователя
	StateCompleted                  // Сессия сохранена
	StateFailed                     // Сценарий прерван
)

var (
	// ErrTimeout — пользователь не ответил за отведённое время.
	ErrTimeout = errors.New("время ожидания ответа истекло")
	// ErrRejected — Telegram отклонил номер или код.
	ErrRejected = errors.New("авторизация отклонена")
)

// replyTimeout — предел ожидания каждого ответа пользователя.
const replyTimeout = 120 * time.Second

// notifyTimeout ограничивает отправку финального уведомления: контекст
// сценария к этому моменту уже мёртв, но висеть вечно здесь нельзя.
const notifyTimeout = 30 * time.Second

// Notifier отправляет пользователю текст от имени бота.
type Notifier interface {
	Notify(ctx context.Context, userID int64, text string) error
}

// SessionSink принимает готовую сессию после успешного входа.
// Реализуется vault.Vault.
type SessionSink interface {
	Store(ctx context.Context, userID int64, session []byte) error
}

// Authorizer — операции транзиентного клиента на время одной попытки входа.
type Authorizer interface {
	SendCode(ctx context.Context, phone string) (codeHash string, err error)
	SignIn(ctx context.Context, phone, code, codeHash string) error
	ExportSession(ctx context.Context) ([]byte, error)
}

// Connector открывает транзиентное соединение на время работы fn.
// Соединение закрывается при любом выходе из fn, включая отмену контекста.
type Connector interface {
	RunTransient(ctx context.Context, fn func(ctx context.Context, a Authorizer) error) error
}

// flow — один сценарий авторизации конкретного пользователя.
type flow struct {
	userID  int64
	replies chan string
	cancel  context.CancelFunc

	mu    sync.Mutex
	state State
}

func (f *flow) setState(s State) {
	f.mu.Lock()
	f.state = s
	f.mu.Unlock()
}

func (f *flow) currentState() State {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.state
}

// await ждёт следующий ответ пользователя не дольше timeout.
func (f *flow) await(ctx context.Context, timeout time.Duration) (string, error) {
	timer := time.NewTimer(timeout)
	defer timer.Stop()
	select {
	case reply := <-f.replies:
		return strings.TrimSpace(reply), nil
	case <-timer.C:
		return "", ErrTimeout
	case <-ctx.Done():
		return "", ctx.Err()
	}
}

// Arena держит активные сценарии по пользователям.
// Изоляция по user_id: сценарии разных пользователей не пересекаются.
type Arena struct {
	connector Connector
	notifier  Notifier
	vault     SessionSink
	timeout   time.Duration

	mu    sync.Mutex
	flows map[int64]*flow
}

func NewArena(connector Connector, notifier Notifier, vault SessionSink) *Arena {
	return &Arena{
		connector: connector,
		notifier:  notifier,
		vault:     vault,
		timeout:   replyTimeout,
		flows:     make(map[int64]*flow),
	}
}

// Begin запускает сценарий авторизации для пользователя.
// Уже идущий сценарий того же пользователя вытесняется: его контекст
// отменяется, что закрывает транзиентное соединение.
func (a *Arena) Begin(userID int64) {
	ctx, cancel := context.WithCancel(context.Background())
	f := &flow{
		userID:  userID,
		replies: make(chan string, 1),
		cancel:  cancel,
		state:   StateAwaitingPhone,
	}

	a.mu.Lock()
	if old, ok := a.flows[userID]; ok {
		log.Printf("[LOGIN] пользователь %d начал новый вход, прежний сценарий прерван", userID)
		old.cancel()
	}
	a.flows[userID] = f
	a.mu.Unlock()

	go a.run(ctx, f)
}

// Deliver передаёт входящий текст активному сценарию пользователя.
// Возвращает false, если сценария нет или он уже не ждёт ответа —
// тогда текст обрабатывается как обычное сообщение.
func (a *Arena) Deliver(userID int64, text string) bool {
	a.mu.Lock()
	f, ok := a.flows[userID]
	a.mu.Unlock()
	if !ok {
		return false
	}
	switch f.currentState() {
	case StateAwaitingPhone, StateAwaitingCode:
	default:
		return false
	}
	select {
	case f.replies <- text:
		return true
	default:
		return false
	}
}

// Active сообщает состояние сценария пользователя, если он есть.
func (a *Arena) Active(userID int64) (State, bool) {
	a.mu.Lock()
	f, ok := a.flows[userID]
	a.mu.Unlock()
	if !ok {
		return 0, false
	}
	return f.currentState(), true
}

// remove снимает сценарий с арены, если он всё ещё её занимает.
// Вытесненный сценарий не должен удалить своего преемника.
func (a *Arena) remove(f *flow) {
	a.mu.Lock()
	if a.flows[f.userID] == f {
		delete(a.flows, f.userID)
	}
	a.mu.Unlock()
}

func (a *Arena) run(ctx context.Context, f *flow) {
	defer f.cancel()
	defer a.remove(f)

	err := a.steps(ctx, f)
	if err == nil {
		f.setState(StateCompleted)
		a.notify(ctx, f.userID, "✅ Авторизация успешна!")
		log.Printf("[LOGIN] пользователь %d авторизован", f.userID)
		return
	}

	f.setState(StateFailed)
	if errors.Is(err, context.Canceled) {
		// Сценарий вытеснен новым /login, пользователю напишет преемник
		return
	}
	log.Printf("[LOGIN] сценарий пользователя %d прерван: %v", f.userID, err)
	notifyCtx, cancel := context.WithTimeout(context.Background(), notifyTimeout)
	defer cancel()
	a.notify(notifyCtx, f.userID, "❌ "+describe(err))
}

// steps выполняет сам сценарий. Транзиентное соединение живёт только
// внутри RunTransient, поэтому закрывается на любом пути выхода.
func (a *Arena) steps(ctx context.Context, f *flow) error {
	a.notify(ctx, f.userID, "Отправьте номер телефона в международном формате (+1234567890)")
	phone, err := f.await(ctx, a.timeout)
	if err != nil {
		return err
	}

	return a.connector.RunTransient(ctx, func(ctx context.Context, az Authorizer) error {
		codeHash, err := az.SendCode(ctx, phone)
		if err != nil {
			return fmt.Errorf("%w: %v", ErrRejected, err)
		}
		f.setState(StateAwaitingCode)
		a.notify(ctx, f.userID, "Отправьте код подтверждения из Telegram")

		code, err := f.await(ctx, a.timeout)
		if err != nil {
			return err
		}
		if err := az.SignIn(ctx, phone, code, codeHash); err != nil {
			return fmt.Errorf("%w: %v", ErrRejected, err)
		}

		session, err := az.ExportSession(ctx)
		if err != nil {
			return fmt.Errorf("экспорт сессии: %w", err)
		}
		if err := a.vault.Store(ctx, f.userID, session); err != nil {
			return fmt.Errorf("сохранение сессии: %w", err)
		}
		return nil
	})
}

func (a *Arena) notify(ctx context.Context, userID int64, text string) {
	if err := a.notifier.Notify(ctx, userID, text); err != nil {
		log.Printf("[LOGIN] не удалось отправить сообщение пользователю %d: %v", userID, err)
	}
}

// describe переводит класс ошибки в короткое сообщение для пользователя.
// Сырые тексты ошибок Telegram пользователю не показываем.
func describe(err error) string {
	switch {
	case errors.Is(err, ErrTimeout):
		return "Время ожидания истекло. Начните заново: /login"
	case errors.Is(err, ErrRejected):
		return "Авторизация отклонена: проверьте номер и код. Начните заново: /login"
	default:
		return "Не удалось завершить авторизацию. Попробуйте позже: /login"
	}
}
