// Package bot держит долгоживущее соединение собственного аккаунта бота:
// принимает команды пользователей, раздаёт их модулям и отправляет ответы.
package bot

import (
	"context"
	"errors"
	"fmt"
	"log"
	"math/rand"
	"strings"
	"sync"
	"time"

	"cbridge_go/internal/config"
	"cbridge_go/models"
	"cbridge_go/pkg/storage"
	module "cbridge_go/pkg/telegram/a_technical"
	"cbridge_go/pkg/telegram/broadcast"
	"cbridge_go/pkg/telegram/login"
	"cbridge_go/pkg/telegram/relay"
	"cbridge_go/pkg/vault"

	"github.com/gotd/td/tg"
)

// relayTimeout ограничивает обработку одной ссылки на диапазон.
const relayTimeout = 10 * time.Minute

type Bot struct {
	token   string
	apiID   int
	apiHash string
	proxy   *models.Proxy

	db    *storage.DB
	vault *vault.Vault

	Arena      *login.Arena
	Pipeline   *relay.Pipeline
	Dispatcher *broadcast.Dispatcher

	mu  sync.Mutex
	api *tg.Client // Доступен только пока соединение бота живо
}

// New собирает бота и все модули поверх него.
func New(cfg *config.Config, db *storage.DB, v *vault.Vault) *Bot {
	b := &Bot{
		token:   cfg.BotToken,
		apiID:   cfg.APIID,
		apiHash: cfg.APIHash,
		proxy:   cfg.Proxy,
		db:      db,
		vault:   v,
	}
	connector := &login.TelegramConnector{APIID: cfg.APIID, APIHash: cfg.APIHash, Proxy: cfg.Proxy}
	b.Arena = login.NewArena(connector, b, v)
	b.Pipeline = &relay.Pipeline{
		Vault:    v,
		Dialer:   &relay.TelegramDialer{APIID: cfg.APIID, APIHash: cfg.APIHash, Proxy: cfg.Proxy},
		Notifier: b,
	}
	b.Dispatcher = &broadcast.Dispatcher{
		Directory: v,
		Sender:    b,
		Admins:    cfg.Admins,
		Pacing:    [2]int{1, 3},
	}
	return b
}

// Run запускает соединение бота в отдельной горутине.
func (b *Bot) Run(ctx context.Context) {
	go func() {
		if err := b.run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			log.Printf("[BOT] остановлен: %v", err)
		}
	}()
}

// run инициализирует клиента бота и обрабатывает апдейты до отмены контекста.
func (b *Bot) run(ctx context.Context) error {
	dispatcher := tg.NewUpdateDispatcher()
	dispatcher.OnNewMessage(b.onNewMessage)

	client, err := module.Modf_ClientInitialization(
		b.apiID, b.apiHash,
		&module.BotSessionStorage{DB: b.db.Conn},
		b.proxy,
		dispatcher,
	)
	if err != nil {
		return err
	}

	return client.Run(ctx, func(ctx context.Context) error {
		status, err := client.Auth().Status(ctx)
		if err != nil {
			return err
		}
		if !status.Authorized {
			if _, err := client.Auth().Bot(ctx, b.token); err != nil {
				return fmt.Errorf("авторизация бота: %w", err)
			}
		}

		b.mu.Lock()
		b.api = tg.NewClient(client)
		b.mu.Unlock()
		defer func() {
			b.mu.Lock()
			b.api = nil
			b.mu.Unlock()
		}()

		log.Printf("[BOT] запущен и принимает команды")
		<-ctx.Done()
		return ctx.Err()
	})
}

func (b *Bot) currentAPI() *tg.Client {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.api
}

// Notify отправляет пользователю текст от имени бота.
// Хеш доступа берётся из БД, куда он попадает при первом контакте.
func (b *Bot) Notify(ctx context.Context, userID int64, text string) error {
	api := b.currentAPI()
	if api == nil {
		return fmt.Errorf("бот не подключён")
	}
	hash, err := b.db.GetAccessHash(ctx, userID)
	if err != nil {
		return fmt.Errorf("хеш доступа пользователя %d: %w", userID, err)
	}
	_, err = api.MessagesSendMessage(ctx, &tg.MessagesSendMessageRequest{
		Peer:     &tg.InputPeerUser{UserID: userID, AccessHash: hash},
		Message:  text,
		RandomID: rand.Int63(),
	})
	return err
}

// SendText — то же, что Notify; отдельное имя для интерфейса рассылки.
func (b *Bot) SendText(ctx context.Context, userID int64, text string) error {
	return b.Notify(ctx, userID, text)
}

// onNewMessage разбирает входящее сообщение и передаёт его нужному модулю.
// Долгие операции уходят в отдельные горутины, чтобы не блокировать апдейты.
func (b *Bot) onNewMessage(ctx context.Context, e tg.Entities, u *tg.UpdateNewMessage) error {
	msg, ok := u.Message.(*tg.Message)
	if !ok || msg.Out {
		return nil
	}
	peer, ok := msg.PeerID.(*tg.PeerUser)
	if !ok {
		// Групповые чаты бот не обслуживает
		return nil
	}
	userID := peer.UserID

	// Запоминаем хеш доступа: без него нельзя написать пользователю первыми
	if user, ok := e.Users[userID]; ok {
		if err := b.db.UpsertAccessHash(ctx, userID, user.AccessHash); err != nil {
			log.Printf("[BOT] не удалось сохранить хеш доступа пользователя %d: %v", userID, err)
		}
	}

	text := strings.TrimSpace(msg.Message)
	switch {
	case text == "/login":
		b.Arena.Begin(userID)
	case text == "/broadcast" || strings.HasPrefix(text, "/broadcast "):
		go b.handleBroadcast(userID, text)
	default:
		// Сначала даём шанс активному сценарию авторизации
		if b.Arena.Deliver(userID, text) {
			return nil
		}
		if link, ok := ParseRangeLink(text); ok {
			go b.handleRelay(userID, link)
		}
	}
	return nil
}

func (b *Bot) handleRelay(userID int64, link RangeLink) {
	ctx, cancel := context.WithTimeout(context.Background(), relayTimeout)
	defer cancel()

	count := link.EndID - link.StartID + 1
	b.reply(ctx, userID, fmt.Sprintf("🚀 Обрабатываю %d сообщений…", count))

	job, err := b.Pipeline.Run(ctx, userID, link.Chat, link.StartID, link.EndID)
	switch {
	case err == nil:
		b.reply(ctx, userID, fmt.Sprintf("✅ Готово: доставлено %d, пропущено %d", job.Relayed, job.Skipped))
	case errors.Is(err, vault.ErrNoSession), errors.Is(err, vault.ErrDecrypt), errors.Is(err, vault.ErrStorage):
		// Нечитаемая сессия равнозначна её отсутствию
		b.reply(ctx, userID, "❌ Нет активной сессии. Сначала выполните /login")
	default:
		log.Printf("[BOT] пересылка для пользователя %d не удалась: %v", userID, err)
		b.reply(ctx, userID, "❌ Не удалось обработать ссылку. Попробуйте позже")
	}
}

func (b *Bot) handleBroadcast(operatorID int64, text string) {
	ctx, cancel := context.WithTimeout(context.Background(), time.Hour)
	defer cancel()

	payload, ok := ParseBroadcast(text)
	if !ok {
		// Подсказку показываем только администраторам: для остальных
		// команда ведёт себя как несуществующая
		if _, admin := b.Dispatcher.Admins[operatorID]; admin {
			b.reply(ctx, operatorID, "Использование: /broadcast <текст>")
		}
		return
	}
	report, err := b.Dispatcher.Broadcast(ctx, operatorID, payload)
	if errors.Is(err, broadcast.ErrUnauthorized) {
		// Не-администраторам не отвечаем, как и не рассылаем
		return
	}
	if err != nil {
		log.Printf("[BOT] рассылка оператора %d не удалась: %v", operatorID, err)
		b.reply(ctx, operatorID, "❌ Рассылка не удалась")
		return
	}
	b.reply(ctx, operatorID, fmt.Sprintf("📣 Рассылка завершена: доставлено %d из %d", report.Delivered, report.Total))
}

// reply отправляет ответ, не считая его сбой фатальным.
func (b *Bot) reply(ctx context.Context, userID int64, text string) {
	if err := b.Notify(ctx, userID, text); err != nil {
		log.Printf("[BOT] не удалось ответить пользователю %d: %v", userID, err)
	}
}
