package login

import (
	"context"
	"errors"
	"fmt"
	"log"

	"cbridge_go/models"
	module "cbridge_go/pkg/telegram/a_technical"

	"github.com/gotd/td/session"
	"github.com/gotd/td/telegram"
	"github.com/gotd/td/telegram/auth"
	"github.com/gotd/td/tg"
)

// TelegramConnector открывает транзиентный клиент gotd для одной
// попытки входа. Сессия живёт в памяти и после успешного входа
// выгружается целиком — долгоживущее соединение бота не используется.
type TelegramConnector struct {
	APIID   int
	APIHash string
	Proxy   *models.Proxy
}

func (c *TelegramConnector) RunTransient(ctx context.Context, fn func(ctx context.Context, a Authorizer) error) error {
	storage := &session.StorageMemory{}
	client, err := module.Modf_ClientInitialization(c.APIID, c.APIHash, storage, c.Proxy, nil)
	if err != nil {
		return err
	}
	// client.Run закрывает соединение при любом выходе из колбэка,
	// включая отмену контекста и таймаут ожидания кода.
	return client.Run(ctx, func(ctx context.Context) error {
		return fn(ctx, &gotdAuthorizer{client: client, storage: storage})
	})
}

type gotdAuthorizer struct {
	client  *telegram.Client
	storage *session.StorageMemory
}

// SendCode просит Telegram отправить код подтверждения на номер.
func (g *gotdAuthorizer) SendCode(ctx context.Context, phone string) (string, error) {
	sentCode, err := g.client.Auth().SendCode(ctx, phone, auth.SendCodeOptions{})
	if err != nil {
		return "", err
	}
	sent, ok := sentCode.(*tg.AuthSentCode)
	if !ok {
		log.Printf("[ERROR] Unexpected sent code type: %T", sentCode)
		return "", fmt.Errorf("unexpected sent code type: %T", sentCode)
	}
	return sent.PhoneCodeHash, nil
}

// SignIn завершает вход по номеру, коду и хешу кода.
func (g *gotdAuthorizer) SignIn(ctx context.Context, phone, code, codeHash string) error {
	if _, err := g.client.Auth().SignIn(ctx, phone, code, codeHash); err != nil {
		if errors.Is(err, auth.ErrPasswordAuthNeeded) {
			// Аккаунты с облачным паролем не поддерживаются
			return fmt.Errorf("аккаунт защищён облачным паролем: %w", err)
		}
		return err
	}
	return nil
}

// ExportSession выгружает сессию авторизованного клиента.
func (g *gotdAuthorizer) ExportSession(ctx context.Context) ([]byte, error) {
	return g.storage.LoadSession(ctx)
}
