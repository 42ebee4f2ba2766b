// Package relay пересылает непрерывный диапазон сообщений из чата-источника
// запросившему пользователю от его собственного имени (делегированная сессия).
package relay

import (
	"context"
	"fmt"
	"log"

	"cbridge_go/models"
)

// VaultReader выдаёт расшифрованную сессию пользователя.
type VaultReader interface {
	Get(ctx context.Context, userID int64) ([]byte, error)
}

// Item — одно полученное сообщение источника.
type Item struct {
	ID       int
	Text     string
	HasMedia bool
}

// Client — операции делегированного клиента над чатом-источником.
type Client interface {
	FetchMessage(ctx context.Context, msgID int) (*Item, error)
	CopyToSaved(ctx context.Context, msgID int) error
}

// Dialer открывает делегированное соединение на время работы fn.
// Соединение закрывается при любом выходе из fn.
type Dialer interface {
	Run(ctx context.Context, session []byte, sourceChat string, fn func(ctx context.Context, c Client) error) error
}

// Notifier отправляет текст пользователю от имени бота.
type Notifier interface {
	Notify(ctx context.Context, userID int64, text string) error
}

// Pipeline выполняет пересылку диапазона.
type Pipeline struct {
	Vault    VaultReader
	Dialer   Dialer
	Notifier Notifier
}

// Run пересылает сообщения [startID, endID] из sourceChat пользователю.
// Недоступность отдельного сообщения не прерывает пакет; жёсткой ошибкой
// считается только отсутствие сессии, невозможность подключиться или
// неразрешимый чат-источник.
func (p *Pipeline) Run(ctx context.Context, userID int64, sourceChat string, startID, endID int) (*models.RelayJob, error) {
	if startID > endID {
		return nil, fmt.Errorf("некорректный диапазон: %d-%d", startID, endID)
	}

	// Сессию проверяем до любых подключений: без неё соединение не открываем
	session, err := p.Vault.Get(ctx, userID)
	if err != nil {
		return nil, err
	}

	job := &models.RelayJob{
		UserID:     userID,
		SourceChat: sourceChat,
		StartID:    startID,
		EndID:      endID,
	}

	err = p.Dialer.Run(ctx, session, sourceChat, func(ctx context.Context, c Client) error {
		// Сначала собираем все доступные сообщения диапазона по возрастанию ID
		var items []*Item
		for msgID := startID; msgID <= endID; msgID++ {
			item, err := c.FetchMessage(ctx, msgID)
			if err != nil {
				log.Printf("[RELAY] сообщение %d/%s недоступно: %v", msgID, sourceChat, err)
				job.AddResult(msgID, models.RelayOutcomeFetchFail, err)
				continue
			}
			items = append(items, item)
		}

		// Затем доставляем их в том же порядке; строго последовательно,
		// чтобы сохранить читаемый порядок у получателя
		for _, item := range items {
			var err error
			if item.HasMedia {
				err = c.CopyToSaved(ctx, item.ID)
			} else {
				err = p.Notifier.Notify(ctx, userID, item.Text)
			}
			if err != nil {
				log.Printf("[RELAY] сообщение %d не доставлено пользователю %d: %v", item.ID, userID, err)
				job.AddResult(item.ID, models.RelayOutcomeSendFail, err)
				continue
			}
			job.AddResult(item.ID, models.RelayOutcomeRelayed, nil)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("пересылка для пользователя %d: %w", userID, err)
	}

	log.Printf("[RELAY] пользователь %d, чат %s: доставлено %d, пропущено %d", userID, sourceChat, job.Relayed, job.Skipped)
	return job, nil
}
