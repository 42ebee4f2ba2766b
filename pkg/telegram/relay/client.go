package relay

import (
	"context"
	"fmt"
	"math/rand"

	"cbridge_go/models"
	module "cbridge_go/pkg/telegram/a_technical"

	"github.com/gotd/td/session"
	"github.com/gotd/td/tg"
)

// TelegramDialer открывает делегированный клиент gotd с сессией пользователя.
// Сессия загружается в память и не сохраняется на диск.
type TelegramDialer struct {
	APIID   int
	APIHash string
	Proxy   *models.Proxy
}

func (d *TelegramDialer) Run(ctx context.Context, sessionData []byte, sourceChat string, fn func(ctx context.Context, c Client) error) error {
	storage := &session.StorageMemory{}
	if err := storage.StoreSession(ctx, sessionData); err != nil {
		return fmt.Errorf("загрузка сессии: %w", err)
	}
	client, err := module.Modf_ClientInitialization(d.APIID, d.APIHash, storage, d.Proxy, nil)
	if err != nil {
		return err
	}
	// client.Run закрывает соединение при любом выходе из колбэка
	return client.Run(ctx, func(ctx context.Context) error {
		api := tg.NewClient(client)

		resolved, err := api.ContactsResolveUsername(ctx, sourceChat)
		if err != nil {
			return fmt.Errorf("чат %s не найден: %w", sourceChat, err)
		}
		ch, err := findChannel(resolved.GetChats())
		if err != nil {
			return fmt.Errorf("чат %s: %w", sourceChat, err)
		}
		return fn(ctx, &gotdClient{api: api, channel: ch})
	})
}

// findChannel находит канал или супергруппу в списке чатов.
func findChannel(chats []tg.ChatClass) (*tg.Channel, error) {
	for _, peer := range chats {
		if ch, ok := peer.(*tg.Channel); ok {
			return ch, nil
		}
	}
	return nil, fmt.Errorf("канал не найден")
}

type gotdClient struct {
	api     *tg.Client
	channel *tg.Channel
}

// FetchMessage получает одно сообщение канала по ID.
func (c *gotdClient) FetchMessage(ctx context.Context, msgID int) (*Item, error) {
	res, err := c.api.ChannelsGetMessages(ctx, &tg.ChannelsGetMessagesRequest{
		Channel: &tg.InputChannel{ChannelID: c.channel.ID, AccessHash: c.channel.AccessHash},
		ID:      []tg.InputMessageClass{&tg.InputMessageID{ID: msgID}},
	})
	if err != nil {
		return nil, err
	}
	messages, ok := res.(*tg.MessagesChannelMessages)
	if !ok {
		return nil, fmt.Errorf("unexpected messages type: %T", res)
	}
	for _, m := range messages.Messages {
		msg, ok := m.(*tg.Message)
		if !ok || msg.ID != msgID {
			continue
		}
		item := &Item{ID: msg.ID, Text: msg.Message}
		if media, ok := msg.GetMedia(); ok && media != nil {
			item.HasMedia = true
		}
		return item, nil
	}
	// Telegram вернул MessageEmpty: сообщение удалено или недоступно
	return nil, fmt.Errorf("сообщение %d недоступно", msgID)
}

// CopyToSaved копирует сообщение в «Избранное» пользователя.
// DropAuthor убирает заголовок пересылки, получается копия, а не форвард.
func (c *gotdClient) CopyToSaved(ctx context.Context, msgID int) error {
	_, err := c.api.MessagesForwardMessages(ctx, &tg.MessagesForwardMessagesRequest{
		FromPeer:   &tg.InputPeerChannel{ChannelID: c.channel.ID, AccessHash: c.channel.AccessHash},
		ID:         []int{msgID},
		ToPeer:     &tg.InputPeerSelf{},
		RandomID:   []int64{rand.Int63()},
		DropAuthor: true,
	})
	return err
}
