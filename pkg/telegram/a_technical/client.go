// Package module содержит техническую обвязку клиентов Telegram:
// создание клиента, прокси и хранение сессии бота в БД.
package module

import (
	"fmt"
	"log"

	"cbridge_go/models"

	"golang.org/x/net/proxy"

	"github.com/gotd/td/session"
	"github.com/gotd/td/telegram"
	"github.com/gotd/td/telegram/dcs"
)

// Создаём клиент Telegram с указанным хранилищем сессии.
// Прокси и обработчик апдейтов подключаются только если заданы.
func Modf_ClientInitialization(apiID int, apiHash string, storage session.Storage, p *models.Proxy, h telegram.UpdateHandler) (*telegram.Client, error) {
	opts := telegram.Options{SessionStorage: storage}
	if h != nil {
		opts.UpdateHandler = h
	}
	if p != nil {
		addr := fmt.Sprintf("%s:%d", p.IP, p.Port)
		var auth *proxy.Auth
		if p.Login != "" || p.Password != "" {
			auth = &proxy.Auth{User: p.Login, Password: p.Password}
		}
		d, err := proxy.SOCKS5("tcp", addr, auth, proxy.Direct)
		if err != nil {
			return nil, fmt.Errorf("proxy dialer: %w", err)
		}
		dc, ok := d.(proxy.ContextDialer)
		if !ok {
			return nil, fmt.Errorf("proxy dialer missing context")
		}
		opts.Resolver = dcs.Plain(dcs.PlainOptions{Dial: dc.DialContext})
		log.Printf("[PROXY] подключение через %s", addr)
	}
	return telegram.NewClient(apiID, apiHash, opts), nil
}
