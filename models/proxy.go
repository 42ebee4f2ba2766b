package models

// Proxy описывает SOCKS5-прокси для подключений к Telegram.
// Задаётся через конфигурацию и применяется ко всем клиентам процесса.
type Proxy struct {
	IP       string `json:"ip"`
	Port     int    `json:"port"`
	Login    string `json:"login"`
	Password string `json:"password"`
}
