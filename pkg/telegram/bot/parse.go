package bot

import (
	"regexp"
	"strconv"
	"strings"
)

// rangeLinkPattern распознаёт ссылку на сообщение или диапазон сообщений:
// https://t.me/<чат>/<ID> либо https://t.me/<чат>/<ID>-<ID>.
var rangeLinkPattern = regexp.MustCompile(`https://t\.me/([^/\s]+)/(\d+)(?:-(\d+))?`)

// RangeLink — разобранная ссылка на непрерывный диапазон сообщений.
type RangeLink struct {
	Chat    string
	StartID int
	EndID   int
}

// ParseRangeLink извлекает из текста ссылку на диапазон.
// Ссылка без второй границы означает одно сообщение. Перевёрнутый
// диапазон считается некорректным.
func ParseRangeLink(text string) (RangeLink, bool) {
	match := rangeLinkPattern.FindStringSubmatch(text)
	if len(match) != 4 {
		return RangeLink{}, false
	}
	start, err := strconv.Atoi(match[2])
	if err != nil {
		return RangeLink{}, false
	}
	link := RangeLink{Chat: match[1], StartID: start, EndID: start}
	if match[3] != "" {
		end, err := strconv.Atoi(match[3])
		if err != nil {
			return RangeLink{}, false
		}
		link.EndID = end
	}
	if link.EndID < link.StartID {
		return RangeLink{}, false
	}
	return link, true
}

// ParseBroadcast извлекает текст рассылки из команды /broadcast.
// Команда распознаётся только целиком: /broadcasting и подобные слова
// не должны запускать рассылку.
func ParseBroadcast(text string) (string, bool) {
	if text != "/broadcast" && !strings.HasPrefix(text, "/broadcast ") {
		return "", false
	}
	rest := strings.TrimSpace(strings.TrimPrefix(text, "/broadcast"))
	if rest == "" {
		return "", false
	}
	return rest, true
}
