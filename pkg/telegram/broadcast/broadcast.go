// Package broadcast рассылает сообщение оператора всем известным
// пользователям от имени самого бота (без делегированных сессий).
package broadcast

import (
	"context"
	"errors"
	"fmt"
	"log"

	"cbridge_go/internal/common"
	"cbridge_go/models"
)

// ErrUnauthorized — вызывающий не входит в список администраторов.
var ErrUnauthorized = errors.New("рассылка доступна только администраторам")

// Directory перечисляет пользователей для рассылки.
// Реализуется vault.Vault.
type Directory interface {
	ListUsers(ctx context.Context) ([]int64, error)
}

// Sender доставляет текст пользователю от имени бота.
type Sender interface {
	SendText(ctx context.Context, userID int64, text string) error
}

// Dispatcher выполняет рассылку с допуском по списку администраторов.
type Dispatcher struct {
	Directory Directory
	Sender    Sender
	Admins    map[int64]struct{}
	Pacing    [2]int // Пауза между отправками в секундах; нулевой диапазон отключает её
}

// Broadcast отправляет text каждому известному пользователю.
// Проверка прав выполняется до любых побочных действий. Сбой доставки
// одному пользователю фиксируется и не прерывает остальных; повторных
// попыток нет.
func (d *Dispatcher) Broadcast(ctx context.Context, operatorID int64, text string) (*models.DeliveryReport, error) {
	if _, ok := d.Admins[operatorID]; !ok {
		log.Printf("[BROADCAST] отказ: пользователь %d не администратор", operatorID)
		return nil, ErrUnauthorized
	}

	ids, err := d.Directory.ListUsers(ctx)
	if err != nil {
		return nil, fmt.Errorf("список пользователей: %w", err)
	}

	report := &models.DeliveryReport{Total: len(ids)}
	for i, userID := range ids {
		if err := d.Sender.SendText(ctx, userID, text); err != nil {
			// Заблокировавшие бота и удалённые аккаунты просто пропускаем
			log.Printf("[BROADCAST] пользователь %d недоступен: %v", userID, err)
			report.Failed++
			report.FailedIDs = append(report.FailedIDs, userID)
			continue
		}
		report.Delivered++

		// После последнего получателя пауза не нужна
		if d.Pacing[1] > 0 && i < len(ids)-1 {
			if err := common.WaitWithCancellation(ctx, d.Pacing); err != nil {
				return report, err
			}
		}
	}

	log.Printf("[BROADCAST] оператор %d: доставлено %d из %d", operatorID, report.Delivered, report.Total)
	return report, nil
}
