// Package common содержит вспомогательные примитивы, общие для модулей.
package common

import (
	"context"
	"math/rand"
	"time"
)

// WaitWithCancellation выполняет паузу случайной длины из диапазона и
// регулярно проверяет контекст, чтобы долгие задержки можно было прервать.
// Шаг проверки — пять секунд: этого достаточно, чтобы быстро завершить
// рассылку по требованию, не опрашивая контекст в цикле.
func WaitWithCancellation(ctx context.Context, delayRange [2]int) error {
	delay := rand.Intn(delayRange[1]-delayRange[0]+1) + delayRange[0]
	for remaining := delay; remaining > 0; {
		step := 5
		if remaining < step {
			step = remaining
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(time.Duration(step) * time.Second):
		}
		remaining -= step
	}
	return nil
}
