package models

// DeliveryReport подводит итог рассылки по всем пользователям.
type DeliveryReport struct {
	Total     int     `json:"total"`     // Сколько пользователей было в списке
	Delivered int     `json:"delivered"` // Скольким доставлено
	Failed    int     `json:"failed"`    // Скольким доставить не удалось
	FailedIDs []int64 `json:"failed_ids,omitempty"`
}
