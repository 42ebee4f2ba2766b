package models

// Итог обработки одного сообщения диапазона.
const (
	RelayOutcomeRelayed   = "relayed"    // Сообщение доставлено пользователю
	RelayOutcomeFetchFail = "fetch_fail" // Сообщение не удалось получить из источника
	RelayOutcomeSendFail  = "send_fail"  // Сообщение получено, но не доставлено
)

// RelayResult фиксирует судьбу одного сообщения диапазона.
type RelayResult struct {
	MsgID   int    `json:"msg_id"`
	Outcome string `json:"outcome"`
	Error   string `json:"error,omitempty"`
}

// RelayJob описывает одну пересылку непрерывного диапазона сообщений.
// Создаётся на каждый запрос и после завершения не сохраняется.
type RelayJob struct {
	UserID     int64         `json:"user_id"`
	SourceChat string        `json:"source_chat"`
	StartID    int           `json:"start_id"`
	EndID      int           `json:"end_id"`
	Results    []RelayResult `json:"results"`
	Relayed    int           `json:"relayed"`
	Skipped    int           `json:"skipped"`
}

// AddResult добавляет итог по сообщению и обновляет счётчики.
func (j *RelayJob) AddResult(msgID int, outcome string, err error) {
	r := RelayResult{MsgID: msgID, Outcome: outcome}
	if err != nil {
		r.Error = err.Error()
	}
	j.Results = append(j.Results, r)
	if outcome == RelayOutcomeRelayed {
		j.Relayed++
	} else {
		j.Skipped++
	}
}
