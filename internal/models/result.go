package models

import "time"

// OperationResult единый конверт ответа для мутирующих операций.
type OperationResult struct {
	Success   bool   `json:"success"`
	Message   string `json:"message"`
	Code      string `json:"code,omitempty"`
	Retcode   int    `json:"retcode,omitempty"`
	Retryable bool   `json:"retryable,omitempty"`
	Payload   any    `json:"payload,omitempty"`
}

func OK(msg string, payload any) OperationResult {
	return OperationResult{Success: true, Message: msg, Payload: payload}
}

// Failed ошибка как значение-результат.
func Failed(err error) OperationResult {
	e := AsError(err)
	return OperationResult{
		Success:   false,
		Message:   e.Error(),
		Code:      string(e.Kind),
		Retcode:   e.Retcode,
		Retryable: e.Retryable,
	}
}

// OpenReceipt результат рыночного открытия.
type OpenReceipt struct {
	Ticket uint64  `json:"ticket"`
	Symbol string  `json:"symbol"`
	Price  float64 `json:"price"`
	Volume float64 `json:"volume"`
	Type   string  `json:"type"`
}

// CloseReceipt результат закрытия позиции.
type CloseReceipt struct {
	Ticket      uint64    `json:"ticket"`
	Symbol      string    `json:"symbol"`
	ClosedPrice float64   `json:"closed_price"`
	Volume      float64   `json:"volume"`
	Profit      float64   `json:"profit"`
	TimeClosed  time.Time `json:"time_closed"`
	Retcode     int       `json:"retcode"`
}

// ModifyReceipt результат изменения SL/TP позиции.
type ModifyReceipt struct {
	Ticket     uint64        `json:"ticket"`
	Symbol     string        `json:"symbol"`
	StopLoss   float64       `json:"stop_loss"`
	TakeProfit float64       `json:"take_profit"`
	Volume     float64       `json:"volume"`
	Partial    *CloseReceipt `json:"partial_close,omitempty"`
}

// PendingReceipt результат выставления или изменения отложенного ордера.
type PendingReceipt struct {
	Ticket     uint64  `json:"ticket"`
	Symbol     string  `json:"symbol"`
	Kind       string  `json:"type"`
	Price      float64 `json:"price"`
	Volume     float64 `json:"volume"`
	StopLoss   float64 `json:"sl"`
	TakeProfit float64 `json:"tp"`
	Comment    string  `json:"comment"`
}

// CancelReceipt результат снятия ордера.
type CancelReceipt struct {
	Ticket  uint64 `json:"ticket"`
	Retcode int    `json:"retcode"`
}
