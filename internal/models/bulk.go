package models

import (
	"fmt"
	"strings"
)

// TypeFilter фильтр по направлению.
type TypeFilter string

const (
	TypeAll     TypeFilter = "all"
	TypeBuy     TypeFilter = "buy"
	TypeSell    TypeFilter = "sell"
	TypePending TypeFilter = "pending"
)

// StatusFilter фильтр по категории: открытые позиции или отложенные.
type StatusFilter string

const (
	StatusOpen    StatusFilter = "open"
	StatusPending StatusFilter = "pending"
	StatusAll     StatusFilter = "all"
)

// ProfitFilter фильтр по знаку прибыли, применяется только к позициям.
type ProfitFilter string

const (
	ProfitAll      ProfitFilter = "all"
	ProfitPositive ProfitFilter = "positive"
	ProfitNegative ProfitFilter = "negative"
)

// BulkFilterCriteria набор фильтров для массового закрытия.
type BulkFilterCriteria struct {
	Symbol string       `json:"symbol,omitempty"`
	Type   TypeFilter   `json:"type"`
	Status StatusFilter `json:"status"`
	Profit ProfitFilter `json:"profit"`
}

// ParseBulkFilter проверяет сырые строки один раз на входе. Пустые значения
// дают type=all, status=open, profit=all.
func ParseBulkFilter(symbol, typ, status, profit string) (BulkFilterCriteria, error) {
	c := BulkFilterCriteria{
		Symbol: strings.TrimSpace(symbol),
		Type:   TypeFilter(lowerOr(typ, string(TypeAll))),
		Status: StatusFilter(lowerOr(status, string(StatusOpen))),
		Profit: ProfitFilter(lowerOr(profit, string(ProfitAll))),
	}
	switch c.Type {
	case TypeAll, TypeBuy, TypeSell, TypePending:
	default:
		return c, NewError(KindValidation, fmt.Sprintf("invalid type filter %q, use buy, sell, pending or all", typ))
	}
	switch c.Status {
	case StatusOpen, StatusPending, StatusAll:
	default:
		return c, NewError(KindValidation, fmt.Sprintf("invalid status filter %q, use open, pending or all", status))
	}
	switch c.Profit {
	case ProfitAll, ProfitPositive, ProfitNegative:
	default:
		return c, NewError(KindValidation, fmt.Sprintf("invalid profit filter %q, use positive, negative or all", profit))
	}
	return c, nil
}

func lowerOr(v, def string) string {
	v = strings.ToLower(strings.TrimSpace(v))
	if v == "" {
		return def
	}
	return v
}

// Category позиция или отложенный ордер.
type Category string

const (
	CategoryPosition Category = "position"
	CategoryPending  Category = "pending"
)

// BulkItemResult итог по одному тикету.
type BulkItemResult struct {
	Ticket   uint64   `json:"ticket"`
	Symbol   string   `json:"symbol"`
	Category Category `json:"type"`
	Success  bool     `json:"success"`
	Message  string   `json:"message"`
}

// BulkCloseResult агрегат массового закрытия.
type BulkCloseResult struct {
	Success bool             `json:"success"`
	Message string           `json:"message"`
	Closed  int              `json:"closed"`
	Total   int              `json:"total"`
	Results []BulkItemResult `json:"results"`
}
