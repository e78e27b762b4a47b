package models

import (
	"fmt"
	"strings"
)

// PendingKind один из четырёх поддерживаемых отложенных типов.
type PendingKind string

const (
	PendingBuyLimit  PendingKind = "buy_limit"
	PendingSellLimit PendingKind = "sell_limit"
	PendingBuyStop   PendingKind = "buy_stop"
	PendingSellStop  PendingKind = "sell_stop"
)

var pendingKindTypes = map[PendingKind]OrderType{
	PendingBuyLimit:  OrderTypeBuyLimit,
	PendingSellLimit: OrderTypeSellLimit,
	PendingBuyStop:   OrderTypeBuyStop,
	PendingSellStop:  OrderTypeSellStop,
}

// ParsePendingKind допускает только четыре вида отложенных ордеров.
func ParsePendingKind(raw string) (PendingKind, error) {
	k := PendingKind(strings.ToLower(strings.TrimSpace(raw)))
	if _, ok := pendingKindTypes[k]; !ok {
		return "", NewError(KindInvalidOrderKind,
			fmt.Sprintf("Invalid order_type '%s'. Use: buy_limit, sell_limit, buy_stop, sell_stop", raw))
	}
	return k, nil
}

// OrderType код MT5 для вида; ok=false для незнакомого.
func (k PendingKind) OrderType() (OrderType, bool) {
	t, ok := pendingKindTypes[k]
	return t, ok
}

// PendingSide сворачивает отложенный тип в buy/sell. ok=false для stop-limit и прочих.
func PendingSide(t OrderType) (Side, bool) {
	switch t {
	case OrderTypeBuyLimit, OrderTypeBuyStop:
		return SideBuy, true
	case OrderTypeSellLimit, OrderTypeSellStop:
		return SideSell, true
	default:
		return "", false
	}
}

// MarketOpen открыть позицию по рынку.
type MarketOpen struct {
	Symbol     string
	Volume     float64
	Side       Side
	StopLoss   float64
	TakeProfit float64
}

// MarketClose закрыть позицию целиком.
type MarketClose struct {
	Ticket uint64
}

// MarketModify меняет SL/TP открытой позиции. nil = оставить текущее значение,
// Clear* снимает уровень. Volume меньше текущего закрывает разницу.
type MarketModify struct {
	Ticket          uint64
	StopLoss        *float64
	TakeProfit      *float64
	ClearStopLoss   bool
	ClearTakeProfit bool
	Volume          *float64
}

// PendingPlace выставить отложенный ордер.
type PendingPlace struct {
	Symbol     string
	Kind       PendingKind
	Price      float64
	Volume     float64
	StopLoss   *float64
	TakeProfit *float64
}

// PendingModify изменить отложенный ордер. Нулевые стопы трактуются как "не задано".
type PendingModify struct {
	Ticket     uint64
	Price      *float64
	StopLoss   *float64
	TakeProfit *float64
	Volume     *float64
}

// PendingCancel снять отложенный ордер.
type PendingCancel struct {
	Ticket uint64
}

func validateVolume(v float64) error {
	if v <= 0 {
		return NewError(KindValidation, fmt.Sprintf("volume must be > 0, got %v", v))
	}
	return nil
}

func (i MarketOpen) Validate() error {
	if strings.TrimSpace(i.Symbol) == "" {
		return NewError(KindValidation, "symbol is required")
	}
	if i.Side != SideBuy && i.Side != SideSell {
		return NewError(KindValidation, fmt.Sprintf("invalid side %q", i.Side))
	}
	return validateVolume(i.Volume)
}

func (i MarketModify) Validate() error {
	if i.Volume != nil {
		return validateVolume(*i.Volume)
	}
	return nil
}

func (i PendingPlace) Validate() error {
	if strings.TrimSpace(i.Symbol) == "" {
		return NewError(KindValidation, "symbol is required")
	}
	if _, ok := i.Kind.OrderType(); !ok {
		_, err := ParsePendingKind(string(i.Kind))
		return err
	}
	if i.Price <= 0 {
		return NewError(KindValidation, "price must be > 0")
	}
	return validateVolume(i.Volume)
}

func (i PendingModify) Validate() error {
	if v := NonZero(i.Volume); v != nil {
		if err := validateVolume(*v); err != nil {
			return err
		}
	}
	sl, tp := NonZero(i.StopLoss), NonZero(i.TakeProfit)
	if sl != nil && tp != nil && *sl >= *tp {
		return NewError(KindInvalidStops, "Invalid stops: SL must be less than TP")
	}
	return nil
}

// NonZero нормализует 0 в "не задано".
func NonZero(v *float64) *float64 {
	if v == nil || *v == 0 {
		return nil
	}
	return v
}
