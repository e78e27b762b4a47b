package models

import (
	"fmt"
	"strings"
	"time"
)

// Side направление позиции или сделки.
type Side string

const (
	SideBuy  Side = "BUY"
	SideSell Side = "SELL"
)

// ParseSide принимает "buy"/"sell" в любом регистре.
func ParseSide(raw string) (Side, error) {
	switch strings.ToUpper(strings.TrimSpace(raw)) {
	case "BUY":
		return SideBuy, nil
	case "SELL":
		return SideSell, nil
	default:
		return "", NewError(KindValidation, fmt.Sprintf("invalid order_type %q, use buy or sell", raw))
	}
}

// Opposite сторона, которой закрывается позиция s.
func (s Side) Opposite() Side {
	if s == SideBuy {
		return SideSell
	}
	return SideBuy
}

// OrderType код рыночного ордера MT5 для стороны.
func (s Side) OrderType() OrderType {
	if s == SideSell {
		return OrderTypeSell
	}
	return OrderTypeBuy
}

// Position открытая позиция в терминале. Хранится только у брокера.
type Position struct {
	Ticket     uint64    `json:"ticket"`
	Symbol     string    `json:"symbol"`
	Volume     float64   `json:"volume"`
	OpenPrice  float64   `json:"open_price"`
	StopLoss   float64   `json:"stop_loss"`
	TakeProfit float64   `json:"take_profit"`
	Profit     float64   `json:"profit"`
	Side       Side      `json:"type"`
	Time       time.Time `json:"time"`
}

// PendingOrder отложенный ордер в терминале.
type PendingOrder struct {
	Ticket     uint64    `json:"ticket"`
	Symbol     string    `json:"symbol"`
	Volume     float64   `json:"volume"`
	Price      float64   `json:"price_open"`
	Type       OrderType `json:"-"`
	Kind       string    `json:"order_type"`
	StopLoss   float64   `json:"sl"`
	TakeProfit float64   `json:"tp"`
	TimeSetup  time.Time `json:"time_setup"`
}

// Quote текущая котировка.
type Quote struct {
	Symbol string    `json:"symbol"`
	Bid    float64   `json:"bid"`
	Ask    float64   `json:"ask"`
	Last   float64   `json:"last"`
	Time   time.Time `json:"time"`
}

// Candle одна свеча истории.
type Candle struct {
	Time       time.Time `json:"time"`
	Open       float64   `json:"open"`
	High       float64   `json:"high"`
	Low        float64   `json:"low"`
	Close      float64   `json:"close"`
	TickVolume int64     `json:"tick_volume"`
}

// AccountInfo сводка по счёту.
type AccountInfo struct {
	Balance     float64 `json:"balance"`
	Equity      float64 `json:"equity"`
	Margin      float64 `json:"margin"`
	FreeMargin  float64 `json:"free_margin"`
	MarginLevel float64 `json:"margin_level"`
	Leverage    int     `json:"leverage"`
	Currency    string  `json:"currency"`
}

// TerminalInfo минимальный ответ terminal_info.
type TerminalInfo struct {
	Connected    bool   `json:"connected"`
	TradeAllowed bool   `json:"trade_allowed"`
	Company      string `json:"company"`
	Name         string `json:"name"`
}

// Symbol элемент symbols_get.
type Symbol struct {
	Name    string `json:"name"`
	Visible bool   `json:"visible"`
}

// Timeframe таймфрейм исторических свечей.
type Timeframe string

const (
	TimeframeM1  Timeframe = "1MIN"
	TimeframeM5  Timeframe = "5MIN"
	TimeframeM15 Timeframe = "15MIN"
	TimeframeM30 Timeframe = "30MIN"
	TimeframeH1  Timeframe = "H1"
	TimeframeH4  Timeframe = "H4"
	TimeframeD1  Timeframe = "D1"
	TimeframeW1  Timeframe = "W1"
	TimeframeMN1 Timeframe = "MN1"
)

// mt5 TIMEFRAME_* values
var timeframeCodes = map[Timeframe]int{
	TimeframeM1:  1,
	TimeframeM5:  5,
	TimeframeM15: 15,
	TimeframeM30: 30,
	TimeframeH1:  16385,
	TimeframeH4:  16388,
	TimeframeD1:  16408,
	TimeframeW1:  32769,
	TimeframeMN1: 49153,
}

func ParseTimeframe(raw string) (Timeframe, error) {
	tf := Timeframe(strings.ToUpper(strings.TrimSpace(raw)))
	if _, ok := timeframeCodes[tf]; !ok {
		return "", NewError(KindValidation, fmt.Sprintf("Invalid timeframe '%s'", raw))
	}
	return tf, nil
}

// Code константа TIMEFRAME_* в MT5.
func (tf Timeframe) Code() int { return timeframeCodes[tf] }
