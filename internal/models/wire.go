package models

// Коды MT5, которые гоняем через мост как есть.

// TradeAction TRADE_ACTION_*.
type TradeAction int

const (
	ActionDeal    TradeAction = 1
	ActionPending TradeAction = 5
	ActionSLTP    TradeAction = 6
	ActionModify  TradeAction = 7
	ActionRemove  TradeAction = 8
)

// OrderType ORDER_TYPE_*.
type OrderType int

const (
	OrderTypeBuy           OrderType = 0
	OrderTypeSell          OrderType = 1
	OrderTypeBuyLimit      OrderType = 2
	OrderTypeSellLimit     OrderType = 3
	OrderTypeBuyStop       OrderType = 4
	OrderTypeSellStop      OrderType = 5
	OrderTypeBuyStopLimit  OrderType = 6
	OrderTypeSellStopLimit OrderType = 7
	OrderTypeCloseBy       OrderType = 8
)

// IsMarket true для BUY/SELL, то есть кодов 0 и 1.
func (t OrderType) IsMarket() bool {
	return t == OrderTypeBuy || t == OrderTypeSell
}

var orderTypeLabels = map[OrderType]string{
	OrderTypeBuyLimit:      "Buy Limit",
	OrderTypeSellLimit:     "Sell Limit",
	OrderTypeBuyStop:       "Buy Stop",
	OrderTypeSellStop:      "Sell Stop",
	OrderTypeBuyStopLimit:  "Buy Stop Limit",
	OrderTypeSellStopLimit: "Sell Stop Limit",
	OrderTypeCloseBy:       "Close By Order",
}

// Label человекочитаемое имя отложенного типа.
func (t OrderType) Label() string {
	if l, ok := orderTypeLabels[t]; ok {
		return l
	}
	return "Unknown"
}

// FillPolicy ORDER_FILLING_*.
type FillPolicy int

const (
	FillFOK    FillPolicy = 0
	FillIOC    FillPolicy = 1
	FillReturn FillPolicy = 2
)

// OrderTime ORDER_TIME_*.
type OrderTime int

const OrderTimeGTC OrderTime = 0

// TradeRequest то, что уходит в order_send.
type TradeRequest struct {
	Action      TradeAction `json:"action"`
	Magic       int64       `json:"magic,omitempty"`
	Order       uint64      `json:"order,omitempty"`
	Symbol      string      `json:"symbol,omitempty"`
	Volume      float64     `json:"volume,omitempty"`
	Price       float64     `json:"price,omitempty"`
	StopLoss    float64     `json:"sl"`
	TakeProfit  float64     `json:"tp"`
	Deviation   int         `json:"deviation,omitempty"`
	Type        OrderType   `json:"type"`
	TypeFilling FillPolicy  `json:"type_filling"`
	TypeTime    OrderTime   `json:"type_time"`
	Comment     string      `json:"comment,omitempty"`
	Position    uint64      `json:"position,omitempty"`
}

// TradeResult ответ order_send.
type TradeResult struct {
	Retcode int     `json:"retcode"`
	Deal    uint64  `json:"deal"`
	Order   uint64  `json:"order"`
	Volume  float64 `json:"volume"`
	Price   float64 `json:"price"`
	Bid     float64 `json:"bid"`
	Ask     float64 `json:"ask"`
	Comment string  `json:"comment"`
}

// Credentials логин в терминал.
type Credentials struct {
	Login    int64  `json:"login"`
	Password string `json:"password"`
	Server   string `json:"server"`
}

// LastError ответ last_error.
type LastError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}
