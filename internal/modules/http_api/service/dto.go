package service

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"mt5_gateway/internal/models"

	"github.com/go-playground/validator/v10"
)

type openRequest struct {
	Symbol    string  `json:"symbol" validate:"required"`
	Volume    float64 `json:"volume" validate:"gt=0"`
	OrderType string  `json:"order_type" validate:"required"`
	SL        float64 `json:"sl" validate:"gte=0"`
	TP        float64 `json:"tp" validate:"gte=0"`
}

func (r openRequest) intent() (models.MarketOpen, error) {
	side, err := models.ParseSide(r.OrderType)
	if err != nil {
		return models.MarketOpen{}, err
	}
	return models.MarketOpen{
		Symbol:     r.Symbol,
		Volume:     r.Volume,
		Side:       side,
		StopLoss:   r.SL,
		TakeProfit: r.TP,
	}, nil
}

type ticketRequest struct {
	Ticket uint64 `json:"ticket" validate:"required"`
}

type modifyRequest struct {
	Ticket          uint64   `json:"ticket" validate:"required"`
	StopLoss        *float64 `json:"stop_loss" validate:"omitempty,gte=0"`
	TakeProfit      *float64 `json:"take_profit" validate:"omitempty,gte=0"`
	Volume          *float64 `json:"volume" validate:"omitempty,gt=0"`
	ClearStopLoss   bool     `json:"clear_stop_loss"`
	ClearTakeProfit bool     `json:"clear_take_profit"`
}

func (r modifyRequest) intent() models.MarketModify {
	return models.MarketModify{
		Ticket:          r.Ticket,
		StopLoss:        r.StopLoss,
		TakeProfit:      r.TakeProfit,
		ClearStopLoss:   r.ClearStopLoss,
		ClearTakeProfit: r.ClearTakeProfit,
		Volume:          r.Volume,
	}
}

type pendingRequest struct {
	Symbol    string   `json:"symbol" validate:"required"`
	OrderType string   `json:"order_type" validate:"required"`
	Price     float64  `json:"price" validate:"gt=0"`
	Volume    float64  `json:"volume" validate:"gt=0"`
	SL        *float64 `json:"sl" validate:"omitempty,gte=0"`
	TP        *float64 `json:"tp" validate:"omitempty,gte=0"`
}

func (r pendingRequest) intent() (models.PendingPlace, error) {
	kind, err := models.ParsePendingKind(r.OrderType)
	if err != nil {
		return models.PendingPlace{}, err
	}
	return models.PendingPlace{
		Symbol:     r.Symbol,
		Kind:       kind,
		Price:      r.Price,
		Volume:     r.Volume,
		StopLoss:   r.SL,
		TakeProfit: r.TP,
	}, nil
}

// 0 в любом поле значит "не менять"
type pendingModifyRequest struct {
	Ticket uint64   `json:"ticket" validate:"required"`
	Price  *float64 `json:"price" validate:"omitempty,gte=0"`
	SL     *float64 `json:"sl" validate:"omitempty,gte=0"`
	TP     *float64 `json:"tp" validate:"omitempty,gte=0"`
	Volume *float64 `json:"volume" validate:"omitempty,gte=0"`
}

func (r pendingModifyRequest) intent() models.PendingModify {
	return models.PendingModify{
		Ticket:     r.Ticket,
		Price:      r.Price,
		StopLoss:   r.SL,
		TakeProfit: r.TP,
		Volume:     r.Volume,
	}
}

type bulkRequest struct {
	Symbol string `json:"symbol"`
	Type   string `json:"type"`
	Status string `json:"status"`
	Profit string `json:"profit"`
}

// merge поля тела перекрывают query.
func (r bulkRequest) merge(body *bulkRequest) bulkRequest {
	if body == nil {
		return r
	}
	if body.Symbol != "" {
		r.Symbol = body.Symbol
	}
	if body.Type != "" {
		r.Type = body.Type
	}
	if body.Status != "" {
		r.Status = body.Status
	}
	if body.Profit != "" {
		r.Profit = body.Profit
	}
	return r
}

type journalRequest struct {
	Action     string  `json:"action" validate:"required"`
	Ticket     uint64  `json:"ticket"`
	Symbol     string  `json:"symbol"`
	Direction  string  `json:"direction" validate:"omitempty,oneof=buy sell BUY SELL"`
	Volume     float64 `json:"volume" validate:"gte=0"`
	Price      float64 `json:"price" validate:"gte=0"`
	StopLoss   float64 `json:"stop_loss" validate:"gte=0"`
	TakeProfit float64 `json:"take_profit" validate:"gte=0"`
	Success    bool    `json:"success"`
	Message    string  `json:"message"`
}

type instrumentRequest struct {
	Symbol            string `json:"symbol" validate:"required,max=32"`
	Description       string `json:"description"`
	Session           string `json:"session"`
	VolatilityProfile string `json:"volatility_profile"`
}

type historyResponse struct {
	Symbol         string          `json:"symbol"`
	Timeframe      string          `json:"timeframe"`
	Candles        int             `json:"candles"`
	HistoricalData []models.Candle `json:"historical_data"`
}

// validationError сводит ошибки validator к одной строке.
func validationError(err error) error {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return models.WrapError(models.KindValidation, "invalid request", err)
	}
	parts := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		if fe.Param() != "" {
			parts = append(parts, fmt.Sprintf("%s: must be %s %s", fe.Field(), fe.Tag(), fe.Param()))
		} else {
			parts = append(parts, fmt.Sprintf("%s: %s", fe.Field(), fe.Tag()))
		}
	}
	return models.NewError(models.KindValidation, strings.Join(parts, "; "))
}

// newValidator имена полей в ошибках берутся из json-тегов.
func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name, _, _ := strings.Cut(fld.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}
