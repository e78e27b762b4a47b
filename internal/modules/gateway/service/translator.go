package service

import (
	"context"
	"fmt"
	"math"
	"strings"
	"time"

	"mt5_gateway/internal/models"
	terminal "mt5_gateway/internal/modules/terminal/service"
	"mt5_gateway/pkg/logger"
)

const (
	magicNumber      = 123456
	openDeviation    = 10
	closeDeviation   = 20
	pendingDeviation = 20

	commentOpen    = "API trade"
	commentClose   = "API close"
	commentPending = "pending_api"
	commentModify  = "modified_api"
	commentCancel  = "cancel_pending"
)

// Translator собирает запросы order_send из намерений и разбирает ответы.
// Символы приходят уже разрешёнными, сессия уже захвачена вызывающим.
type Translator struct {
	now func() time.Time
}

func NewTranslator() *Translator {
	return &Translator{now: time.Now}
}

func terminalErr(op string, err error) error {
	return models.WrapError(models.KindConnection, op+": terminal call failed", err)
}

// send отправляет запрос и прогоняет ответ через таблицу кодов.
func send(ctx context.Context, t terminal.Terminal, req models.TradeRequest, failKind models.ErrorKind, action string) (*models.TradeResult, error) {
	res, err := t.OrderSend(ctx, req)
	if err != nil {
		return nil, terminalErr(action, err)
	}
	if res == nil {
		msg := action + " failed: order_send returned no result"
		if le, err := t.LastError(ctx); err != nil {
			logger.Warn("[TRADE] last_error: %v", err)
		} else {
			msg += fmt.Sprintf(", last error %d %s", le.Code, le.Message)
		}
		return nil, models.NewError(failKind, msg)
	}
	if err := Interpret(res, failKind, action); err != nil {
		return res, err
	}
	return res, nil
}

func freshTick(ctx context.Context, t terminal.Terminal, symbol string) (*models.Quote, error) {
	tick, err := t.SymbolInfoTick(ctx, symbol)
	if err != nil {
		return nil, terminalErr("symbol_info_tick", err)
	}
	if tick == nil {
		return nil, models.NewError(models.KindTradeExecution, fmt.Sprintf("Failed to get tick data for %s", symbol))
	}
	return tick, nil
}

func findPosition(ctx context.Context, t terminal.Terminal, ticket uint64) (*models.Position, error) {
	positions, err := t.PositionsGet(ctx, ticket)
	if err != nil {
		return nil, terminalErr("positions_get", err)
	}
	for i := range positions {
		if positions[i].Ticket == ticket {
			return &positions[i], nil
		}
	}
	return nil, models.NewError(models.KindNotFound, fmt.Sprintf("No open position found for ticket %d", ticket))
}

func findOrder(ctx context.Context, t terminal.Terminal, ticket uint64) (*models.PendingOrder, error) {
	orders, err := t.OrdersGet(ctx, ticket)
	if err != nil {
		return nil, terminalErr("orders_get", err)
	}
	for i := range orders {
		if orders[i].Ticket == ticket {
			return &orders[i], nil
		}
	}
	return nil, nil
}

func roundVolume(v float64) float64 {
	return math.Round(v*1e8) / 1e8
}

// Open рыночная сделка по свежей цене: ask для покупки, bid для продажи.
func (tr *Translator) Open(ctx context.Context, t terminal.Terminal, symbol string, in models.MarketOpen) (*models.OpenReceipt, error) {
	tick, err := freshTick(ctx, t, symbol)
	if err != nil {
		return nil, err
	}
	price := tick.Ask
	if in.Side == models.SideSell {
		price = tick.Bid
	}

	req := models.TradeRequest{
		Action:      models.ActionDeal,
		Symbol:      symbol,
		Volume:      in.Volume,
		Type:        in.Side.OrderType(),
		Price:       price,
		StopLoss:    in.StopLoss,
		TakeProfit:  in.TakeProfit,
		Deviation:   openDeviation,
		Magic:       magicNumber,
		Comment:     commentOpen,
		TypeTime:    models.OrderTimeGTC,
		TypeFilling: models.FillIOC,
	}
	res, err := send(ctx, t, req, models.KindTradeExecution, "Trade")
	if err != nil {
		return nil, err
	}

	ticket := res.Order
	if ticket == 0 {
		ticket = res.Deal
	}
	if res.Price > 0 {
		price = res.Price
	}
	return &models.OpenReceipt{
		Ticket: ticket,
		Symbol: symbol,
		Price:  price,
		Volume: req.Volume,
		Type:   strings.ToLower(string(in.Side)),
	}, nil
}

// Close закрывает позицию целиком встречной сделкой.
func (tr *Translator) Close(ctx context.Context, t terminal.Terminal, ticket uint64) (*models.CloseReceipt, error) {
	pos, err := findPosition(ctx, t, ticket)
	if err != nil {
		return nil, err
	}
	return tr.closeVolume(ctx, t, pos, pos.Volume)
}

// closeVolume встречная сделка на volume: bid при закрытии покупки, ask при закрытии продажи.
func (tr *Translator) closeVolume(ctx context.Context, t terminal.Terminal, pos *models.Position, volume float64) (*models.CloseReceipt, error) {
	tick, err := freshTick(ctx, t, pos.Symbol)
	if err != nil {
		return nil, err
	}
	price := tick.Bid
	if pos.Side == models.SideSell {
		price = tick.Ask
	}

	ok, err := t.SymbolSelect(ctx, pos.Symbol, true)
	if err != nil {
		return nil, terminalErr("symbol_select", err)
	}
	if !ok {
		return nil, models.NewError(models.KindSymbolNotFound, fmt.Sprintf("Symbol %s not available", pos.Symbol))
	}

	req := models.TradeRequest{
		Action:      models.ActionDeal,
		Symbol:      pos.Symbol,
		Volume:      volume,
		Type:        pos.Side.Opposite().OrderType(),
		Position:    pos.Ticket,
		Price:       price,
		Deviation:   closeDeviation,
		Magic:       magicNumber,
		Comment:     commentClose,
		TypeTime:    models.OrderTimeGTC,
		TypeFilling: models.FillFOK,
	}
	res, err := send(ctx, t, req, models.KindTradeExecution, "Close")
	if err != nil {
		return nil, err
	}
	if res.Price > 0 {
		price = res.Price
	}
	return &models.CloseReceipt{
		Ticket:      pos.Ticket,
		Symbol:      pos.Symbol,
		ClosedPrice: price,
		Volume:      volume,
		Profit:      pos.Profit,
		TimeClosed:  tr.now().UTC(),
		Retcode:     res.Retcode,
	}, nil
}

// Modify меняет SL/TP позиции. Незаданные уровни берутся из позиции, Clear* снимают уровень.
// Volume меньше текущего закрывает разницу.
func (tr *Translator) Modify(ctx context.Context, t terminal.Terminal, in models.MarketModify) (*models.ModifyReceipt, error) {
	pos, err := findPosition(ctx, t, in.Ticket)
	if err != nil {
		return nil, err
	}

	var partial float64
	if in.Volume != nil && *in.Volume != pos.Volume {
		if *in.Volume > pos.Volume {
			return nil, models.NewError(models.KindValidation,
				fmt.Sprintf("volume %v exceeds position volume %v", *in.Volume, pos.Volume))
		}
		partial = roundVolume(pos.Volume - *in.Volume)
	}

	sl, tp := pos.StopLoss, pos.TakeProfit
	switch {
	case in.ClearStopLoss:
		sl = 0
	case models.NonZero(in.StopLoss) != nil:
		sl = *in.StopLoss
	}
	switch {
	case in.ClearTakeProfit:
		tp = 0
	case models.NonZero(in.TakeProfit) != nil:
		tp = *in.TakeProfit
	}

	receipt := &models.ModifyReceipt{
		Ticket:     pos.Ticket,
		Symbol:     pos.Symbol,
		StopLoss:   pos.StopLoss,
		TakeProfit: pos.TakeProfit,
		Volume:     pos.Volume,
	}

	// частичное закрытие идёт первым: если брокер его отклонит, уровни остаются прежними
	if partial > 0 {
		cr, err := tr.closeVolume(ctx, t, pos, partial)
		if err != nil {
			return nil, err
		}
		receipt.Partial = cr
		receipt.Volume = roundVolume(pos.Volume - partial)

		// SLTP с теми же уровнями терминал отклоняет (10025 no changes)
		if sl == pos.StopLoss && tp == pos.TakeProfit {
			return receipt, nil
		}
	}

	req := models.TradeRequest{
		Action:     models.ActionSLTP,
		Symbol:     pos.Symbol,
		Position:   pos.Ticket,
		StopLoss:   sl,
		TakeProfit: tp,
		Magic:      magicNumber,
	}
	if _, err := send(ctx, t, req, models.KindModifyFailed, "Modification"); err != nil {
		if receipt.Partial == nil {
			return nil, err
		}
		// объём уже уменьшен, отдаём квитанцию вместе с ошибкой
		me := models.AsError(err)
		me.Message += fmt.Sprintf("; partial close of %v lots already executed", partial)
		return receipt, me
	}
	receipt.StopLoss, receipt.TakeProfit = sl, tp
	return receipt, nil
}

// PlacePending выставляет limit/stop ордер. Нулевые или пустые стопы уходят как 0.
func (tr *Translator) PlacePending(ctx context.Context, t terminal.Terminal, symbol string, in models.PendingPlace) (*models.PendingReceipt, error) {
	typ, ok := in.Kind.OrderType()
	if !ok {
		_, err := models.ParsePendingKind(string(in.Kind))
		return nil, err
	}

	selected, err := t.SymbolSelect(ctx, symbol, true)
	if err != nil {
		return nil, terminalErr("symbol_select", err)
	}
	if !selected {
		return nil, models.NewError(models.KindSymbolNotFound,
			fmt.Sprintf("Symbol %s not available or not selectable", symbol))
	}

	var sl, tp float64
	if v := models.NonZero(in.StopLoss); v != nil {
		sl = *v
	}
	if v := models.NonZero(in.TakeProfit); v != nil {
		tp = *v
	}

	req := models.TradeRequest{
		Action:      models.ActionPending,
		Symbol:      symbol,
		Volume:      in.Volume,
		Type:        typ,
		Price:       in.Price,
		StopLoss:    sl,
		TakeProfit:  tp,
		Deviation:   pendingDeviation,
		Magic:       magicNumber,
		Comment:     commentPending,
		TypeTime:    models.OrderTimeGTC,
		TypeFilling: models.FillReturn,
	}
	res, err := send(ctx, t, req, models.KindTradeExecution, "Pending order")
	if err != nil {
		return nil, err
	}
	return &models.PendingReceipt{
		Ticket:     res.Order,
		Symbol:     symbol,
		Kind:       string(in.Kind),
		Price:      req.Price,
		Volume:     req.Volume,
		StopLoss:   sl,
		TakeProfit: tp,
		Comment:    commentPending,
	}, nil
}

// ModifyPending меняет цену, стопы или объём отложенного ордера.
// Нулевые стопы трактуются как "не задано" и остаются прежними.
func (tr *Translator) ModifyPending(ctx context.Context, t terminal.Terminal, in models.PendingModify) (*models.PendingReceipt, error) {
	order, err := findOrder(ctx, t, in.Ticket)
	if err != nil {
		return nil, err
	}
	if order == nil {
		// тикет живой позиции это не "не найден", а не тот тип
		if pos, perr := findPosition(ctx, t, in.Ticket); perr == nil && pos != nil {
			return nil, models.NewError(models.KindWrongOrderCategory,
				fmt.Sprintf("Order %d is a market order, not pending", in.Ticket))
		}
		return nil, models.NewError(models.KindNotFound, fmt.Sprintf("No pending order found for ticket %d", in.Ticket))
	}
	if order.Type.IsMarket() {
		return nil, models.NewError(models.KindWrongOrderCategory,
			fmt.Sprintf("Order %d is a market order, not pending", in.Ticket))
	}
	if err := in.Validate(); err != nil {
		return nil, err
	}

	price, sl, tp, volume := order.Price, order.StopLoss, order.TakeProfit, order.Volume
	if v := models.NonZero(in.Price); v != nil {
		price = *v
	}
	if v := models.NonZero(in.StopLoss); v != nil {
		sl = *v
	}
	if v := models.NonZero(in.TakeProfit); v != nil {
		tp = *v
	}
	if v := models.NonZero(in.Volume); v != nil {
		volume = *v
	}

	req := models.TradeRequest{
		Action:     models.ActionModify,
		Order:      order.Ticket,
		Symbol:     order.Symbol,
		Type:       order.Type,
		Price:      price,
		StopLoss:   sl,
		TakeProfit: tp,
		Volume:     volume,
		TypeTime:   models.OrderTimeGTC,
		Comment:    commentModify,
	}
	if _, err := send(ctx, t, req, models.KindModifyFailed, "Modify"); err != nil {
		return nil, err
	}

	kind := order.Kind
	if kind == "" {
		kind = order.Type.Label()
	}
	return &models.PendingReceipt{
		Ticket:     order.Ticket,
		Symbol:     order.Symbol,
		Kind:       kind,
		Price:      price,
		Volume:     volume,
		StopLoss:   sl,
		TakeProfit: tp,
		Comment:    commentModify,
	}, nil
}

// Cancel снимает отложенный ордер.
func (tr *Translator) Cancel(ctx context.Context, t terminal.Terminal, ticket uint64) (*models.CancelReceipt, error) {
	order, err := findOrder(ctx, t, ticket)
	if err != nil {
		return nil, err
	}
	if order == nil {
		return nil, models.NewError(models.KindNotFound, fmt.Sprintf("No pending order found for ticket %d", ticket))
	}

	req := models.TradeRequest{
		Action:  models.ActionRemove,
		Order:   ticket,
		Symbol:  order.Symbol,
		Comment: commentCancel,
	}
	res, err := send(ctx, t, req, models.KindCancelFailed, "Cancel")
	if err != nil {
		return nil, err
	}
	return &models.CancelReceipt{Ticket: ticket, Retcode: res.Retcode}, nil
}
