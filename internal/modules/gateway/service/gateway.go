package service

import (
	"context"
	"fmt"

	"mt5_gateway/internal/models"
	terminal "mt5_gateway/internal/modules/terminal/service"
	"mt5_gateway/pkg/logger"
	"mt5_gateway/pkg/tracing"
)

const maxCandles = 1000

// Session то, что шлюзу нужно от сессии терминала.
type Session interface {
	Exec(ctx context.Context, fn func(ctx context.Context, t terminal.Terminal) error) error
}

// Gateway фасад для HTTP-слоя: каждая операция идёт через Session.Exec,
// символы разрешаются там, где операция их принимает. Повторов нет.
type Gateway struct {
	session Session
	symbols *SymbolResolver
	tr      *Translator
	bulk    *BulkEngine
}

func New(session Session, symbols *SymbolResolver) *Gateway {
	tr := NewTranslator()
	return &Gateway{
		session: session,
		symbols: symbols,
		tr:      tr,
		bulk:    NewBulkEngine(tr),
	}
}

func (g *Gateway) OpenMarket(ctx context.Context, in models.MarketOpen) (receipt *models.OpenReceipt, err error) {
	span, ctx := tracing.StartSpan(ctx, "gateway.OpenMarket")
	defer func() { tracing.Finish(span, err) }()

	if err = in.Validate(); err != nil {
		return nil, err
	}
	err = g.session.Exec(ctx, func(ctx context.Context, t terminal.Terminal) error {
		symbol, err := g.symbols.Resolve(ctx, t, in.Symbol)
		if err != nil {
			return err
		}
		span.SetTag("symbol", symbol)
		receipt, err = g.tr.Open(ctx, t, symbol, in)
		return err
	})
	if err != nil {
		return nil, err
	}
	logger.Info("[GATEWAY] opened %s %s %.2f ticket=%d price=%v", receipt.Type, receipt.Symbol, receipt.Volume, receipt.Ticket, receipt.Price)
	return receipt, nil
}

func (g *Gateway) CloseMarket(ctx context.Context, in models.MarketClose) (receipt *models.CloseReceipt, err error) {
	span, ctx := tracing.StartSpan(ctx, "gateway.CloseMarket")
	span.SetTag("ticket", in.Ticket)
	defer func() { tracing.Finish(span, err) }()

	err = g.session.Exec(ctx, func(ctx context.Context, t terminal.Terminal) error {
		receipt, err = g.tr.Close(ctx, t, in.Ticket)
		return err
	})
	if err != nil {
		return nil, err
	}
	logger.Info("[GATEWAY] closed ticket=%d %s price=%v", receipt.Ticket, receipt.Symbol, receipt.ClosedPrice)
	return receipt, nil
}

func (g *Gateway) ModifyMarket(ctx context.Context, in models.MarketModify) (receipt *models.ModifyReceipt, err error) {
	span, ctx := tracing.StartSpan(ctx, "gateway.ModifyMarket")
	span.SetTag("ticket", in.Ticket)
	defer func() { tracing.Finish(span, err) }()

	if err = in.Validate(); err != nil {
		return nil, err
	}
	err = g.session.Exec(ctx, func(ctx context.Context, t terminal.Terminal) error {
		receipt, err = g.tr.Modify(ctx, t, in)
		return err
	})
	return receipt, err
}

func (g *Gateway) PlacePending(ctx context.Context, in models.PendingPlace) (receipt *models.PendingReceipt, err error) {
	span, ctx := tracing.StartSpan(ctx, "gateway.PlacePending")
	defer func() { tracing.Finish(span, err) }()

	if err = in.Validate(); err != nil {
		return nil, err
	}
	err = g.session.Exec(ctx, func(ctx context.Context, t terminal.Terminal) error {
		symbol, err := g.symbols.Resolve(ctx, t, in.Symbol)
		if err != nil {
			return err
		}
		span.SetTag("symbol", symbol)
		receipt, err = g.tr.PlacePending(ctx, t, symbol, in)
		return err
	})
	if err != nil {
		return nil, err
	}
	logger.Info("[GATEWAY] pending %s %s @%v ticket=%d", receipt.Kind, receipt.Symbol, receipt.Price, receipt.Ticket)
	return receipt, nil
}

func (g *Gateway) ModifyPending(ctx context.Context, in models.PendingModify) (receipt *models.PendingReceipt, err error) {
	span, ctx := tracing.StartSpan(ctx, "gateway.ModifyPending")
	span.SetTag("ticket", in.Ticket)
	defer func() { tracing.Finish(span, err) }()

	err = g.session.Exec(ctx, func(ctx context.Context, t terminal.Terminal) error {
		receipt, err = g.tr.ModifyPending(ctx, t, in)
		return err
	})
	return receipt, err
}

func (g *Gateway) CancelPending(ctx context.Context, in models.PendingCancel) (receipt *models.CancelReceipt, err error) {
	span, ctx := tracing.StartSpan(ctx, "gateway.CancelPending")
	span.SetTag("ticket", in.Ticket)
	defer func() { tracing.Finish(span, err) }()

	err = g.session.Exec(ctx, func(ctx context.Context, t terminal.Terminal) error {
		receipt, err = g.tr.Cancel(ctx, t, in.Ticket)
		return err
	})
	return receipt, err
}

// BulkClose держит сессию на всю пачку.
func (g *Gateway) BulkClose(ctx context.Context, c models.BulkFilterCriteria) (res *models.BulkCloseResult, err error) {
	span, ctx := tracing.StartSpan(ctx, "gateway.BulkClose")
	defer func() { tracing.Finish(span, err) }()

	err = g.session.Exec(ctx, func(ctx context.Context, t terminal.Terminal) error {
		var symbol string
		if c.Symbol != "" {
			if symbol, err = g.symbols.Resolve(ctx, t, c.Symbol); err != nil {
				return err
			}
		}
		res, err = g.bulk.Run(ctx, t, symbol, c)
		return err
	})
	if err != nil {
		return nil, err
	}
	span.SetTag("closed", res.Closed)
	span.SetTag("total", res.Total)
	logger.Info("[GATEWAY] bulk: %s", res.Message)
	return res, nil
}

// Positions пустой список не ошибка.
func (g *Gateway) Positions(ctx context.Context) (out []models.Position, err error) {
	span, ctx := tracing.StartSpan(ctx, "gateway.Positions")
	defer func() { tracing.Finish(span, err) }()

	err = g.session.Exec(ctx, func(ctx context.Context, t terminal.Terminal) error {
		out, err = t.PositionsGet(ctx, 0)
		if err != nil {
			return terminalErr("positions_get", err)
		}
		return nil
	})
	if out == nil {
		out = []models.Position{}
	}
	return out, err
}

func (g *Gateway) PendingOrders(ctx context.Context) (out []models.PendingOrder, err error) {
	span, ctx := tracing.StartSpan(ctx, "gateway.PendingOrders")
	defer func() { tracing.Finish(span, err) }()

	err = g.session.Exec(ctx, func(ctx context.Context, t terminal.Terminal) error {
		all, err := t.OrdersGet(ctx, 0)
		if err != nil {
			return terminalErr("orders_get", err)
		}
		out = make([]models.PendingOrder, 0, len(all))
		for _, o := range all {
			if !o.Type.IsMarket() {
				out = append(out, o)
			}
		}
		return nil
	})
	if out == nil {
		out = []models.PendingOrder{}
	}
	return out, err
}

func (g *Gateway) Quote(ctx context.Context, raw string) (q *models.Quote, err error) {
	span, ctx := tracing.StartSpan(ctx, "gateway.Quote")
	defer func() { tracing.Finish(span, err) }()

	err = g.session.Exec(ctx, func(ctx context.Context, t terminal.Terminal) error {
		symbol, err := g.symbols.Resolve(ctx, t, raw)
		if err != nil {
			return err
		}
		q, err = t.SymbolInfoTick(ctx, symbol)
		if err != nil {
			return terminalErr("symbol_info_tick", err)
		}
		if q == nil {
			return models.NewError(models.KindNotFound, fmt.Sprintf("No tick data available for symbol '%s'.", symbol))
		}
		q.Symbol = symbol
		return nil
	})
	return q, err
}

// History свечи от новой к старой.
func (g *Gateway) History(ctx context.Context, raw string, tf models.Timeframe, count int) (out []models.Candle, err error) {
	span, ctx := tracing.StartSpan(ctx, "gateway.History")
	defer func() { tracing.Finish(span, err) }()

	if count < 1 || count > maxCandles {
		return nil, models.NewError(models.KindValidation, fmt.Sprintf("candlesticks must be between 1 and %d", maxCandles))
	}
	if _, err = models.ParseTimeframe(string(tf)); err != nil {
		return nil, err
	}

	err = g.session.Exec(ctx, func(ctx context.Context, t terminal.Terminal) error {
		symbol, err := g.symbols.Resolve(ctx, t, raw)
		if err != nil {
			return err
		}
		ok, err := t.SymbolSelect(ctx, symbol, true)
		if err != nil {
			return terminalErr("symbol_select", err)
		}
		if !ok {
			return models.NewError(models.KindSymbolNotFound, fmt.Sprintf("Failed to select symbol %s", symbol))
		}
		rates, err := t.CopyRatesFromPos(ctx, symbol, tf.Code(), 0, count)
		if err != nil {
			return terminalErr("copy_rates_from_pos", err)
		}
		if len(rates) == 0 {
			return models.NewError(models.KindNotFound, fmt.Sprintf("No data returned for symbol %s", symbol))
		}
		out = make([]models.Candle, len(rates))
		for i, r := range rates {
			out[len(rates)-1-i] = r
		}
		return nil
	})
	return out, err
}

func (g *Gateway) Account(ctx context.Context) (info *models.AccountInfo, err error) {
	span, ctx := tracing.StartSpan(ctx, "gateway.Account")
	defer func() { tracing.Finish(span, err) }()

	err = g.session.Exec(ctx, func(ctx context.Context, t terminal.Terminal) error {
		info, err = t.AccountInfo(ctx)
		if err != nil {
			return terminalErr("account_info", err)
		}
		if info == nil {
			return models.NewError(models.KindInternal, "Unable to retrieve account information from MT5.")
		}
		return nil
	})
	return info, err
}
