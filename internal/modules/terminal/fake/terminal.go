// Package fake in-memory терминал для тестов: держит позиции и ордера, применяет
// успешные order_send к своему состоянию и считает параллельные вызовы.
package fake

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"mt5_gateway/internal/models"
)

const (
	RetcodeDone      = 10009
	RetcodePlaced    = 10008
	RetcodeNoChanges = 10025
)

type Terminal struct {
	mu sync.Mutex

	Symbols   []models.Symbol
	Ticks     map[string]models.Quote
	Positions []models.Position
	Orders    []models.PendingOrder
	Account   *models.AccountInfo
	Rates     []models.Candle

	// очередь retcode для следующих order_send; пусто = успех
	Retcodes []int
	// order_send вернёт None
	NilResult bool
	// symbol_select для этих символов вернёт false
	Unselectable map[string]bool
	// SLTP без изменения уровней получает 10025, как на живом терминале
	RejectUnchangedSLTP bool

	ConnectErr    error
	InitFails     bool
	Disconnected  bool
	LastErr       models.LastError
	LastErrFail   error
	CallDelay     time.Duration
	Sent          []models.TradeRequest
	Calls         []string
	Inits         int
	Shutdowns     int
	NextTicket    uint64
	SymbolsCalled int

	connected bool
	inFlight  atomic.Int32
	maxFlight atomic.Int32
}

func New() *Terminal {
	return &Terminal{
		Ticks:        map[string]models.Quote{},
		Unselectable: map[string]bool{},
		NextTicket:   1000,
	}
}

// WithSymbol регистрирует символ с котировкой.
func (t *Terminal) WithSymbol(name string, bid, ask float64) *Terminal {
	t.Symbols = append(t.Symbols, models.Symbol{Name: name, Visible: true})
	t.Ticks[name] = models.Quote{Symbol: name, Bid: bid, Ask: ask, Time: time.Unix(1700000000, 0).UTC()}
	return t
}

func (t *Terminal) AddPosition(p models.Position) *Terminal {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.Positions = append(t.Positions, p)
	return t
}

func (t *Terminal) AddOrder(o models.PendingOrder) *Terminal {
	t.mu.Lock()
	defer t.mu.Unlock()
	if o.Kind == "" {
		o.Kind = o.Type.Label()
	}
	t.Orders = append(t.Orders, o)
	return t
}

// MaxConcurrent наибольшее число одновременных вызовов за всё время.
func (t *Terminal) MaxConcurrent() int { return int(t.maxFlight.Load()) }

func (t *Terminal) SentRequests() []models.TradeRequest {
	t.mu.Lock()
	defer t.mu.Unlock()
	return append([]models.TradeRequest(nil), t.Sent...)
}

func (t *Terminal) enter(name string) func() {
	n := t.inFlight.Add(1)
	for {
		m := t.maxFlight.Load()
		if n <= m || t.maxFlight.CompareAndSwap(m, n) {
			break
		}
	}
	t.mu.Lock()
	t.Calls = append(t.Calls, name)
	delay := t.CallDelay
	t.mu.Unlock()
	if delay > 0 {
		time.Sleep(delay)
	}
	return func() { t.inFlight.Add(-1) }
}

func (t *Terminal) Connect(ctx context.Context) error {
	defer t.enter("connect")()
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.ConnectErr != nil {
		return t.ConnectErr
	}
	t.connected = true
	return nil
}

func (t *Terminal) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.connected = false
	return nil
}

func (t *Terminal) Initialize(ctx context.Context, creds models.Credentials) (bool, error) {
	defer t.enter("initialize")()
	t.mu.Lock()
	defer t.mu.Unlock()
	if !t.connected {
		return false, errors.New("not connected")
	}
	t.Inits++
	if t.InitFails {
		return false, nil
	}
	return true, nil
}

func (t *Terminal) Shutdown(ctx context.Context) error {
	defer t.enter("shutdown")()
	t.mu.Lock()
	defer t.mu.Unlock()
	t.Shutdowns++
	return nil
}

func (t *Terminal) TerminalInfo(ctx context.Context) (*models.TerminalInfo, error) {
	defer t.enter("terminal_info")()
	t.mu.Lock()
	defer t.mu.Unlock()
	if !t.connected {
		return nil, errors.New("not connected")
	}
	return &models.TerminalInfo{Connected: !t.Disconnected, TradeAllowed: true, Name: "fake"}, nil
}

func (t *Terminal) LastError(ctx context.Context) (models.LastError, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.LastErrFail != nil {
		return models.LastError{}, t.LastErrFail
	}
	return t.LastErr, nil
}

func (t *Terminal) SymbolsGet(ctx context.Context) ([]models.Symbol, error) {
	defer t.enter("symbols_get")()
	t.mu.Lock()
	defer t.mu.Unlock()
	t.SymbolsCalled++
	return append([]models.Symbol(nil), t.Symbols...), nil
}

func (t *Terminal) SymbolSelect(ctx context.Context, symbol string, enable bool) (bool, error) {
	defer t.enter("symbol_select")()
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.Unselectable[symbol] {
		return false, nil
	}
	for _, s := range t.Symbols {
		if s.Name == symbol {
			return true, nil
		}
	}
	return false, nil
}

func (t *Terminal) SymbolInfoTick(ctx context.Context, symbol string) (*models.Quote, error) {
	defer t.enter("symbol_info_tick")()
	t.mu.Lock()
	defer t.mu.Unlock()
	q, ok := t.Ticks[symbol]
	if !ok {
		return nil, nil
	}
	return &q, nil
}

func (t *Terminal) PositionsGet(ctx context.Context, ticket uint64) ([]models.Position, error) {
	defer t.enter("positions_get")()
	t.mu.Lock()
	defer t.mu.Unlock()
	var out []models.Position
	for _, p := range t.Positions {
		if ticket == 0 || p.Ticket == ticket {
			out = append(out, p)
		}
	}
	return out, nil
}

func (t *Terminal) OrdersGet(ctx context.Context, ticket uint64) ([]models.PendingOrder, error) {
	defer t.enter("orders_get")()
	t.mu.Lock()
	defer t.mu.Unlock()
	var out []models.PendingOrder
	for _, o := range t.Orders {
		if ticket == 0 || o.Ticket == ticket {
			out = append(out, o)
		}
	}
	return out, nil
}

func (t *Terminal) OrderSend(ctx context.Context, req models.TradeRequest) (*models.TradeResult, error) {
	defer t.enter("order_send")()
	t.mu.Lock()
	defer t.mu.Unlock()

	t.Sent = append(t.Sent, req)
	if t.NilResult {
		return nil, nil
	}

	code := RetcodeDone
	if req.Action == models.ActionPending {
		code = RetcodePlaced
	}
	if len(t.Retcodes) > 0 {
		code = t.Retcodes[0]
		t.Retcodes = t.Retcodes[1:]
	} else if t.RejectUnchangedSLTP && req.Action == models.ActionSLTP && t.sameLevels(req) {
		code = RetcodeNoChanges
	}
	res := &models.TradeResult{Retcode: code, Volume: req.Volume, Price: req.Price, Comment: "Request executed"}
	if code != RetcodeDone && code != RetcodePlaced {
		res.Comment = "rejected"
		return res, nil
	}
	t.apply(req, res)
	return res, nil
}

func (t *Terminal) sameLevels(req models.TradeRequest) bool {
	for _, p := range t.Positions {
		if p.Ticket == req.Position {
			return p.StopLoss == req.StopLoss && p.TakeProfit == req.TakeProfit
		}
	}
	return false
}

func (t *Terminal) apply(req models.TradeRequest, res *models.TradeResult) {
	switch req.Action {
	case models.ActionDeal:
		t.NextTicket++
		res.Deal = t.NextTicket
		if req.Position == 0 {
			side := models.SideBuy
			if req.Type == models.OrderTypeSell {
				side = models.SideSell
			}
			res.Order = t.NextTicket
			t.Positions = append(t.Positions, models.Position{
				Ticket: t.NextTicket, Symbol: req.Symbol, Volume: req.Volume, OpenPrice: req.Price,
				StopLoss: req.StopLoss, TakeProfit: req.TakeProfit, Side: side, Time: time.Now().UTC(),
			})
			return
		}
		for i, p := range t.Positions {
			if p.Ticket != req.Position {
				continue
			}
			if req.Volume < p.Volume {
				t.Positions[i].Volume = p.Volume - req.Volume
			} else {
				t.Positions = append(t.Positions[:i], t.Positions[i+1:]...)
			}
			return
		}
	case models.ActionSLTP:
		for i, p := range t.Positions {
			if p.Ticket == req.Position {
				t.Positions[i].StopLoss = req.StopLoss
				t.Positions[i].TakeProfit = req.TakeProfit
			}
		}
	case models.ActionPending:
		t.NextTicket++
		res.Order = t.NextTicket
		t.Orders = append(t.Orders, models.PendingOrder{
			Ticket: t.NextTicket, Symbol: req.Symbol, Volume: req.Volume, Price: req.Price,
			Type: req.Type, Kind: req.Type.Label(), StopLoss: req.StopLoss, TakeProfit: req.TakeProfit,
			TimeSetup: time.Now().UTC(),
		})
	case models.ActionModify:
		res.Order = req.Order
		for i, o := range t.Orders {
			if o.Ticket == req.Order {
				t.Orders[i].Price = req.Price
				t.Orders[i].StopLoss = req.StopLoss
				t.Orders[i].TakeProfit = req.TakeProfit
				if req.Volume > 0 {
					t.Orders[i].Volume = req.Volume
				}
			}
		}
	case models.ActionRemove:
		res.Order = req.Order
		for i, o := range t.Orders {
			if o.Ticket == req.Order {
				t.Orders = append(t.Orders[:i], t.Orders[i+1:]...)
				return
			}
		}
	}
}

func (t *Terminal) AccountInfo(ctx context.Context) (*models.AccountInfo, error) {
	defer t.enter("account_info")()
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.Account, nil
}

func (t *Terminal) CopyRatesFromPos(ctx context.Context, symbol string, timeframe, start, count int) ([]models.Candle, error) {
	defer t.enter("copy_rates_from_pos")()
	t.mu.Lock()
	defer t.mu.Unlock()
	if count > len(t.Rates) {
		count = len(t.Rates)
	}
	return append([]models.Candle(nil), t.Rates[:count]...), nil
}
