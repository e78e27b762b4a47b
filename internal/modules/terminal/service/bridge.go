package service

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"mt5_gateway/internal/models"
	"mt5_gateway/pkg/logger"

	"github.com/bytedance/sonic"
	"github.com/gorilla/websocket"
	"github.com/pkg/errors"
)

// ErrNotConnected мост не подключён.
var ErrNotConnected = errors.New("terminal bridge is not connected")

// RPCError ошибка, которую вернул сам мост.
type RPCError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

func (e *RPCError) Error() string {
	return fmt.Sprintf("bridge error %d: %s", e.Code, e.Message)
}

type request struct {
	ID     uint64 `json:"id"`
	Method string `json:"method"`
	Params any    `json:"params,omitempty"`
}

type response struct {
	ID     uint64          `json:"id"`
	Result json.RawMessage `json:"result"`
	Error  *RPCError       `json:"error"`
}

type BridgeConfig struct {
	URL         string
	CallTimeout time.Duration
	DialTimeout time.Duration
}

// Bridge синхронный request/response поверх одного websocket к процессу рядом с терминалом.
type Bridge struct {
	cfg      BridgeConfig
	wsDialer *websocket.Dialer

	mu     sync.Mutex
	conn   *websocket.Conn
	nextID uint64
}

func NewBridge(cfg BridgeConfig) *Bridge {
	if cfg.CallTimeout <= 0 {
		cfg.CallTimeout = 10 * time.Second
	}
	if cfg.DialTimeout <= 0 {
		cfg.DialTimeout = 5 * time.Second
	}
	return &Bridge{
		cfg: cfg,
		wsDialer: &websocket.Dialer{
			HandshakeTimeout: cfg.DialTimeout,
		},
	}
}

func (b *Bridge) Connect(ctx context.Context) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.conn != nil {
		return nil
	}

	dialCtx, cancel := context.WithTimeout(ctx, b.cfg.DialTimeout)
	defer cancel()
	conn, _, err := b.wsDialer.DialContext(dialCtx, b.cfg.URL, nil)
	if err != nil {
		return errors.Wrapf(err, "dial bridge %s", b.cfg.URL)
	}
	b.conn = conn
	logger.Info("[BRIDGE] connected to %s", b.cfg.URL)
	return nil
}

func (b *Bridge) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.closeLocked()
}

func (b *Bridge) closeLocked() error {
	if b.conn == nil {
		return nil
	}
	_ = b.conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
		time.Now().Add(time.Second))
	err := b.conn.Close()
	b.conn = nil
	return err
}

// call пишет кадр и ждёт ответ с тем же id. Любая транспортная ошибка рвёт соединение,
// следующий EnsureConnected переподключится.
func (b *Bridge) call(ctx context.Context, method string, params, out any) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.conn == nil {
		return errors.Wrap(ErrNotConnected, method)
	}

	b.nextID++
	id := b.nextID
	data, err := sonic.Marshal(request{ID: id, Method: method, Params: params})
	if err != nil {
		return errors.Wrapf(err, "encode %s", method)
	}

	deadline := time.Now().Add(b.cfg.CallTimeout)
	if d, ok := ctx.Deadline(); ok && d.Before(deadline) {
		deadline = d
	}

	_ = b.conn.SetWriteDeadline(deadline)
	if err = b.conn.WriteMessage(websocket.TextMessage, data); err != nil {
		_ = b.closeLocked()
		return errors.Wrapf(err, "write %s", method)
	}

	for {
		_ = b.conn.SetReadDeadline(deadline)
		_, msg, err := b.conn.ReadMessage()
		if err != nil {
			_ = b.closeLocked()
			return errors.Wrapf(err, "read %s", method)
		}

		var resp response
		if err := sonic.Unmarshal(msg, &resp); err != nil {
			logger.Warn("[BRIDGE] skip malformed frame: %v", err)
			continue
		}
		if resp.ID != id {
			// хвост от вызова, который отвалился по таймауту
			logger.Debug("[BRIDGE] skip stale frame id=%d want=%d", resp.ID, id)
			continue
		}
		if resp.Error != nil {
			return resp.Error
		}
		if out == nil || len(resp.Result) == 0 {
			return nil
		}
		if err := sonic.Unmarshal(resp.Result, out); err != nil {
			return errors.Wrapf(err, "decode %s result", method)
		}
		return nil
	}
}

func (b *Bridge) Initialize(ctx context.Context, creds models.Credentials) (bool, error) {
	var params any
	if creds.Login != 0 {
		params = creds
	}
	var ok bool
	err := b.call(ctx, "initialize", params, &ok)
	return ok, err
}

func (b *Bridge) Shutdown(ctx context.Context) error {
	return b.call(ctx, "shutdown", nil, nil)
}

func (b *Bridge) TerminalInfo(ctx context.Context) (*models.TerminalInfo, error) {
	var info *models.TerminalInfo
	err := b.call(ctx, "terminal_info", nil, &info)
	return info, err
}

func (b *Bridge) LastError(ctx context.Context) (models.LastError, error) {
	// last_error отдаёт пару (code, message)
	var pair []any
	var le models.LastError
	if err := b.call(ctx, "last_error", nil, &pair); err != nil {
		return le, err
	}
	if len(pair) > 0 {
		if code, ok := pair[0].(float64); ok {
			le.Code = int(code)
		}
	}
	if len(pair) > 1 {
		le.Message, _ = pair[1].(string)
	}
	return le, nil
}

func (b *Bridge) SymbolsGet(ctx context.Context) ([]models.Symbol, error) {
	var syms []models.Symbol
	err := b.call(ctx, "symbols_get", nil, &syms)
	return syms, err
}

func (b *Bridge) SymbolSelect(ctx context.Context, symbol string, enable bool) (bool, error) {
	var ok bool
	err := b.call(ctx, "symbol_select", map[string]any{"symbol": symbol, "enable": enable}, &ok)
	return ok, err
}

type wireTick struct {
	Bid  float64 `json:"bid"`
	Ask  float64 `json:"ask"`
	Last float64 `json:"last"`
	Time int64   `json:"time"`
}

func (b *Bridge) SymbolInfoTick(ctx context.Context, symbol string) (*models.Quote, error) {
	var t *wireTick
	if err := b.call(ctx, "symbol_info_tick", map[string]any{"symbol": symbol}, &t); err != nil {
		return nil, err
	}
	if t == nil {
		return nil, nil
	}
	return &models.Quote{
		Symbol: symbol,
		Bid:    t.Bid,
		Ask:    t.Ask,
		Last:   t.Last,
		Time:   time.Unix(t.Time, 0).UTC(),
	}, nil
}

type wirePosition struct {
	Ticket    uint64  `json:"ticket"`
	Symbol    string  `json:"symbol"`
	Volume    float64 `json:"volume"`
	PriceOpen float64 `json:"price_open"`
	SL        float64 `json:"sl"`
	TP        float64 `json:"tp"`
	Profit    float64 `json:"profit"`
	Type      int     `json:"type"`
	Time      int64   `json:"time"`
}

func ticketParams(ticket uint64) any {
	if ticket == 0 {
		return nil
	}
	return map[string]any{"ticket": ticket}
}

func (b *Bridge) PositionsGet(ctx context.Context, ticket uint64) ([]models.Position, error) {
	var raw []wirePosition
	if err := b.call(ctx, "positions_get", ticketParams(ticket), &raw); err != nil {
		return nil, err
	}
	out := make([]models.Position, 0, len(raw))
	for _, p := range raw {
		side := models.SideBuy
		if models.OrderType(p.Type) == models.OrderTypeSell {
			side = models.SideSell
		}
		out = append(out, models.Position{
			Ticket:     p.Ticket,
			Symbol:     p.Symbol,
			Volume:     p.Volume,
			OpenPrice:  p.PriceOpen,
			StopLoss:   p.SL,
			TakeProfit: p.TP,
			Profit:     p.Profit,
			Side:       side,
			Time:       time.Unix(p.Time, 0).UTC(),
		})
	}
	return out, nil
}

type wireOrder struct {
	Ticket        uint64  `json:"ticket"`
	Symbol        string  `json:"symbol"`
	VolumeCurrent float64 `json:"volume_current"`
	PriceOpen     float64 `json:"price_open"`
	SL            float64 `json:"sl"`
	TP            float64 `json:"tp"`
	Type          int     `json:"type"`
	TimeSetup     int64   `json:"time_setup"`
}

func (b *Bridge) OrdersGet(ctx context.Context, ticket uint64) ([]models.PendingOrder, error) {
	var raw []wireOrder
	if err := b.call(ctx, "orders_get", ticketParams(ticket), &raw); err != nil {
		return nil, err
	}
	out := make([]models.PendingOrder, 0, len(raw))
	for _, o := range raw {
		t := models.OrderType(o.Type)
		out = append(out, models.PendingOrder{
			Ticket:     o.Ticket,
			Symbol:     o.Symbol,
			Volume:     o.VolumeCurrent,
			Price:      o.PriceOpen,
			Type:       t,
			Kind:       t.Label(),
			StopLoss:   o.SL,
			TakeProfit: o.TP,
			TimeSetup:  time.Unix(o.TimeSetup, 0).UTC(),
		})
	}
	return out, nil
}

func (b *Bridge) OrderSend(ctx context.Context, req models.TradeRequest) (*models.TradeResult, error) {
	var res *models.TradeResult
	err := b.call(ctx, "order_send", req, &res)
	return res, err
}

type wireAccount struct {
	Balance     float64 `json:"balance"`
	Equity      float64 `json:"equity"`
	Margin      float64 `json:"margin"`
	MarginFree  float64 `json:"margin_free"`
	MarginLevel float64 `json:"margin_level"`
	Leverage    int     `json:"leverage"`
	Currency    string  `json:"currency"`
}

func (b *Bridge) AccountInfo(ctx context.Context) (*models.AccountInfo, error) {
	var a *wireAccount
	if err := b.call(ctx, "account_info", nil, &a); err != nil {
		return nil, err
	}
	if a == nil {
		return nil, nil
	}
	return &models.AccountInfo{
		Balance:     a.Balance,
		Equity:      a.Equity,
		Margin:      a.Margin,
		FreeMargin:  a.MarginFree,
		MarginLevel: a.MarginLevel,
		Leverage:    a.Leverage,
		Currency:    a.Currency,
	}, nil
}

type wireRate struct {
	Time       int64   `json:"time"`
	Open       float64 `json:"open"`
	High       float64 `json:"high"`
	Low        float64 `json:"low"`
	Close      float64 `json:"close"`
	TickVolume int64   `json:"tick_volume"`
}

func (b *Bridge) CopyRatesFromPos(ctx context.Context, symbol string, timeframe, start, count int) ([]models.Candle, error) {
	var raw []wireRate
	params := map[string]any{
		"symbol":    symbol,
		"timeframe": timeframe,
		"start_pos": start,
		"count":     count,
	}
	if err := b.call(ctx, "copy_rates_from_pos", params, &raw); err != nil {
		return nil, err
	}
	out := make([]models.Candle, 0, len(raw))
	for _, r := range raw {
		out = append(out, models.Candle{
			Time:       time.Unix(r.Time, 0).UTC(),
			Open:       r.Open,
			High:       r.High,
			Low:        r.Low,
			Close:      r.Close,
			TickVolume: r.TickVolume,
		})
	}
	return out, nil
}

var _ Terminal = (*Bridge)(nil)
