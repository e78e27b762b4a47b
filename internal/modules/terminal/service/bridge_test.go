package service_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"mt5_gateway/internal/models"
	"mt5_gateway/internal/modules/terminal/service"

	"github.com/bytedance/sonic"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type frame struct {
	ID     uint64          `json:"id"`
	Method string          `json:"method"`
	Params json.RawMessage `json:"params"`
}

// bridgeServer отвечает на кадр всеми значениями из handle; пусто = не отвечать.
func bridgeServer(t *testing.T, handle func(f frame) []any) (*httptest.Server, chan frame) {
	t.Helper()
	seen := make(chan frame, 64)
	upgrader := websocket.Upgrader{}

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()
		for {
			_, msg, err := conn.ReadMessage()
			if err != nil {
				return
			}
			var f frame
			if err := sonic.Unmarshal(msg, &f); err != nil {
				return
			}
			seen <- f
			for _, resp := range handle(f) {
				data, _ := sonic.Marshal(resp)
				if err := conn.WriteMessage(websocket.TextMessage, data); err != nil {
					return
				}
			}
		}
	}))
	t.Cleanup(srv.Close)
	return srv, seen
}

func wsURL(srv *httptest.Server) string {
	return "ws" + strings.TrimPrefix(srv.URL, "http")
}

func result(id uint64, v any) []any {
	return []any{map[string]any{"id": id, "result": v}}
}

func TestBridgeRoundTrip(t *testing.T) {
	srv, seen := bridgeServer(t, func(f frame) []any {
		switch f.Method {
		case "initialize":
			return result(f.ID, true)
		case "terminal_info":
			return result(f.ID, map[string]any{"connected": true, "trade_allowed": true, "name": "MetaTrader 5"})
		case "positions_get":
			return result(f.ID, []map[string]any{{
				"ticket": 11, "symbol": "EURUSD", "volume": 0.1, "price_open": 1.1,
				"sl": 1.0, "tp": 1.2, "profit": 3.5, "type": 1, "time": 1700000000,
			}})
		case "orders_get":
			return result(f.ID, []map[string]any{{
				"ticket": 12, "symbol": "EURUSD", "volume_current": 0.2, "price_open": 1.05, "type": 2,
			}})
		case "order_send":
			return result(f.ID, map[string]any{"retcode": 10009, "order": 99, "price": 1.1})
		case "last_error":
			return result(f.ID, []any{-6, "Authorization failed"})
		case "symbol_info_tick":
			return result(f.ID, nil)
		}
		return []any{map[string]any{"id": f.ID, "error": map[string]any{"code": -32601, "message": "method not found"}}}
	})

	b := service.NewBridge(service.BridgeConfig{URL: wsURL(srv), CallTimeout: time.Second})
	ctx := context.Background()
	require.NoError(t, b.Connect(ctx))
	t.Cleanup(func() { _ = b.Close() })

	ok, err := b.Initialize(ctx, models.Credentials{Login: 5, Password: "pw", Server: "Demo"})
	require.NoError(t, err)
	assert.True(t, ok)
	f := <-seen
	assert.Equal(t, "initialize", f.Method)
	assert.Contains(t, string(f.Params), `"login":5`)

	info, err := b.TerminalInfo(ctx)
	require.NoError(t, err)
	require.NotNil(t, info)
	assert.True(t, info.Connected)

	pos, err := b.PositionsGet(ctx, 11)
	require.NoError(t, err)
	require.Len(t, pos, 1)
	assert.Equal(t, models.SideSell, pos[0].Side)
	assert.Equal(t, 1.1, pos[0].OpenPrice)

	orders, err := b.OrdersGet(ctx, 0)
	require.NoError(t, err)
	require.Len(t, orders, 1)
	assert.Equal(t, models.OrderTypeBuyLimit, orders[0].Type)
	assert.Equal(t, "Buy Limit", orders[0].Kind)
	assert.Equal(t, 0.2, orders[0].Volume)

	res, err := b.OrderSend(ctx, models.TradeRequest{Action: models.ActionDeal, Symbol: "EURUSD", Volume: 0.1})
	require.NoError(t, err)
	assert.Equal(t, 10009, res.Retcode)

	le, err := b.LastError(ctx)
	require.NoError(t, err)
	assert.Equal(t, -6, le.Code)
	assert.Equal(t, "Authorization failed", le.Message)

	q, err := b.SymbolInfoTick(ctx, "NOPE")
	require.NoError(t, err)
	assert.Nil(t, q)

	_, err = b.AccountInfo(ctx)
	var rpcErr *service.RPCError
	require.ErrorAs(t, err, &rpcErr)
	assert.Equal(t, -32601, rpcErr.Code)
}

func TestBridgeSkipsStaleFrames(t *testing.T) {
	// сначала хвост чужого вызова и мусор, затем настоящий ответ
	srv, _ := bridgeServer(t, func(f frame) []any {
		return []any{
			map[string]any{"id": f.ID + 100, "result": false},
			"garbage",
			map[string]any{"id": f.ID, "result": true},
		}
	})

	b := service.NewBridge(service.BridgeConfig{URL: wsURL(srv), CallTimeout: time.Second})
	ctx := context.Background()
	require.NoError(t, b.Connect(ctx))
	t.Cleanup(func() { _ = b.Close() })

	ok, err := b.SymbolSelect(ctx, "EURUSD", true)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestBridgeCallWithoutConnect(t *testing.T) {
	b := service.NewBridge(service.BridgeConfig{URL: "ws://127.0.0.1:1/ws"})
	_, err := b.TerminalInfo(context.Background())
	assert.ErrorIs(t, err, service.ErrNotConnected)
	assert.NoError(t, b.Close())
}

func TestBridgeTimeoutDropsConnection(t *testing.T) {
	srv, _ := bridgeServer(t, func(f frame) []any { return nil })

	b := service.NewBridge(service.BridgeConfig{URL: wsURL(srv), CallTimeout: 50 * time.Millisecond})
	ctx := context.Background()
	require.NoError(t, b.Connect(ctx))

	_, err := b.TerminalInfo(ctx)
	require.Error(t, err)

	_, err = b.TerminalInfo(ctx)
	assert.ErrorIs(t, err, service.ErrNotConnected)
}
