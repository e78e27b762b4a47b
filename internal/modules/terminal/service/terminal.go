package service

import (
	"context"

	"mt5_gateway/internal/models"
)

// Terminal примитивы MT5, доступные через мост. Методы повторяют API терминала:
// nil-результат означает, что терминал вернул None.
type Terminal interface {
	Connect(ctx context.Context) error
	Close() error

	Initialize(ctx context.Context, creds models.Credentials) (bool, error)
	Shutdown(ctx context.Context) error
	TerminalInfo(ctx context.Context) (*models.TerminalInfo, error)
	LastError(ctx context.Context) (models.LastError, error)

	SymbolsGet(ctx context.Context) ([]models.Symbol, error)
	SymbolSelect(ctx context.Context, symbol string, enable bool) (bool, error)
	SymbolInfoTick(ctx context.Context, symbol string) (*models.Quote, error)

	// ticket 0 = все
	PositionsGet(ctx context.Context, ticket uint64) ([]models.Position, error)
	OrdersGet(ctx context.Context, ticket uint64) ([]models.PendingOrder, error)
	OrderSend(ctx context.Context, req models.TradeRequest) (*models.TradeResult, error)

	AccountInfo(ctx context.Context) (*models.AccountInfo, error)
	CopyRatesFromPos(ctx context.Context, symbol string, timeframe, start, count int) ([]models.Candle, error)
}
