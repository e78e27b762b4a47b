package service

import (
	"context"
	"net/http"

	"mt5_gateway/internal/models"
	notifier "mt5_gateway/internal/modules/notifier/service"
	store "mt5_gateway/internal/modules/store/service"
	"mt5_gateway/pkg/tracing"

	"github.com/go-playground/validator/v10"
)

// Trading операции шлюза, нужные HTTP-слою.
type Trading interface {
	OpenMarket(ctx context.Context, in models.MarketOpen) (*models.OpenReceipt, error)
	CloseMarket(ctx context.Context, in models.MarketClose) (*models.CloseReceipt, error)
	ModifyMarket(ctx context.Context, in models.MarketModify) (*models.ModifyReceipt, error)
	PlacePending(ctx context.Context, in models.PendingPlace) (*models.PendingReceipt, error)
	ModifyPending(ctx context.Context, in models.PendingModify) (*models.PendingReceipt, error)
	CancelPending(ctx context.Context, in models.PendingCancel) (*models.CancelReceipt, error)
	BulkClose(ctx context.Context, c models.BulkFilterCriteria) (*models.BulkCloseResult, error)
	Positions(ctx context.Context) ([]models.Position, error)
	PendingOrders(ctx context.Context) ([]models.PendingOrder, error)
	Quote(ctx context.Context, symbol string) (*models.Quote, error)
	History(ctx context.Context, symbol string, tf models.Timeframe, count int) ([]models.Candle, error)
	Account(ctx context.Context) (*models.AccountInfo, error)
}

type Server struct {
	gw       Trading
	repo     store.Repository
	notify   notifier.Notifier
	validate *validator.Validate
}

func NewServer(gw Trading, repo store.Repository, notify notifier.Notifier) *Server {
	if notify == nil {
		notify = notifier.NewStdout()
	}
	return &Server{
		gw:       gw,
		repo:     repo,
		notify:   notify,
		validate: newValidator(),
	}
}

// Handler все маршруты /v1 с middleware.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /v1", s.handleStatus)

	mux.HandleFunc("GET /v1/market/quote/{symbol}", s.protected(s.handleQuote))
	mux.HandleFunc("GET /v1/market/quotes/{symbol}/history", s.protected(s.handleHistory))
	mux.HandleFunc("GET /v1/account/information", s.protected(s.handleAccount))

	mux.HandleFunc("POST /v1/trade/open", s.protected(s.handleOpen))
	mux.HandleFunc("POST /v1/trade/close", s.protected(s.handleClose))
	mux.HandleFunc("GET /v1/trade/positions", s.protected(s.handlePositions))
	mux.HandleFunc("POST /v1/trade/active/modification", s.protected(s.handleModify))
	mux.HandleFunc("GET /v1/trade/pending", s.protected(s.handlePendingList))
	mux.HandleFunc("POST /v1/trade/pending", s.protected(s.handlePendingPlace))
	mux.HandleFunc("POST /v1/trade/pending/modification", s.protected(s.handlePendingModify))
	mux.HandleFunc("POST /v1/trade/pending/cancel", s.protected(s.handlePendingCancel))
	mux.HandleFunc("POST /v1/trade/bulk-operations", s.protected(s.handleBulk))

	mux.HandleFunc("GET /v1/journal", s.protected(s.handleJournalList))
	mux.HandleFunc("POST /v1/journal", s.protected(s.handleJournalCreate))
	mux.HandleFunc("GET /v1/instruments", s.protected(s.handleInstrumentList))
	mux.HandleFunc("POST /v1/instruments", s.protected(s.handleInstrumentUpsert))

	return withRequestLog(tracing.Middleware(mux))
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
