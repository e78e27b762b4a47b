package service

import (
	"net/http"
	"strconv"
	"strings"

	"mt5_gateway/internal/models"
)

const (
	defaultTimeframe    = "H1"
	defaultCandlesticks = 5
)

func (s *Server) handleQuote(w http.ResponseWriter, r *http.Request) {
	q, err := s.gw.Quote(r.Context(), r.PathValue("symbol"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, q)
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()

	raw := query.Get("timeframe")
	if raw == "" {
		raw = defaultTimeframe
	}
	tf, err := models.ParseTimeframe(raw)
	if err != nil {
		writeError(w, err)
		return
	}

	count := defaultCandlesticks
	if v := query.Get("candlesticks"); v != "" {
		if count, err = strconv.Atoi(v); err != nil {
			writeError(w, models.NewError(models.KindValidation, "Candlesticks must be an integer between 1 and 1000"))
			return
		}
	}

	candles, err := s.gw.History(r.Context(), r.PathValue("symbol"), tf, count)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, historyResponse{
		Symbol:         strings.ToUpper(r.PathValue("symbol")),
		Timeframe:      string(tf),
		Candles:        len(candles),
		HistoricalData: candles,
	})
}

func (s *Server) handleAccount(w http.ResponseWriter, r *http.Request) {
	info, err := s.gw.Account(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, info)
}
