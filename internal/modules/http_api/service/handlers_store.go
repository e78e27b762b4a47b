package service

import (
	"net/http"
	"strconv"
	"strings"

	"mt5_gateway/internal/models"
)

func (s *Server) handleJournalList(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			writeError(w, models.NewError(models.KindValidation, "limit must be a positive integer"))
			return
		}
		limit = n
	}

	entries, err := s.repo.ListJournal(r.Context(), limit)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, entries)
}

func (s *Server) handleJournalCreate(w http.ResponseWriter, r *http.Request) {
	var req journalRequest
	if _, err := s.decode(r, &req, false); err != nil {
		writeError(w, err)
		return
	}

	e := &models.JournalEntry{
		Action:     req.Action,
		Ticket:     req.Ticket,
		Symbol:     strings.ToUpper(req.Symbol),
		Direction:  strings.ToLower(req.Direction),
		Volume:     req.Volume,
		Price:      req.Price,
		StopLoss:   req.StopLoss,
		TakeProfit: req.TakeProfit,
		Success:    req.Success,
		Message:    req.Message,
	}
	if p := PrincipalFrom(r.Context()); p != nil {
		e.Username = p.Username
	}
	if err := s.repo.AddJournalEntry(r.Context(), e); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, e)
}

func (s *Server) handleInstrumentList(w http.ResponseWriter, r *http.Request) {
	list, err := s.repo.ListInstruments(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, list)
}

func (s *Server) handleInstrumentUpsert(w http.ResponseWriter, r *http.Request) {
	var req instrumentRequest
	if _, err := s.decode(r, &req, false); err != nil {
		writeError(w, err)
		return
	}

	in := &models.Instrument{
		Symbol:            strings.ToUpper(strings.TrimSpace(req.Symbol)),
		Description:       req.Description,
		Session:           req.Session,
		VolatilityProfile: req.VolatilityProfile,
	}
	if err := s.repo.UpsertInstrument(r.Context(), in); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, in)
}
