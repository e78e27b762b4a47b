package service

import (
	"net/http"
	"strings"

	"mt5_gateway/internal/models"
	notifier "mt5_gateway/internal/modules/notifier/service"
)

func outcome(err error, msg string, payload any) models.OperationResult {
	if err != nil {
		return models.Failed(err)
	}
	return models.OK(msg, payload)
}

func reply(w http.ResponseWriter, err error, res models.OperationResult) {
	status := http.StatusOK
	if err != nil {
		status = models.KindOf(err).HTTPStatus()
	}
	writeJSON(w, status, res)
}

func direction(s models.Side) string { return strings.ToLower(string(s)) }

func (s *Server) handleOpen(w http.ResponseWriter, r *http.Request) {
	var req openRequest
	if _, err := s.decode(r, &req, false); err != nil {
		writeError(w, err)
		return
	}
	in, err := req.intent()
	if err != nil {
		writeError(w, err)
		return
	}

	receipt, err := s.gw.OpenMarket(r.Context(), in)
	res := outcome(err, "Trade opened successfully", receipt)

	entry := models.JournalEntry{
		Action:     "open",
		Symbol:     strings.ToUpper(in.Symbol),
		Direction:  direction(in.Side),
		Volume:     in.Volume,
		StopLoss:   in.StopLoss,
		TakeProfit: in.TakeProfit,
	}
	if receipt != nil {
		entry.Ticket, entry.Symbol, entry.Price = receipt.Ticket, receipt.Symbol, receipt.Price
	}
	s.record(r.Context(), entry, res)
	s.announce("open", res, func() string { return notifier.FormatOpen(receipt) })
	reply(w, err, res)
}

func (s *Server) handleClose(w http.ResponseWriter, r *http.Request) {
	var req ticketRequest
	if _, err := s.decode(r, &req, false); err != nil {
		writeError(w, err)
		return
	}

	receipt, err := s.gw.CloseMarket(r.Context(), models.MarketClose{Ticket: req.Ticket})
	res := outcome(err, "closed with success", receipt)

	entry := models.JournalEntry{Action: "close", Ticket: req.Ticket}
	if receipt != nil {
		entry.Symbol, entry.Price, entry.Volume = receipt.Symbol, receipt.ClosedPrice, receipt.Volume
	}
	s.record(r.Context(), entry, res)
	s.announce("close", res, func() string { return notifier.FormatClose(receipt) })
	reply(w, err, res)
}

func (s *Server) handleModify(w http.ResponseWriter, r *http.Request) {
	var req modifyRequest
	if _, err := s.decode(r, &req, false); err != nil {
		writeError(w, err)
		return
	}

	receipt, err := s.gw.ModifyMarket(r.Context(), req.intent())
	res := outcome(err, "Position modified successfully", receipt)
	if err != nil && receipt != nil {
		// частичное закрытие прошло, SL/TP нет
		res.Payload = receipt
	}

	entry := models.JournalEntry{Action: "modify", Ticket: req.Ticket}
	if receipt != nil {
		entry.Symbol, entry.StopLoss, entry.TakeProfit, entry.Volume = receipt.Symbol, receipt.StopLoss, receipt.TakeProfit, receipt.Volume
	}
	s.record(r.Context(), entry, res)
	reply(w, err, res)
}

func (s *Server) handlePositions(w http.ResponseWriter, r *http.Request) {
	positions, err := s.gw.Positions(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, positions)
}

func (s *Server) handlePendingList(w http.ResponseWriter, r *http.Request) {
	orders, err := s.gw.PendingOrders(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, orders)
}

func (s *Server) handlePendingPlace(w http.ResponseWriter, r *http.Request) {
	var req pendingRequest
	if _, err := s.decode(r, &req, false); err != nil {
		writeError(w, err)
		return
	}
	in, err := req.intent()
	if err != nil {
		writeError(w, err)
		return
	}

	receipt, err := s.gw.PlacePending(r.Context(), in)
	res := outcome(err, "Pending order placed successfully", receipt)

	entry := models.JournalEntry{
		Action: "pending_place",
		Symbol: strings.ToUpper(in.Symbol),
		Volume: in.Volume,
		Price:  in.Price,
	}
	if receipt != nil {
		entry.Ticket, entry.Symbol = receipt.Ticket, receipt.Symbol
		entry.StopLoss, entry.TakeProfit = receipt.StopLoss, receipt.TakeProfit
	}
	if side, ok := pendingDirection(in.Kind); ok {
		entry.Direction = side
	}
	s.record(r.Context(), entry, res)
	s.announce("pending", res, func() string { return notifier.FormatPending(receipt) })
	reply(w, err, res)
}

func pendingDirection(k models.PendingKind) (string, bool) {
	t, ok := k.OrderType()
	if !ok {
		return "", false
	}
	side, ok := models.PendingSide(t)
	return direction(side), ok
}

func (s *Server) handlePendingModify(w http.ResponseWriter, r *http.Request) {
	var req pendingModifyRequest
	if _, err := s.decode(r, &req, false); err != nil {
		writeError(w, err)
		return
	}

	receipt, err := s.gw.ModifyPending(r.Context(), req.intent())
	res := outcome(err, "Pending order modified successfully", receipt)

	entry := models.JournalEntry{Action: "pending_modify", Ticket: req.Ticket}
	if receipt != nil {
		entry.Symbol, entry.Price, entry.Volume = receipt.Symbol, receipt.Price, receipt.Volume
		entry.StopLoss, entry.TakeProfit = receipt.StopLoss, receipt.TakeProfit
	}
	s.record(r.Context(), entry, res)
	reply(w, err, res)
}

func (s *Server) handlePendingCancel(w http.ResponseWriter, r *http.Request) {
	var req ticketRequest
	if _, err := s.decode(r, &req, false); err != nil {
		writeError(w, err)
		return
	}

	receipt, err := s.gw.CancelPending(r.Context(), models.PendingCancel{Ticket: req.Ticket})
	res := outcome(err, "Order cancelled successfully", receipt)

	s.record(r.Context(), models.JournalEntry{Action: "pending_cancel", Ticket: req.Ticket}, res)
	reply(w, err, res)
}

func (s *Server) handleBulk(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := bulkRequest{
		Symbol: q.Get("symbol"),
		Type:   q.Get("type"),
		Status: q.Get("status"),
		Profit: q.Get("profit"),
	}
	var body bulkRequest
	ok, err := s.decode(r, &body, true)
	if err != nil {
		writeError(w, err)
		return
	}
	if ok {
		filter = filter.merge(&body)
	}

	criteria, err := models.ParseBulkFilter(filter.Symbol, filter.Type, filter.Status, filter.Profit)
	if err != nil {
		writeError(w, err)
		return
	}

	result, err := s.gw.BulkClose(r.Context(), criteria)
	entry := models.JournalEntry{Action: "bulk_close", Symbol: strings.ToUpper(criteria.Symbol)}
	if err != nil {
		s.record(r.Context(), entry, models.Failed(err))
		writeError(w, err)
		return
	}

	s.record(r.Context(), entry, models.OperationResult{Success: result.Success, Message: result.Message, Payload: result})
	if result.Total > 0 {
		s.notify.Send(notifier.FormatBulk(result))
	}
	writeJSON(w, http.StatusOK, result)
}
