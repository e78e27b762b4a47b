package service

import (
	"context"
	"fmt"

	"mt5_gateway/internal/models"
	terminal "mt5_gateway/internal/modules/terminal/service"
	"mt5_gateway/pkg/logger"
)

// Candidate позиция или отложенный ордер, попавший под фильтр.
type Candidate struct {
	Category models.Category
	Ticket   uint64
	Symbol   string
	Side     models.Side // пусто для stop-limit и прочих экзотических типов
	Profit   float64
}

func positionCandidate(p models.Position) Candidate {
	return Candidate{
		Category: models.CategoryPosition,
		Ticket:   p.Ticket,
		Symbol:   p.Symbol,
		Side:     p.Side,
		Profit:   p.Profit,
	}
}

func orderCandidate(o models.PendingOrder) Candidate {
	side, _ := models.PendingSide(o.Type)
	return Candidate{
		Category: models.CategoryPending,
		Ticket:   o.Ticket,
		Symbol:   o.Symbol,
		Side:     side,
	}
}

// Matches фильтры символа, типа и прибыли для одного кандидата. symbol уже разрешён.
func Matches(c models.BulkFilterCriteria, symbol string, cand Candidate) bool {
	if symbol != "" && cand.Symbol != symbol {
		return false
	}

	switch c.Type {
	case models.TypeBuy:
		if cand.Side != models.SideBuy {
			return false
		}
	case models.TypeSell:
		if cand.Side != models.SideSell {
			return false
		}
	case models.TypePending:
		if cand.Category != models.CategoryPending {
			return false
		}
	}

	// прибыль есть только у позиций; ноль не проходит ни positive, ни negative
	if cand.Category == models.CategoryPosition {
		switch c.Profit {
		case models.ProfitPositive:
			if cand.Profit <= 0 {
				return false
			}
		case models.ProfitNegative:
			if cand.Profit >= 0 {
				return false
			}
		}
	}
	return true
}

// Select кандидаты по статусу, затем Matches. Позиции идут раньше ордеров.
func Select(c models.BulkFilterCriteria, symbol string, positions []models.Position, orders []models.PendingOrder) []Candidate {
	var out []Candidate
	if c.Status == models.StatusOpen || c.Status == models.StatusAll {
		for _, p := range positions {
			if cand := positionCandidate(p); Matches(c, symbol, cand) {
				out = append(out, cand)
			}
		}
	}
	if c.Status == models.StatusPending || c.Status == models.StatusAll {
		for _, o := range orders {
			if cand := orderCandidate(o); Matches(c, symbol, cand) {
				out = append(out, cand)
			}
		}
	}
	return out
}

// BulkEngine закрывает всё, что попало под фильтр. Ошибка одного тикета не
// останавливает пачку.
type BulkEngine struct {
	tr *Translator
}

func NewBulkEngine(tr *Translator) *BulkEngine {
	return &BulkEngine{tr: tr}
}

func (b *BulkEngine) Run(ctx context.Context, t terminal.Terminal, symbol string, c models.BulkFilterCriteria) (*models.BulkCloseResult, error) {
	var (
		positions []models.Position
		orders    []models.PendingOrder
		err       error
	)
	if c.Status == models.StatusOpen || c.Status == models.StatusAll {
		if positions, err = t.PositionsGet(ctx, 0); err != nil {
			return nil, terminalErr("positions_get", err)
		}
	}
	if c.Status == models.StatusPending || c.Status == models.StatusAll {
		if orders, err = t.OrdersGet(ctx, 0); err != nil {
			return nil, terminalErr("orders_get", err)
		}
	}

	logger.Info("[BULK] filters symbol=%q type=%s status=%s profit=%s", symbol, c.Type, c.Status, c.Profit)

	candidates := Select(c, symbol, positions, orders)
	out := &models.BulkCloseResult{
		Total:   len(candidates),
		Results: make([]models.BulkItemResult, 0, len(candidates)),
	}
	for _, cand := range candidates {
		item := models.BulkItemResult{
			Ticket:   cand.Ticket,
			Symbol:   cand.Symbol,
			Category: cand.Category,
		}

		var err error
		if cand.Category == models.CategoryPosition {
			_, err = b.tr.Close(ctx, t, cand.Ticket)
		} else {
			_, err = b.tr.Cancel(ctx, t, cand.Ticket)
		}

		switch {
		case err != nil:
			item.Message = fmt.Sprintf("Failed to close trade: %v", err)
			logger.Warn("[BULK] ticket=%d %s: %v", cand.Ticket, cand.Category, err)
		case cand.Category == models.CategoryPosition:
			item.Success = true
			item.Message = "Trade closed successfully"
		default:
			item.Success = true
			item.Message = "Order cancelled successfully"
		}
		if item.Success {
			out.Closed++
		}
		out.Results = append(out.Results, item)
	}

	out.Success = out.Closed > 0
	out.Message = fmt.Sprintf("%d/%d trades closed successfully", out.Closed, out.Total)
	return out, nil
}
