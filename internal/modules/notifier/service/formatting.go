package service

import (
	"fmt"
	"strings"

	"mt5_gateway/internal/models"
)

func FormatOpen(r *models.OpenReceipt) string {
	return fmt.Sprintf("🟢 Открыта %s %s %.2f @ %s\nticket: %d",
		strings.ToUpper(r.Type), r.Symbol, r.Volume, price(r.Price), r.Ticket)
}

func FormatClose(r *models.CloseReceipt) string {
	return fmt.Sprintf("🔴 Закрыта %s %.2f @ %s\nticket: %d profit: %s",
		r.Symbol, r.Volume, price(r.ClosedPrice), r.Ticket, money(r.Profit))
}

func FormatPending(r *models.PendingReceipt) string {
	return fmt.Sprintf("⏳ Ордер %s %s %.2f @ %s\nticket: %d",
		r.Kind, r.Symbol, r.Volume, price(r.Price), r.Ticket)
}

func FormatBulk(r *models.BulkCloseResult) string {
	var b strings.Builder
	fmt.Fprintf(&b, "🧹 Массовое закрытие: %s\n", r.Message)
	for _, item := range r.Results {
		mark := "✅"
		if !item.Success {
			mark = "❌"
		}
		fmt.Fprintf(&b, "%s %s %d %s\n", mark, item.Category, item.Ticket, item.Symbol)
	}
	return strings.TrimRight(b.String(), "\n")
}

func FormatFailure(action string, res models.OperationResult) string {
	if res.Retcode != 0 {
		return fmt.Sprintf("⚠️ %s: %s (retcode %d)", action, res.Message, res.Retcode)
	}
	return fmt.Sprintf("⚠️ %s: %s", action, res.Message)
}

func FormatPositions(positions []models.Position) string {
	if len(positions) == 0 {
		return "📭 Открытых позиций нет"
	}
	var b strings.Builder
	b.WriteString("📊 Открытые позиции:\n")
	for _, p := range positions {
		fmt.Fprintf(&b, "- %s [%s] vol=%.2f @ %s sl=%s tp=%s pnl=%s\n",
			p.Symbol, strings.ToUpper(string(p.Side)), p.Volume, price(p.OpenPrice),
			price(p.StopLoss), price(p.TakeProfit), money(p.Profit))
	}
	return strings.TrimRight(b.String(), "\n")
}

func FormatAccount(a *models.AccountInfo) string {
	return fmt.Sprintf("💼 Счёт\nbalance: %s %s\nequity: %s\nfree margin: %s\nleverage: 1:%d",
		money(a.Balance), a.Currency, money(a.Equity), money(a.FreeMargin), a.Leverage)
}

func price(v float64) string {
	if v == 0 {
		return "-"
	}
	return fmt.Sprintf("%.5f", v)
}

func money(v float64) string { return fmt.Sprintf("%.2f", v) }
