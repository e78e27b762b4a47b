package service

import (
	"context"
	"testing"

	"mt5_gateway/internal/models"
	"mt5_gateway/internal/modules/terminal/fake"
	terminal "mt5_gateway/internal/modules/terminal/service"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mixedBook() ([]models.Position, []models.PendingOrder) {
	positions := []models.Position{
		{Ticket: 1, Symbol: "EURUSD", Volume: 0.1, Side: models.SideBuy, Profit: 5},
		{Ticket: 2, Symbol: "EURUSD", Volume: 0.1, Side: models.SideBuy, Profit: -2},
		{Ticket: 3, Symbol: "GBPUSD", Volume: 0.1, Side: models.SideBuy, Profit: 1},
		{Ticket: 4, Symbol: "EURUSD", Volume: 0.1, Side: models.SideSell, Profit: 3},
		{Ticket: 5, Symbol: "GBPUSD", Volume: 0.1, Side: models.SideSell, Profit: -1},
	}
	orders := []models.PendingOrder{
		{Ticket: 10, Symbol: "EURUSD", Volume: 0.2, Type: models.OrderTypeBuyLimit, Price: 1.05},
		{Ticket: 11, Symbol: "GBPUSD", Volume: 0.2, Type: models.OrderTypeSellStop, Price: 1.2},
	}
	return positions, orders
}

func tickets(cands []Candidate) []uint64 {
	out := make([]uint64, 0, len(cands))
	for _, c := range cands {
		out = append(out, c.Ticket)
	}
	return out
}

func TestSelect(t *testing.T) {
	positions, orders := mixedBook()

	cases := []struct {
		name   string
		filter models.BulkFilterCriteria
		symbol string
		want   []uint64
	}{
		{
			name:   "buy open positive",
			filter: models.BulkFilterCriteria{Type: models.TypeBuy, Status: models.StatusOpen, Profit: models.ProfitPositive},
			want:   []uint64{1, 3},
		},
		{
			name:   "open never includes pending",
			filter: models.BulkFilterCriteria{Type: models.TypeAll, Status: models.StatusOpen, Profit: models.ProfitAll},
			want:   []uint64{1, 2, 3, 4, 5},
		},
		{
			name:   "pending status only orders",
			filter: models.BulkFilterCriteria{Type: models.TypeAll, Status: models.StatusPending, Profit: models.ProfitAll},
			want:   []uint64{10, 11},
		},
		{
			name:   "pending type drops positions",
			filter: models.BulkFilterCriteria{Type: models.TypePending, Status: models.StatusAll, Profit: models.ProfitAll},
			want:   []uint64{10, 11},
		},
		{
			name:   "sell all by symbol",
			filter: models.BulkFilterCriteria{Type: models.TypeSell, Status: models.StatusAll, Profit: models.ProfitAll},
			symbol: "GBPUSD",
			want:   []uint64{5, 11},
		},
		{
			name:   "profit filter ignores orders",
			filter: models.BulkFilterCriteria{Type: models.TypeAll, Status: models.StatusAll, Profit: models.ProfitNegative},
			want:   []uint64{2, 5, 10, 11},
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := Select(tc.filter, tc.symbol, positions, orders)
			assert.Equal(t, tc.want, tickets(got))
		})
	}
}

func TestZeroProfitMatchesNeither(t *testing.T) {
	cand := Candidate{Category: models.CategoryPosition, Side: models.SideBuy, Profit: 0}
	assert.False(t, Matches(models.BulkFilterCriteria{Type: models.TypeAll, Profit: models.ProfitPositive}, "", cand))
	assert.False(t, Matches(models.BulkFilterCriteria{Type: models.TypeAll, Profit: models.ProfitNegative}, "", cand))
	assert.True(t, Matches(models.BulkFilterCriteria{Type: models.TypeAll, Profit: models.ProfitAll}, "", cand))
}

func bookTerminal() *fake.Terminal {
	term := fake.New().WithSymbol("EURUSD", 1.1, 1.1002).WithSymbol("GBPUSD", 1.25, 1.2502)
	positions, orders := mixedBook()
	for _, p := range positions {
		term.AddPosition(p)
	}
	for _, o := range orders {
		term.AddOrder(o)
	}
	return term
}

func TestBulkRunClosesMatching(t *testing.T) {
	term := bookTerminal()
	engine := NewBulkEngine(NewTranslator())

	res, err := engine.Run(context.Background(), term, "", models.BulkFilterCriteria{
		Type: models.TypeBuy, Status: models.StatusOpen, Profit: models.ProfitPositive,
	})
	require.NoError(t, err)

	assert.True(t, res.Success)
	assert.Equal(t, 2, res.Closed)
	assert.Equal(t, 2, res.Total)
	assert.Equal(t, "2/2 trades closed successfully", res.Message)

	// обе закрывающие сделки встречные и ссылаются на свои позиции
	sent := term.SentRequests()
	require.Len(t, sent, 2)
	for _, req := range sent {
		assert.Equal(t, models.ActionDeal, req.Action)
		assert.Equal(t, models.OrderTypeSell, req.Type)
	}
	assert.Equal(t, uint64(1), sent[0].Position)
	assert.Equal(t, uint64(3), sent[1].Position)
}

func TestBulkRunPartialFailure(t *testing.T) {
	term := bookTerminal()
	term.Retcodes = []int{RetcodeDone, RetcodeInvalidRequest, RetcodeDone}
	engine := NewBulkEngine(NewTranslator())

	res, err := engine.Run(context.Background(), term, "EURUSD", models.BulkFilterCriteria{
		Type: models.TypeAll, Status: models.StatusAll, Profit: models.ProfitAll,
	})
	require.NoError(t, err)

	require.Len(t, res.Results, 4) // 1, 2, 4 и ордер 10
	assert.Equal(t, 3, res.Closed)
	assert.True(t, res.Success)
	assert.False(t, res.Results[1].Success)
	assert.Contains(t, res.Results[1].Message, "10030")
	assert.Equal(t, models.CategoryPending, res.Results[3].Category)
	assert.True(t, res.Results[3].Success)
}

func TestBulkRunAllFailed(t *testing.T) {
	term := bookTerminal()
	term.Retcodes = []int{RetcodeContextBusy}
	engine := NewBulkEngine(NewTranslator())

	res, err := engine.Run(context.Background(), term, "GBPUSD", models.BulkFilterCriteria{
		Type: models.TypeSell, Status: models.StatusOpen, Profit: models.ProfitAll,
	})
	require.NoError(t, err)
	assert.False(t, res.Success)
	assert.Equal(t, "0/1 trades closed successfully", res.Message)
}

func TestBulkRunEmpty(t *testing.T) {
	var term terminal.Terminal = fake.New()
	res, err := NewBulkEngine(NewTranslator()).Run(context.Background(), term, "", models.BulkFilterCriteria{
		Type: models.TypeAll, Status: models.StatusAll, Profit: models.ProfitAll,
	})
	require.NoError(t, err)
	assert.False(t, res.Success)
	assert.NotNil(t, res.Results)
	assert.Equal(t, "0/0 trades closed successfully", res.Message)
}
