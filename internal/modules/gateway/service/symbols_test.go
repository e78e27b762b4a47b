package service

import (
	"context"
	"testing"
	"time"

	"mt5_gateway/internal/models"
	"mt5_gateway/internal/modules/terminal/fake"
	terminal "mt5_gateway/internal/modules/terminal/service"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolveSuffixFallback(t *testing.T) {
	term := fake.New().WithSymbol("EURUSDm", 1.1, 1.2)
	r := NewSymbolResolver(0)
	ctx := context.Background()

	got, err := r.Resolve(ctx, term, "eurusd")
	require.NoError(t, err)
	assert.Equal(t, "EURUSDm", got)

	again, err := r.Resolve(ctx, term, "eurusd")
	require.NoError(t, err)
	assert.Equal(t, got, again)
}

func TestResolvePrefersExactMatch(t *testing.T) {
	term := fake.New().WithSymbol("EURUSD", 1.1, 1.2).WithSymbol("EURUSDm", 1.1, 1.2)
	got, err := NewSymbolResolver(0).Resolve(context.Background(), term, "EURUSD")
	require.NoError(t, err)
	assert.Equal(t, "EURUSD", got)
}

func TestResolveNotFound(t *testing.T) {
	term := fake.New().WithSymbol("GBPUSD", 1.1, 1.2)
	_, err := NewSymbolResolver(0).Resolve(context.Background(), term, "EURUSD")
	require.Error(t, err)
	assert.Equal(t, models.KindSymbolNotFound, models.KindOf(err))

	_, err = NewSymbolResolver(0).Resolve(context.Background(), term, "  ")
	assert.Equal(t, models.KindValidation, models.KindOf(err))
}

func TestResolveCacheReloadsOnMiss(t *testing.T) {
	term := fake.New().WithSymbol("EURUSD", 1.1, 1.2)
	r := NewSymbolResolver(time.Hour)
	ctx := context.Background()

	_, err := r.Resolve(ctx, term, "EURUSD")
	require.NoError(t, err)
	_, err = r.Resolve(ctx, term, "EURUSD")
	require.NoError(t, err)
	assert.Equal(t, 1, term.SymbolsCalled)

	// символ появился после загрузки кэша
	term.WithSymbol("XAUUSD", 2000, 2001)
	got, err := r.Resolve(ctx, term, "xauusd")
	require.NoError(t, err)
	assert.Equal(t, "XAUUSD", got)
	assert.Equal(t, 2, term.SymbolsCalled)
}

func TestCandidates(t *testing.T) {
	assert.Equal(t, []string{"EURUSD", "EURUSDm"}, Candidates("EURUSD"))
	assert.Equal(t, []string{"EURUSD", "EURUSDm"}, Candidates(" eurusd "))
}

func TestResolveIgnoresLowercaseListing(t *testing.T) {
	term := fake.New().WithSymbol("eurusd", 1.1, 1.2)
	_, err := NewSymbolResolver(0).Resolve(context.Background(), term, "eurusd")
	assert.Equal(t, models.KindSymbolNotFound, models.KindOf(err))
}

func TestResolveAfterReinitializeSeesNewServer(t *testing.T) {
	term := fake.New().WithSymbol("EURUSD", 1.1, 1.2)
	session := terminal.NewSession(term, models.Credentials{Login: 1, Password: "pw", Server: "Old"})
	r := NewSymbolResolver(time.Hour)
	session.OnConnect(r.Invalidate)
	ctx := context.Background()

	var got string
	resolve := func(ctx context.Context, tm terminal.Terminal) (err error) {
		got, err = r.Resolve(ctx, tm, "EURUSD")
		return err
	}
	require.NoError(t, session.Exec(ctx, resolve))
	assert.Equal(t, "EURUSD", got)

	// на новом сервере символы с суффиксом
	term.Symbols = []models.Symbol{{Name: "EURUSDm", Visible: true}}
	require.NoError(t, session.Initialize(ctx, models.Credentials{Login: 2, Password: "pw", Server: "New"}))

	require.NoError(t, session.Exec(ctx, resolve))
	assert.Equal(t, "EURUSDm", got)
}
