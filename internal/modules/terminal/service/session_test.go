package service_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"mt5_gateway/internal/models"
	"mt5_gateway/internal/modules/terminal/fake"
	"mt5_gateway/internal/modules/terminal/service"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var _ service.Terminal = (*fake.Terminal)(nil)

var creds = models.Credentials{Login: 1, Password: "pw", Server: "Demo"}

func TestEnsureConnectedIsIdempotent(t *testing.T) {
	term := fake.New()
	s := service.NewSession(term, creds)
	ctx := context.Background()

	require.NoError(t, s.EnsureConnected(ctx))
	require.NoError(t, s.EnsureConnected(ctx))
	require.NoError(t, s.EnsureConnected(ctx))

	assert.Equal(t, 1, term.Inits)
	assert.True(t, s.Connected())
}

func TestEnsureConnectedReconnectsOnce(t *testing.T) {
	term := fake.New()
	s := service.NewSession(term, creds)
	ctx := context.Background()
	require.NoError(t, s.EnsureConnected(ctx))

	// транспорт упал: следующий вызов должен переподключиться
	require.NoError(t, term.Close())
	require.NoError(t, s.EnsureConnected(ctx))
	assert.Equal(t, 2, term.Inits)
}

func TestEnsureConnectedFailsWithConnectionError(t *testing.T) {
	t.Run("unreachable", func(t *testing.T) {
		term := fake.New()
		term.ConnectErr = errors.New("connection refused")
		s := service.NewSession(term, creds)

		err := s.EnsureConnected(context.Background())
		require.Error(t, err)
		assert.Equal(t, models.KindConnection, models.KindOf(err))
		assert.False(t, s.Connected())
	})

	t.Run("not logged in", func(t *testing.T) {
		term := fake.New()
		term.Disconnected = true
		s := service.NewSession(term, creds)

		err := s.EnsureConnected(context.Background())
		require.Error(t, err)
		assert.Equal(t, models.KindConnection, models.KindOf(err))
	})
}

func TestInitializeFailureCarriesLastError(t *testing.T) {
	term := fake.New()
	term.InitFails = true
	term.LastErr = models.LastError{Code: -6, Message: "Authorization failed"}
	s := service.NewSession(term, creds)

	err := s.Initialize(context.Background(), creds)
	require.Error(t, err)
	me := models.AsError(err)
	assert.Equal(t, models.KindInitialization, me.Kind)
	assert.Equal(t, -6, me.Retcode)
	assert.Contains(t, me.Message, "-6")
}

func TestInitializeFailureWithoutLastError(t *testing.T) {
	term := fake.New()
	term.InitFails = true
	term.LastErrFail = errors.New("bridge closed")
	s := service.NewSession(term, creds)

	err := s.Initialize(context.Background(), creds)
	require.Error(t, err)
	me := models.AsError(err)
	assert.Equal(t, models.KindInitialization, me.Kind)
	assert.Zero(t, me.Retcode)
	assert.Contains(t, me.Message, "error code unavailable")
	assert.NotContains(t, me.Message, "= 0")
}

func TestOnConnectRunsAfterEveryInitialize(t *testing.T) {
	term := fake.New()
	s := service.NewSession(term, creds)
	ctx := context.Background()
	calls := 0
	s.OnConnect(func() { calls++ })

	require.NoError(t, s.EnsureConnected(ctx))
	require.NoError(t, s.EnsureConnected(ctx))
	assert.Equal(t, 1, calls)

	require.NoError(t, s.Initialize(ctx, creds))
	assert.Equal(t, 2, calls)

	term.InitFails = true
	require.Error(t, s.Initialize(ctx, creds))
	assert.Equal(t, 2, calls)
}

func TestInitializeTearsDownExistingConnection(t *testing.T) {
	term := fake.New()
	s := service.NewSession(term, creds)
	ctx := context.Background()

	require.NoError(t, s.EnsureConnected(ctx))
	require.NoError(t, s.Initialize(ctx, models.Credentials{Login: 2, Password: "x", Server: "Live"}))

	assert.Equal(t, 1, term.Shutdowns)
	assert.Equal(t, 2, term.Inits)
}

func TestShutdownWithoutConnect(t *testing.T) {
	term := fake.New()
	s := service.NewSession(term, creds)

	require.NoError(t, s.Shutdown(context.Background()))
	assert.Equal(t, 0, term.Shutdowns)
	assert.False(t, s.Connected())
}

func TestExecSerializesCallers(t *testing.T) {
	term := fake.New().WithSymbol("EURUSD", 1.1, 1.2)
	term.CallDelay = 2 * time.Millisecond
	s := service.NewSession(term, creds)
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := s.Exec(ctx, func(ctx context.Context, tt service.Terminal) error {
				_, err := tt.SymbolInfoTick(ctx, "EURUSD")
				if err != nil {
					return err
				}
				_, err = tt.PositionsGet(ctx, 0)
				return err
			})
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, term.MaxConcurrent())
}

func TestExecLockWaitHonoursContext(t *testing.T) {
	term := fake.New()
	s := service.NewSession(term, creds)

	started := make(chan struct{})
	release := make(chan struct{})
	go func() {
		_ = s.Exec(context.Background(), func(ctx context.Context, _ service.Terminal) error {
			close(started)
			<-release
			return nil
		})
	}()
	<-started

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	called := false
	err := s.Exec(ctx, func(ctx context.Context, _ service.Terminal) error {
		called = true
		return nil
	})
	close(release)

	require.Error(t, err)
	assert.False(t, called)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}
