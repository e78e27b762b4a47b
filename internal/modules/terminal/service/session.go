package service

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"

	"mt5_gateway/internal/models"
	"mt5_gateway/pkg/logger"
)

// Session единственная на процесс сессия с терминалом. Все обращения к Terminal
// идут через Exec под одним семафором: чтения, записи и целые bulk-пачки.
type Session struct {
	term  Terminal
	creds models.Credentials

	// ёмкость 1: ожидание захвата можно прервать контекстом
	sem chan struct{}

	initialized bool // под sem
	connected   atomic.Bool

	hooksMu   sync.Mutex
	onConnect []func()
}

func NewSession(term Terminal, creds models.Credentials) *Session {
	return &Session{
		term:  term,
		creds: creds,
		sem:   make(chan struct{}, 1),
	}
}

func (s *Session) lock(ctx context.Context) error {
	select {
	case s.sem <- struct{}{}:
		return nil
	case <-ctx.Done():
		return models.WrapError(models.KindConnection, "timed out waiting for broker session", ctx.Err())
	}
}

func (s *Session) unlock() { <-s.sem }

// Connected последнее известное состояние, без обращения к терминалу.
func (s *Session) Connected() bool { return s.connected.Load() }

// Exec захватывает сессию, проверяет подключение и выполняет fn.
// Начатый вызов брокера не отменяется вместе с ctx.
func (s *Session) Exec(ctx context.Context, fn func(ctx context.Context, t Terminal) error) error {
	if err := s.lock(ctx); err != nil {
		return err
	}
	defer s.unlock()

	callCtx := context.WithoutCancel(ctx)
	if err := s.ensureConnectedLocked(callCtx); err != nil {
		return err
	}
	return fn(callCtx, s.term)
}

// EnsureConnected идемпотентна; одна попытка переподключения перед ConnectionError.
func (s *Session) EnsureConnected(ctx context.Context) error {
	if err := s.lock(ctx); err != nil {
		return err
	}
	defer s.unlock()
	return s.ensureConnectedLocked(context.WithoutCancel(ctx))
}

func (s *Session) ensureConnectedLocked(ctx context.Context) error {
	if s.aliveLocked(ctx) {
		return nil
	}

	logger.Warn("[SESSION] terminal is not connected, reconnecting")
	if err := s.connectLocked(ctx, s.creds); err != nil {
		return models.WrapError(models.KindConnection, "Failed to connect to MT5 terminal", err)
	}
	if !s.aliveLocked(ctx) {
		s.connected.Store(false)
		return models.NewError(models.KindConnection, "MT5 terminal is not connected")
	}
	return nil
}

func (s *Session) aliveLocked(ctx context.Context) bool {
	if !s.initialized {
		return false
	}
	info, err := s.term.TerminalInfo(ctx)
	ok := err == nil && info != nil && info.Connected
	s.connected.Store(ok)
	return ok
}

// OnConnect fn вызывается после каждого успешного initialize, в том числе при
// неявном переподключении. Вызывается под семафором сессии.
func (s *Session) OnConnect(fn func()) {
	s.hooksMu.Lock()
	s.onConnect = append(s.onConnect, fn)
	s.hooksMu.Unlock()
}

// Initialize рвёт текущее подключение и логинится заново с creds.
func (s *Session) Initialize(ctx context.Context, creds models.Credentials) error {
	if err := s.lock(ctx); err != nil {
		return err
	}
	defer s.unlock()

	if err := s.connectLocked(context.WithoutCancel(ctx), creds); err != nil {
		if models.KindOf(err) == models.KindInitialization {
			return err
		}
		return models.WrapError(models.KindInitialization, "MT5 initialize failed", err)
	}
	s.creds = creds
	return nil
}

func (s *Session) connectLocked(ctx context.Context, creds models.Credentials) error {
	s.teardownLocked(ctx)

	if err := s.term.Connect(ctx); err != nil {
		return err
	}
	ok, err := s.term.Initialize(ctx, creds)
	if err != nil {
		return err
	}
	if !ok {
		le, err := s.term.LastError(ctx)
		if err != nil {
			logger.Warn("[SESSION] last_error: %v", err)
			return models.NewError(models.KindInitialization, "MT5 initialize failed, error code unavailable")
		}
		return &models.Error{
			Kind:    models.KindInitialization,
			Message: fmt.Sprintf("MT5 initialize failed, error code = %d %s", le.Code, le.Message),
			Retcode: le.Code,
		}
	}

	s.initialized = true
	s.connected.Store(true)
	logger.Info("[SESSION] terminal initialized, login=%d server=%s", creds.Login, creds.Server)

	s.hooksMu.Lock()
	hooks := append([]func(){}, s.onConnect...)
	s.hooksMu.Unlock()
	for _, fn := range hooks {
		fn()
	}
	return nil
}

func (s *Session) teardownLocked(ctx context.Context) {
	if s.initialized {
		if err := s.term.Shutdown(ctx); err != nil {
			logger.Warn("[SESSION] shutdown: %v", err)
		}
	}
	_ = s.term.Close()
	s.initialized = false
	s.connected.Store(false)
}

// Shutdown безопасен, даже если подключения не было.
func (s *Session) Shutdown(ctx context.Context) error {
	if err := s.lock(ctx); err != nil {
		return err
	}
	defer s.unlock()

	s.teardownLocked(context.WithoutCancel(ctx))
	return nil
}
