package service

import (
	"context"
	"time"
)

// State опрашивает зависимости на каждом запросе, своего состояния почти не держит.
type State struct {
	startedAt time.Time

	terminal func() bool
	store    func(ctx context.Context) error
}

func NewState(terminal func() bool, store func(ctx context.Context) error) *State {
	return &State{
		startedAt: time.Now(),
		terminal:  terminal,
		store:     store,
	}
}

// Ready сервис готов торговать, когда терминал на связи.
func (s *State) Ready() bool { return s.TerminalConnected() }

func (s *State) TerminalConnected() bool {
	return s.terminal != nil && s.terminal()
}

func (s *State) StoreErr(ctx context.Context) error {
	if s.store == nil {
		return nil
	}
	return s.store(ctx)
}

func (s *State) Uptime() time.Duration { return time.Since(s.startedAt) }
