package service

import (
	"context"

	"mt5_gateway/internal/models"
	notifier "mt5_gateway/internal/modules/notifier/service"
	"mt5_gateway/pkg/logger"

	"github.com/bytedance/sonic"
)

// record пишет итог операции в журнал. Ошибка журнала не влияет на ответ клиенту.
func (s *Server) record(ctx context.Context, e models.JournalEntry, res models.OperationResult) {
	if p := PrincipalFrom(ctx); p != nil {
		e.Username = p.Username
	}
	e.Success = res.Success
	e.Message = res.Message
	if snapshot, err := sonic.Marshal(res); err == nil {
		e.Snapshot = snapshot
	}

	// запрос уже мог отмениться, а запись нужна
	if err := s.repo.AddJournalEntry(context.WithoutCancel(ctx), &e); err != nil {
		logger.Warn("[JOURNAL] id=%s %s ticket=%d: %v", RequestIDFrom(ctx), e.Action, e.Ticket, err)
	}
}

// announce текст успеха собирает вызывающий.
func (s *Server) announce(action string, res models.OperationResult, ok func() string) {
	if res.Success {
		s.notify.Send(ok())
		return
	}
	s.notify.Send(notifier.FormatFailure(action, res))
}
