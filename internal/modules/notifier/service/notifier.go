package service

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"mt5_gateway/internal/models"
	"mt5_gateway/pkg/logger"

	tgbot "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

const queueSize = 64

type Notifier interface {
	Send(msg string)
	Sendf(format string, args ...any)
}

// Book источник данных для команд /positions и /account.
type Book interface {
	Positions(ctx context.Context) ([]models.Position, error)
	Account(ctx context.Context) (*models.AccountInfo, error)
}

// Telegram шлёт торговые события в чат. Send не блокирует HTTP-обработчик:
// сообщения уходят из очереди отдельной горутиной.
type Telegram struct {
	bot    *tgbot.BotAPI
	chatID int64
	book   Book

	queue  chan string
	once   sync.Once
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

func NewTelegram(token string, chatID int64, book Book) (*Telegram, error) {
	b, err := tgbot.NewBotAPI(token)
	if err != nil {
		return nil, err
	}
	return &Telegram{
		bot:    b,
		chatID: chatID,
		book:   book,
		queue:  make(chan string, queueSize),
	}, nil
}

func (t *Telegram) Send(msg string) {
	if t == nil || t.bot == nil || t.chatID == 0 {
		return
	}
	select {
	case t.queue <- msg:
	default:
		logger.Warn("[NOTIFY] queue full, dropped: %s", msg)
	}
}

func (t *Telegram) Sendf(format string, args ...any) { t.Send(fmt.Sprintf(format, args...)) }

func (t *Telegram) deliver(msg string) {
	if _, err := t.bot.Send(tgbot.NewMessage(t.chatID, msg)); err != nil {
		logger.Warn("[NOTIFY] telegram send: %v", err)
	}
}

// Start отправка из очереди + long-polling команд.
func (t *Telegram) Start(ctx context.Context) error {
	if t == nil || t.bot == nil {
		return nil
	}
	ctx, t.cancel = context.WithCancel(ctx)

	t.wg.Add(1)
	go func() {
		defer t.wg.Done()
		for {
			select {
			case <-ctx.Done():
				return
			case msg := <-t.queue:
				t.deliver(msg)
			}
		}
	}()

	u := tgbot.NewUpdate(0)
	u.Timeout = 30
	u.AllowedUpdates = []string{"message"}

	updates := t.bot.GetUpdatesChan(u)
	t.wg.Add(1)
	go func() {
		defer t.wg.Done()
		for {
			select {
			case <-ctx.Done():
				return
			case upd := <-updates:
				if upd.Message == nil || upd.Message.Chat == nil ||
					upd.Message.Chat.ID != t.chatID || !upd.Message.IsCommand() {
					continue
				}
				switch upd.Message.Command() {
				case "positions":
					go t.handlePositions(ctx)
				case "account":
					go t.handleAccount(ctx)
				}
			}
		}
	}()
	return nil
}

func (t *Telegram) Stop() {
	if t == nil || t.bot == nil {
		return
	}
	t.once.Do(func() {
		t.bot.StopReceivingUpdates()
		if t.cancel != nil {
			t.cancel()
		}
		t.wg.Wait()
	})
}

// /positions
func (t *Telegram) handlePositions(ctx context.Context) {
	if t.book == nil {
		return
	}
	positions, err := t.book.Positions(ctx)
	if err != nil {
		t.Sendf("❗️ Ошибка получения позиций: %v", err)
		return
	}
	t.Send(FormatPositions(positions))
}

// /account
func (t *Telegram) handleAccount(ctx context.Context) {
	if t.book == nil {
		return
	}
	info, err := t.book.Account(ctx)
	if err != nil {
		t.Sendf("❗️ Ошибка получения счёта: %v", err)
		return
	}
	t.Send(FormatAccount(info))
}

// Stdout пишет события в лог, когда telegram не настроен.
type Stdout struct{}

func NewStdout() *Stdout                           { return &Stdout{} }
func (s *Stdout) Send(msg string)                  { logger.Info("[NOTIFY] %s", strings.ReplaceAll(msg, "\n", " | ")) }
func (s *Stdout) Sendf(format string, args ...any) { s.Send(fmt.Sprintf(format, args...)) }

var (
	_ Notifier = (*Telegram)(nil)
	_ Notifier = (*Stdout)(nil)
)
