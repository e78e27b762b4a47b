package service

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"mt5_gateway/internal/models"
	terminal "mt5_gateway/internal/modules/terminal/service"
)

// brokerSuffix некоторые брокеры вешают на символы суффикс, GBPUSD -> GBPUSDm.
const brokerSuffix = "m"

// SymbolResolver сверяет символ клиента со списком терминала. Список кэшируется на ttl,
// при промахе по кэшу перечитывается один раз.
type SymbolResolver struct {
	ttl time.Duration
	now func() time.Time

	mu       sync.Mutex
	names    map[string]struct{}
	loadedAt time.Time
}

func NewSymbolResolver(ttl time.Duration) *SymbolResolver {
	return &SymbolResolver{ttl: ttl, now: time.Now}
}

// Candidates порядок проверки: upper, затем upper+"m".
func Candidates(raw string) []string {
	up := strings.ToUpper(strings.TrimSpace(raw))
	return []string{up, up + brokerSuffix}
}

func (r *SymbolResolver) Resolve(ctx context.Context, t terminal.Terminal, raw string) (string, error) {
	if strings.TrimSpace(raw) == "" {
		return "", models.NewError(models.KindValidation, "symbol is required")
	}

	fresh := false
	for attempt := 0; attempt < 2; attempt++ {
		names, reloaded, err := r.load(ctx, t, attempt > 0)
		if err != nil {
			return "", err
		}
		fresh = fresh || reloaded
		for _, c := range Candidates(raw) {
			if _, ok := names[c]; ok {
				return c, nil
			}
		}
		if fresh {
			break
		}
	}
	return "", models.NewError(models.KindSymbolNotFound, fmt.Sprintf("Symbol '%s' not found on MT5", raw))
}

func (r *SymbolResolver) load(ctx context.Context, t terminal.Terminal, force bool) (map[string]struct{}, bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if !force && r.ttl > 0 && r.names != nil && r.now().Sub(r.loadedAt) < r.ttl {
		return r.names, false, nil
	}

	syms, err := t.SymbolsGet(ctx)
	if err != nil {
		return nil, false, models.WrapError(models.KindConnection, "Failed to retrieve symbols list", err)
	}
	names := make(map[string]struct{}, len(syms))
	for _, s := range syms {
		names[s.Name] = struct{}{}
	}
	if r.ttl > 0 {
		r.names = names
		r.loadedAt = r.now()
	}
	return names, true, nil
}

// Invalidate сбрасывает кэш, например после переподключения к другому серверу.
func (r *SymbolResolver) Invalidate() {
	r.mu.Lock()
	r.names = nil
	r.mu.Unlock()
}
