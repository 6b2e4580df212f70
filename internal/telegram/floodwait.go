package telegram

import (
	"errors"
	"fmt"
	"log/slog"
	"regexp"
	"strconv"
	"sync"
	"time"

	"github.com/gotd/td/tgerr"
)

var (
	// ErrFloodWaitActive возвращается, когда запрос отклонен до окончания FLOOD_WAIT.
	ErrFloodWaitActive = errors.New("client is in flood wait")

	floodWaitRegex = regexp.MustCompile(`FLOOD_WAIT \((\d+)\)`)
)

// floodGate помнит, до какого момента Telegram запретил запросы сессии.
type floodGate struct {
	mu    sync.RWMutex
	until time.Time
	clock func() time.Time
	log   *slog.Logger
}

// check возвращает ErrFloodWaitActive, пока не истек последний FLOOD_WAIT.
func (g *floodGate) check() error {
	g.mu.RLock()
	defer g.mu.RUnlock()

	if !g.until.IsZero() && g.clock().Before(g.until) {
		return fmt.Errorf("%w: active until %v", ErrFloodWaitActive, g.until)
	}
	return nil
}

// observe закрывает шлюз, если err содержит FLOOD_WAIT. Новый FLOOD_WAIT заменяет предыдущий.
func (g *floodGate) observe(err error) {
	wait, ok := parseFloodWait(err)
	if !ok {
		return
	}

	g.mu.Lock()
	g.until = g.clock().Add(wait)
	until := g.until
	g.mu.Unlock()

	g.log.Warn("Client got FLOOD_WAIT, requests paused", "wait_duration", wait, "until", until)
}

func (g *floodGate) closedUntil() time.Time {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.until
}

// parseFloodWait извлекает длительность ожидания из ошибки RPC или ее текста.
func parseFloodWait(err error) (time.Duration, bool) {
	if err == nil {
		return 0, false
	}
	if d, ok := tgerr.AsFloodWait(err); ok {
		return d, true
	}

	matches := floodWaitRegex.FindStringSubmatch(err.Error())
	if len(matches) < 2 {
		return 0, false
	}

	seconds, convErr := strconv.Atoi(matches[1])
	if convErr != nil {
		return 0, false
	}
	return time.Duration(seconds) * time.Second, true
}
