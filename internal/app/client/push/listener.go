// Package push принимает события складских остатков от сервера по websocket.
package push

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
	"golang.org/x/exp/slog"

	"stockkeeper/internal/domain/product"
)

const (
	DefaultMinBackoff = time.Second
	DefaultMaxBackoff = time.Minute

	// сервер пингует чаще, чем истекает pongWait
	pongWait  = 90 * time.Second
	writeWait = 10 * time.Second
)

// Applier применяет событие к локальной записи товара.
type Applier interface {
	ApplyStockEvent(ctx context.Context, ev product.StockEvent) (bool, error)
}

type Config struct {
	URL        string
	Token      func() string
	MinBackoff time.Duration
	MaxBackoff time.Duration
}

type Stats struct {
	Received int64
	Applied  int64
	Ignored  int64
	Dropped  int64
}

type Listener struct {
	config  Config
	applier Applier
	log     *slog.Logger
	dialer  *websocket.Dialer

	received atomic.Int64
	applied  atomic.Int64
	ignored  atomic.Int64
	dropped  atomic.Int64

	sleep func(ctx context.Context, d time.Duration) error
}

func NewListener(config Config, applier Applier, log *slog.Logger) *Listener {
	if config.MinBackoff <= 0 {
		config.MinBackoff = DefaultMinBackoff
	}
	if config.MaxBackoff <= 0 {
		config.MaxBackoff = DefaultMaxBackoff
	}
	if config.MaxBackoff < config.MinBackoff {
		config.MaxBackoff = config.MinBackoff
	}

	return &Listener{
		config:  config,
		applier: applier,
		log:     log.With("component", "push_listener"),
		dialer: &websocket.Dialer{
			HandshakeTimeout: 10 * time.Second,
		},
		sleep: sleepCtx,
	}
}

// Run держит соединение до отмены ctx, переподключаясь с растущей задержкой.
func (l *Listener) Run(ctx context.Context) error {
	backoff := l.config.MinBackoff

	for {
		connected, err := l.session(ctx)
		if ctx.Err() != nil {
			l.log.Info("слушатель push остановлен")
			return nil
		}
		if connected {
			backoff = l.config.MinBackoff
		}

		l.log.Warn("push канал потерян, переподключение", "error", err, "delay", backoff)
		if err := l.sleep(ctx, backoff); err != nil {
			l.log.Info("слушатель push остановлен")
			return nil
		}

		backoff *= 2
		if backoff > l.config.MaxBackoff {
			backoff = l.config.MaxBackoff
		}
	}
}

func (l *Listener) Stats() Stats {
	return Stats{
		Received: l.received.Load(),
		Applied:  l.applied.Load(),
		Ignored:  l.ignored.Load(),
		Dropped:  l.dropped.Load(),
	}
}

func (l *Listener) session(ctx context.Context) (bool, error) {
	header := http.Header{}
	if l.config.Token != nil {
		if token := l.config.Token(); token != "" {
			header.Set("Authorization", "Bearer "+token)
		}
	}

	conn, _, err := l.dialer.DialContext(ctx, l.config.URL, header)
	if err != nil {
		return false, err
	}
	l.log.Info("push канал подключен", "url", l.config.URL)

	var wg sync.WaitGroup
	done := make(chan struct{})
	defer func() {
		close(done)
		conn.Close()
		wg.Wait()
	}()

	// ReadMessage не знает о ctx: закрываем соединение при отмене
	wg.Add(1)
	go func() {
		defer wg.Done()
		select {
		case <-ctx.Done():
			_ = conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), time.Now().Add(writeWait))
			conn.Close()
		case <-done:
		}
	}()

	_ = conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPingHandler(func(data string) error {
		_ = conn.SetReadDeadline(time.Now().Add(pongWait))
		err := conn.WriteControl(websocket.PongMessage, []byte(data), time.Now().Add(writeWait))
		if errors.Is(err, websocket.ErrCloseSent) {
			return nil
		}
		return err
	})

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			return true, err
		}
		_ = conn.SetReadDeadline(time.Now().Add(pongWait))
		l.handle(ctx, data)
	}
}

func (l *Listener) handle(ctx context.Context, data []byte) {
	l.received.Add(1)

	var ev product.StockEvent
	if err := json.Unmarshal(data, &ev); err != nil {
		l.dropped.Add(1)
		l.log.Warn("некорректное push событие отброшено", "error", err)
		return
	}

	applied, err := l.applier.ApplyStockEvent(ctx, ev)
	switch {
	case product.IsNotFound(err):
		// товар появится при следующей выгрузке
		l.dropped.Add(1)
		l.log.Warn("push событие для неизвестного товара отброшено", "product_id", ev.ProductID, "type", ev.Type)
	case errors.Is(err, product.ErrUnknownEvent):
		l.dropped.Add(1)
		l.log.Warn("неизвестное push событие отброшено", "type", ev.Type)
	case err != nil:
		l.dropped.Add(1)
		l.log.Error("не удалось применить push событие", "product_id", ev.ProductID, "error", err)
	case applied:
		l.applied.Add(1)
		l.log.Debug("push событие применено", "product_id", ev.ProductID, "type", ev.Type, "stock", ev.Stock)
	default:
		l.ignored.Add(1)
	}
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
