// Package push рассылает клиентам события остатков по websocket.
package push

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"golang.org/x/exp/slog"

	"stockkeeper/internal/domain/product"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = (pongWait * 9) / 10

	clientBufferSize    = 16
	broadcastBufferSize = 256
)

type client struct {
	conn *websocket.Conn
	send chan []byte
}

// Hub - реестр подключений. Все изменения реестра и закрытие каналов
// выполняются только в горутине Run.
type Hub struct {
	log      *slog.Logger
	upgrader websocket.Upgrader

	mu      sync.RWMutex
	clients map[*websocket.Conn]*client

	broadcast  chan []byte
	register   chan *client
	unregister chan *websocket.Conn
	done       chan struct{}
	stopOnce   sync.Once
}

func NewHub(log *slog.Logger) *Hub {
	return &Hub{
		log: log.With("component", "push_hub"),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			// клиенты - не браузеры, Origin не проверяем
			CheckOrigin: func(r *http.Request) bool { return true },
		},
		clients:    make(map[*websocket.Conn]*client),
		broadcast:  make(chan []byte, broadcastBufferSize),
		register:   make(chan *client),
		unregister: make(chan *websocket.Conn),
		done:       make(chan struct{}),
	}
}

func (h *Hub) Run() {
	for {
		select {
		case c := <-h.register:
			h.mu.Lock()
			h.clients[c.conn] = c
			h.mu.Unlock()
			h.log.Debug("клиент подключен", "remote_addr", c.conn.RemoteAddr().String())

		case conn := <-h.unregister:
			h.mu.Lock()
			if c, ok := h.clients[conn]; ok {
				delete(h.clients, conn)
				close(c.send)
			}
			h.mu.Unlock()

		case message := <-h.broadcast:
			h.mu.RLock()
			for _, c := range h.clients {
				select {
				case c.send <- message:
				default:
					// медленный клиент теряет событие, догонит выгрузкой каталога
					h.log.Warn("буфер клиента заполнен, событие отброшено", "remote_addr", c.conn.RemoteAddr().String())
				}
			}
			h.mu.RUnlock()

		case <-h.done:
			h.mu.Lock()
			for conn, c := range h.clients {
				close(c.send)
				delete(h.clients, conn)
			}
			h.mu.Unlock()
			return
		}
	}
}

func (h *Hub) Stop() {
	h.stopOnce.Do(func() {
		close(h.done)
	})
}

// Publish не блокирует вызывающего: при переполненной очереди событие теряется.
func (h *Hub) Publish(ev product.StockEvent) {
	data, err := json.Marshal(ev)
	if err != nil {
		h.log.Error("не удалось закодировать событие остатка", "error", err)
		return
	}

	select {
	case h.broadcast <- data:
	default:
		h.log.Warn("очередь рассылки заполнена, событие отброшено", "type", ev.Type, "product_id", ev.ProductID)
	}
}

func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// ServeHTTP переводит соединение на websocket. Аутентификация - до хаба.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Warn("не удалось открыть websocket", "error", err)
		return
	}

	c := &client{conn: conn, send: make(chan []byte, clientBufferSize)}
	select {
	case h.register <- c:
	case <-h.done:
		conn.Close()
		return
	}

	go h.writePump(c)
	go h.readPump(c)
}

// readPump только поддерживает дедлайн по pong и замечает закрытие соединения.
func (h *Hub) readPump(c *client) {
	defer func() {
		select {
		case h.unregister <- c.conn:
		case <-h.done:
		}
	}()

	c.conn.SetReadLimit(512)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				h.log.Debug("ошибка чтения websocket", "error", err)
			}
			return
		}
	}
}

func (h *Hub) writePump(c *client) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}

		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
