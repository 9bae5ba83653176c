package ws

// Hub bertanggung jawab untuk:
// menyimpan koneksi client, menerima update dari service,
// dan melakukan broadcast ke client yang berlangganan resource tersebut.

import (
	"context"
	"encoding/json"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"
)

// Message adalah format pesan yang dikirim ke client, misalnya {"type":"token_update","data":{...}}.
type Message struct {
	Type     string      `json:"type"`
	Resource string      `json:"resource"`
	Data     interface{} `json:"data"`
	SentAt   time.Time   `json:"sent_at"`
}

type outbound struct {
	resource string
	payload  []byte
}

// Client mewakili koneksi WebSocket
type Client struct {
	Conn      *websocket.Conn
	Send      chan []byte
	resources map[string]bool
}

// wants bernilai true bila client tidak memfilter, atau memang berlangganan resource.
func (c *Client) wants(resource string) bool {
	return len(c.resources) == 0 || c.resources[resource]
}

// Hub mengelola semua koneksi client
type Hub struct {
	clients    map[*Client]bool
	broadcast  chan outbound
	register   chan *Client
	unregister chan *Client
	done       chan struct{}
	count      atomic.Int64
	log        logrus.FieldLogger
}

func NewHub(log logrus.FieldLogger) *Hub {
	return &Hub{
		clients:    make(map[*Client]bool),
		broadcast:  make(chan outbound, 256),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		done:       make(chan struct{}),
		log:        log,
	}
}

// Run memproses register/unregister/broadcast sampai ctx selesai, lalu menutup semua client.
func (h *Hub) Run(ctx context.Context) {
	defer close(h.done)
	for {
		select {
		case <-ctx.Done():
			for client := range h.clients {
				h.drop(client)
			}
			return
		case client := <-h.register:
			h.clients[client] = true
			h.count.Add(1)
			h.log.WithField("clients", h.count.Load()).Debug("client registered")
		case client := <-h.unregister:
			if _, ok := h.clients[client]; ok {
				h.drop(client)
				h.log.WithField("clients", h.count.Load()).Debug("client unregistered")
			}
		case msg := <-h.broadcast:
			for client := range h.clients {
				if !client.wants(msg.resource) {
					continue
				}
				select {
				case client.Send <- msg.payload:
				default:
					// client lambat, putuskan
					h.drop(client)
				}
			}
		}
	}
}

func (h *Hub) drop(client *Client) {
	delete(h.clients, client)
	close(client.Send)
	h.count.Add(-1)
}

// Publish mengirim snapshot resource ke semua client. Tidak pernah memblokir pemanggil:
// bila antrian broadcast penuh, pesan dibuang dan dicatat.
func (h *Hub) Publish(resource string, data interface{}) {
	payload, err := json.Marshal(Message{
		Type:     resource + "_update",
		Resource: resource,
		Data:     data,
		SentAt:   time.Now().UTC(),
	})
	if err != nil {
		h.log.WithError(err).WithField("resource", resource).Error("failed to encode broadcast")
		return
	}
	select {
	case h.broadcast <- outbound{resource: resource, payload: payload}:
	default:
		h.log.WithField("resource", resource).Warn("broadcast queue full, dropping update")
	}
}

func (h *Hub) ClientCount() int {
	return int(h.count.Load())
}

// Done tertutup setelah Run selesai.
func (h *Hub) Done() <-chan struct{} {
	return h.done
}

// Register/unregister gagal diam-diam bila hub sudah berhenti.
func (h *Hub) join(c *Client) bool {
	select {
	case h.register <- c:
		return true
	case <-h.done:
		return false
	}
}

func (h *Hub) leave(c *Client) {
	select {
	case h.unregister <- c:
	case <-h.done:
	}
}
