package ws

import (
	"encoding/json"
	"log"
	"sync"

	"github.com/gorilla/websocket"
)

type Client struct {
	Conn *websocket.Conn
	Send chan []byte
}

// Hub giữ các kết nối WebSocket theo từng nguồn tài liệu (sourceID)
// và một nhóm global cho trang danh sách.
type Hub struct {
	Clients       map[string]map[*websocket.Conn]*Client
	GlobalClients map[*websocket.Conn]*Client
	Mutex         sync.RWMutex
}

var H = Hub{
	Clients:       make(map[string]map[*websocket.Conn]*Client),
	GlobalClients: make(map[*websocket.Conn]*Client),
}

// Trạng thái xử lý một nguồn tài liệu (upload -> extract -> chunk -> sẵn sàng)
type SourceStatusUpdate struct {
	SourceID string  `json:"source_id"`
	Status   string  `json:"status"`
	Progress float64 `json:"progress"`
	Error    string  `json:"error,omitempty"`
}

// Tiến độ sinh nội dung (quiz/flashcard) cho một bộ
type GenerationStatusUpdate struct {
	SetID     string `json:"set_id"`
	Kind      string `json:"kind"` // "quiz" | "flashcard"
	Status    string `json:"status"`
	Generated int    `json:"generated"`
	Requested int    `json:"requested"`
	Error     string `json:"error,omitempty"`
}

// Register theo sourceID riêng
func (h *Hub) Register(sourceID string, conn *websocket.Conn) {
	h.Mutex.Lock()
	defer h.Mutex.Unlock()

	if _, ok := h.Clients[sourceID]; !ok {
		h.Clients[sourceID] = make(map[*websocket.Conn]*Client)
	}

	client := &Client{
		Conn: conn,
		Send: make(chan []byte, 256),
	}

	h.Clients[sourceID][conn] = client

	// Handler là goroutine đọc duy nhất; hub chỉ lo ghi
	go writePump(client)
}

// Register global cho trang danh sách
func (h *Hub) RegisterGlobal(conn *websocket.Conn) {
	h.Mutex.Lock()
	defer h.Mutex.Unlock()

	client := &Client{
		Conn: conn,
		Send: make(chan []byte, 256),
	}

	h.GlobalClients[conn] = client

	go writePump(client)
}

// Broadcast theo sourceID
func (h *Hub) Broadcast(sourceID string, messageType int, data []byte) {
	h.Mutex.RLock()
	defer h.Mutex.RUnlock()

	if clients, ok := h.Clients[sourceID]; ok {
		for _, client := range clients {
			select {
			case client.Send <- data:
			default:
			}
		}
	}
}

// Broadcast toàn bộ global clients
func (h *Hub) BroadcastGlobal(messageType int, data []byte) {
	h.Mutex.RLock()
	defer h.Mutex.RUnlock()

	for _, client := range h.GlobalClients {
		select {
		case client.Send <- data:
		default:
		}
	}
}

// SendSourceStatus gửi trạng thái xử lý nguồn tài liệu
func SendSourceStatus(sourceID, status string, progress float64, errorMsg string) {
	update := SourceStatusUpdate{
		SourceID: sourceID,
		Status:   status,
		Progress: progress,
		Error:    errorMsg,
	}
	data, err := json.Marshal(update)
	if err != nil {
		log.Println("JSON marshal error:", err)
		return
	}
	H.Broadcast(sourceID, websocket.TextMessage, data)
}

// SendGenerationStatus gửi tiến độ sinh quiz/flashcard cho các client
// đang theo dõi nguồn tài liệu tương ứng
func SendGenerationStatus(sourceID string, update GenerationStatusUpdate) {
	data, err := json.Marshal(update)
	if err != nil {
		log.Println("JSON marshal error:", err)
		return
	}
	H.Broadcast(sourceID, websocket.TextMessage, data)
}

// BroadcastSourceListChanged gửi signal cập nhật danh sách nguồn tài liệu
func BroadcastSourceListChanged() {
	data := []byte(`{"type": "source_list_changed"}`)
	H.BroadcastGlobal(websocket.TextMessage, data)
}

// GetStats trả số liệu kết nối hiện tại (cho health check)
func (h *Hub) GetStats() map[string]interface{} {
	h.Mutex.RLock()
	defer h.Mutex.RUnlock()

	perSource := 0
	for _, clients := range h.Clients {
		perSource += len(clients)
	}
	return map[string]interface{}{
		"sources":        len(h.Clients),
		"source_clients": perSource,
		"global_clients": len(h.GlobalClients),
	}
}

// Unregister client theo sourceID
func (h *Hub) Unregister(sourceID string, conn *websocket.Conn) {
	h.Mutex.Lock()
	defer h.Mutex.Unlock()

	if clients, ok := h.Clients[sourceID]; ok {
		if client, ok := clients[conn]; ok {
			close(client.Send)
			delete(clients, conn)
		}
		if len(clients) == 0 {
			delete(h.Clients, sourceID)
		}
	}
}

// Unregister global client
func (h *Hub) UnregisterGlobal(conn *websocket.Conn) {
	h.Mutex.Lock()
	defer h.Mutex.Unlock()

	if client, ok := h.GlobalClients[conn]; ok {
		close(client.Send)
		delete(h.GlobalClients, conn)
	}
}

func writePump(client *Client) {
	defer func() {
		client.Conn.WriteMessage(websocket.CloseMessage, []byte{})
		client.Conn.Close()
	}()
	for msg := range client.Send {
		if err := client.Conn.WriteMessage(websocket.TextMessage, msg); err != nil {
			break
		}
	}
}
