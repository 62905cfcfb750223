package handlers

import (
	"log"
	"sync"
	"time"

	"metafactory-twin/models"
)

// Conn - 뷰어 연결 (*websocket.Conn)
type Conn interface {
	WriteJSON(v interface{}) error
	Close() error
}

// Client - 연결된 뷰어
type Client struct {
	Conn        Conn
	ConnectedAt time.Time

	writeMu sync.Mutex // 브로드캐스트와 개별 응답의 동시 쓰기 방지
}

// Send - 뷰어에게 JSON 전송
func (c *Client) Send(msg models.WebSocketMessage) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	return c.Conn.WriteJSON(msg)
}

// ClientManager - 뷰어 등록/해제 + 브로드캐스트
type ClientManager struct {
	clients    map[Conn]*Client
	broadcast  chan models.WebSocketMessage
	register   chan *Client
	unregister chan Conn
	quit       chan struct{}
	mutex      sync.RWMutex
}

// Manager - 전역 클라이언트 관리자
var Manager = NewClientManager()

// NewClientManager - 관리자 생성
func NewClientManager() *ClientManager {
	return &ClientManager{
		clients:    make(map[Conn]*Client),
		broadcast:  make(chan models.WebSocketMessage, 256),
		register:   make(chan *Client),
		unregister: make(chan Conn),
		quit:       make(chan struct{}),
	}
}

// Start - 클라이언트 관리 루프 (Stop 까지 블록)
func (manager *ClientManager) Start() {
	log.Println("✅ ClientManager 시작")
	for {
		select {
		case client := <-manager.register:
			manager.mutex.Lock()
			manager.clients[client.Conn] = client
			manager.mutex.Unlock()
			log.Printf("👀 뷰어 등록 (total=%d)", manager.GetClientCount())

		case conn := <-manager.unregister:
			manager.remove(conn)

		case message := <-manager.broadcast:
			manager.handleBroadcast(message)

		case <-manager.quit:
			return
		}
	}
}

// Stop - 관리 루프 종료
func (manager *ClientManager) Stop() {
	close(manager.quit)
}

func (manager *ClientManager) remove(conn Conn) {
	manager.mutex.Lock()
	_, ok := manager.clients[conn]
	delete(manager.clients, conn)
	manager.mutex.Unlock()

	if ok {
		_ = conn.Close()
		log.Printf("👋 뷰어 해제 (total=%d)", manager.GetClientCount())
	}
}

// handleBroadcast - 전송 실패한 연결은 락을 놓은 뒤 정리
func (manager *ClientManager) handleBroadcast(message models.WebSocketMessage) {
	manager.mutex.RLock()
	targets := make([]*Client, 0, len(manager.clients))
	for _, client := range manager.clients {
		targets = append(targets, client)
	}
	manager.mutex.RUnlock()

	var failed []Conn
	for _, client := range targets {
		if err := client.Send(message); err != nil {
			log.Printf("⚠️ 전송 실패 (%s): %v", message.Type, err)
			failed = append(failed, client.Conn)
		}
	}
	for _, conn := range failed {
		manager.remove(conn)
	}
}

// BroadcastMessage - 모든 뷰어에게 전송 (큐가 가득 차면 버림)
func (manager *ClientManager) BroadcastMessage(msg models.WebSocketMessage) {
	if msg.Timestamp == 0 {
		msg.Timestamp = time.Now().UnixMilli()
	}
	select {
	case manager.broadcast <- msg:
	default:
		log.Printf("⚠️ broadcast 채널 가득 참 (%s 버림)", msg.Type)
	}
}

// Broadcast - 타입 + 데이터로 브로드캐스트 (Dashboard 알림용)
func (manager *ClientManager) Broadcast(msgType string, data interface{}) {
	manager.BroadcastMessage(models.WebSocketMessage{Type: msgType, Data: data})
}

// GetClientCount - 연결된 뷰어 수
func (manager *ClientManager) GetClientCount() int {
	manager.mutex.RLock()
	defer manager.mutex.RUnlock()
	return len(manager.clients)
}
