package handlers

import (
	"net/http"
	"sync"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"

	"github.com/yochit07/cyberknights/internal/service"
)

// ScanFeedHandler 扫描结果实时推送处理器
type ScanFeedHandler struct {
	logger      *logrus.Logger
	upgrader    websocket.Upgrader
	clients     map[string]*websocket.Conn
	clientMutex sync.RWMutex
	broadcast   chan service.ScanEvent
}

// NewScanFeedHandler 创建扫描推送处理器
func NewScanFeedHandler(logger *logrus.Logger) *ScanFeedHandler {
	return &ScanFeedHandler{
		logger: logger,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				return true // 允许所有来源（生产环境需要限制）
			},
		},
		clients:   make(map[string]*websocket.Conn),
		broadcast: make(chan service.ScanEvent, 100),
	}
}

// Start 启动广播服务
func (h *ScanFeedHandler) Start() {
	go h.runBroadcaster()
}

// BroadcastScan 将扫描完成事件推送给所有已连接客户端
func (h *ScanFeedHandler) BroadcastScan(event service.ScanEvent) {
	select {
	case h.broadcast <- event:
	default:
		h.logger.Warn("Scan feed broadcast channel full, dropping event")
	}
}

// runBroadcaster 运行广播器
func (h *ScanFeedHandler) runBroadcaster() {
	for {
		event := <-h.broadcast
		var stale []string

		h.clientMutex.RLock()
		for id, client := range h.clients {
			if err := client.WriteJSON(event); err != nil {
				h.logger.WithError(err).Warn("Failed to write to WebSocket client")
				client.Close()
				stale = append(stale, id)
			}
		}
		h.clientMutex.RUnlock()

		if len(stale) > 0 {
			h.clientMutex.Lock()
			for _, id := range stale {
				delete(h.clients, id)
			}
			h.clientMutex.Unlock()
		}
	}
}

// HandleWebSocket 处理WebSocket连接
// GET /ws/scans
func (h *ScanFeedHandler) HandleWebSocket(c *gin.Context) {
	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.logger.WithError(err).Error("Failed to upgrade to WebSocket")
		return
	}
	defer conn.Close()

	clientID := uuid.New().String()

	// 注册客户端
	h.clientMutex.Lock()
	h.clients[clientID] = conn
	h.clientMutex.Unlock()

	h.logger.WithField("client_id", clientID).Info("Scan feed client connected")

	// 保持连接
	for {
		var msg map[string]interface{}
		if err := conn.ReadJSON(&msg); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				h.logger.WithError(err).Warn("WebSocket error")
			}
			break
		}
		// 客户端消息暂不处理
	}

	// 清理断开的连接
	h.clientMutex.Lock()
	delete(h.clients, clientID)
	h.clientMutex.Unlock()

	h.logger.WithField("client_id", clientID).Info("Scan feed client disconnected")
}
