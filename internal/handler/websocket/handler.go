// Package websocket 处理 WebSocket 握手：先认证，后升级。
package websocket

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"

	"github.com/Bondebut/tripchat/internal/hub"
	"github.com/Bondebut/tripchat/internal/service"
)

// Handler 负责把 HTTP 请求升级为已认证的 WebSocket 连接。
type Handler struct {
	upgrader    websocket.Upgrader
	hub         *hub.Hub
	authService *service.AuthService
}

// NewHandler 创建 WebSocket 握手处理器。
func NewHandler(h *hub.Hub, authService *service.AuthService) *Handler {
	if h == nil || authService == nil {
		panic("Hub and AuthService cannot be nil for websocket Handler")
	}
	return &Handler{
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			// TODO: 上线前按部署域名收紧 Origin 校验
			CheckOrigin: func(r *http.Request) bool { return true },
		},
		hub:         h,
		authService: authService,
	}
}

// Serve 执行握手认证并升级连接。
// 令牌无效时在升级前以 401 拒绝，不建立 WebSocket 连接。
func (h *Handler) Serve(c *gin.Context) {
	token := extractToken(c)
	if token == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	identity, err := h.authService.VerifyToken(token)
	if err != nil {
		logrus.WithError(err).Warn("WebSocket handshake rejected: invalid token")
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		// Upgrade 失败时 gorilla 已经写过响应
		logrus.WithError(err).Error("WebSocket upgrade failed")
		return
	}

	client := hub.NewClient(h.hub, conn, identity)
	h.hub.Register(client)
	client.Run()
}

// extractToken 依次尝试 token 查询参数和 Authorization Bearer 头。
func extractToken(c *gin.Context) string {
	if token := c.Query("token"); token != "" {
		return token
	}
	header := c.GetHeader("Authorization")
	if len(header) > 7 && strings.EqualFold(header[:7], "Bearer ") {
		return header[7:]
	}
	return ""
}
