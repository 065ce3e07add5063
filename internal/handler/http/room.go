package http

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/Bondebut/tripchat/internal/middleware"
	"github.com/Bondebut/tripchat/internal/service"
)

// RoomHandler 封装房间相关的 HTTP 处理逻辑。
type RoomHandler struct {
	roomService *service.RoomService
}

// NewRoomHandler 创建 RoomHandler 实例。
func NewRoomHandler(roomService *service.RoomService) *RoomHandler {
	if roomService == nil {
		panic("RoomService cannot be nil for RoomHandler")
	}
	return &RoomHandler{roomService: roomService}
}

// CreateRoomRequest 定义建房请求的结构体。
type CreateRoomRequest struct {
	Name string `json:"name" binding:"required,min=3"`
	Type string `json:"type" binding:"omitempty,oneof=chat video audio"`
}

// CreateRoom 处理创建房间请求，创建者自动成为主持人。
func (h *RoomHandler) CreateRoom(c *gin.Context) {
	identity, ok := middleware.IdentityFrom(c)
	if !ok {
		ErrorResponse(c, http.StatusUnauthorized, "Unauthorized")
		return
	}

	var req CreateRoomRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		logrus.WithError(err).Warn("Handler.CreateRoom: invalid input format")
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid input", "details": err.Error()})
		return
	}

	room, err := h.roomService.Create(c.Request.Context(), identity.UserID, req.Name, req.Type)
	if err != nil {
		HandleServiceError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"message": "Room created successfully",
		"room":    room,
	})
}

// JoinRoomRequest 定义加入房间请求的结构体。
type JoinRoomRequest struct {
	RoomID string `json:"roomId" binding:"required"`
}

// JoinRoom 处理加入房间请求 (业务成员关系，实时成员关系由网关维护)。
func (h *RoomHandler) JoinRoom(c *gin.Context) {
	identity, ok := middleware.IdentityFrom(c)
	if !ok {
		ErrorResponse(c, http.StatusUnauthorized, "Unauthorized")
		return
	}

	var req JoinRoomRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Room ID is required to join a room"})
		return
	}

	participant, err := h.roomService.Join(c.Request.Context(), identity.UserID, req.RoomID)
	if err != nil {
		HandleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message":     "Joined room successfully",
		"participant": participant,
	})
}

// GetRoom 返回房间元数据。
func (h *RoomHandler) GetRoom(c *gin.Context) {
	roomID := c.Param("id")
	if roomID == "" {
		ErrorResponse(c, http.StatusBadRequest, "Room ID is required")
		return
	}

	room, err := h.roomService.FindRoomByID(c.Request.Context(), roomID)
	if err != nil {
		HandleServiceError(c, err)
		return
	}

	SuccessResponse(c, http.StatusOK, gin.H{"room": room})
}

// ListMyRooms 返回当前用户参与的全部房间。
func (h *RoomHandler) ListMyRooms(c *gin.Context) {
	identity, ok := middleware.IdentityFrom(c)
	if !ok {
		ErrorResponse(c, http.StatusUnauthorized, "Unauthorized")
		return
	}

	listings, err := h.roomService.ListForUser(c.Request.Context(), identity.UserID)
	if err != nil {
		HandleServiceError(c, err)
		return
	}

	SuccessResponse(c, http.StatusOK, gin.H{"rooms": listings})
}
