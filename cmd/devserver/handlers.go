package main

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v4"
	gorillaws "github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"

	"pasartani/internal/domain/entity"
	ws "pasartani/internal/infrastructure/websocket"
	"pasartani/pkg/errors"
	"pasartani/pkg/response"
)

type server struct {
	backend   *backend
	hub       *hub
	jwtSecret []byte
}

var upgrader = gorillaws.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true // dev server only
	},
}

func (s *server) handleLogin(c echo.Context) error {
	var req struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := c.Bind(&req); err != nil {
		return response.Error(c, errors.BadRequest("invalid request body", err))
	}

	user, err := s.backend.authenticate(req.Email, req.Password)
	if err != nil {
		return response.Error(c, err)
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"uid": user.ID,
		"exp": time.Now().Add(24 * time.Hour).Unix(),
	})
	signed, err := token.SignedString(s.jwtSecret)
	if err != nil {
		return response.Error(c, errors.Internal("failed to sign token", err))
	}

	return response.Success(c, map[string]string{"token": signed, "userId": user.ID})
}

func (s *server) authenticate(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		authHeader := c.Request().Header.Get("Authorization")
		parts := strings.Split(authHeader, " ")
		if len(parts) != 2 || parts[0] != "Bearer" {
			return response.Error(c, errors.Unauthorized("Authorization header is required", nil))
		}

		token, err := jwt.Parse(parts[1], func(t *jwt.Token) (interface{}, error) {
			if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, errors.Unauthorized("unexpected signing method", nil)
			}
			return s.jwtSecret, nil
		})
		if err != nil || !token.Valid {
			return response.Error(c, errors.Unauthorized("Invalid or expired token", err))
		}

		claims, ok := token.Claims.(jwt.MapClaims)
		if !ok {
			return response.Error(c, errors.Unauthorized("Invalid token claims", nil))
		}
		uid, _ := claims["uid"].(string)
		if uid == "" {
			return response.Error(c, errors.Unauthorized("Invalid token claims", nil))
		}

		c.Set("uid", uid)
		return next(c)
	}
}

func (s *server) handleListNotifications(c echo.Context) error {
	uid := c.Get("uid").(string)
	role := entity.NotificationRole(c.QueryParam("role"))
	return response.Success(c, s.backend.listNotifications(uid, role))
}

func (s *server) handleRespond(c echo.Context) error {
	uid := c.Get("uid").(string)
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		return response.Error(c, errors.BadRequest("invalid notification id", err))
	}

	var req struct {
		Status entity.RequestStatus `json:"status"`
	}
	if err := c.Bind(&req); err != nil {
		return response.Error(c, errors.BadRequest("invalid request body", err))
	}
	if req.Status != entity.RequestAccepted && req.Status != entity.RequestRejected {
		return response.Error(c, errors.BadRequest("status must be ACCEPTED or REJECTED", nil))
	}

	reply, buyerID, err := s.backend.respond(uid, id, req.Status)
	if err != nil {
		return response.Error(c, err)
	}

	s.hub.publish(ws.BuyerNotificationsTopic(buyerID), reply)
	return response.Success(c, map[string]string{"status": string(req.Status)})
}

func (s *server) handleCreateRequest(c echo.Context) error {
	uid := c.Get("uid").(string)

	var req struct {
		ProductID int64   `json:"productId"`
		Quantity  int     `json:"quantity"`
		Price     float64 `json:"price"`
	}
	if err := c.Bind(&req); err != nil {
		return response.Error(c, errors.BadRequest("invalid request body", err))
	}

	n, sellerID, err := s.backend.createRequest(uid, req.ProductID, req.Quantity, req.Price)
	if err != nil {
		return response.Error(c, err)
	}

	s.hub.publish(ws.SellerNotificationsTopic(sellerID), n)
	return response.Created(c, n)
}

func (s *server) handleChatHistory(c echo.Context) error {
	uid := c.Get("uid").(string)
	partnerID := c.Param("partnerId")
	return response.Success(c, s.backend.history(uid, partnerID))
}

func (s *server) handleSendChat(c echo.Context) error {
	uid := c.Get("uid").(string)

	var req struct {
		ReceiverID string `json:"receiverId"`
		ProductID  int64  `json:"productId"`
		Content    string `json:"content"`
	}
	if err := c.Bind(&req); err != nil {
		return response.Error(c, errors.BadRequest("invalid request body", err))
	}
	if strings.TrimSpace(req.Content) == "" {
		return response.Error(c, errors.BadRequest("content is required", nil))
	}

	msg, err := s.backend.addMessage(uid, req.ReceiverID, req.ProductID, req.Content)
	if err != nil {
		return response.Error(c, err)
	}

	// Both inboxes get the frame; the sender side deduplicates by id.
	s.hub.publish(ws.ChatTopic(msg.ReceiverID), msg)
	s.hub.publish(ws.ChatTopic(msg.SenderID), msg)
	return response.Created(c, map[string]int64{"id": msg.ID})
}

func (s *server) handleGetUser(c echo.Context) error {
	user, err := s.backend.user(c.Param("id"))
	if err != nil {
		return response.Error(c, err)
	}
	return response.Success(c, user)
}

func (s *server) handleCreateProduct(c echo.Context) error {
	uid := c.Get("uid").(string)

	var p entity.Product
	if err := c.Bind(&p); err != nil {
		return response.Error(c, errors.BadRequest("invalid request body", err))
	}
	return response.Created(c, s.backend.createProduct(uid, p))
}

func (s *server) handleUpdateProduct(c echo.Context) error {
	uid := c.Get("uid").(string)
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		return response.Error(c, errors.BadRequest("invalid product id", err))
	}

	var p entity.Product
	if err := c.Bind(&p); err != nil {
		return response.Error(c, errors.BadRequest("invalid request body", err))
	}

	updated, err := s.backend.updateProduct(id, uid, p)
	if err != nil {
		return response.Error(c, err)
	}
	return response.Success(c, updated)
}

func (s *server) handleWebSocket(c echo.Context) error {
	conn, err := upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		return errors.Internal("Failed to upgrade connection", err)
	}

	client := &wsClient{
		conn:   conn,
		send:   make(chan []byte, 256),
		topics: make(map[string]struct{}),
	}
	s.hub.register(client)

	go client.readPump(s.hub)
	go client.writePump()

	return nil
}
