package main

import (
	"log"
	"os"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"pasartani/pkg/logger"
)

// Local stand-in for the marketplace backend: the REST boundary plus the
// push transport, enough to run and exercise the sync client end to end.
func main() {
	port := os.Getenv("DEV_SERVER_PORT")
	if port == "" {
		port = "8080"
	}
	secret := os.Getenv("JWT_SECRET")
	if secret == "" {
		secret = "dev-only-secret"
	}

	s := &server{
		backend:   newBackend(),
		hub:       newHub(),
		jwtSecret: []byte(secret),
	}

	e := echo.New()
	e.HideBanner = true
	e.Use(middleware.Recover())

	e.POST("/auth/login", s.handleLogin)
	e.GET("/ws", s.handleWebSocket)

	api := e.Group("", s.authenticate)
	api.GET("/notifications", s.handleListNotifications)
	api.POST("/notifications/:id/respond", s.handleRespond)
	api.POST("/requests", s.handleCreateRequest)
	api.GET("/chats/:partnerId/messages", s.handleChatHistory)
	api.POST("/chats/send", s.handleSendChat)
	api.GET("/users/:id", s.handleGetUser)
	api.POST("/products", s.handleCreateProduct)
	api.PUT("/products/:id", s.handleUpdateProduct)

	logger.Info("Dev server listening on :%s", port)
	if err := e.Start(":" + port); err != nil {
		log.Fatalf("Server stopped: %v", err)
	}
}
