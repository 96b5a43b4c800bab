package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"

	"pasartani/internal/adapter/rest"
	"pasartani/internal/domain/entity"
	"pasartani/internal/infrastructure/storage"
	ws "pasartani/internal/infrastructure/websocket"
	"pasartani/internal/usecase"
	"pasartani/pkg/config"
	"pasartani/pkg/logger"
)

func main() {
	login := flag.Bool("login", false, "authenticate and store the session, then exit")
	email := flag.String("email", "", "email for -login")
	password := flag.String("password", "", "password for -login")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	creds, err := storage.NewSQLiteCredentialStore(cfg.CredentialsPath)
	if err != nil {
		log.Fatalf("Failed to open credential store: %v", err)
	}
	defer creds.Close()

	ctx := context.Background()

	if *login {
		if *email == "" || *password == "" {
			log.Fatalf("-login requires -email and -password")
		}
		api := rest.NewClient(cfg.APIBaseURL, cfg.HTTPTimeout, creds)
		result, err := api.Login(ctx, rest.LoginInput{Email: *email, Password: *password})
		if err != nil {
			log.Fatalf("Login failed: %v", err)
		}
		if err := creds.Save(result.Token, result.UserID); err != nil {
			log.Fatalf("Failed to store session: %v", err)
		}
		logger.Info("Logged in as %s", result.UserID)
		return
	}

	session, err := usecase.NewSession(cfg, creds)
	if err != nil {
		log.Fatalf("No stored session (run with -login first): %v", err)
	}

	session.OnConnectionState(func(s ws.State) {
		logger.Info("Connection state: %s", s)
	})
	session.Notifications().SubscribeChanges(func() {
		logger.Info("Notifications: total=%d, unread=%d",
			session.Notifications().Count(), session.Notifications().UnreadCount())
	})
	session.Chats().SubscribeChanges(func(key entity.ConversationKey) {
		logger.Info("Conversation updated: %s (%d messages)", key, len(session.Chats().Messages(key)))
	})

	session.Start(ctx)
	logger.Info("Sync core started for user %s", session.UserID())

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	session.Stop()
	logger.Info("Sync core stopped")
}
