package usecase

import (
	"context"

	adapterrepo "pasartani/internal/adapter/repository"
	"pasartani/internal/adapter/rest"
	"pasartani/internal/domain/repository"
	ws "pasartani/internal/infrastructure/websocket"
	"pasartani/pkg/config"
	"pasartani/pkg/logger"
)

// Session wires the whole sync core for one authenticated user: REST
// client, push connection, topic subscriptions and both stores.
type Session struct {
	userID string

	api      *rest.Client
	manager  *ws.Manager
	registry *ws.Registry

	notifications repository.NotificationStore
	chats         repository.ChatStore

	notification *NotificationUseCase
	chat         *ChatUseCase
}

// NewSession reads the stored credentials and assembles the core. It fails
// only when no session is stored; nothing is connected yet.
func NewSession(cfg *config.Config, creds repository.CredentialStore) (*Session, error) {
	_, userID, err := creds.Session()
	if err != nil {
		return nil, err
	}

	api := rest.NewClient(cfg.APIBaseURL, cfg.HTTPTimeout, creds)
	manager := ws.NewManager(ws.Options{
		URL:            cfg.WSURL,
		MaxRetries:     cfg.WSMaxRetries,
		BackoffInitial: cfg.WSBackoffInitial,
		BackoffMax:     cfg.WSBackoffMax,
	})
	registry := ws.NewRegistry(manager)

	notifications := adapterrepo.NewMemoryNotificationStore()
	chats := adapterrepo.NewMemoryChatStore(userID)

	return &Session{
		userID:        userID,
		api:           api,
		manager:       manager,
		registry:      registry,
		notifications: notifications,
		chats:         chats,
		notification:  NewNotificationUseCase(notifications, api, registry, userID),
		chat:          NewChatUseCase(chats, api, registry, userID),
	}, nil
}

// Start bulk-fetches notifications, connects the push session and
// registers all topics once the handshake completes.
func (s *Session) Start(ctx context.Context) {
	if err := s.notification.Refresh(ctx); err != nil {
		// The push stream still has value without the initial list.
		logger.Warn("Initial notification fetch failed: %v", err)
	}

	s.manager.Connect(func() {
		s.notification.SubscribeTopics()
		s.chat.SubscribeInbox()
	})
}

func (s *Session) Stop() {
	s.notification.Teardown()
	s.chat.Teardown()
	s.manager.Disconnect()
}

func (s *Session) UserID() string { return s.userID }

func (s *Session) Notifications() repository.NotificationStore { return s.notifications }

func (s *Session) Chats() repository.ChatStore { return s.chats }

func (s *Session) Notification() *NotificationUseCase { return s.notification }

func (s *Session) Chat() *ChatUseCase { return s.chat }

func (s *Session) ConnectionState() ws.State { return s.manager.State() }

func (s *Session) OnConnectionState(fn func(ws.State)) { s.manager.OnStateChange(fn) }
