package usecase

import (
	"context"
	"sort"
	"sync"

	"pasartani/internal/adapter/rest"
	"pasartani/internal/domain/entity"
	"pasartani/internal/domain/repository"
	ws "pasartani/internal/infrastructure/websocket"
	"pasartani/pkg/errors"
	"pasartani/pkg/logger"
)

type NotificationUseCase struct {
	store    repository.NotificationStore
	api      *rest.Client
	registry *ws.Registry
	userID   string

	mu   sync.Mutex
	subs []*ws.Subscription
}

func NewNotificationUseCase(
	store repository.NotificationStore,
	api *rest.Client,
	registry *ws.Registry,
	userID string,
) *NotificationUseCase {
	return &NotificationUseCase{
		store:    store,
		api:      api,
		registry: registry,
		userID:   userID,
	}
}

// Refresh bulk-fetches both role feeds and replaces the store, newest
// first so pushed head-inserts keep the same order.
func (uc *NotificationUseCase) Refresh(ctx context.Context) error {
	seller, err := uc.api.FetchNotifications(ctx, entity.RoleSeller)
	if err != nil {
		return err
	}
	buyer, err := uc.api.FetchNotifications(ctx, entity.RoleBuyer)
	if err != nil {
		return err
	}

	combined := append(seller, buyer...)
	sort.SliceStable(combined, func(i, j int) bool {
		return combined[i].CreatedAt.After(combined[j].CreatedAt)
	})
	uc.store.ReplaceAll(combined)

	logger.Info("Fetched notifications: count=%d", len(combined))
	return nil
}

// SubscribeTopics registers both role topics on the push session. The
// registry replays them after every reconnect.
func (uc *NotificationUseCase) SubscribeTopics() {
	uc.mu.Lock()
	defer uc.mu.Unlock()

	if len(uc.subs) > 0 {
		return
	}
	uc.subs = append(uc.subs,
		uc.registry.Subscribe(ws.SellerNotificationsTopic(uc.userID), uc.handlePush),
		uc.registry.Subscribe(ws.BuyerNotificationsTopic(uc.userID), uc.handlePush),
	)
}

// Respond transmits the buyer/seller decision. The store is only mutated
// after the server accepted the command; a failure leaves it untouched so
// the user can retry explicitly.
func (uc *NotificationUseCase) Respond(ctx context.Context, id int64, status entity.RequestStatus) error {
	if err := uc.api.RespondToNotification(ctx, id, status); err != nil {
		logger.Error("Respond failed: id=%d, status=%s, error=%v", id, status, err)
		return err
	}

	if err := uc.store.MarkResponded(id, status); err != nil {
		if errors.Is(err, "CONFLICT") {
			// Already decided, e.g. a server push won the race. Benign.
			logger.Warn("Notification %d already responded", id)
			return nil
		}
		return err
	}
	return nil
}

func (uc *NotificationUseCase) MarkRead(id int64) error {
	return uc.store.MarkRead(id)
}

func (uc *NotificationUseCase) ClearNotification(id int64) error {
	return uc.store.Clear(id)
}

func (uc *NotificationUseCase) Teardown() {
	uc.mu.Lock()
	subs := uc.subs
	uc.subs = nil
	uc.mu.Unlock()

	for _, sub := range subs {
		uc.registry.Unsubscribe(sub)
	}
}

func (uc *NotificationUseCase) handlePush(f ws.Frame) {
	n, err := ws.DecodeNotification(f.Body)
	if err != nil {
		logger.LogDroppedFrame(f.Topic, err)
		return
	}

	if !uc.store.Upsert(n) {
		logger.Debug("Duplicate notification push: id=%d", n.ID)
	}
}
