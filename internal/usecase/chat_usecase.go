package usecase

import (
	"context"
	"strings"
	"sync"

	"pasartani/internal/adapter/rest"
	"pasartani/internal/domain/entity"
	"pasartani/internal/domain/repository"
	ws "pasartani/internal/infrastructure/websocket"
	"pasartani/pkg/errors"
	"pasartani/pkg/logger"
)

type ChatUseCase struct {
	store    repository.ChatStore
	api      *rest.Client
	registry *ws.Registry
	userID   string

	mu  sync.Mutex
	sub *ws.Subscription
}

func NewChatUseCase(
	store repository.ChatStore,
	api *rest.Client,
	registry *ws.Registry,
	userID string,
) *ChatUseCase {
	return &ChatUseCase{
		store:    store,
		api:      api,
		registry: registry,
		userID:   userID,
	}
}

// OpenConversation fetches the history with one partner and seeds the
// conversation scoped to the given product.
func (uc *ChatUseCase) OpenConversation(ctx context.Context, partnerID string, productID int64) (entity.ConversationKey, error) {
	key := entity.NewConversationKey(uc.userID, partnerID, productID)

	history, err := uc.api.FetchChatHistory(ctx, partnerID)
	if err != nil {
		return key, err
	}

	// The history endpoint is per-partner; the conversation is per-product.
	scoped := make([]entity.ChatMessage, 0, len(history))
	for _, m := range history {
		if m.ProductID == productID {
			scoped = append(scoped, m)
		}
	}
	uc.store.LoadHistory(key, scoped)
	return key, nil
}

// Send runs the optimistic three-phase protocol: local insert, REST
// transmit, then confirm or full rollback. The error is propagated so the
// UI can offer an explicit retry; nothing is retried here.
func (uc *ChatUseCase) Send(ctx context.Context, receiverID string, productID int64, content string) error {
	content = strings.TrimSpace(content)
	if content == "" {
		return errors.BadRequest("message content is empty", nil)
	}
	if receiverID == uc.userID {
		return errors.BadRequest("cannot chat with yourself", nil)
	}

	handle := uc.store.SendOptimistic(uc.userID, receiverID, productID, content)

	serverID, err := uc.api.SendChatMessage(ctx, rest.SendChatInput{
		SenderID:   uc.userID,
		ReceiverID: receiverID,
		ProductID:  productID,
		Content:    content,
	})
	if err != nil {
		if rbErr := uc.store.RollbackSend(handle); rbErr != nil {
			logger.Debug("Rollback after teardown: %v", rbErr)
		}
		logger.Error("Send failed: receiver=%s, product=%d, error=%v", receiverID, productID, err)
		return err
	}

	if err := uc.store.ConfirmSend(handle, serverID); err != nil {
		// The conversation may have been torn down while the call was in
		// flight; a late confirmation is safely ignorable.
		logger.Debug("Confirm after teardown: %v", err)
	}
	return nil
}

// SubscribeInbox registers the per-user chat topic. Inbound messages are
// routed by canonical conversation key; echoes not addressed to this user
// are discarded by the store.
func (uc *ChatUseCase) SubscribeInbox() {
	uc.mu.Lock()
	defer uc.mu.Unlock()

	if uc.sub != nil {
		return
	}
	uc.sub = uc.registry.Subscribe(ws.ChatTopic(uc.userID), uc.handleInbound)
}

func (uc *ChatUseCase) Teardown() {
	uc.mu.Lock()
	sub := uc.sub
	uc.sub = nil
	uc.mu.Unlock()

	if sub != nil {
		uc.registry.Unsubscribe(sub)
	}
}

func (uc *ChatUseCase) handleInbound(f ws.Frame) {
	msg, err := ws.DecodeChatMessage(f.Body)
	if err != nil {
		logger.LogDroppedFrame(f.Topic, err)
		return
	}

	if !uc.store.Receive(msg) {
		logger.Debug("Ignored inbound message: id=%d, sender=%s", msg.ID, msg.SenderID)
	}
}
