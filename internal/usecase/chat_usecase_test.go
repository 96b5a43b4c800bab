package usecase

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	adapterrepo "pasartani/internal/adapter/repository"
	"pasartani/internal/adapter/rest"
	"pasartani/internal/domain/entity"
	"pasartani/pkg/errors"
)

type fakeCreds struct{}

func (f *fakeCreds) Session() (string, string, error) { return "tok-1", "u-self", nil }
func (f *fakeCreds) Save(token, userID string) error  { return nil }
func (f *fakeCreds) Close() error                     { return nil }

func newChatFixture(t *testing.T, handler http.HandlerFunc) (*ChatUseCase, func() []entity.ChatMessage) {
	t.Helper()

	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	store := adapterrepo.NewMemoryChatStore("u-self")
	api := rest.NewClient(srv.URL, 2*time.Second, &fakeCreds{})
	uc := NewChatUseCase(store, api, nil, "u-self")

	key := entity.NewConversationKey("u-self", "u-partner", 3)
	return uc, func() []entity.ChatMessage { return store.Messages(key) }
}

func TestSendConfirmsOptimisticEntry(t *testing.T) {
	uc, messages := newChatFixture(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusCreated)
		json.NewEncoder(w).Encode(map[string]interface{}{
			"response": map[string]int64{"id": 777},
		})
	})

	require.NoError(t, uc.Send(context.Background(), "u-partner", 3, "hi"))

	seq := messages()
	require.Len(t, seq, 1)
	assert.Equal(t, int64(777), seq[0].ID)
	assert.Equal(t, entity.DeliverySent, seq[0].Status)
}

func TestSendFailureRollsBackAndPropagates(t *testing.T) {
	uc, messages := newChatFixture(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		json.NewEncoder(w).Encode(map[string]interface{}{"error": true, "message": "boom"})
	})

	err := uc.Send(context.Background(), "u-partner", 3, "hi")
	require.Error(t, err)
	assert.True(t, errors.Is(err, "COMMAND_FAILED"))

	// The failed send must not linger as a phantom message.
	assert.Empty(t, messages())
}

func TestSendRejectsEmptyContent(t *testing.T) {
	uc, messages := newChatFixture(t, func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("no request expected")
	})

	err := uc.Send(context.Background(), "u-partner", 3, "   ")
	assert.True(t, errors.Is(err, "BAD_REQUEST"))
	assert.Empty(t, messages())
}

func TestSendRejectsSelfChat(t *testing.T) {
	uc, _ := newChatFixture(t, func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("no request expected")
	})

	err := uc.Send(context.Background(), "u-self", 3, "hi")
	assert.True(t, errors.Is(err, "BAD_REQUEST"))
}

func TestOpenConversationScopesHistoryToProduct(t *testing.T) {
	uc, messages := newChatFixture(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/chats/u-partner/messages", r.URL.Path)
		json.NewEncoder(w).Encode(map[string]interface{}{
			"response": []map[string]interface{}{
				{"id": 2, "senderId": "u-partner", "receiverId": "u-self", "productId": 3,
					"content": "later", "timestamp": "2025-03-01T10:05:00Z"},
				{"id": 1, "senderId": "u-self", "receiverId": "u-partner", "productId": 3,
					"content": "earlier", "timestamp": "2025-03-01T10:00:00Z"},
				{"id": 9, "senderId": "u-partner", "receiverId": "u-self", "productId": 8,
					"content": "other product", "timestamp": "2025-03-01T10:02:00Z"},
			},
		})
	})

	key, err := uc.OpenConversation(context.Background(), "u-partner", 3)
	require.NoError(t, err)
	assert.Equal(t, entity.NewConversationKey("u-self", "u-partner", 3), key)

	seq := messages()
	require.Len(t, seq, 2)
	assert.Equal(t, "earlier", seq[0].Content)
	assert.Equal(t, "later", seq[1].Content)
}
