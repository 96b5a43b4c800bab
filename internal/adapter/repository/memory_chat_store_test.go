package repository

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pasartani/internal/domain/entity"
	"pasartani/internal/domain/repository"
	"pasartani/pkg/errors"
)

const (
	selfID    = "u-self"
	partnerID = "u-partner"
)

func historyMessage(id int64, sender, receiver string, at time.Time) entity.ChatMessage {
	return entity.ChatMessage{
		ID:         id,
		SenderID:   sender,
		ReceiverID: receiver,
		ProductID:  3,
		Content:    "hi",
		Timestamp:  at,
	}
}

func timestampsNonDecreasing(t *testing.T, seq []entity.ChatMessage) {
	t.Helper()
	for i := 1; i < len(seq); i++ {
		assert.False(t, seq[i].Timestamp.Before(seq[i-1].Timestamp),
			"timestamps out of order at %d", i)
	}
}

func TestLoadHistorySortsAscending(t *testing.T) {
	store := NewMemoryChatStore(selfID)
	key := entity.NewConversationKey(selfID, partnerID, 3)
	base := time.Now().Add(-time.Hour)

	store.LoadHistory(key, []entity.ChatMessage{
		historyMessage(2, partnerID, selfID, base.Add(2*time.Minute)),
		historyMessage(1, selfID, partnerID, base),
		historyMessage(3, partnerID, selfID, base.Add(time.Minute)),
	})

	seq := store.Messages(key)
	require.Len(t, seq, 3)
	timestampsNonDecreasing(t, seq)
	assert.Equal(t, int64(1), seq[0].ID)
	assert.Equal(t, entity.DeliverySent, seq[0].Status)
}

func TestOptimisticSendConfirmAndDedup(t *testing.T) {
	store := NewMemoryChatStore(selfID)

	handle := store.SendOptimistic(selfID, partnerID, 3, "hi")

	seq := store.Messages(handle.Key)
	require.Len(t, seq, 1)
	assert.Equal(t, "hi", seq[0].Content)
	assert.Equal(t, entity.DeliveryPendingSend, seq[0].Status)

	require.NoError(t, store.ConfirmSend(handle, 501))

	seq = store.Messages(handle.Key)
	require.Len(t, seq, 1)
	assert.Equal(t, int64(501), seq[0].ID)
	assert.Equal(t, entity.DeliverySent, seq[0].Status)

	// The server echo of the same message must not append a duplicate.
	echo := seq[0]
	assert.False(t, store.Receive(echo))
	assert.Len(t, store.Messages(handle.Key), 1)
}

func TestRollbackErasesProvisionalEntry(t *testing.T) {
	store := NewMemoryChatStore(selfID)
	key := entity.NewConversationKey(selfID, partnerID, 3)
	store.LoadHistory(key, []entity.ChatMessage{
		historyMessage(1, partnerID, selfID, time.Now().Add(-time.Minute)),
	})
	before := store.Messages(key)

	handle := store.SendOptimistic(selfID, partnerID, 3, "oops")
	require.NoError(t, store.RollbackSend(handle))

	assert.Equal(t, before, store.Messages(key))
}

func TestRollbackUnknownHandle(t *testing.T) {
	store := NewMemoryChatStore(selfID)

	handle := repository.SendHandle{
		Key:           entity.NewConversationKey(selfID, partnerID, 3),
		ProvisionalID: 12345,
	}
	err := store.RollbackSend(handle)
	assert.True(t, errors.Is(err, "NOT_FOUND"))
}

func TestReceiveKeepsTimestampOrder(t *testing.T) {
	store := NewMemoryChatStore(selfID)
	key := entity.NewConversationKey(selfID, partnerID, 3)
	base := time.Now().Add(-time.Hour)

	store.LoadHistory(key, []entity.ChatMessage{
		historyMessage(1, selfID, partnerID, base),
		historyMessage(2, partnerID, selfID, base.Add(10*time.Minute)),
	})

	// Delivered late, timestamped between the two history entries.
	late := historyMessage(3, partnerID, selfID, base.Add(5*time.Minute))
	assert.True(t, store.Receive(late))

	seq := store.Messages(key)
	require.Len(t, seq, 3)
	timestampsNonDecreasing(t, seq)
	assert.Equal(t, int64(3), seq[1].ID)
}

func TestReceiveRoutesByCanonicalKey(t *testing.T) {
	store := NewMemoryChatStore(selfID)

	// The same conversation seen from the partner's side.
	msg := historyMessage(10, partnerID, selfID, time.Now())
	require.True(t, store.Receive(msg))

	key := entity.NewConversationKey(selfID, partnerID, 3)
	assert.Len(t, store.Messages(key), 1)
}

func TestReceiveDiscardsStrayEchoes(t *testing.T) {
	store := NewMemoryChatStore(selfID)

	stray := historyMessage(11, "u-other", "u-another", time.Now())
	assert.False(t, store.Receive(stray))
	assert.Empty(t, store.Messages(stray.Key()))
}

func TestSendOptimisticSortsAfterHistory(t *testing.T) {
	store := NewMemoryChatStore(selfID)
	key := entity.NewConversationKey(selfID, partnerID, 3)
	store.LoadHistory(key, []entity.ChatMessage{
		historyMessage(1, partnerID, selfID, time.Now().Add(-time.Hour)),
	})

	handle := store.SendOptimistic(selfID, partnerID, 3, "latest")

	seq := store.Messages(key)
	require.Len(t, seq, 2)
	timestampsNonDecreasing(t, seq)
	assert.Equal(t, handle.ProvisionalID, seq[1].ID)
}

func TestConfirmAfterEchoDropsProvisionalCopy(t *testing.T) {
	store := NewMemoryChatStore(selfID)

	handle := store.SendOptimistic(selfID, partnerID, 3, "hi")

	// The push echo with the server id lands before the REST response.
	echo := entity.ChatMessage{
		ID:         900,
		SenderID:   selfID,
		ReceiverID: partnerID,
		ProductID:  3,
		Content:    "hi",
		Timestamp:  time.Now(),
	}
	require.True(t, store.Receive(echo))
	require.NoError(t, store.ConfirmSend(handle, 900))

	seq := store.Messages(handle.Key)
	require.Len(t, seq, 1)
	assert.Equal(t, int64(900), seq[0].ID)
}

func TestReloadKeepsPendingSends(t *testing.T) {
	store := NewMemoryChatStore(selfID)
	key := entity.NewConversationKey(selfID, partnerID, 3)

	store.SendOptimistic(selfID, partnerID, 3, "in flight")
	store.LoadHistory(key, []entity.ChatMessage{
		historyMessage(1, partnerID, selfID, time.Now().Add(-time.Minute)),
	})

	seq := store.Messages(key)
	require.Len(t, seq, 2)
	assert.Equal(t, entity.DeliveryPendingSend, seq[1].Status)
}

func TestConfirmAfterTeardownIsBenign(t *testing.T) {
	store := NewMemoryChatStore(selfID)

	handle := store.SendOptimistic(selfID, partnerID, 3, "hi")
	require.NoError(t, store.RollbackSend(handle))

	err := store.ConfirmSend(handle, 77)
	assert.True(t, errors.Is(err, "NOT_FOUND"))
}

func TestChangeNotificationCarriesKey(t *testing.T) {
	store := NewMemoryChatStore(selfID)

	var got []entity.ConversationKey
	unsubscribe := store.SubscribeChanges(func(key entity.ConversationKey) {
		got = append(got, key)
	})
	defer unsubscribe()

	handle := store.SendOptimistic(selfID, partnerID, 3, "hi")
	require.Len(t, got, 1)
	assert.Equal(t, handle.Key, got[0])
}
