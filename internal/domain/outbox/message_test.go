package outbox

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/campus-finance-ledger/internal/domain/shared"
)

func TestNewMessage(t *testing.T) {
	t.Run("SuccessfulCreation", func(t *testing.T) {
		paymentID := uuid.New()
		payload := map[string]any{
			"payment_id": paymentID.String(),
			"amount":     int64(12500),
			"method":     "BANK_TRANSFER",
		}

		beforeCreation := time.Now()
		msg, err := NewMessage(shared.EventPaymentRecorded, paymentID, payload)
		afterCreation := time.Now()

		require.NoError(t, err)
		require.NotNil(t, msg)

		assert.Equal(t, shared.EventPaymentRecorded, msg.EventType)
		assert.Equal(t, paymentID, msg.AggregateID)
		assert.Equal(t, shared.OutboxStatusPending, msg.Status)
		assert.Equal(t, 0, msg.Attempts)
		assert.Nil(t, msg.LastAttemptAt)
		assert.WithinDuration(t, beforeCreation, msg.CreatedAt, afterCreation.Sub(beforeCreation)+time.Millisecond)

		var decoded map[string]any
		err = json.Unmarshal(msg.Payload, &decoded)
		require.NoError(t, err)
		assert.Equal(t, paymentID.String(), decoded["payment_id"])
		assert.Equal(t, "BANK_TRANSFER", decoded["method"])
	})

	t.Run("UnmarshalablePayload", func(t *testing.T) {
		msg, err := NewMessage(shared.EventPaymentRecorded, uuid.New(), make(chan int))
		assert.Error(t, err)
		assert.Nil(t, msg)
	})
}

func TestMessage_IncrementAttempts(t *testing.T) {
	initialTime := time.Now().Add(-time.Hour)
	msg := &Message{
		Attempts:      1,
		LastAttemptAt: &initialTime,
	}

	msg.IncrementAttempts()

	assert.Equal(t, 2, msg.Attempts)
	require.NotNil(t, msg.LastAttemptAt)
	assert.True(t, msg.LastAttemptAt.After(initialTime))
}

func TestMessage_MarkAsProcessed(t *testing.T) {
	msg := &Message{Status: shared.OutboxStatusPending}

	msg.MarkAsProcessed()

	assert.Equal(t, shared.OutboxStatusProcessed, msg.Status)
	require.NotNil(t, msg.LastAttemptAt)
}

func TestMessage_MarkAsFailed(t *testing.T) {
	msg := &Message{Status: shared.OutboxStatusPending}

	msg.MarkAsFailed()

	assert.Equal(t, shared.OutboxStatusFailedToPublish, msg.Status)
	require.NotNil(t, msg.LastAttemptAt)
}
