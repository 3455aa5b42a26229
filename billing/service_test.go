package billing_test

import (
	"context"
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/pixshift/gateway/billing"
	"github.com/pixshift/gateway/billing/mocks"
	"github.com/pixshift/gateway/billing/signature"
)

const operatorToken = "op-token-for-tests"

func testSecret(t *testing.T) signature.Secret {
	t.Helper()
	secret, err := signature.GenerateSecret(32)
	require.NoError(t, err)
	return secret
}

func signedPayload(t *testing.T, secret signature.Secret, payload []byte) string {
	t.Helper()
	return signature.BuildHeader(secret, time.Now(), payload)
}

func TestProcessSignature(t *testing.T) {
	ctx := context.Background()
	payload := []byte(`{"id":"evt_1","type":"invoice.paid","data":{"object":{}}}`)

	t.Run("invalid signature is a hard 400", func(t *testing.T) {
		events := mocks.NewEventStore(t)
		handler := mocks.NewHandler(t)
		p := billing.NewProcessor(events, handler, testSecret(t), operatorToken, nil)

		out := p.Process(ctx, payload, "t=1700000000,v1=deadbeef", billing.Replay{})
		assert.Equal(t, http.StatusBadRequest, out.Status)
		// neither the store nor the handler may be touched
		events.AssertNotCalled(t, "Record", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
		handler.AssertNotCalled(t, "Handle", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("replay flag without operator credential is rejected", func(t *testing.T) {
		events := mocks.NewEventStore(t)
		handler := mocks.NewHandler(t)
		p := billing.NewProcessor(events, handler, testSecret(t), operatorToken, nil)

		out := p.Process(ctx, payload, "", billing.Replay{Requested: true, OperatorToken: "wrong"})
		assert.Equal(t, http.StatusForbidden, out.Status)
	})

	t.Run("replay with operator credential skips verification", func(t *testing.T) {
		events := mocks.NewEventStore(t)
		handler := mocks.NewHandler(t)
		p := billing.NewProcessor(events, handler, testSecret(t), operatorToken, nil)

		events.On("Record", mock.Anything, "evt_1", "invoice.paid", payload).
			Return(billing.Event{EventID: "evt_1", ProcessingAttempts: 1}, nil)
		handler.On("Handle", mock.Anything, billing.KindInvoicePaid, mock.Anything).Return(nil)
		events.On("MarkProcessed", mock.Anything, "evt_1", mock.Anything).Return(nil)

		out := p.Process(ctx, payload, "", billing.Replay{Requested: true, OperatorToken: operatorToken})
		assert.Equal(t, http.StatusOK, out.Status)
	})

	t.Run("replay never works when no operator token is configured", func(t *testing.T) {
		events := mocks.NewEventStore(t)
		handler := mocks.NewHandler(t)
		p := billing.NewProcessor(events, handler, testSecret(t), "", nil)

		out := p.Process(ctx, payload, "", billing.Replay{Requested: true, OperatorToken: ""})
		assert.Equal(t, http.StatusForbidden, out.Status)
	})
}

func TestProcessDedup(t *testing.T) {
	ctx := context.Background()
	secret := testSecret(t)
	payload := []byte(`{"id":"evt_1","type":"invoice.paid","data":{"object":{}}}`)

	t.Run("processed event is acknowledged without handler call", func(t *testing.T) {
		events := mocks.NewEventStore(t)
		handler := mocks.NewHandler(t)
		p := billing.NewProcessor(events, handler, secret, operatorToken, nil)

		events.On("Record", mock.Anything, "evt_1", "invoice.paid", payload).
			Return(billing.Event{EventID: "evt_1", Processed: true, ProcessingAttempts: 1}, nil)

		out := p.Process(ctx, payload, signedPayload(t, secret, payload), billing.Replay{})
		assert.Equal(t, http.StatusOK, out.Status)
		assert.True(t, out.Duplicate)
		handler.AssertNotCalled(t, "Handle", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("redelivery before success runs the handler again", func(t *testing.T) {
		events := mocks.NewEventStore(t)
		handler := mocks.NewHandler(t)
		p := billing.NewProcessor(events, handler, secret, operatorToken, nil)

		events.On("Record", mock.Anything, "evt_1", "invoice.paid", payload).
			Return(billing.Event{EventID: "evt_1", ProcessingAttempts: 2}, nil)
		handler.On("Handle", mock.Anything, billing.KindInvoicePaid, mock.Anything).Return(nil).Once()
		events.On("MarkProcessed", mock.Anything, "evt_1", mock.Anything).Return(nil)

		out := p.Process(ctx, payload, signedPayload(t, secret, payload), billing.Replay{})
		assert.Equal(t, http.StatusOK, out.Status)
		assert.False(t, out.Duplicate)
		assert.Equal(t, 2, out.Attempts)
	})
}

func TestProcessDispatch(t *testing.T) {
	ctx := context.Background()
	secret := testSecret(t)

	t.Run("unhandled type is acknowledged and marked processed", func(t *testing.T) {
		payload := []byte(`{"id":"evt_9","type":"charge.refunded","data":{"object":{}}}`)
		events := mocks.NewEventStore(t)
		handler := mocks.NewHandler(t)
		p := billing.NewProcessor(events, handler, secret, operatorToken, nil)

		events.On("Record", mock.Anything, "evt_9", "charge.refunded", payload).
			Return(billing.Event{EventID: "evt_9", ProcessingAttempts: 1}, nil)
		events.On("MarkProcessed", mock.Anything, "evt_9", mock.Anything).Return(nil)

		out := p.Process(ctx, payload, signedPayload(t, secret, payload), billing.Replay{})
		assert.Equal(t, http.StatusOK, out.Status)
		handler.AssertNotCalled(t, "Handle", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("malformed payload is a hard 400", func(t *testing.T) {
		payload := []byte(`{"type":"invoice.paid"}`)
		events := mocks.NewEventStore(t)
		handler := mocks.NewHandler(t)
		p := billing.NewProcessor(events, handler, secret, operatorToken, nil)

		out := p.Process(ctx, payload, signedPayload(t, secret, payload), billing.Replay{})
		assert.Equal(t, http.StatusBadRequest, out.Status)
	})

	t.Run("transient failure maps to 500 and records the error", func(t *testing.T) {
		payload := []byte(`{"id":"evt_1","type":"invoice.paid","data":{"object":{}}}`)
		events := mocks.NewEventStore(t)
		handler := mocks.NewHandler(t)
		p := billing.NewProcessor(events, handler, secret, operatorToken, nil)

		events.On("Record", mock.Anything, "evt_1", "invoice.paid", payload).
			Return(billing.Event{EventID: "evt_1", ProcessingAttempts: 1}, nil)
		handler.On("Handle", mock.Anything, billing.KindInvoicePaid, mock.Anything).
			Return(billing.Transient(errors.New("store unavailable")))
		events.On("MarkFailed", mock.Anything, "evt_1", "store unavailable").Return(nil)

		out := p.Process(ctx, payload, signedPayload(t, secret, payload), billing.Replay{})
		assert.Equal(t, http.StatusInternalServerError, out.Status)
	})

	t.Run("permanent failure maps to 400", func(t *testing.T) {
		payload := []byte(`{"id":"evt_1","type":"invoice.paid","data":{"object":{}}}`)
		events := mocks.NewEventStore(t)
		handler := mocks.NewHandler(t)
		p := billing.NewProcessor(events, handler, secret, operatorToken, nil)

		events.On("Record", mock.Anything, "evt_1", "invoice.paid", payload).
			Return(billing.Event{EventID: "evt_1", ProcessingAttempts: 1}, nil)
		handler.On("Handle", mock.Anything, billing.KindInvoicePaid, mock.Anything).
			Return(billing.Permanent(errors.New("no account for customer cus_1")))
		events.On("MarkFailed", mock.Anything, "evt_1", mock.Anything).Return(nil)

		out := p.Process(ctx, payload, signedPayload(t, secret, payload), billing.Replay{})
		assert.Equal(t, http.StatusBadRequest, out.Status)
	})

	t.Run("handler timeout is retryable", func(t *testing.T) {
		payload := []byte(`{"id":"evt_1","type":"invoice.paid","data":{"object":{}}}`)
		events := mocks.NewEventStore(t)
		handler := mocks.NewHandler(t)
		p := billing.NewProcessor(events, handler, secret, operatorToken, nil,
			billing.WithTimeout(20*time.Millisecond))

		events.On("Record", mock.Anything, "evt_1", "invoice.paid", payload).
			Return(billing.Event{EventID: "evt_1", ProcessingAttempts: 1}, nil)
		handler.On("Handle", mock.Anything, billing.KindInvoicePaid, mock.Anything).
			Run(func(args mock.Arguments) {
				ctx := args.Get(0).(context.Context)
				<-ctx.Done()
			}).
			Return(context.DeadlineExceeded).
			Maybe()
		events.On("MarkFailed", mock.Anything, "evt_1", mock.Anything).Return(nil)

		out := p.Process(ctx, payload, signedPayload(t, secret, payload), billing.Replay{})
		assert.Equal(t, http.StatusInternalServerError, out.Status)
		assert.Contains(t, out.Error, "timed out")
	})

	t.Run("storage outage on record is a 500", func(t *testing.T) {
		payload := []byte(`{"id":"evt_1","type":"invoice.paid","data":{"object":{}}}`)
		events := mocks.NewEventStore(t)
		handler := mocks.NewHandler(t)
		p := billing.NewProcessor(events, handler, secret, operatorToken, nil)

		events.On("Record", mock.Anything, "evt_1", "invoice.paid", payload).
			Return(billing.Event{}, errors.New("connection refused"))

		out := p.Process(ctx, payload, signedPayload(t, secret, payload), billing.Replay{})
		assert.Equal(t, http.StatusInternalServerError, out.Status)
	})
}
