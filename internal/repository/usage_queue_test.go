package repository

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"app/internal/quota"
)

type fakeSender struct {
	queue    string
	payloads [][]byte
	err      error
}

func (f *fakeSender) Send(_ context.Context, queue string, payload []byte) error {
	if f.err != nil {
		return f.err
	}
	f.queue = queue
	f.payloads = append(f.payloads, payload)
	return nil
}

func TestQueuedUsageStoreEnqueuesDelta(t *testing.T) {
	sender := &fakeSender{}
	store := NewQueuedUsageStore(nil, sender, "usage_deltas")

	delta := quota.Delta{Messages: 2, Tokens: 340, VoiceSeconds: 90}
	if err := store.MergeIncrement(context.Background(), "user-1", delta); err != nil {
		t.Fatalf("MergeIncrement returned error: %v", err)
	}

	if sender.queue != "usage_deltas" {
		t.Errorf("expected queue usage_deltas, got %s", sender.queue)
	}
	if len(sender.payloads) != 1 {
		t.Fatalf("expected 1 enqueued message, got %d", len(sender.payloads))
	}

	var msg UsageDeltaMessage
	if err := json.Unmarshal(sender.payloads[0], &msg); err != nil {
		t.Fatalf("payload is not valid JSON: %v", err)
	}
	if msg.UserID != "user-1" {
		t.Errorf("expected user-1, got %s", msg.UserID)
	}
	if msg.Delta.Messages != 2 || msg.Delta.Tokens != 340 || msg.Delta.VoiceSeconds != 90 {
		t.Errorf("delta did not round-trip: %+v", msg.Delta)
	}
}

func TestQueuedUsageStoreSendFailure(t *testing.T) {
	sender := &fakeSender{err: errors.New("queue down")}
	store := NewQueuedUsageStore(nil, sender, "usage_deltas")

	err := store.MergeIncrement(context.Background(), "user-1", quota.Delta{Messages: 1})
	if err == nil {
		t.Fatal("expected error when the sender fails")
	}
}
