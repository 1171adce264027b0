package handler

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"app/internal/api/v1/dto"
	"app/internal/service"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
)

type fakeUsageService struct {
	rotated []string
	err     error
}

func (f *fakeUsageService) GetSummary(context.Context, string) (*service.UsageSummary, error) {
	return nil, errors.New("not implemented")
}

func (f *fakeUsageService) RotatePeriod(_ context.Context, userID string) error {
	if f.err != nil {
		return f.err
	}
	f.rotated = append(f.rotated, userID)
	return nil
}

func pushBody(t *testing.T, payload any) *bytes.Buffer {
	t.Helper()
	data, err := json.Marshal(payload)
	if err != nil {
		t.Fatalf("failed to marshal payload: %v", err)
	}
	push := dto.PubSubPushRequest{
		Message: dto.PubSubMessage{
			Data:      base64.StdEncoding.EncodeToString(data),
			MessageID: "m-1",
		},
		Subscription: "projects/test/subscriptions/usage-rotation",
	}
	body, err := json.Marshal(push)
	if err != nil {
		t.Fatalf("failed to marshal push envelope: %v", err)
	}
	return bytes.NewBuffer(body)
}

func newRotationHandler(svc service.UsageService) *RotationHandler {
	return NewRotationHandler(svc, validator.New(validator.WithRequiredStructEnabled()), zerolog.Nop())
}

func TestRotationPushRotatesUser(t *testing.T) {
	svc := &fakeUsageService{}
	h := newRotationHandler(svc)

	body := pushBody(t, dto.RotationEventDTO{UserID: "user-1", PeriodEnd: time.Now()})
	req := httptest.NewRequest(http.MethodPost, "/internal/usage/rotation", body)
	rr := httptest.NewRecorder()

	h.handleRotationPush(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}
	if len(svc.rotated) != 1 || svc.rotated[0] != "user-1" {
		t.Errorf("expected rotation for user-1, got %v", svc.rotated)
	}
}

func TestRotationPushPoisonMessageAcked(t *testing.T) {
	svc := &fakeUsageService{}
	h := newRotationHandler(svc)

	// Event without a user_id fails validation and must be acknowledged so
	// Pub/Sub does not redeliver it forever.
	body := pushBody(t, map[string]string{"unexpected": "shape"})
	req := httptest.NewRequest(http.MethodPost, "/internal/usage/rotation", body)
	rr := httptest.NewRecorder()

	h.handleRotationPush(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("poison messages must be acked with 200, got %d", rr.Code)
	}
	if len(svc.rotated) != 0 {
		t.Errorf("no rotation may happen for a poison message, got %v", svc.rotated)
	}
}

func TestRotationPushTransientFailureRetried(t *testing.T) {
	svc := &fakeUsageService{err: errors.New("db down")}
	h := newRotationHandler(svc)

	body := pushBody(t, dto.RotationEventDTO{UserID: "user-1", PeriodEnd: time.Now()})
	req := httptest.NewRequest(http.MethodPost, "/internal/usage/rotation", body)
	rr := httptest.NewRecorder()

	h.handleRotationPush(rr, req)

	if rr.Code != http.StatusInternalServerError {
		t.Fatalf("transient failures must return 500 for redelivery, got %d", rr.Code)
	}
}
