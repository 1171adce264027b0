package service

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"app/internal/model"
	"app/internal/quota"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/rs/zerolog"
)

type fakeReplayRepo struct {
	mu      sync.Mutex
	replays map[string]*model.Replay
}

func newFakeReplayRepo() *fakeReplayRepo {
	return &fakeReplayRepo{replays: make(map[string]*model.Replay)}
}

func (f *fakeReplayRepo) CreateReplay(_ context.Context, rep *model.Replay) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	rep.CreatedAt = time.Now()
	rep.UpdatedAt = rep.CreatedAt
	cp := *rep
	f.replays[rep.ID] = &cp
	return nil
}

func (f *fakeReplayRepo) GetReplayByID(_ context.Context, id string) (*model.Replay, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	rep, ok := f.replays[id]
	if !ok {
		return nil, nil
	}
	cp := *rep
	return &cp, nil
}

func (f *fakeReplayRepo) UpdateStatus(_ context.Context, id, status string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	rep, ok := f.replays[id]
	if !ok {
		return errors.New("replay not found")
	}
	rep.Status = status
	return nil
}

func (f *fakeReplayRepo) DeleteReplay(_ context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.replays, id)
	return nil
}

func testS3Client() *s3.Client {
	// Presigning is a local signing operation, no network involved.
	return s3.NewFromConfig(aws.Config{
		Region:      "us-east-1",
		Credentials: credentials.NewStaticCredentialsProvider("test", "test", ""),
	}, func(o *s3.Options) {
		o.BaseEndpoint = aws.String("http://localhost:9000")
		o.UsePathStyle = true
	})
}

func newReplayFixture(t *testing.T, accounts *fakeAccounts) (ReplayService, *fakeReplayRepo, *fakeUsageRepo, *quota.Meter) {
	t.Helper()
	usageRepo := newFakeUsageRepo()
	replayRepo := newFakeReplayRepo()
	logger := zerolog.Nop()
	checker := quota.NewChecker(usageRepo, accounts, logger)
	meter := quota.NewMeter(usageRepo, logger, quota.WithFlushInterval(time.Hour))
	t.Cleanup(func() { meter.Close(context.Background()) })
	svc := NewReplayService(replayRepo, checker, meter, testS3Client(), "replays", logger)
	return svc, replayRepo, usageRepo, meter
}

func TestInitiateUploadReturnsPresignedURL(t *testing.T) {
	accounts := &fakeAccounts{tier: quota.TierPro, addons: []quota.Addon{quota.AddonGameplay}}
	svc, repo, _, _ := newReplayFixture(t, accounts)

	ticket, err := svc.InitiateUpload(context.Background(), "user-1", "arena-final.replay")
	if err != nil {
		t.Fatalf("InitiateUpload returned error: %v", err)
	}
	if ticket.Replay.Status != "uploading" {
		t.Errorf("expected status uploading, got %s", ticket.Replay.Status)
	}
	if !strings.Contains(ticket.UploadURL, ticket.Replay.ID) {
		t.Errorf("presigned URL should reference the replay storage path: %s", ticket.UploadURL)
	}
	if _, ok := repo.replays[ticket.Replay.ID]; !ok {
		t.Error("expected replay record to be persisted")
	}
}

func TestInitiateUploadDeniedWithoutAddon(t *testing.T) {
	accounts := &fakeAccounts{tier: quota.TierPro}
	svc, repo, _, _ := newReplayFixture(t, accounts)

	ticket, err := svc.InitiateUpload(context.Background(), "user-1", "arena-final.replay")
	if !errors.Is(err, ErrQuotaExceeded) {
		t.Fatalf("expected ErrQuotaExceeded without the gameplay add-on, got %v", err)
	}
	if ticket.Decision.Reason != quota.ReasonPolicyDenied {
		t.Errorf("expected policy_denied, got %s", ticket.Decision.Reason)
	}
	if len(repo.replays) != 0 {
		t.Error("no replay record may be created on denial")
	}
}

func TestInitiateUploadDeniedAtLimitCarriesNumbers(t *testing.T) {
	accounts := &fakeAccounts{tier: quota.TierPro, addons: []quota.Addon{quota.AddonGameplay}}
	svc, _, usageRepo, _ := newReplayFixture(t, accounts)

	usageRepo.records["user-1"] = &quota.UsageRecord{
		Replays:   15,
		PeriodEnd: time.Now().Add(time.Hour),
	}

	ticket, err := svc.InitiateUpload(context.Background(), "user-1", "arena-final.replay")
	if !errors.Is(err, ErrQuotaExceeded) {
		t.Fatalf("expected ErrQuotaExceeded at the replay limit, got %v", err)
	}
	if ticket.Decision.Limit != 15 || ticket.Decision.Used != 15 || ticket.Decision.Remaining != 0 {
		t.Errorf("denial must carry the exact numbers, got limit=%d used=%d remaining=%d",
			ticket.Decision.Limit, ticket.Decision.Used, ticket.Decision.Remaining)
	}
}

func TestCompleteUploadMetersReplay(t *testing.T) {
	accounts := &fakeAccounts{tier: quota.TierPro, addons: []quota.Addon{quota.AddonGameplay}}
	svc, _, usageRepo, meter := newReplayFixture(t, accounts)

	ticket, err := svc.InitiateUpload(context.Background(), "user-1", "arena-final.replay")
	if err != nil {
		t.Fatalf("InitiateUpload returned error: %v", err)
	}

	completed, err := svc.CompleteUpload(context.Background(), ticket.Replay.ID, "user-1")
	if err != nil {
		t.Fatalf("CompleteUpload returned error: %v", err)
	}
	if completed.Status != "uploaded" {
		t.Errorf("expected status uploaded, got %s", completed.Status)
	}

	meter.Flush(context.Background())
	rec, err := usageRepo.Get(context.Background(), "user-1")
	if err != nil {
		t.Fatalf("Get returned error: %v", err)
	}
	if rec.Replays != 1 {
		t.Errorf("expected 1 replay metered, got %d", rec.Replays)
	}
}

func TestCompleteUploadWrongUser(t *testing.T) {
	accounts := &fakeAccounts{tier: quota.TierPro, addons: []quota.Addon{quota.AddonGameplay}}
	svc, _, _, _ := newReplayFixture(t, accounts)

	ticket, err := svc.InitiateUpload(context.Background(), "user-1", "arena-final.replay")
	if err != nil {
		t.Fatalf("InitiateUpload returned error: %v", err)
	}

	if _, err := svc.CompleteUpload(context.Background(), ticket.Replay.ID, "user-2"); !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("expected ErrUnauthorized for another user's replay, got %v", err)
	}
}
