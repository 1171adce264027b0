package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"app/internal/quota"

	"github.com/rs/zerolog"
)

func newVoiceFixture(t *testing.T, accounts *fakeAccounts) (VoiceService, *fakeUsageRepo, *fakeCoach) {
	t.Helper()
	repo := newFakeUsageRepo()
	coach := &fakeCoach{reply: "Rotate early, take the high ground.", tokens: 80}
	logger := zerolog.Nop()
	checker := quota.NewChecker(repo, accounts, logger)
	meter := quota.NewMeter(repo, logger, quota.WithFlushInterval(time.Hour))
	t.Cleanup(func() { meter.Close(context.Background()) })
	svc := NewVoiceService(checker, meter, repo, accounts, coach, logger)
	return svc, repo, coach
}

func TestCoachTurnRecordsImmediately(t *testing.T) {
	accounts := &fakeAccounts{tier: quota.TierPro, addons: []quota.Addon{quota.AddonVoice}}
	svc, repo, _ := newVoiceFixture(t, accounts)

	result, err := svc.CoachTurn(context.Background(), "user-1", "what should I do in endgame?", 90)
	if err != nil {
		t.Fatalf("CoachTurn returned error: %v", err)
	}
	if result.Reply == "" {
		t.Fatal("expected a coaching reply")
	}

	// Voice usage is written through synchronously, no flush needed.
	rec, err := repo.Get(context.Background(), "user-1")
	if err != nil {
		t.Fatalf("Get returned error: %v", err)
	}
	if rec.VoiceSeconds != 90 {
		t.Errorf("expected 90 voice seconds recorded, got %d", rec.VoiceSeconds)
	}
	if rec.VoiceInteractions != 1 {
		t.Errorf("expected 1 interaction recorded, got %d", rec.VoiceInteractions)
	}
}

func TestCoachTurnSessionCap(t *testing.T) {
	accounts := &fakeAccounts{tier: quota.TierPro, addons: []quota.Addon{quota.AddonVoice}}
	svc, _, coach := newVoiceFixture(t, accounts)

	// 2000s exceeds the 1800s per-session cap even with a full monthly budget.
	result, err := svc.CoachTurn(context.Background(), "user-1", "long session", 2000)
	if !errors.Is(err, ErrQuotaExceeded) {
		t.Fatalf("expected ErrQuotaExceeded, got %v", err)
	}
	if result.Decision.Reason != quota.ReasonSessionCapExceeded {
		t.Errorf("expected session_cap_exceeded, got %s", result.Decision.Reason)
	}
	if coach.calls != 0 {
		t.Errorf("coach must not be called on denial, got %d calls", coach.calls)
	}
}

func TestCoachTurnDeniedWithoutAddon(t *testing.T) {
	accounts := &fakeAccounts{tier: quota.TierPro}
	svc, _, _ := newVoiceFixture(t, accounts)

	result, err := svc.CoachTurn(context.Background(), "user-1", "hello", 60)
	if !errors.Is(err, ErrQuotaExceeded) {
		t.Fatalf("expected ErrQuotaExceeded, got %v", err)
	}
	if result.Decision.Reason != quota.ReasonPolicyDenied {
		t.Errorf("expected policy_denied without the voice add-on, got %s", result.Decision.Reason)
	}
}

func TestGetVoiceUsage(t *testing.T) {
	accounts := &fakeAccounts{tier: quota.TierPro, addons: []quota.Addon{quota.AddonVoice}}
	svc, repo, _ := newVoiceFixture(t, accounts)

	repo.records["user-1"] = &quota.UsageRecord{
		VoiceSeconds:      1200,
		VoiceInteractions: 40,
		PeriodEnd:         time.Now().Add(time.Hour),
	}

	usage, err := svc.GetVoiceUsage(context.Background(), "user-1")
	if err != nil {
		t.Fatalf("GetVoiceUsage returned error: %v", err)
	}
	if usage.SecondsUsed != 1200 || usage.SecondsLimit != 3600 {
		t.Errorf("unexpected seconds: used=%d limit=%d", usage.SecondsUsed, usage.SecondsLimit)
	}
	if usage.InteractionsUsed != 40 || usage.InteractionsLimit != 550 {
		t.Errorf("unexpected interactions: used=%d limit=%d", usage.InteractionsUsed, usage.InteractionsLimit)
	}
	if usage.SessionCapSeconds != 1800 {
		t.Errorf("expected session cap 1800, got %d", usage.SessionCapSeconds)
	}
}

func TestGetVoiceUsageNoRecord(t *testing.T) {
	accounts := &fakeAccounts{tier: quota.TierPro, addons: []quota.Addon{quota.AddonVoice}}
	svc, _, _ := newVoiceFixture(t, accounts)

	usage, err := svc.GetVoiceUsage(context.Background(), "user-1")
	if err != nil {
		t.Fatalf("GetVoiceUsage returned error: %v", err)
	}
	if usage.SecondsUsed != 0 {
		t.Errorf("expected zero usage for a fresh account, got %d", usage.SecondsUsed)
	}
	if usage.SecondsLimit != 3600 {
		t.Errorf("limits must still be reported without a record, got %d", usage.SecondsLimit)
	}
}
