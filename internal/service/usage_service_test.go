package service

import (
	"context"
	"testing"
	"time"

	"app/internal/quota"

	"github.com/rs/zerolog"
)

func TestGetSummaryWithRecord(t *testing.T) {
	accounts := &fakeAccounts{tier: quota.TierPro, addons: []quota.Addon{quota.AddonGameplay}}
	repo := newFakeUsageRepo()
	svc := NewUsageService(repo, accounts, zerolog.Nop())

	end := time.Now().Add(10 * 24 * time.Hour)
	repo.records["user-1"] = &quota.UsageRecord{
		Messages:    42,
		Replays:     3,
		ImagesToday: 2,
		ImagesDay:   time.Now().UTC().Truncate(24 * time.Hour).Add(-48 * time.Hour),
		PeriodEnd:   end,
	}

	summary, err := svc.GetSummary(context.Background(), "user-1")
	if err != nil {
		t.Fatalf("GetSummary returned error: %v", err)
	}
	if summary.Record.Messages != 42 {
		t.Errorf("expected 42 messages used, got %d", summary.Record.Messages)
	}
	if summary.MessagesRemaining != 158 {
		t.Errorf("expected 158 messages remaining, got %d", summary.MessagesRemaining)
	}
	if summary.Limits.MaxReplays != 15 {
		t.Errorf("expected replay limit 15 with gameplay add-on, got %d", summary.Limits.MaxReplays)
	}
	if summary.Record.ImagesToday != 0 {
		t.Errorf("an image count from an earlier day must read as zero, got %d", summary.Record.ImagesToday)
	}
	if !summary.PeriodEnd.Equal(end) {
		t.Errorf("expected period end %v, got %v", end, summary.PeriodEnd)
	}
}

func TestGetSummaryFreshAccount(t *testing.T) {
	accounts := &fakeAccounts{tier: quota.TierFree}
	repo := newFakeUsageRepo()
	svc := NewUsageService(repo, accounts, zerolog.Nop())

	summary, err := svc.GetSummary(context.Background(), "user-1")
	if err != nil {
		t.Fatalf("GetSummary returned error: %v", err)
	}
	if summary.Record.Messages != 0 {
		t.Errorf("expected zero usage, got %d", summary.Record.Messages)
	}
	if summary.MessagesRemaining != 5 {
		t.Errorf("expected full free allowance remaining, got %d", summary.MessagesRemaining)
	}
	// Free accounts run on a UTC day window.
	if want := 24 * time.Hour; summary.PeriodEnd.Sub(summary.PeriodStart) != want {
		t.Errorf("expected a one-day window, got %v", summary.PeriodEnd.Sub(summary.PeriodStart))
	}
}

func TestRotatePeriodFreeTierDailyWindow(t *testing.T) {
	accounts := &fakeAccounts{tier: quota.TierFree}
	repo := newFakeUsageRepo()
	svc := NewUsageService(repo, accounts, zerolog.Nop())

	repo.records["user-1"] = &quota.UsageRecord{Messages: 5}

	if err := svc.RotatePeriod(context.Background(), "user-1"); err != nil {
		t.Fatalf("RotatePeriod returned error: %v", err)
	}

	if len(repo.resets) != 1 {
		t.Fatalf("expected 1 reset call, got %d", len(repo.resets))
	}
	reset := repo.resets[0]
	if reset.userID != "user-1" {
		t.Errorf("expected reset for user-1, got %s", reset.userID)
	}
	if reset.end.Sub(reset.start) != 24*time.Hour {
		t.Errorf("free tier must rotate onto a one-day window, got %v", reset.end.Sub(reset.start))
	}

	rec, err := repo.Get(context.Background(), "user-1")
	if err != nil {
		t.Fatalf("Get returned error: %v", err)
	}
	if rec.Messages != 0 {
		t.Errorf("rotation must zero the counters, got %d messages", rec.Messages)
	}
}

func TestRotatePeriodProTierMonthlyWindow(t *testing.T) {
	accounts := &fakeAccounts{tier: quota.TierPro}
	repo := newFakeUsageRepo()
	svc := NewUsageService(repo, accounts, zerolog.Nop())

	if err := svc.RotatePeriod(context.Background(), "user-1"); err != nil {
		t.Fatalf("RotatePeriod returned error: %v", err)
	}

	reset := repo.resets[0]
	if got := reset.end.Sub(reset.start); got < 27*24*time.Hour || got > 32*24*time.Hour {
		t.Errorf("pro tier must rotate onto a monthly window, got %v", got)
	}
}
