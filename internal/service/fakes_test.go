package service

import (
	"context"
	"errors"
	"sync"
	"time"

	"app/internal/model"
	"app/internal/quota"
)

// fakeAccounts satisfies repository.SubscriptionRepository for service tests.
type fakeAccounts struct {
	tier   quota.Tier
	addons []quota.Addon
	err    error
}

func (f *fakeAccounts) GetTierAndAddons(context.Context, string) (quota.Tier, []quota.Addon, error) {
	if f.err != nil {
		return "", nil, f.err
	}
	return f.tier, f.addons, nil
}

func (f *fakeAccounts) GetActiveSubscription(context.Context, string) (*model.UserSubscription, error) {
	return nil, errors.New("not implemented")
}

func (f *fakeAccounts) GetPlanByID(context.Context, string) (*model.SubscriptionPlan, error) {
	return nil, errors.New("not implemented")
}

func (f *fakeAccounts) UpsertSubscription(context.Context, string, string) error { return nil }

func (f *fakeAccounts) SetAddons(context.Context, string, []string) error { return nil }

func (f *fakeAccounts) DowngradeUserToFreePlan(context.Context, string, string) error { return nil }

// fakeUsageRepo satisfies repository.UsageRepository with an in-memory map.
type fakeUsageRepo struct {
	mu      sync.Mutex
	records map[string]*quota.UsageRecord
	incs    []quota.Delta
	resets  []resetCall
}

type resetCall struct {
	userID string
	start  time.Time
	end    time.Time
}

func newFakeUsageRepo() *fakeUsageRepo {
	return &fakeUsageRepo{records: make(map[string]*quota.UsageRecord)}
}

func (f *fakeUsageRepo) Get(_ context.Context, userID string) (*quota.UsageRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	rec, ok := f.records[userID]
	if !ok {
		return nil, quota.ErrNotFound
	}
	cp := *rec
	return &cp, nil
}

func (f *fakeUsageRepo) MergeIncrement(_ context.Context, userID string, delta quota.Delta) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	rec, ok := f.records[userID]
	if !ok {
		rec = &quota.UsageRecord{}
		f.records[userID] = rec
	}
	rec.Messages += delta.Messages
	rec.VoiceSeconds += delta.VoiceSeconds
	rec.VoiceInteractions += delta.VoiceInteractions
	rec.ImagesToday += delta.Images
	rec.Replays += delta.Replays
	f.incs = append(f.incs, delta)
	return nil
}

func (f *fakeUsageRepo) SetIfAbsent(_ context.Context, userID string, rec quota.UsageRecord) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.records[userID]; !ok {
		cp := rec
		f.records[userID] = &cp
	}
	return nil
}

func (f *fakeUsageRepo) ResetPeriod(_ context.Context, userID string, start, end time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.resets = append(f.resets, resetCall{userID: userID, start: start, end: end})
	f.records[userID] = &quota.UsageRecord{PeriodStart: start, PeriodEnd: end}
	return nil
}

// fakeCoach returns a canned reply and token count.
type fakeCoach struct {
	reply  string
	tokens int
	err    error
	calls  int
}

func (f *fakeCoach) Coach(context.Context, string, string) (string, int, error) {
	f.calls++
	if f.err != nil {
		return "", 0, f.err
	}
	return f.reply, f.tokens, nil
}
