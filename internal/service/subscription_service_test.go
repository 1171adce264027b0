package service

import (
	"context"
	"testing"
	"time"

	"app/internal/model"
	"app/internal/quota"

	"github.com/rs/zerolog"
)

// fakeSubscriptionStore is a stateful subscription repository: downgrades
// replace the stored subscription with an active free-plan row, the way the
// Postgres implementation does.
type fakeSubscriptionStore struct {
	fakeAccounts
	sub        *model.UserSubscription
	plans      map[string]*model.SubscriptionPlan
	downgrades []string
}

func (f *fakeSubscriptionStore) GetActiveSubscription(context.Context, string) (*model.UserSubscription, error) {
	return f.sub, nil
}

func (f *fakeSubscriptionStore) GetPlanByID(_ context.Context, planID string) (*model.SubscriptionPlan, error) {
	return f.plans[planID], nil
}

func (f *fakeSubscriptionStore) DowngradeUserToFreePlan(_ context.Context, userID, freePlanID string) error {
	f.downgrades = append(f.downgrades, userID)
	f.sub = &model.UserSubscription{
		UserID:   userID,
		PlanID:   freePlanID,
		Status:   "active",
		StartsAt: time.Now(),
		EndsAt:   time.Now().Add(31 * 24 * time.Hour),
	}
	return nil
}

func newSubscriptionFixture() *fakeSubscriptionStore {
	return &fakeSubscriptionStore{
		fakeAccounts: fakeAccounts{tier: quota.TierFree},
		plans: map[string]*model.SubscriptionPlan{
			"free": {ID: "free", Name: "Free", Tier: "free", BillingPeriod: "1 day"},
			"pro":  {ID: "pro", Name: "Pro", Tier: "pro", BillingPeriod: "1 mon"},
		},
	}
}

func TestGetSubscriptionActive(t *testing.T) {
	repo := newSubscriptionFixture()
	repo.sub = &model.UserSubscription{UserID: "user-1", PlanID: "pro", Status: "active"}
	svc := NewSubscriptionService(repo, "free", zerolog.Nop())

	got, err := svc.GetSubscription(context.Background(), "user-1")
	if err != nil {
		t.Fatalf("GetSubscription returned error: %v", err)
	}
	if got.Plan.ID != "pro" {
		t.Errorf("expected the pro plan, got %s", got.Plan.ID)
	}
	if len(repo.downgrades) != 0 {
		t.Errorf("an active subscription must not be downgraded, got %v", repo.downgrades)
	}
}

func TestGetSubscriptionLapsedDowngradesToFree(t *testing.T) {
	repo := newSubscriptionFixture()
	svc := NewSubscriptionService(repo, "free", zerolog.Nop())

	got, err := svc.GetSubscription(context.Background(), "user-1")
	if err != nil {
		t.Fatalf("GetSubscription returned error: %v", err)
	}
	if len(repo.downgrades) != 1 || repo.downgrades[0] != "user-1" {
		t.Fatalf("expected one downgrade for user-1, got %v", repo.downgrades)
	}
	if got.Plan.ID != "free" {
		t.Errorf("a lapsed subscription must land on the free plan, got %s", got.Plan.ID)
	}
	if got.Subscription.Status != "active" {
		t.Errorf("downgraded subscription must be active, got %s", got.Subscription.Status)
	}
}
