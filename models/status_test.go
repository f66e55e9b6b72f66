package models

import (
	"testing"
	"time"

	"github.com/martalon/colmena/utils"
	"github.com/stretchr/testify/assert"
)

func TestCampaignStatusTransitions(t *testing.T) {
	assert.True(t, CampaignStatusDraft.CanTransitionTo(CampaignStatusLive))
	assert.True(t, CampaignStatusDraft.CanTransitionTo(CampaignStatusClosed))
	assert.False(t, CampaignStatusDraft.CanTransitionTo(CampaignStatusInProduction))

	assert.True(t, CampaignStatusLive.CanTransitionTo(CampaignStatusInProduction))
	assert.True(t, CampaignStatusInProduction.CanTransitionTo(CampaignStatusCompleted))
	assert.False(t, CampaignStatusClosed.CanTransitionTo(CampaignStatusLive))
	assert.False(t, CampaignStatusCompleted.CanTransitionTo(CampaignStatusClosed))
}

func TestCampaignStatusAcceptsApplications(t *testing.T) {
	assert.True(t, CampaignStatusLive.AcceptsApplications())
	assert.True(t, CampaignStatusInProduction.AcceptsApplications())
	assert.False(t, CampaignStatusDraft.AcceptsApplications())
	assert.False(t, CampaignStatusClosed.AcceptsApplications())
	assert.False(t, CampaignStatusCompleted.AcceptsApplications())
}

func TestApplicationStatusTransitions(t *testing.T) {
	assert.True(t, ApplicationStatusApplied.CanTransitionTo(ApplicationStatusConfirmed))
	assert.True(t, ApplicationStatusShortlisted.CanTransitionTo(ApplicationStatusRejected))
	assert.True(t, ApplicationStatusConfirmed.CanTransitionTo(ApplicationStatusCancelled))
	assert.False(t, ApplicationStatusConfirmed.CanTransitionTo(ApplicationStatusRejected))
	assert.False(t, ApplicationStatusRejected.CanTransitionTo(ApplicationStatusApplied))
	assert.False(t, ApplicationStatusCancelled.CanTransitionTo(ApplicationStatusConfirmed))
}

func TestApplicationStatusActivity(t *testing.T) {
	assert.True(t, ApplicationStatusApplied.IsActive())
	assert.True(t, ApplicationStatusConfirmed.IsActive())
	assert.False(t, ApplicationStatusRejected.IsActive())
	assert.False(t, ApplicationStatusCancelled.IsActive())

	assert.True(t, ApplicationStatusApplied.IsPending())
	assert.True(t, ApplicationStatusShortlisted.IsPending())
	assert.False(t, ApplicationStatusConfirmed.IsPending())
}

func TestDeliverableStatusTransitions(t *testing.T) {
	assert.True(t, DeliverableStatusAwaitingPublish.CanTransitionTo(DeliverableStatusPublished))
	assert.True(t, DeliverableStatusPublished.CanTransitionTo(DeliverableStatusSubmitted))
	assert.True(t, DeliverableStatusSubmitted.CanTransitionTo(DeliverableStatusMetricsPending))
	assert.True(t, DeliverableStatusChangesRequested.CanTransitionTo(DeliverableStatusResubmitted))
	assert.True(t, DeliverableStatusChangesRequested.CanTransitionTo(DeliverableStatusPublished))
	assert.True(t, DeliverableStatusPublished.CanTransitionTo(DeliverableStatusResubmitted))
	assert.True(t, DeliverableStatusMetricsPending.CanTransitionTo(DeliverableStatusCompleted))

	assert.False(t, DeliverableStatusAwaitingPublish.CanTransitionTo(DeliverableStatusSubmitted))
	assert.False(t, DeliverableStatusCompleted.CanTransitionTo(DeliverableStatusMetricsPending))
	assert.False(t, DeliverableStatusApproved.CanTransitionTo(DeliverableStatusChangesRequested))
}

func TestCanjeSpecJSONBRoundTrip(t *testing.T) {
	spec := CanjeSpec{
		Description: utils.ToPtr("Product box"),
		RewardValue: utils.ToPtr(uint64(250000)),
	}

	raw, err := spec.Value()
	assert.NoError(t, err)
	assert.Contains(t, string(raw.([]byte)), `"value":250000`)

	var decoded CanjeSpec
	assert.NoError(t, decoded.Scan(raw))
	assert.Equal(t, "Product box", *decoded.Description)
	assert.Equal(t, uint64(250000), *decoded.RewardValue)
}

func TestSlotInvariantHolds(t *testing.T) {
	c := &Campaign{SlotsTotalLoaded: 5, SlotsFilled: 2, SlotsAvailable: 3}
	assert.True(t, c.SlotInvariantHolds())

	c.SlotsAvailable = 4
	assert.False(t, c.SlotInvariantHolds())

	c = &Campaign{SlotsTotalLoaded: 1, SlotsFilled: 2, SlotsAvailable: -1}
	assert.False(t, c.SlotInvariantHolds())
}

func TestInApplicationsWindow(t *testing.T) {
	now := time.Date(2025, time.June, 10, 12, 0, 0, 0, time.UTC)
	start := now.Add(-24 * time.Hour)
	end := now.Add(24 * time.Hour)

	c := &Campaign{Timeline: CampaignTimeline{ApplicationsStart: &start, ApplicationsEnd: &end}}
	assert.True(t, c.InApplicationsWindow(now))
	assert.False(t, c.InApplicationsWindow(now.Add(48*time.Hour)))
	assert.False(t, c.InApplicationsWindow(now.Add(-48*time.Hour)))

	// Missing bounds leave that side open.
	open := &Campaign{}
	assert.True(t, open.InApplicationsWindow(now))
}

func TestMetricsWindowOpen(t *testing.T) {
	now := time.Date(2025, time.June, 10, 12, 0, 0, 0, time.UTC)
	opens := now.Add(-time.Hour)
	closes := now.Add(time.Hour)

	d := &Deliverable{MetricsWindowOpensAt: &opens, MetricsWindowClosesAt: &closes}
	assert.True(t, d.MetricsWindowOpen(now))
	assert.False(t, d.MetricsWindowOpen(now.Add(2*time.Hour)))
	assert.False(t, d.MetricsWindowOpen(now.Add(-2*time.Hour)))

	// An unapproved deliverable has no window at all.
	assert.False(t, (&Deliverable{}).MetricsWindowOpen(now))
}

func TestComputeEngagementRate(t *testing.T) {
	m := &MetricsRecord{Views: 1000, Likes: 80, Comments: 10, Shares: 5, Saves: 5}
	assert.InDelta(t, 0.1, m.ComputeEngagementRate(), 1e-9)

	zero := &MetricsRecord{Likes: 50}
	assert.Equal(t, float64(0), zero.ComputeEngagementRate())
}

func TestContractExpired(t *testing.T) {
	now := time.Date(2025, time.June, 10, 0, 0, 0, 0, time.UTC)
	past := now.Add(-time.Hour)
	future := now.Add(time.Hour)

	assert.True(t, ContractTerms{EndDate: &past}.Expired(now))
	assert.False(t, ContractTerms{EndDate: &future}.Expired(now))
	assert.False(t, ContractTerms{}.Expired(now))
}
