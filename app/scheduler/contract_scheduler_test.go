package scheduler

import (
	"context"
	"testing"
	"time"

	"github.com/martalon/colmena/app/services"
	"github.com/martalon/colmena/config"
	"github.com/martalon/colmena/models"
	"github.com/martalon/colmena/repository"
	testingutil "github.com/martalon/colmena/testing"
	"github.com/martalon/colmena/utils"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestContractScheduler(testDB *testingutil.TestDB) *ContractScheduler {
	notifier := services.NewNotificationService(
		services.NewMockEmailProvider(),
		services.NewMockMessagingProvider(),
		"admin@example.com",
	)

	return NewContractScheduler(
		repository.NewCampaignRepository(testDB.DB),
		repository.NewApplicationRepository(testDB.DB),
		repository.NewAuditLogRepository(testDB.DB),
		notifier,
		testDB.DB,
		config.SchedulerConfig{},
	)
}

func TestReloadCampaignSlots(t *testing.T) {
	err := testingutil.TestWithDB(func(testDB *testingutil.TestDB) error {
		sched := newTestContractScheduler(testDB)
		fixtures := testingutil.NewTestFixtures(testDB)
		ctx := context.Background()
		now := utils.UTCNow()

		t.Run("DueContractGrowsSlotsAndAdvancesReloadDate", func(t *testing.T) {
			brand, err := fixtures.CreateTestBrand()
			require.NoError(t, err)
			nextReload := now.Add(-time.Hour)
			campaign, err := fixtures.CreateTestContractCampaign(brand.ID, 3, nextReload)
			require.NoError(t, err)

			result, err := sched.ReloadCampaignSlots(ctx, now)
			require.NoError(t, err)
			assert.Equal(t, 1, result.Processed)
			assert.Equal(t, 1, result.Succeeded)

			var reloaded models.Campaign
			require.NoError(t, testDB.DB.First(&reloaded, campaign.ID).Error)
			assert.Equal(t, 6, reloaded.SlotsTotalLoaded)
			assert.Equal(t, 6, reloaded.SlotsAvailable)
			assert.Equal(t, 0, reloaded.SlotsFilled)
			assert.True(t, reloaded.SlotInvariantHolds())
			require.NotNil(t, reloaded.Contract.NextReloadDate)
			assert.Equal(t, utils.AddMonthClamped(nextReload).Unix(), reloaded.Contract.NextReloadDate.Unix())

			// The advanced reload date is in the future, so the same sweep
			// selects nothing the second time around.
			result, err = sched.ReloadCampaignSlots(ctx, now)
			require.NoError(t, err)
			assert.Equal(t, 0, result.Processed)
			require.NoError(t, testDB.DB.First(&reloaded, campaign.ID).Error)
			assert.Equal(t, 6, reloaded.SlotsTotalLoaded)
		})

		t.Run("ExpiredContractDeactivatedAndHidden", func(t *testing.T) {
			require.NoError(t, testDB.ClearAllTables())

			brand, err := fixtures.CreateTestBrand()
			require.NoError(t, err)
			campaign, err := fixtures.CreateTestContractCampaign(brand.ID, 2, now.Add(-time.Hour))
			require.NoError(t, err)
			campaign.Contract.EndDate = utils.ToPtr(now.Add(-24 * time.Hour))
			require.NoError(t, testDB.DB.Save(campaign).Error)

			result, err := sched.ReloadCampaignSlots(ctx, now)
			require.NoError(t, err)
			assert.Equal(t, 1, result.Processed)
			assert.Equal(t, 1, result.Succeeded)

			var reloaded models.Campaign
			require.NoError(t, testDB.DB.First(&reloaded, campaign.ID).Error)
			assert.False(t, reloaded.Contract.IsActive)
			assert.Nil(t, reloaded.Contract.NextReloadDate)
			assert.False(t, reloaded.VisibleToCreators)
			// No slots are granted on the way out.
			assert.Equal(t, 2, reloaded.SlotsTotalLoaded)

			result, err = sched.ReloadCampaignSlots(ctx, now)
			require.NoError(t, err)
			assert.Equal(t, 0, result.Processed)
		})

		t.Run("LastReloadBeforeEndDateClearsNextReload", func(t *testing.T) {
			require.NoError(t, testDB.ClearAllTables())

			brand, err := fixtures.CreateTestBrand()
			require.NoError(t, err)
			campaign, err := fixtures.CreateTestContractCampaign(brand.ID, 4, now.Add(-time.Hour))
			require.NoError(t, err)
			// The contract ends before another monthly reload would come due.
			campaign.Contract.EndDate = utils.ToPtr(now.AddDate(0, 0, 10))
			require.NoError(t, testDB.DB.Save(campaign).Error)

			result, err := sched.ReloadCampaignSlots(ctx, now)
			require.NoError(t, err)
			assert.Equal(t, 1, result.Succeeded)

			var reloaded models.Campaign
			require.NoError(t, testDB.DB.First(&reloaded, campaign.ID).Error)
			assert.Equal(t, 8, reloaded.SlotsTotalLoaded)
			assert.True(t, reloaded.Contract.IsActive)
			assert.Nil(t, reloaded.Contract.NextReloadDate)
		})

		return nil
	})
	require.NoError(t, err)
}

func TestAutoRejectExpiredApplications(t *testing.T) {
	err := testingutil.TestWithDB(func(testDB *testingutil.TestDB) error {
		sched := newTestContractScheduler(testDB)
		fixtures := testingutil.NewTestFixtures(testDB)
		ctx := context.Background()
		now := utils.UTCNow()

		expireContract := func(t *testing.T, campaign *models.Campaign, endedDaysAgo int) {
			t.Helper()
			campaign.Contract.IsActive = false
			campaign.Contract.NextReloadDate = nil
			campaign.Contract.EndDate = utils.ToPtr(now.AddDate(0, 0, -endedDaysAgo))
			require.NoError(t, testDB.DB.Save(campaign).Error)
		}

		t.Run("PendingApplicationsRejectedPastGracePeriod", func(t *testing.T) {
			brand, err := fixtures.CreateTestBrand()
			require.NoError(t, err)
			campaign, err := fixtures.CreateTestContractCampaign(brand.ID, 2, now.AddDate(0, 1, 0))
			require.NoError(t, err)
			expireContract(t, campaign, utils.AutoRejectGraceDays+1)

			pendingCreator, err := fixtures.CreateTestCreator()
			require.NoError(t, err)
			pending, err := fixtures.CreateTestApplication(campaign.ID, pendingCreator.ID, models.ApplicationStatusApplied)
			require.NoError(t, err)

			confirmedCreator, err := fixtures.CreateTestCreator()
			require.NoError(t, err)
			confirmed, err := fixtures.CreateTestApplication(campaign.ID, confirmedCreator.ID, models.ApplicationStatusConfirmed)
			require.NoError(t, err)

			result, err := sched.AutoRejectExpiredApplications(ctx, now)
			require.NoError(t, err)
			assert.Equal(t, 1, result.Processed)
			assert.Equal(t, 1, result.Succeeded)

			var reloaded models.Application
			require.NoError(t, testDB.DB.First(&reloaded, pending.ID).Error)
			assert.Equal(t, models.ApplicationStatusRejected, reloaded.Status)
			assert.True(t, reloaded.AutoRejected)
			require.NotNil(t, reloaded.RejectionReason)
			assert.Equal(t, utils.AutoRejectReason, *reloaded.RejectionReason)
			assert.NotNil(t, reloaded.RejectedAt)

			var untouched models.Application
			require.NoError(t, testDB.DB.First(&untouched, confirmed.ID).Error)
			assert.Equal(t, models.ApplicationStatusConfirmed, untouched.Status)
			assert.False(t, untouched.AutoRejected)

			// The sticky flag keeps the second sweep away from the same row.
			result, err = sched.AutoRejectExpiredApplications(ctx, now)
			require.NoError(t, err)
			assert.Equal(t, 0, result.Processed)
		})

		t.Run("WithinGracePeriodNothingHappens", func(t *testing.T) {
			require.NoError(t, testDB.ClearAllTables())

			brand, err := fixtures.CreateTestBrand()
			require.NoError(t, err)
			campaign, err := fixtures.CreateTestContractCampaign(brand.ID, 2, now.AddDate(0, 1, 0))
			require.NoError(t, err)
			expireContract(t, campaign, utils.AutoRejectGraceDays-5)

			creator, err := fixtures.CreateTestCreator()
			require.NoError(t, err)
			pending, err := fixtures.CreateTestApplication(campaign.ID, creator.ID, models.ApplicationStatusApplied)
			require.NoError(t, err)

			result, err := sched.AutoRejectExpiredApplications(ctx, now)
			require.NoError(t, err)
			assert.Equal(t, 0, result.Processed)

			var reloaded models.Application
			require.NoError(t, testDB.DB.First(&reloaded, pending.ID).Error)
			assert.Equal(t, models.ApplicationStatusApplied, reloaded.Status)
		})

		return nil
	})
	require.NoError(t, err)
}
