package businessflow_test

import (
	"sync"
	"testing"

	businessflow "github.com/martalon/colmena/business_flow"
	"github.com/martalon/colmena/models"
	testingutil "github.com/martalon/colmena/testing"
	"github.com/martalon/colmena/utils"

	"github.com/martalon/colmena/app/dto"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestApply(t *testing.T) {
	err := testingutil.TestWithDB(func(testDB *testingutil.TestDB) error {
		flow := newApplicationFlow(testDB)
		fixtures := testingutil.NewTestFixtures(testDB)
		ctx := testingutil.CreateTestContext()

		brand, err := fixtures.CreateTestBrand()
		require.NoError(t, err)
		campaign, err := fixtures.CreateTestCampaign(brand.ID, 2)
		require.NoError(t, err)
		creator, err := fixtures.CreateTestCreator()
		require.NoError(t, err)

		t.Run("SuccessfulApplication", func(t *testing.T) {
			resp, err := flow.Apply(ctx, &dto.ApplyRequest{
				CampaignUUID: campaign.UUID.String(),
				CreatorID:    creator.ID,
				Motivation:   utils.ToPtr("Big fan of the product"),
			}, testMetadata())
			require.NoError(t, err)
			assert.Equal(t, string(models.ApplicationStatusApplied), resp.Status)
			// No platform requested, so the campaign's first required platform wins.
			assert.Equal(t, "instagram", resp.Platform)
			assert.NotEmpty(t, resp.UUID)
		})

		t.Run("DuplicateActiveApplication", func(t *testing.T) {
			_, err := flow.Apply(ctx, &dto.ApplyRequest{
				CampaignUUID: campaign.UUID.String(),
				CreatorID:    creator.ID,
			}, testMetadata())
			require.Error(t, err)
			assert.True(t, businessflow.IsApplicationAlreadyActive(err))
		})

		t.Run("PlatformNotRequired", func(t *testing.T) {
			other, err := fixtures.CreateTestCreator()
			require.NoError(t, err)

			_, err = flow.Apply(ctx, &dto.ApplyRequest{
				CampaignUUID: campaign.UUID.String(),
				CreatorID:    other.ID,
				Platform:     utils.ToPtr("tiktok"),
			}, testMetadata())
			require.Error(t, err)
			assert.True(t, businessflow.IsPlatformNotRequired(err))
		})

		t.Run("DraftCampaignNotAccepting", func(t *testing.T) {
			draft, err := fixtures.CreateTestCampaign(brand.ID, 2)
			require.NoError(t, err)
			draft.Status = models.CampaignStatusDraft
			require.NoError(t, testDB.DB.Save(draft).Error)

			_, err = flow.Apply(ctx, &dto.ApplyRequest{
				CampaignUUID: draft.UUID.String(),
				CreatorID:    creator.ID,
			}, testMetadata())
			require.Error(t, err)
			assert.True(t, businessflow.IsCampaignNotAccepting(err))
		})

		t.Run("ApplicationsWindowClosed", func(t *testing.T) {
			closed, err := fixtures.CreateTestCampaign(brand.ID, 2)
			require.NoError(t, err)
			closed.Timeline.ApplicationsEnd = utils.UTCNowAddPtr(-utils.DefaultDeliverySLA)
			require.NoError(t, testDB.DB.Save(closed).Error)

			_, err = flow.Apply(ctx, &dto.ApplyRequest{
				CampaignUUID: closed.UUID.String(),
				CreatorID:    creator.ID,
			}, testMetadata())
			require.Error(t, err)
			assert.True(t, businessflow.IsCampaignWindowClosed(err))
		})

		return nil
	})
	require.NoError(t, err)
}

func TestConfirm(t *testing.T) {
	err := testingutil.TestWithDB(func(testDB *testingutil.TestDB) error {
		flow := newApplicationFlow(testDB)
		fixtures := testingutil.NewTestFixtures(testDB)
		ctx := testingutil.CreateTestContext()

		brand, err := fixtures.CreateTestBrand()
		require.NoError(t, err)
		campaign, err := fixtures.CreateTestCampaign(brand.ID, 1)
		require.NoError(t, err)

		first, err := fixtures.CreateTestCreator()
		require.NoError(t, err)
		second, err := fixtures.CreateTestCreator()
		require.NoError(t, err)

		firstApp, err := fixtures.CreateTestApplication(campaign.ID, first.ID, models.ApplicationStatusApplied)
		require.NoError(t, err)
		secondApp, err := fixtures.CreateTestApplication(campaign.ID, second.ID, models.ApplicationStatusApplied)
		require.NoError(t, err)

		t.Run("FirstConfirmationReservesTheSlot", func(t *testing.T) {
			resp, err := flow.Confirm(ctx, &dto.ConfirmApplicationRequest{
				ApplicationUUID: firstApp.UUID.String(),
				BrandID:         brand.ID,
			}, testMetadata())
			require.NoError(t, err)
			assert.Equal(t, string(models.ApplicationStatusConfirmed), resp.Status)
			assert.NotEmpty(t, resp.DeliverableUUID)

			var reloaded models.Campaign
			require.NoError(t, testDB.DB.First(&reloaded, campaign.ID).Error)
			assert.Equal(t, 0, reloaded.SlotsAvailable)
			assert.Equal(t, 1, reloaded.SlotsFilled)
			assert.Equal(t, models.CampaignStatusInProduction, reloaded.Status)

			// Exactly one deliverable exists for the confirmed application.
			var deliverable models.Deliverable
			require.NoError(t, testDB.DB.Where("application_id = ?", firstApp.ID).First(&deliverable).Error)
			assert.Equal(t, models.DeliverableStatusAwaitingPublish, deliverable.Status)
			assert.Equal(t, first.ID, deliverable.CreatorID)
		})

		t.Run("SecondConfirmationLosesTheRace", func(t *testing.T) {
			_, err := flow.Confirm(ctx, &dto.ConfirmApplicationRequest{
				ApplicationUUID: secondApp.UUID.String(),
				BrandID:         brand.ID,
			}, testMetadata())
			require.Error(t, err)
			assert.True(t, businessflow.IsNoSlotsAvailable(err))

			// The losing application stays pending with no deliverable behind it.
			var app models.Application
			require.NoError(t, testDB.DB.First(&app, secondApp.ID).Error)
			assert.Equal(t, models.ApplicationStatusApplied, app.Status)

			var count int64
			require.NoError(t, testDB.DB.Model(&models.Deliverable{}).Where("application_id = ?", secondApp.ID).Count(&count).Error)
			assert.Equal(t, int64(0), count)
		})

		t.Run("SimultaneousConfirmationsFillOneSlot", func(t *testing.T) {
			racedCampaign, err := fixtures.CreateTestCampaign(brand.ID, 1)
			require.NoError(t, err)

			apps := make([]*models.Application, 2)
			for i := range apps {
				creator, err := fixtures.CreateTestCreator()
				require.NoError(t, err)
				apps[i], err = fixtures.CreateTestApplication(racedCampaign.ID, creator.ID, models.ApplicationStatusApplied)
				require.NoError(t, err)
			}

			var wg sync.WaitGroup
			results := make([]error, len(apps))
			for i, app := range apps {
				wg.Add(1)
				go func(i int, uuid string) {
					defer wg.Done()
					_, results[i] = flow.Confirm(ctx, &dto.ConfirmApplicationRequest{
						ApplicationUUID: uuid,
						BrandID:         brand.ID,
					}, testMetadata())
				}(i, app.UUID.String())
			}
			wg.Wait()

			winners := 0
			for _, err := range results {
				if err == nil {
					winners++
					continue
				}
				assert.True(t, businessflow.IsNoSlotsAvailable(err))
			}
			assert.Equal(t, 1, winners)

			var reloaded models.Campaign
			require.NoError(t, testDB.DB.First(&reloaded, racedCampaign.ID).Error)
			assert.Equal(t, 0, reloaded.SlotsAvailable)
			assert.Equal(t, 1, reloaded.SlotsFilled)
			assert.True(t, reloaded.SlotInvariantHolds())

			var count int64
			require.NoError(t, testDB.DB.Model(&models.Deliverable{}).
				Where("campaign_id = ?", racedCampaign.ID).Count(&count).Error)
			assert.Equal(t, int64(1), count)
		})

		t.Run("ConfirmingAConfirmedApplication", func(t *testing.T) {
			_, err := flow.Confirm(ctx, &dto.ConfirmApplicationRequest{
				ApplicationUUID: firstApp.UUID.String(),
				BrandID:         brand.ID,
			}, testMetadata())
			require.Error(t, err)
			assert.True(t, businessflow.IsNoSlotsAvailable(err))
		})

		t.Run("ForeignBrandDenied", func(t *testing.T) {
			stranger, err := fixtures.CreateTestBrand()
			require.NoError(t, err)

			_, err = flow.Confirm(ctx, &dto.ConfirmApplicationRequest{
				ApplicationUUID: secondApp.UUID.String(),
				BrandID:         stranger.ID,
			}, testMetadata())
			require.Error(t, err)
			assert.True(t, businessflow.IsCampaignAccessDenied(err))
		})

		return nil
	})
	require.NoError(t, err)
}

func TestRejectAndCancel(t *testing.T) {
	err := testingutil.TestWithDB(func(testDB *testingutil.TestDB) error {
		flow := newApplicationFlow(testDB)
		fixtures := testingutil.NewTestFixtures(testDB)
		ctx := testingutil.CreateTestContext()

		brand, err := fixtures.CreateTestBrand()
		require.NoError(t, err)
		campaign, err := fixtures.CreateTestCampaign(brand.ID, 2)
		require.NoError(t, err)
		creator, err := fixtures.CreateTestCreator()
		require.NoError(t, err)

		t.Run("RejectWithReason", func(t *testing.T) {
			app, err := fixtures.CreateTestApplication(campaign.ID, creator.ID, models.ApplicationStatusApplied)
			require.NoError(t, err)

			resp, err := flow.Reject(ctx, &dto.RejectApplicationRequest{
				ApplicationUUID: app.UUID.String(),
				BrandID:         brand.ID,
				Reason:          utils.ToPtr("audience mismatch"),
			}, testMetadata())
			require.NoError(t, err)
			assert.Equal(t, string(models.ApplicationStatusRejected), resp.Status)

			var reloaded models.Application
			require.NoError(t, testDB.DB.First(&reloaded, app.ID).Error)
			require.NotNil(t, reloaded.RejectionReason)
			assert.Equal(t, "audience mismatch", *reloaded.RejectionReason)
			assert.False(t, reloaded.AutoRejected)
		})

		t.Run("RejectingADecidedApplication", func(t *testing.T) {
			app, err := fixtures.CreateTestApplication(campaign.ID, creator.ID, models.ApplicationStatusRejected)
			require.NoError(t, err)

			_, err = flow.Reject(ctx, &dto.RejectApplicationRequest{
				ApplicationUUID: app.UUID.String(),
				BrandID:         brand.ID,
			}, testMetadata())
			require.Error(t, err)
			assert.True(t, businessflow.IsApplicationNotPending(err))
		})

		t.Run("CancelPendingApplication", func(t *testing.T) {
			other, err := fixtures.CreateTestCreator()
			require.NoError(t, err)
			app, err := fixtures.CreateTestApplication(campaign.ID, other.ID, models.ApplicationStatusApplied)
			require.NoError(t, err)

			resp, err := flow.Cancel(ctx, &dto.CancelApplicationRequest{
				ApplicationUUID: app.UUID.String(),
				CreatorID:       other.ID,
			}, testMetadata())
			require.NoError(t, err)
			assert.Equal(t, string(models.ApplicationStatusCancelled), resp.Status)
			assert.False(t, resp.SlotsReleased)
		})

		t.Run("CancelConfirmedApplicationReleasesSlot", func(t *testing.T) {
			other, err := fixtures.CreateTestCreator()
			require.NoError(t, err)
			app, err := fixtures.CreateTestApplication(campaign.ID, other.ID, models.ApplicationStatusApplied)
			require.NoError(t, err)

			_, err = flow.Confirm(ctx, &dto.ConfirmApplicationRequest{
				ApplicationUUID: app.UUID.String(),
				BrandID:         brand.ID,
			}, testMetadata())
			require.NoError(t, err)

			var before models.Campaign
			require.NoError(t, testDB.DB.First(&before, campaign.ID).Error)

			resp, err := flow.Cancel(ctx, &dto.CancelApplicationRequest{
				ApplicationUUID: app.UUID.String(),
				CreatorID:       other.ID,
			}, testMetadata())
			require.NoError(t, err)
			assert.True(t, resp.SlotsReleased)

			var after models.Campaign
			require.NoError(t, testDB.DB.First(&after, campaign.ID).Error)
			assert.Equal(t, before.SlotsAvailable+1, after.SlotsAvailable)
			assert.Equal(t, before.SlotsFilled-1, after.SlotsFilled)
			assert.True(t, after.SlotInvariantHolds())
		})

		t.Run("CancelForeignApplication", func(t *testing.T) {
			app, err := fixtures.CreateTestApplication(campaign.ID, creator.ID, models.ApplicationStatusApplied)
			require.NoError(t, err)
			stranger, err := fixtures.CreateTestCreator()
			require.NoError(t, err)

			_, err = flow.Cancel(ctx, &dto.CancelApplicationRequest{
				ApplicationUUID: app.UUID.String(),
				CreatorID:       stranger.ID,
			}, testMetadata())
			require.Error(t, err)
			assert.True(t, businessflow.IsApplicationNotFound(err))
		})

		return nil
	})
	require.NoError(t, err)
}

func TestListForCampaign(t *testing.T) {
	err := testingutil.TestWithDB(func(testDB *testingutil.TestDB) error {
		flow := newApplicationFlow(testDB)
		fixtures := testingutil.NewTestFixtures(testDB)
		ctx := testingutil.CreateTestContext()

		brand, err := fixtures.CreateTestBrand()
		require.NoError(t, err)
		campaign, err := fixtures.CreateTestCampaign(brand.ID, 5)
		require.NoError(t, err)

		for i := 0; i < 3; i++ {
			creator, err := fixtures.CreateTestCreator()
			require.NoError(t, err)
			status := models.ApplicationStatusApplied
			if i == 0 {
				status = models.ApplicationStatusRejected
			}
			_, err = fixtures.CreateTestApplication(campaign.ID, creator.ID, status)
			require.NoError(t, err)
		}

		t.Run("AllApplications", func(t *testing.T) {
			resp, err := flow.ListForCampaign(ctx, &dto.ListApplicationsRequest{
				CampaignUUID: campaign.UUID.String(),
				BrandID:      brand.ID,
				Page:         1,
				PageSize:     20,
			}, testMetadata())
			require.NoError(t, err)
			assert.Equal(t, int64(3), resp.Total)
			assert.Len(t, resp.Applications, 3)
		})

		t.Run("StatusFilter", func(t *testing.T) {
			resp, err := flow.ListForCampaign(ctx, &dto.ListApplicationsRequest{
				CampaignUUID: campaign.UUID.String(),
				BrandID:      brand.ID,
				Status:       utils.ToPtr(string(models.ApplicationStatusApplied)),
				Page:         1,
				PageSize:     20,
			}, testMetadata())
			require.NoError(t, err)
			assert.Equal(t, int64(2), resp.Total)
		})

		t.Run("ForeignBrandDenied", func(t *testing.T) {
			stranger, err := fixtures.CreateTestBrand()
			require.NoError(t, err)

			_, err = flow.ListForCampaign(ctx, &dto.ListApplicationsRequest{
				CampaignUUID: campaign.UUID.String(),
				BrandID:      stranger.ID,
				Page:         1,
				PageSize:     20,
			}, testMetadata())
			require.Error(t, err)
			assert.True(t, businessflow.IsCampaignAccessDenied(err))
		})

		return nil
	})
	require.NoError(t, err)
}
