package businessflow_test

import (
	"testing"
	"time"

	"github.com/martalon/colmena/app/dto"
	businessflow "github.com/martalon/colmena/business_flow"
	"github.com/martalon/colmena/models"
	testingutil "github.com/martalon/colmena/testing"
	"github.com/martalon/colmena/utils"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validCreateRequest(brandID uint) *dto.CreateCampaignRequest {
	return &dto.CreateCampaignRequest{
		BrandID:      brandID,
		Title:        "Winter Skincare Launch",
		InitialSlots: 5,
		Requirements: dto.RequirementsDTO{
			Platforms:    []string{"instagram"},
			MinFollowers: 5000,
		},
		Canje: dto.CanjeDTO{
			Description: utils.ToPtr("Full product line"),
			Value:       utils.ToPtr(uint64(300000)),
		},
		Timeline: dto.TimelineDTO{
			ApplicationsStart: utils.UTCNowPtr(),
			ApplicationsEnd:   utils.UTCNowAddPtr(14 * 24 * time.Hour),
			DeliverySLAHours:  168,
		},
	}
}

func TestCreateCampaign(t *testing.T) {
	err := testingutil.TestWithDB(func(testDB *testingutil.TestDB) error {
		flow := newCampaignFlow(testDB)
		fixtures := testingutil.NewTestFixtures(testDB)
		ctx := testingutil.CreateTestContext()

		brand, err := fixtures.CreateTestBrand()
		require.NoError(t, err)

		t.Run("DraftWithFullSlotLoad", func(t *testing.T) {
			resp, err := flow.CreateCampaign(ctx, validCreateRequest(brand.ID), testMetadata())
			require.NoError(t, err)
			assert.Equal(t, string(models.CampaignStatusDraft), resp.Status)
			assert.NotEmpty(t, resp.UUID)

			var reloaded models.Campaign
			require.NoError(t, testDB.DB.First(&reloaded, resp.ID).Error)
			assert.Equal(t, 5, reloaded.SlotsTotalLoaded)
			assert.Equal(t, 5, reloaded.SlotsAvailable)
			assert.Equal(t, 0, reloaded.SlotsFilled)
			assert.False(t, reloaded.VisibleToCreators)
			assert.True(t, reloaded.SlotInvariantHolds())
		})

		t.Run("ContractDerivesNextReloadFromStart", func(t *testing.T) {
			start := utils.UTCNow()
			req := validCreateRequest(brand.ID)
			req.Contract = &dto.ContractDTO{
				IsActive:            true,
				StartDate:           &start,
				EndDate:             utils.UTCNowAddPtr(365 * 24 * time.Hour),
				MonthlyDeliverables: 3,
			}

			resp, err := flow.CreateCampaign(ctx, req, testMetadata())
			require.NoError(t, err)

			var reloaded models.Campaign
			require.NoError(t, testDB.DB.First(&reloaded, resp.ID).Error)
			assert.True(t, reloaded.Contract.IsActive)
			require.NotNil(t, reloaded.Contract.NextReloadDate)
			assert.Equal(t, utils.AddMonthClamped(start).Unix(), reloaded.Contract.NextReloadDate.Unix())
		})

		t.Run("MissingTitle", func(t *testing.T) {
			req := validCreateRequest(brand.ID)
			req.Title = ""

			_, err := flow.CreateCampaign(ctx, req, testMetadata())
			require.Error(t, err)
			assert.True(t, businessflow.IsCampaignTitleRequired(err))
		})

		t.Run("MissingPlatforms", func(t *testing.T) {
			req := validCreateRequest(brand.ID)
			req.Requirements.Platforms = nil

			_, err := flow.CreateCampaign(ctx, req, testMetadata())
			require.Error(t, err)
			assert.True(t, businessflow.IsCampaignPlatformsRequired(err))
		})

		return nil
	})
	require.NoError(t, err)
}

func TestPublishAndCloseCampaign(t *testing.T) {
	err := testingutil.TestWithDB(func(testDB *testingutil.TestDB) error {
		flow := newCampaignFlow(testDB)
		fixtures := testingutil.NewTestFixtures(testDB)
		ctx := testingutil.CreateTestContext()

		brand, err := fixtures.CreateTestBrand()
		require.NoError(t, err)

		createResp, err := flow.CreateCampaign(ctx, validCreateRequest(brand.ID), testMetadata())
		require.NoError(t, err)

		t.Run("PublishDraft", func(t *testing.T) {
			resp, err := flow.PublishCampaign(ctx, &dto.PublishCampaignRequest{
				UUID:    createResp.UUID,
				BrandID: brand.ID,
			}, testMetadata())
			require.NoError(t, err)
			assert.Equal(t, string(models.CampaignStatusLive), resp.Status)

			var reloaded models.Campaign
			require.NoError(t, testDB.DB.First(&reloaded, createResp.ID).Error)
			assert.True(t, reloaded.VisibleToCreators)
		})

		t.Run("PublishLiveAgain", func(t *testing.T) {
			_, err := flow.PublishCampaign(ctx, &dto.PublishCampaignRequest{
				UUID:    createResp.UUID,
				BrandID: brand.ID,
			}, testMetadata())
			require.Error(t, err)
			assert.True(t, businessflow.IsInvalidStatusTransition(err))
		})

		t.Run("ForeignBrandDenied", func(t *testing.T) {
			stranger, err := fixtures.CreateTestBrand()
			require.NoError(t, err)

			_, err = flow.CloseCampaign(ctx, &dto.CloseCampaignRequest{
				UUID:    createResp.UUID,
				BrandID: stranger.ID,
			}, testMetadata())
			require.Error(t, err)
			assert.True(t, businessflow.IsCampaignAccessDenied(err))
		})

		t.Run("CloseLive", func(t *testing.T) {
			resp, err := flow.CloseCampaign(ctx, &dto.CloseCampaignRequest{
				UUID:    createResp.UUID,
				BrandID: brand.ID,
				Reason:  utils.ToPtr("budget moved"),
			}, testMetadata())
			require.NoError(t, err)
			assert.Equal(t, string(models.CampaignStatusClosed), resp.Status)

			var reloaded models.Campaign
			require.NoError(t, testDB.DB.First(&reloaded, createResp.ID).Error)
			assert.False(t, reloaded.VisibleToCreators)
		})

		return nil
	})
	require.NoError(t, err)
}

func TestGetAndListCampaigns(t *testing.T) {
	err := testingutil.TestWithDB(func(testDB *testingutil.TestDB) error {
		flow := newCampaignFlow(testDB)
		fixtures := testingutil.NewTestFixtures(testDB)
		ctx := testingutil.CreateTestContext()

		brand, err := fixtures.CreateTestBrand()
		require.NoError(t, err)

		live1, err := fixtures.CreateTestCampaign(brand.ID, 3)
		require.NoError(t, err)
		live2, err := fixtures.CreateTestCampaign(brand.ID, 2)
		require.NoError(t, err)

		// Drafts and hidden campaigns must never surface in discovery.
		draft, err := fixtures.CreateTestCampaign(brand.ID, 1)
		require.NoError(t, err)
		draft.Status = models.CampaignStatusDraft
		draft.VisibleToCreators = false
		require.NoError(t, testDB.DB.Save(draft).Error)

		hidden, err := fixtures.CreateTestCampaign(brand.ID, 1)
		require.NoError(t, err)
		hidden.VisibleToCreators = false
		require.NoError(t, testDB.DB.Save(hidden).Error)

		t.Run("GetByUUID", func(t *testing.T) {
			resp, err := flow.GetCampaign(ctx, &dto.GetCampaignRequest{UUID: live1.UUID.String()}, testMetadata())
			require.NoError(t, err)
			assert.Equal(t, live1.UUID.String(), resp.Campaign.UUID)
			assert.Equal(t, 3, resp.Campaign.Slots.Available)
		})

		t.Run("GetUnknownUUID", func(t *testing.T) {
			_, err := flow.GetCampaign(ctx, &dto.GetCampaignRequest{UUID: "00000000-0000-0000-0000-000000000000"}, testMetadata())
			require.Error(t, err)
			assert.True(t, businessflow.IsCampaignNotFound(err))
		})

		t.Run("ListOpenOnlyShowsVisibleLiveCampaigns", func(t *testing.T) {
			resp, err := flow.ListOpenCampaigns(ctx, &dto.ListOpenCampaignsRequest{Page: 1, PageSize: 20}, testMetadata())
			require.NoError(t, err)
			assert.Equal(t, int64(2), resp.Total)

			uuids := make(map[string]bool, len(resp.Campaigns))
			for _, c := range resp.Campaigns {
				uuids[c.UUID] = true
			}
			assert.True(t, uuids[live1.UUID.String()])
			assert.True(t, uuids[live2.UUID.String()])
			assert.False(t, uuids[draft.UUID.String()])
			assert.False(t, uuids[hidden.UUID.String()])
		})

		return nil
	})
	require.NoError(t, err)
}
