package businessflow_test

import (
	"testing"
	"time"

	businessflow "github.com/martalon/colmena/business_flow"
	"github.com/martalon/colmena/models"
	testingutil "github.com/martalon/colmena/testing"
	"github.com/martalon/colmena/utils"

	"github.com/martalon/colmena/app/dto"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// deliverableTestBed creates a brand, campaign, creator and a confirmed
// application with one deliverable in the given status.
func deliverableTestBed(t *testing.T, fixtures *testingutil.TestFixtures, status models.DeliverableStatus) (*models.Brand, *models.Creator, *models.Deliverable) {
	t.Helper()

	brand, err := fixtures.CreateTestBrand()
	require.NoError(t, err)
	campaign, err := fixtures.CreateTestCampaign(brand.ID, 3)
	require.NoError(t, err)
	creator, err := fixtures.CreateTestCreator()
	require.NoError(t, err)
	application, err := fixtures.CreateTestApplication(campaign.ID, creator.ID, models.ApplicationStatusConfirmed)
	require.NoError(t, err)
	deliverable, err := fixtures.CreateTestDeliverable(application.ID, campaign.ID, creator.ID, status)
	require.NoError(t, err)

	return brand, creator, deliverable
}

func TestPublishDeliverable(t *testing.T) {
	err := testingutil.TestWithDB(func(testDB *testingutil.TestDB) error {
		flow := newDeliverableFlow(testDB)
		fixtures := testingutil.NewTestFixtures(testDB)
		ctx := testingutil.CreateTestContext()

		t.Run("OnTimePublish", func(t *testing.T) {
			_, creator, deliverable := deliverableTestBed(t, fixtures, models.DeliverableStatusAwaitingPublish)

			resp, err := flow.Publish(ctx, &dto.PublishDeliverableRequest{
				DeliverableUUID: deliverable.UUID.String(),
				CreatorID:       creator.ID,
				PostURL:         "https://instagram.com/p/abc123",
			}, testMetadata())
			require.NoError(t, err)
			assert.Equal(t, string(models.DeliverableStatusPublished), resp.Status)
			assert.True(t, resp.IsOnTime)

			var reloaded models.Deliverable
			require.NoError(t, testDB.DB.First(&reloaded, deliverable.ID).Error)
			require.NotNil(t, reloaded.PostURL)
			assert.Equal(t, "https://instagram.com/p/abc123", *reloaded.PostURL)
			require.NotNil(t, reloaded.IsOnTime)
			assert.True(t, *reloaded.IsOnTime)
			assert.False(t, reloaded.IsLate)
		})

		t.Run("LatePublishFreezesIsOnTimeFalse", func(t *testing.T) {
			_, creator, deliverable := deliverableTestBed(t, fixtures, models.DeliverableStatusAwaitingPublish)
			deliverable.ContentDeadline = utils.UTCNowAdd(-utils.DefaultDeliverySLA)
			require.NoError(t, testDB.DB.Save(deliverable).Error)

			resp, err := flow.Publish(ctx, &dto.PublishDeliverableRequest{
				DeliverableUUID: deliverable.UUID.String(),
				CreatorID:       creator.ID,
				PostURL:         "https://instagram.com/p/late",
			}, testMetadata())
			require.NoError(t, err)
			assert.False(t, resp.IsOnTime)
		})

		t.Run("RepublishAfterChangesRequested", func(t *testing.T) {
			_, creator, deliverable := deliverableTestBed(t, fixtures, models.DeliverableStatusChangesRequested)
			deliverable.PostURL = utils.ToPtr("https://instagram.com/p/first")
			deliverable.PublishedAt = utils.UTCNowAddPtr(-48 * time.Hour)
			deliverable.IsOnTime = utils.ToPtr(false)
			deliverable.ReviewRound = 1
			require.NoError(t, testDB.DB.Save(deliverable).Error)

			resp, err := flow.Publish(ctx, &dto.PublishDeliverableRequest{
				DeliverableUUID: deliverable.UUID.String(),
				CreatorID:       creator.ID,
				PostURL:         "https://instagram.com/p/rework",
			}, testMetadata())
			require.NoError(t, err)
			assert.Equal(t, string(models.DeliverableStatusPublished), resp.Status)

			// The on-time verdict stays frozen from the first publish.
			assert.False(t, resp.IsOnTime)

			var reloaded models.Deliverable
			require.NoError(t, testDB.DB.First(&reloaded, deliverable.ID).Error)
			require.NotNil(t, reloaded.PostURL)
			assert.Equal(t, "https://instagram.com/p/rework", *reloaded.PostURL)
			require.NotNil(t, reloaded.IsOnTime)
			assert.False(t, *reloaded.IsOnTime)

			submitResp, err := flow.Submit(ctx, &dto.SubmitDeliverableRequest{
				DeliverableUUID: deliverable.UUID.String(),
				CreatorID:       creator.ID,
			}, testMetadata())
			require.NoError(t, err)
			assert.Equal(t, string(models.DeliverableStatusResubmitted), submitResp.Status)
		})

		t.Run("DoublePublish", func(t *testing.T) {
			_, creator, deliverable := deliverableTestBed(t, fixtures, models.DeliverableStatusPublished)

			_, err := flow.Publish(ctx, &dto.PublishDeliverableRequest{
				DeliverableUUID: deliverable.UUID.String(),
				CreatorID:       creator.ID,
				PostURL:         "https://instagram.com/p/other",
			}, testMetadata())
			require.Error(t, err)
			assert.True(t, businessflow.IsAlreadyPublished(err))
		})

		t.Run("MissingURL", func(t *testing.T) {
			_, creator, deliverable := deliverableTestBed(t, fixtures, models.DeliverableStatusAwaitingPublish)

			_, err := flow.Publish(ctx, &dto.PublishDeliverableRequest{
				DeliverableUUID: deliverable.UUID.String(),
				CreatorID:       creator.ID,
			}, testMetadata())
			require.Error(t, err)
			assert.True(t, businessflow.IsPostURLRequired(err))
		})

		return nil
	})
	require.NoError(t, err)
}

func TestSubmitDeliverable(t *testing.T) {
	err := testingutil.TestWithDB(func(testDB *testingutil.TestDB) error {
		flow := newDeliverableFlow(testDB)
		fixtures := testingutil.NewTestFixtures(testDB)
		ctx := testingutil.CreateTestContext()

		t.Run("FirstSubmission", func(t *testing.T) {
			_, creator, deliverable := deliverableTestBed(t, fixtures, models.DeliverableStatusPublished)

			resp, err := flow.Submit(ctx, &dto.SubmitDeliverableRequest{
				DeliverableUUID: deliverable.UUID.String(),
				CreatorID:       creator.ID,
			}, testMetadata())
			require.NoError(t, err)
			assert.Equal(t, string(models.DeliverableStatusSubmitted), resp.Status)
		})

		t.Run("ResubmissionAfterChangesRequested", func(t *testing.T) {
			_, creator, deliverable := deliverableTestBed(t, fixtures, models.DeliverableStatusChangesRequested)
			deliverable.PostURL = utils.ToPtr("https://instagram.com/p/rework")
			deliverable.PublishedAt = utils.UTCNowPtr()
			require.NoError(t, testDB.DB.Save(deliverable).Error)

			resp, err := flow.Submit(ctx, &dto.SubmitDeliverableRequest{
				DeliverableUUID: deliverable.UUID.String(),
				CreatorID:       creator.ID,
			}, testMetadata())
			require.NoError(t, err)
			assert.Equal(t, string(models.DeliverableStatusResubmitted), resp.Status)
		})

		t.Run("SubmissionWithoutPublishedURL", func(t *testing.T) {
			_, creator, deliverable := deliverableTestBed(t, fixtures, models.DeliverableStatusAwaitingPublish)

			_, err := flow.Submit(ctx, &dto.SubmitDeliverableRequest{
				DeliverableUUID: deliverable.UUID.String(),
				CreatorID:       creator.ID,
			}, testMetadata())
			require.Error(t, err)
			assert.True(t, businessflow.IsNotPublished(err))
		})

		return nil
	})
	require.NoError(t, err)
}

func TestReviewDeliverable(t *testing.T) {
	err := testingutil.TestWithDB(func(testDB *testingutil.TestDB) error {
		flow := newDeliverableFlow(testDB)
		fixtures := testingutil.NewTestFixtures(testDB)
		ctx := testingutil.CreateTestContext()

		t.Run("ApprovalOpensMetricsWindow", func(t *testing.T) {
			brand, _, deliverable := deliverableTestBed(t, fixtures, models.DeliverableStatusSubmitted)

			resp, err := flow.Review(ctx, &dto.ReviewDeliverableRequest{
				DeliverableUUID: deliverable.UUID.String(),
				BrandID:         brand.ID,
				Action:          businessflow.ReviewActionApprove,
				Note:            utils.ToPtr("looks great"),
			}, testMetadata())
			require.NoError(t, err)
			assert.Equal(t, string(models.DeliverableStatusMetricsPending), resp.Status)
			require.NotNil(t, resp.MetricsWindowOpensAt)
			require.NotNil(t, resp.MetricsWindowClosesAt)
			assert.Equal(t, 14, utils.DaysUntil(*resp.MetricsWindowOpensAt, *resp.MetricsWindowClosesAt, nil))

			var reloaded models.Deliverable
			require.NoError(t, testDB.DB.First(&reloaded, deliverable.ID).Error)
			assert.NotNil(t, reloaded.ApprovedAt)
			require.Len(t, reloaded.ReviewNotes, 1)
			assert.Equal(t, businessflow.ReviewActionApprove, reloaded.ReviewNotes[0].Action)
		})

		t.Run("ChangeRequestBumpsTheRound", func(t *testing.T) {
			brand, _, deliverable := deliverableTestBed(t, fixtures, models.DeliverableStatusSubmitted)

			resp, err := flow.Review(ctx, &dto.ReviewDeliverableRequest{
				DeliverableUUID: deliverable.UUID.String(),
				BrandID:         brand.ID,
				Action:          businessflow.ReviewActionRequestChanges,
				Note:            utils.ToPtr("swap the intro"),
			}, testMetadata())
			require.NoError(t, err)
			assert.Equal(t, string(models.DeliverableStatusChangesRequested), resp.Status)
			assert.Equal(t, 1, resp.ReviewRound)

			var reloaded models.Deliverable
			require.NoError(t, testDB.DB.First(&reloaded, deliverable.ID).Error)
			assert.Equal(t, 1, reloaded.ReviewRound)
			require.Len(t, reloaded.ReviewNotes, 1)
			assert.Equal(t, "swap the intro", reloaded.ReviewNotes[0].Note)
		})

		t.Run("InvalidAction", func(t *testing.T) {
			brand, _, deliverable := deliverableTestBed(t, fixtures, models.DeliverableStatusSubmitted)

			_, err := flow.Review(ctx, &dto.ReviewDeliverableRequest{
				DeliverableUUID: deliverable.UUID.String(),
				BrandID:         brand.ID,
				Action:          "reject",
			}, testMetadata())
			require.Error(t, err)
			assert.True(t, businessflow.IsInvalidReviewAction(err))
		})

		t.Run("NotAwaitingReview", func(t *testing.T) {
			brand, _, deliverable := deliverableTestBed(t, fixtures, models.DeliverableStatusAwaitingPublish)

			_, err := flow.Review(ctx, &dto.ReviewDeliverableRequest{
				DeliverableUUID: deliverable.UUID.String(),
				BrandID:         brand.ID,
				Action:          businessflow.ReviewActionApprove,
			}, testMetadata())
			require.Error(t, err)
			assert.True(t, businessflow.IsNotAwaitingReview(err))
		})

		t.Run("ForeignBrandDenied", func(t *testing.T) {
			_, _, deliverable := deliverableTestBed(t, fixtures, models.DeliverableStatusSubmitted)
			stranger, err := fixtures.CreateTestBrand()
			require.NoError(t, err)

			_, err = flow.Review(ctx, &dto.ReviewDeliverableRequest{
				DeliverableUUID: deliverable.UUID.String(),
				BrandID:         stranger.ID,
				Action:          businessflow.ReviewActionApprove,
			}, testMetadata())
			require.Error(t, err)
			assert.True(t, businessflow.IsCampaignAccessDenied(err))
		})

		return nil
	})
	require.NoError(t, err)
}

func TestGetDeliverable(t *testing.T) {
	err := testingutil.TestWithDB(func(testDB *testingutil.TestDB) error {
		flow := newDeliverableFlow(testDB)
		fixtures := testingutil.NewTestFixtures(testDB)
		ctx := testingutil.CreateTestContext()

		_, _, deliverable := deliverableTestBed(t, fixtures, models.DeliverableStatusPublished)

		resp, err := flow.Get(ctx, &dto.GetDeliverableRequest{
			DeliverableUUID: deliverable.UUID.String(),
		}, testMetadata())
		require.NoError(t, err)
		assert.Equal(t, deliverable.UUID.String(), resp.Deliverable.UUID)
		assert.Equal(t, string(models.DeliverableStatusPublished), resp.Deliverable.Status)

		_, err = flow.Get(ctx, &dto.GetDeliverableRequest{
			DeliverableUUID: "00000000-0000-0000-0000-000000000000",
		}, testMetadata())
		require.Error(t, err)
		assert.True(t, businessflow.IsDeliverableNotFound(err))

		return nil
	})
	require.NoError(t, err)
}
