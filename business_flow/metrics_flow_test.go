package businessflow_test

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/martalon/colmena/app/dto"
	"github.com/martalon/colmena/app/services"
	businessflow "github.com/martalon/colmena/business_flow"
	"github.com/martalon/colmena/models"
	testingutil "github.com/martalon/colmena/testing"
	"github.com/martalon/colmena/utils"

	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

// stubExtractor returns a canned result per evidence reference. References
// without an entry fail extraction.
type stubExtractor struct {
	results map[string]*services.ExtractionResult
}

func (s *stubExtractor) Extract(_ context.Context, evidenceRef, _ string) (*services.ExtractionResult, error) {
	result, ok := s.results[evidenceRef]
	if !ok {
		return nil, errors.New("unreadable screenshot")
	}
	return result, nil
}

func metricsTestBed(t *testing.T, fixtures *testingutil.TestFixtures, testDB *testingutil.TestDB, required pq.StringArray) (*models.Creator, *models.Deliverable) {
	t.Helper()

	brand, err := fixtures.CreateTestBrand()
	require.NoError(t, err)
	campaign, err := fixtures.CreateTestCampaign(brand.ID, 3)
	require.NoError(t, err)
	creator, err := fixtures.CreateTestCreator()
	require.NoError(t, err)
	application, err := fixtures.CreateTestApplication(campaign.ID, creator.ID, models.ApplicationStatusConfirmed)
	require.NoError(t, err)
	deliverable, err := fixtures.CreateTestDeliverable(application.ID, campaign.ID, creator.ID, models.DeliverableStatusMetricsPending)
	require.NoError(t, err)

	if required != nil {
		deliverable.RequiredPlatforms = required
		require.NoError(t, testDB.DB.Save(deliverable).Error)
	}

	return creator, deliverable
}

func TestSubmitMetrics(t *testing.T) {
	err := testingutil.TestWithDB(func(testDB *testingutil.TestDB) error {
		fixtures := testingutil.NewTestFixtures(testDB)
		ctx := testingutil.CreateTestContext()

		extractor := &stubExtractor{results: map[string]*services.ExtractionResult{
			"shot-ig-1": {Views: 12000, Likes: 800, Comments: 45, Shares: 30, Saves: 60, Confidence: utils.ToPtr(0.91)},
			"shot-ig-2": {Views: 12400, Likes: 780, Comments: 52, Shares: 28, Saves: 55, Confidence: utils.ToPtr(0.88)},
			"shot-tt-1": {Views: 40000, Likes: 2100, Comments: 130, Shares: 220, Saves: 90, Confidence: utils.ToPtr(0.95)},
		}}
		flow := newMetricsFlow(testDB, extractor)

		t.Run("PartialCoverageLeavesDeliverablePending", func(t *testing.T) {
			creator, deliverable := metricsTestBed(t, fixtures, testDB, pq.StringArray{"instagram", "tiktok"})

			resp, err := flow.SubmitMetrics(ctx, &dto.SubmitMetricsRequest{
				DeliverableUUID: deliverable.UUID.String(),
				CreatorID:       creator.ID,
				Evidence:        map[string][]string{"instagram": {"shot-ig-1"}},
			}, testMetadata())
			require.NoError(t, err)
			require.Len(t, resp.Platforms, 1)
			assert.Equal(t, "instagram", resp.Platforms[0].Platform)
			assert.False(t, resp.DeliverableCompleted)
			assert.Equal(t, string(models.DeliverableStatusMetricsPending), resp.DeliverableStatus)

			resp, err = flow.SubmitMetrics(ctx, &dto.SubmitMetricsRequest{
				DeliverableUUID: deliverable.UUID.String(),
				CreatorID:       creator.ID,
				Evidence:        map[string][]string{"tiktok": {"shot-tt-1"}},
			}, testMetadata())
			require.NoError(t, err)
			assert.True(t, resp.DeliverableCompleted)
			assert.Equal(t, string(models.DeliverableStatusCompleted), resp.DeliverableStatus)

			var reloaded models.Deliverable
			require.NoError(t, testDB.DB.First(&reloaded, deliverable.ID).Error)
			assert.Equal(t, models.DeliverableStatusCompleted, reloaded.Status)
		})

		t.Run("DuplicatePlatformRejected", func(t *testing.T) {
			creator, deliverable := metricsTestBed(t, fixtures, testDB, pq.StringArray{"instagram", "tiktok"})

			_, err := flow.SubmitMetrics(ctx, &dto.SubmitMetricsRequest{
				DeliverableUUID: deliverable.UUID.String(),
				CreatorID:       creator.ID,
				Evidence:        map[string][]string{"instagram": {"shot-ig-1"}},
			}, testMetadata())
			require.NoError(t, err)

			_, err = flow.SubmitMetrics(ctx, &dto.SubmitMetricsRequest{
				DeliverableUUID: deliverable.UUID.String(),
				CreatorID:       creator.ID,
				Evidence:        map[string][]string{"instagram": {"shot-ig-2"}},
			}, testMetadata())
			require.Error(t, err)
			assert.True(t, businessflow.IsMetricsAlreadySubmitted(err))

			var count int64
			require.NoError(t, testDB.DB.Model(&models.MetricsRecord{}).
				Where("deliverable_id = ?", deliverable.ID).Count(&count).Error)
			assert.Equal(t, int64(1), count)
		})

		t.Run("RacingDuplicateSubmissionsConflict", func(t *testing.T) {
			creator, deliverable := metricsTestBed(t, fixtures, testDB, pq.StringArray{"instagram", "tiktok"})

			// The unique index on (deliverable_id, platform) must surface as
			// gorm's duplicated-key sentinel for the flow to map it.
			first, err := fixtures.CreateTestMetricsRecord(deliverable.ID, deliverable.CampaignID, creator.ID, "tiktok")
			require.NoError(t, err)
			dup := &models.MetricsRecord{
				DeliverableID: first.DeliverableID,
				CreatorID:     first.CreatorID,
				CampaignID:    first.CampaignID,
				Platform:      first.Platform,
			}
			err = testDB.DB.Create(dup).Error
			require.Error(t, err)
			assert.True(t, errors.Is(err, gorm.ErrDuplicatedKey))

			submit := func() error {
				_, err := flow.SubmitMetrics(ctx, &dto.SubmitMetricsRequest{
					DeliverableUUID: deliverable.UUID.String(),
					CreatorID:       creator.ID,
					Evidence:        map[string][]string{"instagram": {"shot-ig-1"}},
				}, testMetadata())
				return err
			}

			var wg sync.WaitGroup
			results := make([]error, 2)
			for i := range results {
				wg.Add(1)
				go func(i int) {
					defer wg.Done()
					results[i] = submit()
				}(i)
			}
			wg.Wait()

			// Exactly one submission lands; the loser sees a conflict whether
			// it was stopped up front or by the unique index.
			winners := 0
			for _, err := range results {
				if err == nil {
					winners++
					continue
				}
				assert.True(t, businessflow.IsMetricsAlreadySubmitted(err))
			}
			assert.Equal(t, 1, winners)

			var count int64
			require.NoError(t, testDB.DB.Model(&models.MetricsRecord{}).
				Where("deliverable_id = ? AND platform = ?", deliverable.ID, "instagram").
				Count(&count).Error)
			assert.Equal(t, int64(1), count)
		})

		t.Run("MaxCounterWinsAcrossEvidenceItems", func(t *testing.T) {
			creator, deliverable := metricsTestBed(t, fixtures, testDB, nil)

			resp, err := flow.SubmitMetrics(ctx, &dto.SubmitMetricsRequest{
				DeliverableUUID: deliverable.UUID.String(),
				CreatorID:       creator.ID,
				Evidence:        map[string][]string{"instagram": {"shot-ig-1", "shot-ig-2"}},
			}, testMetadata())
			require.NoError(t, err)
			require.Len(t, resp.Platforms, 1)

			m := resp.Platforms[0]
			assert.Equal(t, uint64(12400), m.Views)
			assert.Equal(t, uint64(800), m.Likes)
			assert.Equal(t, uint64(52), m.Comments)
			assert.Equal(t, uint64(30), m.Shares)
			assert.Equal(t, uint64(60), m.Saves)
			assert.True(t, m.AIExtracted)
			require.NotNil(t, m.AIConfidence)
			assert.InDelta(t, 0.91, *m.AIConfidence, 1e-9)
			assert.Equal(t, 2, m.EvidenceCount)
		})

		t.Run("ExtractionFailureKeepsZeroedRecord", func(t *testing.T) {
			creator, deliverable := metricsTestBed(t, fixtures, testDB, nil)

			resp, err := flow.SubmitMetrics(ctx, &dto.SubmitMetricsRequest{
				DeliverableUUID: deliverable.UUID.String(),
				CreatorID:       creator.ID,
				Evidence:        map[string][]string{"instagram": {"shot-corrupt"}},
			}, testMetadata())
			require.NoError(t, err)
			require.Len(t, resp.Platforms, 1)

			m := resp.Platforms[0]
			assert.False(t, m.AIExtracted)
			assert.Equal(t, uint64(0), m.Views)
			assert.Equal(t, uint64(0), m.Likes)
			assert.Nil(t, m.AIConfidence)
		})

		t.Run("EmptyEvidenceListsDropped", func(t *testing.T) {
			creator, deliverable := metricsTestBed(t, fixtures, testDB, nil)

			_, err := flow.SubmitMetrics(ctx, &dto.SubmitMetricsRequest{
				DeliverableUUID: deliverable.UUID.String(),
				CreatorID:       creator.ID,
				Evidence:        map[string][]string{"instagram": {}, "tiktok": {}},
			}, testMetadata())
			require.Error(t, err)
			assert.True(t, businessflow.IsEvidenceRequired(err))
		})

		t.Run("WindowNotOpen", func(t *testing.T) {
			brand, err := fixtures.CreateTestBrand()
			require.NoError(t, err)
			campaign, err := fixtures.CreateTestCampaign(brand.ID, 3)
			require.NoError(t, err)
			creator, err := fixtures.CreateTestCreator()
			require.NoError(t, err)
			application, err := fixtures.CreateTestApplication(campaign.ID, creator.ID, models.ApplicationStatusConfirmed)
			require.NoError(t, err)
			deliverable, err := fixtures.CreateTestDeliverable(application.ID, campaign.ID, creator.ID, models.DeliverableStatusAwaitingPublish)
			require.NoError(t, err)

			_, err = flow.SubmitMetrics(ctx, &dto.SubmitMetricsRequest{
				DeliverableUUID: deliverable.UUID.String(),
				CreatorID:       creator.ID,
				Evidence:        map[string][]string{"instagram": {"shot-ig-1"}},
			}, testMetadata())
			require.Error(t, err)
			assert.True(t, businessflow.IsMetricsWindowNotOpen(err))
		})

		t.Run("ForeignCreatorSeesNotFound", func(t *testing.T) {
			_, deliverable := metricsTestBed(t, fixtures, testDB, nil)
			stranger, err := fixtures.CreateTestCreator()
			require.NoError(t, err)

			_, err = flow.SubmitMetrics(ctx, &dto.SubmitMetricsRequest{
				DeliverableUUID: deliverable.UUID.String(),
				CreatorID:       stranger.ID,
				Evidence:        map[string][]string{"instagram": {"shot-ig-1"}},
			}, testMetadata())
			require.Error(t, err)
			assert.True(t, businessflow.IsDeliverableNotFound(err))
		})

		return nil
	})
	require.NoError(t, err)
}
