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

func TestTierFor(t *testing.T) {
	tests := []struct {
		name      string
		daysUntil int
		expected  reminderTier
	}{
		{"two days out is standard", 2, tierStandard},
		{"deadline day is standard", 0, tierStandard},
		{"six days overdue is standard", -6, tierStandard},
		{"three days out is quiet", 3, tierNone},
		{"seven days overdue escalates", -7, tierDay7},
		{"eight days overdue is the final warning", -8, tierDay8Final},
		{"nine days overdue goes quiet", -9, tierNone},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, tierFor(tt.daysUntil))
		})
	}
}

func newTestReminderScheduler(testDB *testingutil.TestDB) *ReminderScheduler {
	notifier := services.NewNotificationService(
		services.NewMockEmailProvider(),
		services.NewMockMessagingProvider(),
		"admin@example.com",
	)

	return NewReminderScheduler(
		repository.NewDeliverableRepository(testDB.DB),
		repository.NewMetricsRecordRepository(testDB.DB),
		repository.NewAuditLogRepository(testDB.DB),
		notifier,
		config.SchedulerConfig{ReminderHour: 9, ReminderMinute: 0, Timezone: "UTC"},
	)
}

// reminderTestBed creates the chain down to one deliverable in the given status.
func reminderTestBed(t *testing.T, fixtures *testingutil.TestFixtures, status models.DeliverableStatus) *models.Deliverable {
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

	return deliverable
}

func TestRunDailyReminders(t *testing.T) {
	err := testingutil.TestWithDB(func(testDB *testingutil.TestDB) error {
		sched := newTestReminderScheduler(testDB)
		fixtures := testingutil.NewTestFixtures(testDB)
		ctx := context.Background()
		now := utils.UTCNow()

		t.Run("UpcomingContentDeadlineGetsStandardReminder", func(t *testing.T) {
			deliverable := reminderTestBed(t, fixtures, models.DeliverableStatusAwaitingPublish)
			deliverable.ContentDeadline = now.Add(24 * time.Hour)
			require.NoError(t, testDB.DB.Save(deliverable).Error)

			result, err := sched.RunDailyReminders(ctx, now)
			require.NoError(t, err)
			assert.Equal(t, 1, result.Processed)
			assert.Equal(t, 1, result.Succeeded)

			var reloaded models.Deliverable
			require.NoError(t, testDB.DB.First(&reloaded, deliverable.ID).Error)
			assert.False(t, reloaded.IsLate)

			var audits int64
			require.NoError(t, testDB.DB.Model(&models.AuditLog{}).
				Where("action = ?", models.AuditActionReminderSent).
				Where("deliverable_id = ?", deliverable.ID).
				Count(&audits).Error)
			assert.Equal(t, int64(1), audits)
		})

		t.Run("SevenDaysOverdueEscalatesAndMarksLate", func(t *testing.T) {
			require.NoError(t, testDB.ClearAllTables())

			deliverable := reminderTestBed(t, fixtures, models.DeliverableStatusAwaitingPublish)
			deliverable.ContentDeadline = now.AddDate(0, 0, utils.ReminderDay7)
			require.NoError(t, testDB.DB.Save(deliverable).Error)

			result, err := sched.RunDailyReminders(ctx, now)
			require.NoError(t, err)
			assert.Equal(t, 1, result.Succeeded)

			var reloaded models.Deliverable
			require.NoError(t, testDB.DB.First(&reloaded, deliverable.ID).Error)
			assert.True(t, reloaded.IsLate)

			// Re-running the same day repeats the reminder but never unsets
			// the late flag.
			result, err = sched.RunDailyReminders(ctx, now)
			require.NoError(t, err)
			assert.Equal(t, 1, result.Succeeded)
		})

		t.Run("FarOffDeadlineStaysQuiet", func(t *testing.T) {
			require.NoError(t, testDB.ClearAllTables())

			deliverable := reminderTestBed(t, fixtures, models.DeliverableStatusAwaitingPublish)
			deliverable.ContentDeadline = now.AddDate(0, 0, 5)
			require.NoError(t, testDB.DB.Save(deliverable).Error)

			result, err := sched.RunDailyReminders(ctx, now)
			require.NoError(t, err)
			assert.Equal(t, 1, result.Processed)
			assert.Equal(t, 1, result.Skipped)
			assert.Equal(t, 0, result.Succeeded)
		})

		t.Run("MetricsWindowClosingSoonReminds", func(t *testing.T) {
			require.NoError(t, testDB.ClearAllTables())

			deliverable := reminderTestBed(t, fixtures, models.DeliverableStatusMetricsPending)
			deliverable.MetricsWindowClosesAt = utils.ToPtr(now.Add(24 * time.Hour))
			require.NoError(t, testDB.DB.Save(deliverable).Error)

			result, err := sched.RunDailyReminders(ctx, now)
			require.NoError(t, err)
			assert.Equal(t, 1, result.Processed)
			assert.Equal(t, 1, result.Succeeded)
		})

		t.Run("FullyCoveredMetricsAreSkipped", func(t *testing.T) {
			require.NoError(t, testDB.ClearAllTables())

			deliverable := reminderTestBed(t, fixtures, models.DeliverableStatusMetricsPending)
			deliverable.MetricsWindowClosesAt = utils.ToPtr(now.Add(24 * time.Hour))
			require.NoError(t, testDB.DB.Save(deliverable).Error)

			_, err := fixtures.CreateTestMetricsRecord(deliverable.ID, deliverable.CampaignID, deliverable.CreatorID, "instagram")
			require.NoError(t, err)

			result, err := sched.RunDailyReminders(ctx, now)
			require.NoError(t, err)
			assert.Equal(t, 1, result.Processed)
			assert.Equal(t, 1, result.Skipped)
			assert.Equal(t, 0, result.Succeeded)
		})

		return nil
	})
	require.NoError(t, err)
}
