package businessflow_test

import (
	"github.com/martalon/colmena/app/services"
	businessflow "github.com/martalon/colmena/business_flow"
	"github.com/martalon/colmena/config"
	"github.com/martalon/colmena/repository"
	testingutil "github.com/martalon/colmena/testing"
)

func testNotifier() services.NotificationService {
	return services.NewNotificationService(
		services.NewMockEmailProvider(),
		services.NewMockMessagingProvider(),
		"admin@example.com",
	)
}

func testMetadata() *businessflow.ClientMetadata {
	return businessflow.NewClientMetadata("127.0.0.1", "Test User Agent")
}

func newCampaignFlow(testDB *testingutil.TestDB) businessflow.CampaignFlow {
	return businessflow.NewCampaignFlow(
		repository.NewCampaignRepository(testDB.DB),
		repository.NewBrandRepository(testDB.DB),
		repository.NewAuditLogRepository(testDB.DB),
		testDB.DB,
		nil,
		testNotifier(),
		&config.CacheConfig{Enabled: false},
	)
}

func newApplicationFlow(testDB *testingutil.TestDB) businessflow.ApplicationFlow {
	return businessflow.NewApplicationFlow(
		repository.NewApplicationRepository(testDB.DB),
		repository.NewCampaignRepository(testDB.DB),
		repository.NewCreatorRepository(testDB.DB),
		repository.NewBrandRepository(testDB.DB),
		repository.NewDeliverableRepository(testDB.DB),
		repository.NewAuditLogRepository(testDB.DB),
		testDB.DB,
		testNotifier(),
	)
}

func newDeliverableFlow(testDB *testingutil.TestDB) businessflow.DeliverableFlow {
	return businessflow.NewDeliverableFlow(
		repository.NewDeliverableRepository(testDB.DB),
		repository.NewCampaignRepository(testDB.DB),
		repository.NewCreatorRepository(testDB.DB),
		repository.NewBrandRepository(testDB.DB),
		repository.NewAuditLogRepository(testDB.DB),
		testDB.DB,
		testNotifier(),
		config.SchedulerConfig{MetricsWindowDays: 14},
	)
}

func newMetricsFlow(testDB *testingutil.TestDB, extractor services.AIExtractionClient) businessflow.MetricsFlow {
	return businessflow.NewMetricsFlow(
		repository.NewMetricsRecordRepository(testDB.DB),
		repository.NewDeliverableRepository(testDB.DB),
		repository.NewCreatorRepository(testDB.DB),
		repository.NewAuditLogRepository(testDB.DB),
		testDB.DB,
		extractor,
	)
}
