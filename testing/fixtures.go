// Package testing provides test utilities and database setup for testing the collaboration platform
package testing

import (
	"fmt"
	"math/rand"
	"time"

	"github.com/martalon/colmena/models"
	"github.com/martalon/colmena/utils"
)

// TestFixtures provides helper methods for creating test data
type TestFixtures struct {
	DB *TestDB
}

// NewTestFixtures creates a new test fixtures instance
func NewTestFixtures(db *TestDB) *TestFixtures {
	return &TestFixtures{DB: db}
}

// CreateTestBrand creates a test brand with a unique contact email
func (tf *TestFixtures) CreateTestBrand() (*models.Brand, error) {
	suffix := rand.Intn(10000000)

	brand := &models.Brand{
		CompanyName:  fmt.Sprintf("Test Brand %d", suffix),
		ContactEmail: fmt.Sprintf("brand.%d@example.com", suffix),
		ContactName:  utils.ToPtr("Alex Contact"),
		Website:      utils.ToPtr("https://example.com"),
		IsActive:     true,
	}

	if err := tf.DB.DB.Create(brand).Error; err != nil {
		return nil, fmt.Errorf("failed to create test brand: %w", err)
	}

	return brand, nil
}

// CreateTestCreator creates a test creator with an Instagram profile
func (tf *TestFixtures) CreateTestCreator() (*models.Creator, error) {
	suffix := rand.Intn(10000000)

	creator := &models.Creator{
		DisplayName: fmt.Sprintf("Test Creator %d", suffix),
		Email:       fmt.Sprintf("creator.%d@example.com", suffix),
		Profiles: models.SocialProfiles{
			{
				Platform:  "instagram",
				Handle:    fmt.Sprintf("@creator%d", suffix),
				Followers: 25000,
			},
		},
		IsActive: true,
	}

	if err := tf.DB.DB.Create(creator).Error; err != nil {
		return nil, fmt.Errorf("failed to create test creator: %w", err)
	}

	return creator, nil
}

// CreateTestCampaign creates a live campaign for the brand with the given slot
// capacity and an open applications window
func (tf *TestFixtures) CreateTestCampaign(brandID uint, slots int) (*models.Campaign, error) {
	now := utils.UTCNow()

	campaign := &models.Campaign{
		BrandID:          brandID,
		Title:            fmt.Sprintf("Test Campaign %d", rand.Intn(10000000)),
		Status:           models.CampaignStatusLive,
		SlotsTotalLoaded: slots,
		SlotsFilled:      0,
		SlotsAvailable:   slots,
		Requirements: models.CampaignRequirements{
			Platforms:    []string{"instagram"},
			MinFollowers: 1000,
		},
		Canje: models.CanjeSpec{
			Description: utils.ToPtr("Product box"),
			RewardValue: utils.ToPtr(uint64(500000)),
		},
		Timeline: models.CampaignTimeline{
			ApplicationsStart: utils.ToPtr(now.Add(-24 * time.Hour)),
			ApplicationsEnd:   utils.ToPtr(now.Add(14 * 24 * time.Hour)),
			DeliverySLAHours:  168,
		},
		VisibleToCreators: true,
	}

	if err := tf.DB.DB.Create(campaign).Error; err != nil {
		return nil, fmt.Errorf("failed to create test campaign: %w", err)
	}

	return campaign, nil
}

// CreateTestContractCampaign creates a live campaign backed by an active
// monthly contract whose next reload falls on nextReload
func (tf *TestFixtures) CreateTestContractCampaign(brandID uint, monthly int, nextReload time.Time) (*models.Campaign, error) {
	campaign, err := tf.CreateTestCampaign(brandID, monthly)
	if err != nil {
		return nil, err
	}

	now := utils.UTCNow()
	campaign.Contract = models.ContractTerms{
		IsActive:            true,
		StartDate:           utils.ToPtr(now.AddDate(0, -1, 0)),
		EndDate:             utils.ToPtr(now.AddDate(1, 0, 0)),
		MonthlyDeliverables: monthly,
		NextReloadDate:      &nextReload,
	}

	if err := tf.DB.DB.Save(campaign).Error; err != nil {
		return nil, fmt.Errorf("failed to attach contract to test campaign: %w", err)
	}

	return campaign, nil
}

// CreateTestApplication creates an application in the given status
func (tf *TestFixtures) CreateTestApplication(campaignID, creatorID uint, status models.ApplicationStatus) (*models.Application, error) {
	application := &models.Application{
		CampaignID: campaignID,
		CreatorID:  creatorID,
		Status:     status,
		Platform:   "instagram",
		Motivation: utils.ToPtr("I love this brand"),
	}

	if status == models.ApplicationStatusConfirmed {
		application.ConfirmedAt = utils.UTCNowPtr()
	}

	if err := tf.DB.DB.Create(application).Error; err != nil {
		return nil, fmt.Errorf("failed to create test application: %w", err)
	}

	return application, nil
}

// CreateTestDeliverable creates a deliverable for a confirmed application with
// a content deadline one week out
func (tf *TestFixtures) CreateTestDeliverable(applicationID, campaignID, creatorID uint, status models.DeliverableStatus) (*models.Deliverable, error) {
	now := utils.UTCNow()

	deliverable := &models.Deliverable{
		ApplicationID:     applicationID,
		CampaignID:        campaignID,
		CreatorID:         creatorID,
		Status:            status,
		Platform:          "instagram",
		RequiredPlatforms: []string{"instagram"},
		ContentDeadline:   now.Add(utils.DefaultDeliverySLA),
	}

	switch status {
	case models.DeliverableStatusPublished:
		deliverable.PostURL = utils.ToPtr("https://instagram.com/p/test")
		deliverable.PublishedAt = &now
		deliverable.IsOnTime = utils.ToPtr(true)
	case models.DeliverableStatusSubmitted, models.DeliverableStatusResubmitted, models.DeliverableStatusUnderReview:
		deliverable.PostURL = utils.ToPtr("https://instagram.com/p/test")
		deliverable.PublishedAt = &now
		deliverable.SubmittedAt = &now
		deliverable.IsOnTime = utils.ToPtr(true)
	case models.DeliverableStatusApproved, models.DeliverableStatusMetricsPending:
		deliverable.PostURL = utils.ToPtr("https://instagram.com/p/test")
		deliverable.PublishedAt = &now
		deliverable.SubmittedAt = &now
		deliverable.ApprovedAt = &now
		deliverable.IsOnTime = utils.ToPtr(true)
		deliverable.MetricsWindowOpensAt = &now
		deliverable.MetricsWindowClosesAt = utils.ToPtr(now.AddDate(0, 0, utils.DefaultMetricsWindowDays))
	}

	if err := tf.DB.DB.Create(deliverable).Error; err != nil {
		return nil, fmt.Errorf("failed to create test deliverable: %w", err)
	}

	return deliverable, nil
}

// CreateTestMetricsRecord creates a metrics record for one platform of a deliverable
func (tf *TestFixtures) CreateTestMetricsRecord(deliverableID, campaignID, creatorID uint, platform string) (*models.MetricsRecord, error) {
	record := &models.MetricsRecord{
		DeliverableID: deliverableID,
		CreatorID:     creatorID,
		CampaignID:    campaignID,
		Platform:      platform,
		Views:         12000,
		Likes:         800,
		Comments:      45,
		Shares:        30,
		Saves:         60,
		AIExtracted:   true,
		AIConfidence:  utils.ToPtr(0.93),
		EvidenceCount: 2,
	}

	if err := tf.DB.DB.Create(record).Error; err != nil {
		return nil, fmt.Errorf("failed to create test metrics record: %w", err)
	}

	return record, nil
}
