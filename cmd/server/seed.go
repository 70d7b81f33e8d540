package main

import (
	"context"
	"log/slog"
	"time"

	"veriflow/internal/verification/models"
	"veriflow/internal/verification/service"
	"veriflow/internal/verification/store"
)

// seedDemoCases registers a few sample cases so dashboards aren't empty on a
// fresh install. Skipped when the store already holds cases.
func seedDemoCases(ctx context.Context, svc *service.Service, cases store.CaseStore, log *slog.Logger) error {
	stats, err := cases.Stats(ctx)
	if err != nil {
		return err
	}
	if stats.Total > 0 {
		return nil
	}

	today := time.Now().UTC().Truncate(24 * time.Hour)
	samples := []models.Intake{
		{
			FullName:          "Aisha Rahman",
			Email:             "aisha@fintech.test",
			Country:           "Estonia",
			IssuingCountry:    "Estonia",
			DocumentType:      models.DocPassport,
			DocumentNumber:    "P1234567",
			DateOfBirth:       time.Date(1994, 7, 12, 0, 0, 0, 0, time.UTC),
			DocExpiry:         today.AddDate(6, 0, 0),
			IPCountry:         "Estonia",
			DeviceOS:          "ios",
			DeviceFingerprint: "ios-seed-1",
			AttemptCount:      1,
			OnboardingChannel: models.ChannelIOS,
			SelfieQuality:     82,
		},
		{
			FullName:          "Carlos Mendez",
			Email:             "carlos@marketplace.test",
			Country:           "Mexico",
			IssuingCountry:    "Spain",
			DocumentType:      models.DocDriverLicense,
			DocumentNumber:    "DL-99812",
			DateOfBirth:       time.Date(1988, 11, 3, 0, 0, 0, 0, time.UTC),
			DocExpiry:         today.AddDate(2, 0, 0),
			IPCountry:         "United States",
			DeviceOS:          "android",
			DeviceFingerprint: "android-seed-1",
			AttemptCount:      3,
			OnboardingChannel: models.ChannelAndroid,
			SelfieQuality:     58,
		},
		{
			FullName:          "Mila Novak",
			Email:             "mila.novak@crypto.test",
			Country:           "Slovenia",
			IssuingCountry:    "Slovenia",
			DocumentType:      models.DocNationalID,
			DocumentNumber:    "ID-238999",
			DateOfBirth:       time.Date(2006, 2, 15, 0, 0, 0, 0, time.UTC),
			DocExpiry:         today.AddDate(1, 0, 0),
			IPCountry:         "Slovenia",
			DeviceOS:          "web",
			DeviceFingerprint: "web-seed-1",
			AttemptCount:      2,
			OnboardingChannel: models.ChannelWeb,
			SelfieQuality:     62,
		},
	}

	for _, in := range samples {
		c, err := svc.Register(ctx, in)
		if err != nil {
			return err
		}
		log.Info("seeded demo case", "case_id", c.ID, "full_name", c.FullName, "status", c.Status)
	}
	return nil
}
