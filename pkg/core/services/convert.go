package services

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/jakechorley/spv-planning/pkg/core/model"
	"github.com/jakechorley/spv-planning/pkg/db"
)

// convertToRoster converts stored firefighters to the roster model.
// Unknown grades and employment types are logged and fall back to defaults.
func convertToRoster(firefighters []db.Firefighter, logger *zap.Logger) (*model.Roster, error) {
	result := make([]model.Firefighter, 0, len(firefighters))

	for _, f := range firefighters {
		grade := model.GradeUnknown
		if f.Grade != "" {
			parsed, err := model.ParseGrade(f.Grade)
			if err != nil {
				logger.Warn("Unknown grade, firefighter will not satisfy grade requirements",
					zap.Int64("firefighter_id", f.ID),
					zap.String("grade", f.Grade))
			} else {
				grade = parsed
			}
		}

		employment, err := model.ParseEmploymentType(f.EmploymentType)
		if err != nil {
			logger.Warn("Unknown employment type, defaulting to volunteer",
				zap.Int64("firefighter_id", f.ID),
				zap.String("employment_type", f.EmploymentType))
			employment = model.EmploymentVolunteer
		}

		qualifications := make([]model.Qualification, len(f.Qualifications))
		for i, q := range f.Qualifications {
			qualifications[i] = model.Qualification(q)
		}

		result = append(result, model.Firefighter{
			ID:             f.ID,
			FirstName:      f.FirstName,
			LastName:       f.LastName,
			Grade:          grade,
			Type:           employment,
			Qualifications: qualifications,
			Preferences: model.Preferences{
				Slots:    toSlots(f.PreferredSlots),
				Vehicles: f.PreferredVehicles,
				Weight:   f.PreferenceWeight,
			},
		})
	}

	model.ComputeDisplayNames(result)

	roster, err := model.NewRoster(result)
	if err != nil {
		return nil, fmt.Errorf("failed to build roster: %w", err)
	}
	return roster, nil
}

// convertToAvailability converts stored availability to the availability model, skipping invalid slots
func convertToAvailability(entries []db.Availability, logger *zap.Logger) *model.Availability {
	result := make([]model.AvailabilityEntry, 0, len(entries))
	for _, a := range entries {
		slot := model.Slot(a.Slot)
		if !slot.Valid() {
			logger.Warn("Skipping availability with invalid slot",
				zap.Int64("firefighter_id", a.FirefighterID),
				zap.String("date", a.Date),
				zap.Int("slot", a.Slot))
			continue
		}
		result = append(result, model.AvailabilityEntry{
			FirefighterID: a.FirefighterID,
			Date:          a.Date,
			Slot:          slot,
			Available:     a.Available,
		})
	}
	return model.NewAvailability(result)
}

// convertToAssignmentRows converts plan assignments to run assignment rows with fresh ids
func convertToAssignmentRows(runID string, assignments []model.Assignment, newID func() string) []db.Assignment {
	rows := make([]db.Assignment, len(assignments))
	for i, a := range assignments {
		rows[i] = db.Assignment{
			ID:              newID(),
			RunID:           runID,
			Date:            a.Date,
			Slot:            int(a.Slot),
			Vehicle:         a.Vehicle,
			Role:            a.Role,
			FirefighterID:   a.FirefighterID,
			FirefighterName: a.FirefighterName,
			OnCall:          a.OnCall,
		}
	}
	return rows
}
