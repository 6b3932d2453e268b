package pipeline

import (
	"fmt"
	"strings"

	"server/internal/domain"
)

const maxAchievementsPerEntry = 20

// ValidateDraft checks a submitted draft in full before anything is
// persisted. It returns the first violation as a *domain.ValidationError
// with a field-qualified message.
func ValidateDraft(d *domain.Draft) error {
	if d == nil {
		return domain.NewValidationError("draft", "draft is required")
	}
	if strings.TrimSpace(d.Profile.FullName) == "" {
		return domain.NewValidationError("full_name", "full name is required")
	}

	for i, exp := range d.Experience {
		field := fmt.Sprintf("experience entry %d", i+1)
		if strings.TrimSpace(exp.Company) == "" {
			return domain.NewValidationError(field, "company is required")
		}
		if strings.TrimSpace(exp.Position) == "" {
			return domain.NewValidationError(field, "position is required")
		}
		if len(exp.Achievements) > maxAchievementsPerEntry {
			return domain.NewValidationError(field, "at most %d achievements allowed, got %d", maxAchievementsPerEntry, len(exp.Achievements))
		}
	}

	for i, proj := range d.Projects {
		field := fmt.Sprintf("project entry %d", i+1)
		if strings.TrimSpace(proj.Name) == "" {
			return domain.NewValidationError(field, "name is required")
		}
		if strings.TrimSpace(proj.Description) == "" {
			return domain.NewValidationError(field, "description is required")
		}
	}

	return nil
}
