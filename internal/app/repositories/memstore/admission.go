package memstore

import (
	"context"
	"strings"
	"time"

	"github.com/yigit/eduadmin/internal/app/models"
	"github.com/yigit/eduadmin/internal/app/repositories"
)

func cloneSettings(s models.AdmissionSettings) models.AdmissionSettings {
	s.Workflow = append([]models.WorkflowStage(nil), s.Workflow...)
	return s
}

func (q *queries) GetAdmissionSettings(_ context.Context, tenantID string) (*models.AdmissionSettings, error) {
	s, ok := q.st.settings[tenantID]
	if !ok {
		return nil, repositories.ErrNotFound
	}
	s = cloneSettings(s)
	return &s, nil
}

func (q *queries) LockAdmissionSettings(ctx context.Context, tenantID string) (*models.AdmissionSettings, error) {
	return q.GetAdmissionSettings(ctx, tenantID)
}

func (q *queries) EnsureAdmissionSettings(ctx context.Context, defaults *models.AdmissionSettings) error {
	if _, ok := q.st.settings[defaults.TenantID]; ok {
		return nil
	}
	return q.SaveAdmissionSettings(ctx, defaults)
}

func (q *queries) SaveAdmissionSettings(_ context.Context, s *models.AdmissionSettings) error {
	s.UpdatedAt = time.Now().UTC()
	q.st.settings[s.TenantID] = cloneSettings(*s)
	return nil
}

func (q *queries) CreateApplication(_ context.Context, a *models.AdmissionApplication) error {
	for _, other := range q.st.applications {
		if other.TenantID == a.TenantID && other.ApplicationNumber == a.ApplicationNumber {
			return unique(repositories.ConstraintApplicationNumber)
		}
	}
	a.ID = newID(a.ID)
	now := time.Now().UTC()
	if a.SubmittedAt.IsZero() {
		a.SubmittedAt = now
	}
	a.UpdatedAt = now
	q.st.applications[a.ID] = *a
	return nil
}

func (q *queries) GetApplication(_ context.Context, tenantID, id string) (*models.AdmissionApplication, error) {
	a, ok := q.st.applications[id]
	if !ok || a.TenantID != tenantID {
		return nil, repositories.ErrNotFound
	}
	return &a, nil
}

func (q *queries) LockApplication(ctx context.Context, tenantID, id string) (*models.AdmissionApplication, error) {
	return q.GetApplication(ctx, tenantID, id)
}

func (q *queries) ListApplications(_ context.Context, tenantID string, filter models.ApplicationFilter) ([]models.AdmissionApplication, error) {
	search := strings.ToLower(filter.Search)
	return collect(q.st.applications,
		func(a models.AdmissionApplication) bool {
			if a.TenantID != tenantID {
				return false
			}
			if filter.Status != "" && a.Status != filter.Status {
				return false
			}
			if filter.Class != "" && a.Class != filter.Class {
				return false
			}
			if search == "" {
				return true
			}
			for _, field := range []string{a.FirstName, a.LastName, a.ApplicationNumber, a.Email} {
				if strings.Contains(strings.ToLower(field), search) {
					return true
				}
			}
			return false
		},
		func(a, b models.AdmissionApplication) bool {
			if !a.SubmittedAt.Equal(b.SubmittedAt) {
				return a.SubmittedAt.After(b.SubmittedAt)
			}
			return a.ApplicationNumber > b.ApplicationNumber
		}), nil
}

func (q *queries) UpdateApplication(_ context.Context, a *models.AdmissionApplication) error {
	existing, ok := q.st.applications[a.ID]
	if !ok || existing.TenantID != a.TenantID {
		return repositories.ErrNotFound
	}
	a.ApplicationNumber = existing.ApplicationNumber
	a.SubmittedAt = existing.SubmittedAt
	a.UpdatedAt = time.Now().UTC()
	q.st.applications[a.ID] = *a
	return nil
}

func (q *queries) DeleteApplication(_ context.Context, tenantID, id string) error {
	existing, ok := q.st.applications[id]
	if !ok || existing.TenantID != tenantID {
		return repositories.ErrNotFound
	}
	delete(q.st.applications, id)
	return nil
}
