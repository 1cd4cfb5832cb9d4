package repository

import (
	"context"

	"github.com/dgibisch/doit2-sub002/internal/task/domain"
	"github.com/dgibisch/doit2-sub002/pkg/store"
)

// ApplicationRepository defines data access for task applications.
type ApplicationRepository interface {
	Create(ctx context.Context, app *domain.Application) (string, error)
	FindByTask(ctx context.Context, taskID string) ([]*domain.Application, error)
	FindByTaskAndApplicant(ctx context.Context, taskID, applicantID string) ([]*domain.Application, error)
	UpdateStatus(ctx context.Context, id string, status domain.ApplicationStatus) error
}

type storeApplicationRepository struct {
	store store.Store
}

func NewApplicationRepository(s store.Store) ApplicationRepository {
	return &storeApplicationRepository{store: s}
}

func (r *storeApplicationRepository) Create(ctx context.Context, app *domain.Application) (string, error) {
	return r.store.Add(ctx, store.CollectionApplications, map[string]interface{}{
		"taskId":        app.TaskID,
		"applicantId":   app.ApplicantID,
		"applicantName": app.ApplicantName,
		"message":       app.Message,
		"status":        string(app.Status),
		"createdAt":     store.ServerTimestamp,
	})
}

func (r *storeApplicationRepository) FindByTask(ctx context.Context, taskID string) ([]*domain.Application, error) {
	docs, err := r.store.Query(ctx, store.CollectionApplications, store.Eq("taskId", taskID))
	if err != nil {
		return nil, err
	}
	return applicationsFromDocs(docs), nil
}

func (r *storeApplicationRepository) FindByTaskAndApplicant(ctx context.Context, taskID, applicantID string) ([]*domain.Application, error) {
	docs, err := r.store.Query(ctx, store.CollectionApplications,
		store.Eq("taskId", taskID),
		store.Eq("applicantId", applicantID),
	)
	if err != nil {
		return nil, err
	}
	return applicationsFromDocs(docs), nil
}

func (r *storeApplicationRepository) UpdateStatus(ctx context.Context, id string, status domain.ApplicationStatus) error {
	return r.store.Update(ctx, store.CollectionApplications, id, map[string]interface{}{
		"status": string(status),
	})
}

func applicationsFromDocs(docs []store.Document) []*domain.Application {
	apps := make([]*domain.Application, 0, len(docs))
	for i := range docs {
		doc := &docs[i]
		apps = append(apps, &domain.Application{
			ID:            doc.ID,
			TaskID:        store.GetString(doc.Data, "taskId"),
			ApplicantID:   store.GetString(doc.Data, "applicantId"),
			ApplicantName: store.GetString(doc.Data, "applicantName"),
			Message:       store.GetString(doc.Data, "message"),
			Status:        domain.ApplicationStatus(store.GetString(doc.Data, "status")),
			CreatedAt:     store.GetTime(doc.Data, "createdAt"),
		})
	}
	return apps
}
