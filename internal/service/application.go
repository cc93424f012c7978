package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"

	"markethub/internal/auth"
	"markethub/internal/db"
	"markethub/internal/models"
	"markethub/internal/repository"
)

type ApplicationService struct {
	conn     *sqlx.DB
	apps     *repository.ApplicationRepository
	listings *repository.ListingRepository
}

func NewApplicationService(conn *sqlx.DB, apps *repository.ApplicationRepository, listings *repository.ListingRepository) *ApplicationService {
	return &ApplicationService{conn: conn, apps: apps, listings: listings}
}

type ApplyInput struct {
	CoverLetter string          `json:"cover_letter"`
	Answers     map[int64]string `json:"answers"`
}

// Apply submits an application to a published internal-application job,
// answering its custom questions in the same transaction. The (job, user)
// uniqueness constraint turns a concurrent double-submit into AlreadyApplied.
func (s *ApplicationService) Apply(ctx context.Context, identity *models.Identity, jobID int64, in ApplyInput) (*models.JobApplication, error) {
	if identity == nil {
		return nil, Forbidden(auth.ReasonAnonymous)
	}

	var job *models.Listing
	err := db.WithRetry(ctx, func(ctx context.Context) error {
		var err error
		job, err = s.listings.GetByID(ctx, models.CategoryJob, jobID)
		return err
	})
	if err != nil {
		return nil, storageErr(err, "job")
	}
	if !job.IsPublished {
		return nil, NotFound("job")
	}
	if job.ApplicationType != nil && *job.ApplicationType == models.ApplicationTypeExternal {
		return nil, Validation("application_type", "this job accepts applications through its external URL")
	}

	questions, err := s.listQuestions(ctx, jobID)
	if err != nil {
		return nil, err
	}
	known := make(map[int64]models.CustomQuestion, len(questions))
	for _, q := range questions {
		known[q.ID] = q
		if q.Required && strings.TrimSpace(in.Answers[q.ID]) == "" {
			return nil, Validation(fmt.Sprintf("answers.%d", q.ID), "answer is required")
		}
	}
	for qid := range in.Answers {
		if _, ok := known[qid]; !ok {
			return nil, Validation(fmt.Sprintf("answers.%d", qid), "question does not belong to this job")
		}
	}

	app := &models.JobApplication{
		JobID:       jobID,
		UserID:      identity.ID,
		CoverLetter: in.CoverLetter,
	}
	err = db.WithRetry(ctx, func(ctx context.Context) error {
		return db.WithTx(ctx, s.conn, func(tx *sqlx.Tx) error {
			if err := repository.InsertApplication(ctx, tx, app); err != nil {
				return err
			}
			for _, q := range questions {
				answer, ok := in.Answers[q.ID]
				if !ok || strings.TrimSpace(answer) == "" {
					continue
				}
				ans := &models.CustomAnswer{
					ApplicationID: app.ID,
					QuestionID:    q.ID,
					Answer:        answer,
				}
				if err := repository.InsertAnswer(ctx, tx, ans); err != nil {
					return err
				}
			}
			return nil
		})
	})
	if err != nil {
		if IsUniqueViolation(err) {
			return nil, Conflict("already_applied", "you have already applied to this job")
		}
		return nil, storageErr(err, "application")
	}
	return app, nil
}

// ListForJob returns a job's applications to its owner or an admin.
func (s *ApplicationService) ListForJob(ctx context.Context, identity *models.Identity, jobID int64) ([]models.JobApplication, error) {
	if identity == nil {
		return nil, Forbidden(auth.ReasonAnonymous)
	}

	var job *models.Listing
	err := db.WithRetry(ctx, func(ctx context.Context) error {
		var err error
		job, err = s.listings.GetByID(ctx, models.CategoryJob, jobID)
		return err
	})
	if err != nil {
		return nil, storageErr(err, "job")
	}
	if d := auth.CanMutateListing(identity, job.OwnerUserID); !d.Allowed {
		return nil, Forbidden(d.Reason)
	}

	var apps []models.JobApplication
	err = db.WithRetry(ctx, func(ctx context.Context) error {
		var err error
		apps, err = s.apps.ListByJob(ctx, jobID)
		return err
	})
	if err != nil {
		return nil, storageErr(err, "applications")
	}
	if apps == nil {
		apps = []models.JobApplication{}
	}
	return apps, nil
}

// Mine lists the caller's own applications.
func (s *ApplicationService) Mine(ctx context.Context, identity *models.Identity) ([]models.JobApplication, error) {
	if identity == nil {
		return nil, Forbidden(auth.ReasonAnonymous)
	}
	var apps []models.JobApplication
	err := db.WithRetry(ctx, func(ctx context.Context) error {
		var err error
		apps, err = s.apps.ListByUser(ctx, identity.ID)
		return err
	})
	if err != nil {
		return nil, storageErr(err, "applications")
	}
	if apps == nil {
		apps = []models.JobApplication{}
	}
	return apps, nil
}

// AddQuestion attaches a custom question to a job the caller may mutate.
func (s *ApplicationService) AddQuestion(ctx context.Context, identity *models.Identity, jobID int64, question string, required bool, position int) (*models.CustomQuestion, error) {
	if identity == nil {
		return nil, Forbidden(auth.ReasonAnonymous)
	}
	if strings.TrimSpace(question) == "" {
		return nil, Validation("question", "question text is required")
	}

	var job *models.Listing
	err := db.WithRetry(ctx, func(ctx context.Context) error {
		var err error
		job, err = s.listings.GetByID(ctx, models.CategoryJob, jobID)
		return err
	})
	if err != nil {
		return nil, storageErr(err, "job")
	}
	if d := auth.CanMutateListing(identity, job.OwnerUserID); !d.Allowed {
		return nil, Forbidden(d.Reason)
	}

	q := &models.CustomQuestion{
		JobID:    jobID,
		Question: strings.TrimSpace(question),
		Required: required,
		Position: position,
	}
	err = db.WithRetry(ctx, func(ctx context.Context) error {
		return s.apps.CreateQuestion(ctx, q)
	})
	if err != nil {
		return nil, storageErr(err, "question")
	}
	return q, nil
}

// Questions lists a job's custom questions; visible with the job itself.
func (s *ApplicationService) Questions(ctx context.Context, identity *models.Identity, jobID int64) ([]models.CustomQuestion, error) {
	var job *models.Listing
	err := db.WithRetry(ctx, func(ctx context.Context) error {
		var err error
		job, err = s.listings.GetByID(ctx, models.CategoryJob, jobID)
		return err
	})
	if err != nil {
		return nil, storageErr(err, "job")
	}
	if !job.IsPublished {
		if d := auth.CanMutateListing(identity, job.OwnerUserID); !d.Allowed {
			return nil, NotFound("job")
		}
	}
	return s.listQuestions(ctx, jobID)
}

// DeleteQuestion removes a question from a job the caller may mutate.
func (s *ApplicationService) DeleteQuestion(ctx context.Context, identity *models.Identity, questionID int64) error {
	if identity == nil {
		return Forbidden(auth.ReasonAnonymous)
	}

	var q *models.CustomQuestion
	err := db.WithRetry(ctx, func(ctx context.Context) error {
		var err error
		q, err = s.apps.GetQuestion(ctx, questionID)
		return err
	})
	if err != nil {
		return storageErr(err, "question")
	}

	var job *models.Listing
	err = db.WithRetry(ctx, func(ctx context.Context) error {
		var err error
		job, err = s.listings.GetByID(ctx, models.CategoryJob, q.JobID)
		return err
	})
	if err != nil {
		return storageErr(err, "job")
	}
	if d := auth.CanMutateListing(identity, job.OwnerUserID); !d.Allowed {
		return Forbidden(d.Reason)
	}

	var rows int64
	err = db.WithRetry(ctx, func(ctx context.Context) error {
		var err error
		rows, err = s.apps.DeleteQuestion(ctx, questionID)
		return err
	})
	if err != nil {
		return storageErr(err, "question")
	}
	if rows == 0 {
		return NotFound("question")
	}
	return nil
}

func (s *ApplicationService) listQuestions(ctx context.Context, jobID int64) ([]models.CustomQuestion, error) {
	var qs []models.CustomQuestion
	err := db.WithRetry(ctx, func(ctx context.Context) error {
		var err error
		qs, err = s.apps.ListQuestions(ctx, jobID)
		return err
	})
	if err != nil {
		return nil, storageErr(err, "questions")
	}
	if qs == nil {
		qs = []models.CustomQuestion{}
	}
	return qs, nil
}
