package repository

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"markethub/internal/models"
)

type ApplicationRepository struct {
	DB *sqlx.DB
}

func NewApplicationRepository(db *sqlx.DB) *ApplicationRepository {
	return &ApplicationRepository{DB: db}
}

// InsertApplication creates the application row inside an existing
// transaction. The (job_id, user_id) unique constraint is what stops two
// concurrent submissions from both landing; the service translates the
// violation.
func InsertApplication(ctx context.Context, tx *sqlx.Tx, a *models.JobApplication) error {
	row := tx.QueryRowxContext(ctx, `
		INSERT INTO job_applications (job_id, user_id, cover_letter)
		VALUES ($1, $2, $3)
		RETURNING id, created_at
	`, a.JobID, a.UserID, a.CoverLetter)
	return row.Scan(&a.ID, &a.CreatedAt)
}

// InsertAnswer stores one custom answer inside the same transaction as the
// application it belongs to. Unique per (application, question).
func InsertAnswer(ctx context.Context, tx *sqlx.Tx, ans *models.CustomAnswer) error {
	row := tx.QueryRowxContext(ctx, `
		INSERT INTO job_application_custom_answers (application_id, question_id, answer)
		VALUES ($1, $2, $3)
		RETURNING id
	`, ans.ApplicationID, ans.QuestionID, ans.Answer)
	return row.Scan(&ans.ID)
}

func (r *ApplicationRepository) ListByJob(ctx context.Context, jobID int64) ([]models.JobApplication, error) {
	var apps []models.JobApplication
	query := `
		SELECT id, job_id, user_id, cover_letter, created_at
		FROM job_applications
		WHERE job_id = $1
		ORDER BY created_at DESC
	`
	if err := r.DB.SelectContext(ctx, &apps, query, jobID); err != nil {
		return nil, err
	}
	return apps, nil
}

func (r *ApplicationRepository) ListByUser(ctx context.Context, userID int64) ([]models.JobApplication, error) {
	var apps []models.JobApplication
	query := `
		SELECT id, job_id, user_id, cover_letter, created_at
		FROM job_applications
		WHERE user_id = $1
		ORDER BY created_at DESC
	`
	if err := r.DB.SelectContext(ctx, &apps, query, userID); err != nil {
		return nil, err
	}
	return apps, nil
}

func (r *ApplicationRepository) CreateQuestion(ctx context.Context, q *models.CustomQuestion) error {
	row := r.DB.QueryRowxContext(ctx, `
		INSERT INTO job_custom_questions (job_id, question, required, position)
		VALUES ($1, $2, $3, $4)
		RETURNING id
	`, q.JobID, q.Question, q.Required, q.Position)
	if err := row.Scan(&q.ID); err != nil {
		return fmt.Errorf("ApplicationRepository.CreateQuestion: %w", err)
	}
	return nil
}

// GetQuestion fetches one custom question; used to resolve the owning job
// before a mutation.
func (r *ApplicationRepository) GetQuestion(ctx context.Context, id int64) (*models.CustomQuestion, error) {
	var q models.CustomQuestion
	query := `SELECT id, job_id, question, required, position FROM job_custom_questions WHERE id = $1`
	if err := r.DB.GetContext(ctx, &q, query, id); err != nil {
		return nil, err
	}
	return &q, nil
}

// ListQuestions returns a job's custom questions in display order.
func (r *ApplicationRepository) ListQuestions(ctx context.Context, jobID int64) ([]models.CustomQuestion, error) {
	var qs []models.CustomQuestion
	query := `
		SELECT id, job_id, question, required, position
		FROM job_custom_questions
		WHERE job_id = $1
		ORDER BY position ASC
	`
	if err := r.DB.SelectContext(ctx, &qs, query, jobID); err != nil {
		return nil, err
	}
	return qs, nil
}

func (r *ApplicationRepository) DeleteQuestion(ctx context.Context, id int64) (int64, error) {
	res, err := r.DB.ExecContext(ctx, `DELETE FROM job_custom_questions WHERE id = $1`, id)
	if err != nil {
		return 0, fmt.Errorf("ApplicationRepository.DeleteQuestion: %w", err)
	}
	return res.RowsAffected()
}
