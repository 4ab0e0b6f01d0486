package repository

import (
	"context"

	"github.com/celts/celts-backend/internal/model"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

// QuestionRepository handles question data access.
type QuestionRepository struct {
	pool *pgxpool.Pool
}

// NewQuestionRepository creates a new QuestionRepository.
func NewQuestionRepository(pool *pgxpool.Pool) *QuestionRepository {
	return &QuestionRepository{pool: pool}
}

// ListByTest retrieves all questions of a test in section/order sequence.
func (r *QuestionRepository) ListByTest(ctx context.Context, testID uuid.UUID) ([]model.Question, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, test_id, section_id, skill, question_type, question_text,
		        options, correct_answer, media_url, order_num, created_at, updated_at
		 FROM questions
		 WHERE test_id = $1
		 ORDER BY section_id, order_num`, testID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var questions []model.Question
	for rows.Next() {
		var q model.Question
		if err := rows.Scan(&q.ID, &q.TestID, &q.SectionID, &q.Skill, &q.QuestionType,
			&q.QuestionText, &q.Options, &q.CorrectAnswer, &q.MediaURL, &q.OrderNum,
			&q.CreatedAt, &q.UpdatedAt); err != nil {
			return nil, err
		}
		questions = append(questions, q)
	}
	return questions, rows.Err()
}

// Create inserts a new question.
func (r *QuestionRepository) Create(ctx context.Context, q *model.Question) error {
	return r.pool.QueryRow(ctx,
		`INSERT INTO questions (test_id, section_id, skill, question_type, question_text,
		                        options, correct_answer, media_url, order_num)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		 RETURNING id, created_at, updated_at`,
		q.TestID, q.SectionID, q.Skill, q.QuestionType, q.QuestionText,
		q.Options, q.CorrectAnswer, q.MediaURL, q.OrderNum,
	).Scan(&q.ID, &q.CreatedAt, &q.UpdatedAt)
}

// DeleteByTest removes all questions of a test.
func (r *QuestionRepository) DeleteByTest(ctx context.Context, testID uuid.UUID) error {
	_, err := r.pool.Exec(ctx, `DELETE FROM questions WHERE test_id = $1`, testID)
	return err
}

// CountByTest returns the number of questions in a test.
func (r *QuestionRepository) CountByTest(ctx context.Context, testID uuid.UUID) (int, error) {
	var n int
	err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM questions WHERE test_id = $1`, testID).Scan(&n)
	return n, err
}
