package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/japanesestudent/learnplayer/internal/models"
)

type lessonCompletionRepository struct {
	db *sql.DB
}

// NewLessonCompletionRepository creates a new lesson completion repository
func NewLessonCompletionRepository(db *sql.DB) *lessonCompletionRepository {
	return &lessonCompletionRepository{
		db: db,
	}
}

// Complete records a lesson completion and recomputes the course progress in one transaction.
//
// The enrollment row is locked before anything else, so completions of one learner in one
// course are applied one after another and each sees the ones committed before it.
// Progress is recomputed even when the lesson was already recorded.
// completed_at is stamped once, when progress first reaches 100.
// If the learner is not enrolled, models.ErrNotEnrolled is returned.
func (r *lessonCompletionRepository) Complete(ctx context.Context, userID, courseID, lessonID string, now time.Time) (*models.CompletionResult, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	var completedAt sql.NullTime
	err = tx.QueryRowContext(ctx, `
		SELECT completed_at
		FROM enrollments
		WHERE user_id = ? AND course_id = ?
		FOR UPDATE
	`, userID, courseID).Scan(&completedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, models.ErrNotEnrolled
	}
	if err != nil {
		return nil, fmt.Errorf("failed to lock enrollment: %w", err)
	}

	insertResult, err := tx.ExecContext(ctx, `
		INSERT IGNORE INTO lesson_completions (user_id, course_id, lesson_id)
		VALUES (?, ?, ?)
	`, userID, courseID, lessonID)
	if err != nil {
		return nil, fmt.Errorf("failed to create lesson completion: %w", err)
	}
	rowsAffected, err := insertResult.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("failed to get rows affected: %w", err)
	}

	// Only completed lessons that are still part of the course count
	result := &models.CompletionResult{Created: rowsAffected > 0}
	err = tx.QueryRowContext(ctx, `
		SELECT
			(SELECT COUNT(DISTINCT lc.lesson_id)
				FROM lesson_completions lc
				INNER JOIN course_lessons l ON l.id = lc.lesson_id
				INNER JOIN course_modules m ON m.id = l.module_id
				WHERE lc.user_id = ? AND lc.course_id = ? AND m.course_id = ?),
			(SELECT COUNT(l.id)
				FROM course_lessons l
				INNER JOIN course_modules m ON m.id = l.module_id
				WHERE m.course_id = ?)
	`, userID, courseID, courseID, courseID).Scan(&result.CompletedLessons, &result.TotalLessons)
	if err != nil {
		return nil, fmt.Errorf("failed to count completed lessons: %w", err)
	}

	result.Progress = models.ProgressPercent(result.CompletedLessons, result.TotalLessons)
	if !completedAt.Valid && result.Progress >= 100 {
		completedAt = sql.NullTime{Time: now, Valid: true}
	}

	_, err = tx.ExecContext(ctx, `
		UPDATE enrollments
		SET progress = ?, completed_at = ?
		WHERE user_id = ? AND course_id = ?
	`, result.Progress, completedAt, userID, courseID)
	if err != nil {
		return nil, fmt.Errorf("failed to update enrollment progress: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}

	if completedAt.Valid {
		result.CompletedAt = &completedAt.Time
	}
	return result, nil
}

// ListLessonIDs retrieves the IDs of the learner's completed lessons in a course
func (r *lessonCompletionRepository) ListLessonIDs(ctx context.Context, userID, courseID string) ([]string, error) {
	query := `
		SELECT lesson_id
		FROM lesson_completions
		WHERE user_id = ? AND course_id = ?
		ORDER BY completed_at, id
	`

	rows, err := r.db.QueryContext(ctx, query, userID, courseID)
	if err != nil {
		return nil, fmt.Errorf("failed to query lesson completions: %w", err)
	}
	defer rows.Close()

	ids := []string{}
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan lesson completion: %w", err)
		}
		ids = append(ids, id)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rows: %w", err)
	}

	return ids, nil
}
