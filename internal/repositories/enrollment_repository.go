package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/go-sql-driver/mysql"
	"github.com/japanesestudent/learnplayer/internal/models"
)

// mysqlDuplicateEntry is the MySQL error number for unique key violations
const mysqlDuplicateEntry = 1062

type enrollmentRepository struct {
	db *sql.DB
}

// NewEnrollmentRepository creates a new enrollment repository
func NewEnrollmentRepository(db *sql.DB) *enrollmentRepository {
	return &enrollmentRepository{
		db: db,
	}
}

// Create creates a new enrollment.
// A second enrollment of the same learner in the same course returns models.ErrAlreadyEnrolled.
func (r *enrollmentRepository) Create(ctx context.Context, enrollment *models.Enrollment) error {
	query := `
		INSERT INTO enrollments (user_id, course_id, progress, enrolled_at)
		VALUES (?, ?, ?, ?)
	`

	result, err := r.db.ExecContext(ctx, query,
		enrollment.UserID,
		enrollment.CourseID,
		enrollment.Progress,
		enrollment.EnrolledAt,
	)
	if err != nil {
		var mysqlErr *mysql.MySQLError
		if errors.As(err, &mysqlErr) && mysqlErr.Number == mysqlDuplicateEntry {
			return models.ErrAlreadyEnrolled
		}
		return fmt.Errorf("failed to create enrollment: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get last insert id: %w", err)
	}

	enrollment.ID = int(id)
	return nil
}

// Get retrieves the learner's enrollment in a course
func (r *enrollmentRepository) Get(ctx context.Context, userID, courseID string) (*models.Enrollment, error) {
	query := `
		SELECT id, user_id, course_id, progress, enrolled_at, completed_at
		FROM enrollments
		WHERE user_id = ? AND course_id = ?
		LIMIT 1
	`

	var enrollment models.Enrollment
	var completedAt sql.NullTime
	err := r.db.QueryRowContext(ctx, query, userID, courseID).Scan(
		&enrollment.ID,
		&enrollment.UserID,
		&enrollment.CourseID,
		&enrollment.Progress,
		&enrollment.EnrolledAt,
		&completedAt,
	)

	if errors.Is(err, sql.ErrNoRows) {
		return nil, models.ErrNotEnrolled
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get enrollment: %w", err)
	}
	if completedAt.Valid {
		enrollment.CompletedAt = &completedAt.Time
	}

	return &enrollment, nil
}

// Exists checks if the learner is enrolled in a course
func (r *enrollmentRepository) Exists(ctx context.Context, userID, courseID string) (bool, error) {
	query := `SELECT EXISTS(SELECT 1 FROM enrollments WHERE user_id = ? AND course_id = ?)`

	var exists bool
	err := r.db.QueryRowContext(ctx, query, userID, courseID).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to check enrollment existence: %w", err)
	}

	return exists, nil
}

// ListByUser retrieves the learner's enrollments with a course summary, most recent first
func (r *enrollmentRepository) ListByUser(ctx context.Context, userID string) ([]models.EnrollmentListItem, error) {
	query := `
		SELECT
			c.id,
			c.title,
			c.description,
			c.thumbnail_url,
			c.instructor_name,
			c.duration,
			c.level,
			e.progress,
			e.enrolled_at,
			e.completed_at
		FROM enrollments e
		INNER JOIN courses c ON c.id = e.course_id
		WHERE e.user_id = ?
		ORDER BY e.enrolled_at DESC
	`

	rows, err := r.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to query enrollments: %w", err)
	}
	defer rows.Close()

	items := []models.EnrollmentListItem{}
	for rows.Next() {
		var item models.EnrollmentListItem
		var completedAt sql.NullTime
		err := rows.Scan(
			&item.CourseID,
			&item.Title,
			&item.Description,
			&item.ThumbnailURL,
			&item.InstructorName,
			&item.Duration,
			&item.Level,
			&item.Progress,
			&item.EnrolledAt,
			&completedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan enrollment: %w", err)
		}
		if completedAt.Valid {
			item.CompletedAt = &completedAt.Time
		}
		items = append(items, item)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rows: %w", err)
	}

	return items, nil
}
