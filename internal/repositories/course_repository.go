package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/japanesestudent/learnplayer/internal/models"
	"go.uber.org/zap"
)

type courseRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewCourseRepository creates a new course repository
func NewCourseRepository(db *sql.DB, logger *zap.Logger) *courseRepository {
	return &courseRepository{
		db:     db,
		logger: logger,
	}
}

// GetAll retrieves published courses with filtering and pagination, newest first
func (r *courseRepository) GetAll(ctx context.Context, filter models.CourseFilter) ([]models.CourseListItem, error) {
	whereClauses := []string{"c.published = TRUE"}
	args := []any{}

	if filter.Level != nil {
		whereClauses = append(whereClauses, "c.level = ?")
		args = append(args, *filter.Level)
	}

	if filter.Search != "" {
		whereClauses = append(whereClauses, "(c.title LIKE ? OR c.description LIKE ?)")
		pattern := "%" + filter.Search + "%"
		args = append(args, pattern, pattern)
	}

	// Calculate offset
	offset := (filter.Page - 1) * filter.Count

	query := fmt.Sprintf(`
		SELECT
			c.id,
			c.title,
			c.description,
			c.instructor_name,
			c.thumbnail_url,
			c.duration,
			c.level,
			c.price,
			c.rating,
			c.students_count,
			COUNT(l.id) AS total_lessons
		FROM courses c
		LEFT JOIN course_modules m ON m.course_id = c.id
		LEFT JOIN course_lessons l ON l.module_id = m.id
		WHERE %s
		GROUP BY c.id
		ORDER BY c.created_at DESC
		LIMIT ? OFFSET ?
	`, strings.Join(whereClauses, " AND "))

	args = append(args, filter.Count, offset)

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		r.logger.Error("failed to query courses", zap.Error(err))
		return nil, fmt.Errorf("failed to query courses: %w", err)
	}
	defer rows.Close()

	courses := []models.CourseListItem{}
	for rows.Next() {
		var course models.CourseListItem
		var rating sql.NullFloat64
		err := rows.Scan(
			&course.ID,
			&course.Title,
			&course.Description,
			&course.InstructorName,
			&course.ThumbnailURL,
			&course.Duration,
			&course.Level,
			&course.Price,
			&rating,
			&course.StudentsCount,
			&course.TotalLessons,
		)
		if err != nil {
			r.logger.Error("failed to scan course", zap.Error(err))
			return nil, fmt.Errorf("failed to scan course: %w", err)
		}
		if rating.Valid {
			course.Rating = &rating.Float64
		}
		courses = append(courses, course)
	}

	if err := rows.Err(); err != nil {
		r.logger.Error("error iterating rows", zap.Error(err))
		return nil, fmt.Errorf("error iterating rows: %w", err)
	}

	return courses, nil
}

// GetByID retrieves a published course by its ID
func (r *courseRepository) GetByID(ctx context.Context, id string) (*models.Course, error) {
	query := `
		SELECT id, title, description, instructor_name, thumbnail_url, duration, level,
			price, rating, students_count, published, created_at
		FROM courses
		WHERE id = ? AND published = TRUE
		LIMIT 1
	`

	var course models.Course
	var rating sql.NullFloat64
	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&course.ID,
		&course.Title,
		&course.Description,
		&course.InstructorName,
		&course.ThumbnailURL,
		&course.Duration,
		&course.Level,
		&course.Price,
		&rating,
		&course.StudentsCount,
		&course.Published,
		&course.CreatedAt,
	)

	if errors.Is(err, sql.ErrNoRows) {
		return nil, models.ErrCourseNotFound
	}
	if err != nil {
		r.logger.Error("failed to get course by id", zap.String("course_id", id), zap.Error(err))
		return nil, fmt.Errorf("failed to get course by id: %w", err)
	}
	if rating.Valid {
		course.Rating = &rating.Float64
	}

	return &course, nil
}

// GetModules retrieves the modules of a course with their lessons, both in order
func (r *courseRepository) GetModules(ctx context.Context, courseID string) ([]models.Module, error) {
	query := `
		SELECT
			m.id, m.title, m.description, m.order_index,
			l.id, l.title, l.description, l.video_url, l.duration, l.order_index
		FROM course_modules m
		LEFT JOIN course_lessons l ON l.module_id = m.id
		WHERE m.course_id = ?
		ORDER BY m.order_index, l.order_index
	`

	rows, err := r.db.QueryContext(ctx, query, courseID)
	if err != nil {
		r.logger.Error("failed to query course modules", zap.String("course_id", courseID), zap.Error(err))
		return nil, fmt.Errorf("failed to query course modules: %w", err)
	}
	defer rows.Close()

	modules := []models.Module{}
	for rows.Next() {
		var (
			module            models.Module
			lessonID          sql.NullString
			lessonTitle       sql.NullString
			lessonDescription sql.NullString
			lessonVideoURL    sql.NullString
			lessonDuration    sql.NullString
			lessonOrder       sql.NullInt64
		)
		err := rows.Scan(
			&module.ID,
			&module.Title,
			&module.Description,
			&module.OrderIndex,
			&lessonID,
			&lessonTitle,
			&lessonDescription,
			&lessonVideoURL,
			&lessonDuration,
			&lessonOrder,
		)
		if err != nil {
			r.logger.Error("failed to scan course module", zap.Error(err))
			return nil, fmt.Errorf("failed to scan course module: %w", err)
		}

		// Rows of one module are adjacent because of the ORDER BY
		if len(modules) == 0 || modules[len(modules)-1].ID != module.ID {
			module.CourseID = courseID
			module.Lessons = []models.Lesson{}
			modules = append(modules, module)
		}
		if !lessonID.Valid {
			continue
		}

		current := &modules[len(modules)-1]
		current.Lessons = append(current.Lessons, models.Lesson{
			ID:          lessonID.String,
			ModuleID:    current.ID,
			Title:       lessonTitle.String,
			Description: lessonDescription.String,
			VideoURL:    lessonVideoURL.String,
			Duration:    lessonDuration.String,
			OrderIndex:  int(lessonOrder.Int64),
		})
	}

	if err := rows.Err(); err != nil {
		r.logger.Error("error iterating rows", zap.Error(err))
		return nil, fmt.Errorf("error iterating rows: %w", err)
	}

	return modules, nil
}

// CountLessons counts the lessons of a course
func (r *courseRepository) CountLessons(ctx context.Context, courseID string) (int, error) {
	query := `
		SELECT COUNT(l.id)
		FROM course_lessons l
		INNER JOIN course_modules m ON m.id = l.module_id
		WHERE m.course_id = ?
	`

	var count int
	if err := r.db.QueryRowContext(ctx, query, courseID).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count course lessons: %w", err)
	}

	return count, nil
}

// LessonBelongsToCourse checks whether a lesson is part of a course
func (r *courseRepository) LessonBelongsToCourse(ctx context.Context, courseID, lessonID string) (bool, error) {
	query := `
		SELECT EXISTS(
			SELECT 1 FROM course_lessons l
			INNER JOIN course_modules m ON m.id = l.module_id
			WHERE m.course_id = ? AND l.id = ?
		)
	`

	var exists bool
	if err := r.db.QueryRowContext(ctx, query, courseID, lessonID).Scan(&exists); err != nil {
		return false, fmt.Errorf("failed to check lesson course: %w", err)
	}

	return exists, nil
}
