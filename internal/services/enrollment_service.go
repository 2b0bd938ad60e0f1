package services

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/japanesestudent/learnplayer/internal/models"
	"go.uber.org/zap"
)

// EnrollmentRepository is the interface that wraps methods for Enrollments table data access
type EnrollmentRepository interface {
	// Method Create inserts a new enrollment and sets its ID.
	//
	// If the learner is already enrolled in the course, models.ErrAlreadyEnrolled is returned.
	Create(ctx context.Context, enrollment *models.Enrollment) error
	// Method Get retrieves the learner's enrollment in a course.
	//
	// If the learner is not enrolled, models.ErrNotEnrolled is returned.
	Get(ctx context.Context, userID, courseID string) (*models.Enrollment, error)
	// Method Exists checks whether the learner is enrolled in a course.
	Exists(ctx context.Context, userID, courseID string) (bool, error)
	// Method ListByUser retrieves the learner's enrollments with a short course summary, most recent first.
	ListByUser(ctx context.Context, userID string) ([]models.EnrollmentListItem, error)
}

// LessonCompletionRepository is the interface that wraps methods for Lesson completions table data access
type LessonCompletionRepository interface {
	// Method Complete records that the learner completed a lesson and recomputes the course progress
	// in a single transaction.
	//
	// Recording the same lesson twice is not an error; "Created" is false for the second call,
	// but the progress is still recomputed and stored.
	// "now" is stored as the completion time when the course first reaches 100.
	// If the learner is not enrolled, models.ErrNotEnrolled is returned.
	Complete(ctx context.Context, userID, courseID, lessonID string, now time.Time) (*models.CompletionResult, error)
	// Method ListLessonIDs retrieves the IDs of the learner's completed lessons in a course.
	ListLessonIDs(ctx context.Context, userID, courseID string) ([]string, error)
}

type enrollmentService struct {
	enrollments EnrollmentRepository
	completions LessonCompletionRepository
	courses     CourseRepository
	now         func() time.Time
	logger      *zap.Logger
}

// NewEnrollmentService creates a new enrollment service
func NewEnrollmentService(enrollments EnrollmentRepository, completions LessonCompletionRepository, courses CourseRepository, logger *zap.Logger) *enrollmentService {
	return &enrollmentService{
		enrollments: enrollments,
		completions: completions,
		courses:     courses,
		now:         time.Now,
		logger:      logger,
	}
}

// Enroll enrolls the learner in a published course
func (s *enrollmentService) Enroll(ctx context.Context, learner models.Learner, courseID string) (*models.Enrollment, error) {
	if err := validateCourseID(courseID); err != nil {
		return nil, err
	}

	if _, err := s.courses.GetByID(ctx, courseID); err != nil {
		return nil, err
	}

	enrollment := &models.Enrollment{
		UserID:     learner.UserID(),
		CourseID:   courseID,
		EnrolledAt: s.now().UTC().Truncate(time.Second),
	}
	if err := s.enrollments.Create(ctx, enrollment); err != nil {
		if errors.Is(err, models.ErrAlreadyEnrolled) {
			return nil, err
		}
		s.logger.Error("failed to create enrollment", zap.String("course_id", courseID), zap.Error(err))
		return nil, fmt.Errorf("failed to enroll: %w", err)
	}

	s.logger.Info("learner enrolled",
		zap.String("user_id", enrollment.UserID),
		zap.String("course_id", courseID),
	)
	return enrollment, nil
}

// IsEnrolled reports whether the learner is enrolled in the course
func (s *enrollmentService) IsEnrolled(ctx context.Context, learner models.Learner, courseID string) (bool, error) {
	exists, err := s.enrollments.Exists(ctx, learner.UserID(), courseID)
	if err != nil {
		return false, fmt.Errorf("failed to check enrollment: %w", err)
	}
	return exists, nil
}

// GetDashboard retrieves the learner's enrollments together with aggregate figures
func (s *enrollmentService) GetDashboard(ctx context.Context, learner models.Learner) (*models.Dashboard, error) {
	items, err := s.enrollments.ListByUser(ctx, learner.UserID())
	if err != nil {
		s.logger.Error("failed to list enrollments", zap.Error(err))
		return nil, fmt.Errorf("failed to list enrollments: %w", err)
	}

	return &models.Dashboard{
		Stats:       dashboardStats(items),
		Enrollments: items,
	}, nil
}

// GetProgress retrieves the learner's progress in a course
func (s *enrollmentService) GetProgress(ctx context.Context, learner models.Learner, courseID string) (*models.CourseProgress, error) {
	if err := validateCourseID(courseID); err != nil {
		return nil, err
	}
	userID := learner.UserID()

	enrollment, err := s.enrollments.Get(ctx, userID, courseID)
	if err != nil {
		return nil, err
	}

	lessonIDs, err := s.completions.ListLessonIDs(ctx, userID, courseID)
	if err != nil {
		return nil, fmt.Errorf("failed to get completed lessons: %w", err)
	}

	total, err := s.courses.CountLessons(ctx, courseID)
	if err != nil {
		return nil, fmt.Errorf("failed to get course lessons: %w", err)
	}

	return &models.CourseProgress{
		CourseID:         courseID,
		Progress:         enrollment.Progress,
		CompletedLessons: lessonIDs,
		TotalLessons:     total,
		CompletedAt:      enrollment.CompletedAt,
	}, nil
}

// RecordProgress stores lesson progress reported by the player
//
// Only completions (percent >= 100) are stored; lower values are accepted and ignored.
// A completion recomputes the course progress as the rounded share of completed lessons
// and stamps the completion time once the course reaches 100. Repeating a completion
// recomputes the progress again, which repairs a progress left behind by an earlier failure.
func (s *enrollmentService) RecordProgress(ctx context.Context, learner models.Learner, courseID, lessonID string, percent int) error {
	if percent < 100 {
		return nil
	}
	userID := learner.UserID()

	enrolled, err := s.enrollments.Exists(ctx, userID, courseID)
	if err != nil {
		return fmt.Errorf("failed to check enrollment: %w", err)
	}
	if !enrolled {
		return models.ErrNotEnrolled
	}

	belongs, err := s.courses.LessonBelongsToCourse(ctx, courseID, lessonID)
	if err != nil {
		return fmt.Errorf("failed to check lesson: %w", err)
	}
	if !belongs {
		return fmt.Errorf("%w: %s", ErrLessonNotInCourse, lessonID)
	}

	result, err := s.completions.Complete(ctx, userID, courseID, lessonID, s.now().UTC())
	if err != nil {
		if errors.Is(err, models.ErrNotEnrolled) {
			return err
		}
		return fmt.Errorf("failed to record lesson completion: %w", err)
	}

	s.logger.Info("lesson completed",
		zap.String("user_id", userID),
		zap.String("course_id", courseID),
		zap.String("lesson_id", lessonID),
		zap.Int("course_progress", result.Progress),
		zap.Bool("first_completion", result.Created),
	)
	return nil
}

func dashboardStats(items []models.EnrollmentListItem) models.DashboardStats {
	stats := models.DashboardStats{EnrolledCourses: len(items)}
	if len(items) == 0 {
		return stats
	}

	sum := 0
	for _, item := range items {
		sum += item.Progress
		if item.CompletedAt != nil || item.Progress >= 100 {
			stats.CompletedCourses++
		}
	}
	stats.AverageProgress = int(math.Round(float64(sum) / float64(len(items))))
	return stats
}
