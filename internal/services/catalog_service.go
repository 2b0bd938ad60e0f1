package services

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/japanesestudent/learnplayer/internal/models"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

const (
	defaultPage  = 1
	defaultCount = 10
	maxCount     = 100
)

// CourseRepository is the interface that wraps methods for course data access
type CourseRepository interface {
	// Method GetAll retrieves published courses, newest first.
	//
	// "filter" holds the optional level and search filters and the pagination.
	// Page and Count must already be normalized (both positive).
	// If some error will occur during data retrieve, the error will be returned together with "nil" value.
	GetAll(ctx context.Context, filter models.CourseFilter) ([]models.CourseListItem, error)
	// Method GetByID retrieves a published course by its ID.
	//
	// If the course does not exist or is not published, models.ErrCourseNotFound is returned.
	GetByID(ctx context.Context, id string) (*models.Course, error)
	// Method GetModules retrieves the modules of a course together with their lessons.
	//
	// Modules and lessons are ordered by their order index.
	GetModules(ctx context.Context, courseID string) ([]models.Module, error)
	// Method CountLessons counts the lessons of a course.
	CountLessons(ctx context.Context, courseID string) (int, error)
	// Method LessonBelongsToCourse reports whether a lesson is part of a course.
	LessonBelongsToCourse(ctx context.Context, courseID, lessonID string) (bool, error)
}

type catalogService struct {
	repo   CourseRepository
	group  singleflight.Group
	logger *zap.Logger
}

// NewCatalogService creates a new catalog service
func NewCatalogService(repo CourseRepository, logger *zap.Logger) *catalogService {
	return &catalogService{
		repo:   repo,
		logger: logger,
	}
}

// ListCourses retrieves a page of published courses
//
// levelParam must be empty or one of "Beginner", "Intermediate", "Advanced" (case-insensitive).
// Non-positive page and count fall back to 1 and 10; count is capped at 100.
func (s *catalogService) ListCourses(ctx context.Context, levelParam, search string, page, count int) ([]models.CourseListItem, error) {
	filter := models.CourseFilter{
		Search: strings.TrimSpace(search),
		Page:   page,
		Count:  count,
	}

	if levelParam != "" {
		level, err := parseLevel(levelParam)
		if err != nil {
			return nil, err
		}
		filter.Level = &level
	}

	if filter.Page <= 0 {
		filter.Page = defaultPage
	}
	if filter.Count <= 0 {
		filter.Count = defaultCount
	}
	if filter.Count > maxCount {
		filter.Count = maxCount
	}

	courses, err := s.repo.GetAll(ctx, filter)
	if err != nil {
		s.logger.Error("failed to list courses", zap.Error(err))
		return nil, fmt.Errorf("failed to list courses: %w", err)
	}

	return courses, nil
}

// GetCourseOutline retrieves a published course with its ordered modules and lessons
//
// Concurrent requests for the same course share one database round trip.
func (s *catalogService) GetCourseOutline(ctx context.Context, courseID string) (*models.CourseOutline, error) {
	if err := validateCourseID(courseID); err != nil {
		return nil, err
	}

	// The load is shared with other callers, so it must outlive this caller's cancellation
	v, err, _ := s.group.Do(courseID, func() (any, error) {
		return s.loadOutline(context.WithoutCancel(ctx), courseID)
	})
	if err != nil {
		return nil, err
	}

	return v.(*models.CourseOutline), nil
}

// GetLessons returns the lessons of a published course in playback order
func (s *catalogService) GetLessons(ctx context.Context, courseID string) ([]models.FlatLesson, error) {
	outline, err := s.GetCourseOutline(ctx, courseID)
	if err != nil {
		return nil, err
	}

	return models.Flatten(outline.Modules), nil
}

func (s *catalogService) loadOutline(ctx context.Context, courseID string) (*models.CourseOutline, error) {
	course, err := s.repo.GetByID(ctx, courseID)
	if err != nil {
		return nil, err
	}

	modules, err := s.repo.GetModules(ctx, courseID)
	if err != nil {
		s.logger.Error("failed to get course modules", zap.String("course_id", courseID), zap.Error(err))
		return nil, fmt.Errorf("failed to get course modules: %w", err)
	}
	models.SortModules(modules)

	return &models.CourseOutline{
		Course:       *course,
		Modules:      modules,
		TotalLessons: models.CountLessons(modules),
	}, nil
}

func parseLevel(param string) (models.Level, error) {
	for _, level := range []models.Level{models.LevelBeginner, models.LevelIntermediate, models.LevelAdvanced} {
		if strings.EqualFold(param, string(level)) {
			return level, nil
		}
	}
	return "", fmt.Errorf("%w: %s", ErrInvalidLevel, param)
}

func validateCourseID(id string) error {
	if _, err := uuid.Parse(id); err != nil {
		return fmt.Errorf("%w: %s", ErrInvalidCourseID, id)
	}
	return nil
}
