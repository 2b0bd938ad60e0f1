package services

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/japanesestudent/learnplayer/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// mockEnrollmentRepository is a mock implementation of EnrollmentRepository
type mockEnrollmentRepository struct {
	enrollment *models.Enrollment
	items      []models.EnrollmentListItem
	exists     bool
	created    *models.Enrollment
	err        error
	createErr  error
	getErr     error
	existsErr  error
}

func (m *mockEnrollmentRepository) Create(ctx context.Context, enrollment *models.Enrollment) error {
	if m.createErr != nil {
		return m.createErr
	}
	enrollment.ID = 1
	m.created = enrollment
	return nil
}

func (m *mockEnrollmentRepository) Get(ctx context.Context, userID, courseID string) (*models.Enrollment, error) {
	if m.getErr != nil {
		return nil, m.getErr
	}
	return m.enrollment, nil
}

func (m *mockEnrollmentRepository) Exists(ctx context.Context, userID, courseID string) (bool, error) {
	if m.existsErr != nil {
		return false, m.existsErr
	}
	return m.exists, nil
}

func (m *mockEnrollmentRepository) ListByUser(ctx context.Context, userID string) ([]models.EnrollmentListItem, error) {
	if m.err != nil {
		return nil, m.err
	}
	return m.items, nil
}

// mockLessonCompletionRepository is an in-memory implementation of LessonCompletionRepository.
// Complete holds the mutex for the whole call, the way the enrollment row lock does.
type mockLessonCompletionRepository struct {
	mu          sync.Mutex
	completed   map[string]bool
	total       int
	progress    int
	completedAt *time.Time
	calls       int
	ids         []string
	// failUpdates makes that many Complete calls fail after the lesson is stored
	failUpdates int
	completeErr error
	listErr     error
}

func (m *mockLessonCompletionRepository) Complete(ctx context.Context, userID, courseID, lessonID string, now time.Time) (*models.CompletionResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.calls++
	if m.completeErr != nil {
		return nil, m.completeErr
	}
	if m.completed == nil {
		m.completed = make(map[string]bool)
	}
	created := !m.completed[lessonID]
	m.completed[lessonID] = true

	if m.failUpdates > 0 {
		m.failUpdates--
		return nil, errors.New("lock wait timeout exceeded")
	}

	m.progress = models.ProgressPercent(len(m.completed), m.total)
	if m.completedAt == nil && m.progress >= 100 {
		m.completedAt = &now
	}
	return &models.CompletionResult{
		Created:          created,
		CompletedLessons: len(m.completed),
		TotalLessons:     m.total,
		Progress:         m.progress,
		CompletedAt:      m.completedAt,
	}, nil
}

func (m *mockLessonCompletionRepository) ListLessonIDs(ctx context.Context, userID, courseID string) ([]string, error) {
	if m.listErr != nil {
		return nil, m.listErr
	}
	return m.ids, nil
}

func testLearnerModel() models.Learner {
	return models.Learner{ID: uuid.MustParse(testLearner)}
}

func newTestEnrollmentService(enrollments *mockEnrollmentRepository, completions *mockLessonCompletionRepository, courses *mockCourseRepository) *enrollmentService {
	logger, _ := zap.NewDevelopment()
	svc := NewEnrollmentService(enrollments, completions, courses, logger)
	svc.now = func() time.Time { return time.Date(2025, 5, 1, 9, 0, 0, 0, time.UTC) }
	return svc
}

func TestEnrollmentService_Enroll(t *testing.T) {
	tests := []struct {
		name          string
		courseID      string
		enrollments   *mockEnrollmentRepository
		courses       *mockCourseRepository
		expectedError error
		expectAnyErr  bool
	}{
		{
			name:        "success",
			courseID:    testCourseID,
			enrollments: &mockEnrollmentRepository{},
			courses:     &mockCourseRepository{course: &models.Course{ID: testCourseID}},
		},
		{
			name:          "invalid course id",
			courseID:      "abc",
			enrollments:   &mockEnrollmentRepository{},
			courses:       &mockCourseRepository{},
			expectedError: ErrInvalidCourseID,
		},
		{
			name:          "course not published",
			courseID:      testCourseID,
			enrollments:   &mockEnrollmentRepository{},
			courses:       &mockCourseRepository{getByIDErr: models.ErrCourseNotFound},
			expectedError: models.ErrCourseNotFound,
		},
		{
			name:          "already enrolled",
			courseID:      testCourseID,
			enrollments:   &mockEnrollmentRepository{createErr: models.ErrAlreadyEnrolled},
			courses:       &mockCourseRepository{course: &models.Course{ID: testCourseID}},
			expectedError: models.ErrAlreadyEnrolled,
		},
		{
			name:         "repository error",
			courseID:     testCourseID,
			enrollments:  &mockEnrollmentRepository{createErr: errors.New("database error")},
			courses:      &mockCourseRepository{course: &models.Course{ID: testCourseID}},
			expectAnyErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := newTestEnrollmentService(tt.enrollments, &mockLessonCompletionRepository{}, tt.courses)
			svc.now = func() time.Time { return time.Date(2025, 5, 1, 9, 0, 0, 987654321, time.UTC) }

			enrollment, err := svc.Enroll(context.Background(), testLearnerModel(), tt.courseID)

			switch {
			case tt.expectedError != nil:
				assert.ErrorIs(t, err, tt.expectedError)
				assert.Nil(t, enrollment)
			case tt.expectAnyErr:
				assert.Error(t, err)
				assert.Nil(t, enrollment)
			default:
				require.NoError(t, err)
				assert.Equal(t, 1, enrollment.ID)
				assert.Equal(t, testLearner, enrollment.UserID)
				assert.Equal(t, testCourseID, enrollment.CourseID)
				assert.Equal(t, 0, enrollment.Progress)
				// second precision, the same as the enrolled_at column
				assert.Equal(t, time.Date(2025, 5, 1, 9, 0, 0, 0, time.UTC), enrollment.EnrolledAt)
				assert.Same(t, enrollment, tt.enrollments.created)
			}
		})
	}
}

func TestEnrollmentService_GetDashboard(t *testing.T) {
	now := time.Now()

	tests := []struct {
		name          string
		repo          *mockEnrollmentRepository
		expectedStats models.DashboardStats
		expectedError bool
	}{
		{
			name: "mixed progress",
			repo: &mockEnrollmentRepository{items: []models.EnrollmentListItem{
				{CourseID: "c1", Progress: 100, CompletedAt: &now},
				{CourseID: "c2", Progress: 33},
				{CourseID: "c3", Progress: 0},
			}},
			expectedStats: models.DashboardStats{EnrolledCourses: 3, CompletedCourses: 1, AverageProgress: 44},
		},
		{
			name:          "no enrollments",
			repo:          &mockEnrollmentRepository{items: []models.EnrollmentListItem{}},
			expectedStats: models.DashboardStats{},
		},
		{
			name:          "repository error",
			repo:          &mockEnrollmentRepository{err: errors.New("database error")},
			expectedError: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := newTestEnrollmentService(tt.repo, &mockLessonCompletionRepository{}, &mockCourseRepository{})

			dashboard, err := svc.GetDashboard(context.Background(), testLearnerModel())

			if tt.expectedError {
				assert.Error(t, err)
				assert.Nil(t, dashboard)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.expectedStats, dashboard.Stats)
			assert.Equal(t, tt.repo.items, dashboard.Enrollments)
		})
	}
}

func TestEnrollmentService_GetProgress(t *testing.T) {
	t.Run("success", func(t *testing.T) {
		enrollments := &mockEnrollmentRepository{enrollment: &models.Enrollment{CourseID: testCourseID, Progress: 67}}
		completions := &mockLessonCompletionRepository{ids: []string{"l1", "l2"}}
		svc := newTestEnrollmentService(enrollments, completions, &mockCourseRepository{lessonCount: 3})

		progress, err := svc.GetProgress(context.Background(), testLearnerModel(), testCourseID)

		require.NoError(t, err)
		assert.Equal(t, &models.CourseProgress{
			CourseID:         testCourseID,
			Progress:         67,
			CompletedLessons: []string{"l1", "l2"},
			TotalLessons:     3,
		}, progress)
	})

	t.Run("not enrolled", func(t *testing.T) {
		enrollments := &mockEnrollmentRepository{getErr: models.ErrNotEnrolled}
		svc := newTestEnrollmentService(enrollments, &mockLessonCompletionRepository{}, &mockCourseRepository{})

		progress, err := svc.GetProgress(context.Background(), testLearnerModel(), testCourseID)

		assert.ErrorIs(t, err, models.ErrNotEnrolled)
		assert.Nil(t, progress)
	})

	t.Run("completions error", func(t *testing.T) {
		enrollments := &mockEnrollmentRepository{enrollment: &models.Enrollment{}}
		completions := &mockLessonCompletionRepository{listErr: errors.New("database error")}
		svc := newTestEnrollmentService(enrollments, completions, &mockCourseRepository{})

		progress, err := svc.GetProgress(context.Background(), testLearnerModel(), testCourseID)

		assert.Error(t, err)
		assert.Nil(t, progress)
	})
}

func TestEnrollmentService_RecordProgress(t *testing.T) {
	completedAt := time.Date(2025, 5, 1, 9, 0, 0, 0, time.UTC)

	tests := []struct {
		name                string
		lessonID            string
		percent             int
		enrollments         *mockEnrollmentRepository
		completions         *mockLessonCompletionRepository
		courses             *mockCourseRepository
		expectedError       error
		expectAnyErr        bool
		expectedCalls       int
		expectedProgress    int
		expectedCompletedAt *time.Time
	}{
		{
			name:        "partial progress is ignored",
			lessonID:    "l1",
			percent:     60,
			enrollments: &mockEnrollmentRepository{exists: true},
			completions: &mockLessonCompletionRepository{total: 3},
			courses:     &mockCourseRepository{belongs: true},
		},
		{
			name:             "first lesson of three",
			lessonID:         "l1",
			percent:          100,
			enrollments:      &mockEnrollmentRepository{exists: true},
			completions:      &mockLessonCompletionRepository{total: 3},
			courses:          &mockCourseRepository{belongs: true},
			expectedCalls:    1,
			expectedProgress: 33,
		},
		{
			name:             "second lesson of three rounds up",
			lessonID:         "l2",
			percent:          100,
			enrollments:      &mockEnrollmentRepository{exists: true},
			completions:      &mockLessonCompletionRepository{total: 3, completed: map[string]bool{"l1": true}, progress: 33},
			courses:          &mockCourseRepository{belongs: true},
			expectedCalls:    1,
			expectedProgress: 67,
		},
		{
			name:                "last lesson completes the course",
			lessonID:            "l3",
			percent:             100,
			enrollments:         &mockEnrollmentRepository{exists: true},
			completions:         &mockLessonCompletionRepository{total: 3, completed: map[string]bool{"l1": true, "l2": true}, progress: 67},
			courses:             &mockCourseRepository{belongs: true},
			expectedCalls:       1,
			expectedProgress:    100,
			expectedCompletedAt: &completedAt,
		},
		{
			name:             "repeated completion keeps the progress",
			lessonID:         "l1",
			percent:          100,
			enrollments:      &mockEnrollmentRepository{exists: true},
			completions:      &mockLessonCompletionRepository{total: 3, completed: map[string]bool{"l1": true}, progress: 33},
			courses:          &mockCourseRepository{belongs: true},
			expectedCalls:    1,
			expectedProgress: 33,
		},
		{
			name:          "not enrolled",
			lessonID:      "l1",
			percent:       100,
			enrollments:   &mockEnrollmentRepository{exists: false},
			completions:   &mockLessonCompletionRepository{total: 3},
			courses:       &mockCourseRepository{belongs: true},
			expectedError: models.ErrNotEnrolled,
		},
		{
			name:          "enrollment removed before completion",
			lessonID:      "l1",
			percent:       100,
			enrollments:   &mockEnrollmentRepository{exists: true},
			completions:   &mockLessonCompletionRepository{total: 3, completeErr: models.ErrNotEnrolled},
			courses:       &mockCourseRepository{belongs: true},
			expectedError: models.ErrNotEnrolled,
		},
		{
			name:          "lesson of another course",
			lessonID:      "other",
			percent:       100,
			enrollments:   &mockEnrollmentRepository{exists: true},
			completions:   &mockLessonCompletionRepository{total: 3},
			courses:       &mockCourseRepository{belongs: false},
			expectedError: ErrLessonNotInCourse,
		},
		{
			name:         "completion store error",
			lessonID:     "l1",
			percent:      100,
			enrollments:  &mockEnrollmentRepository{exists: true},
			completions:  &mockLessonCompletionRepository{total: 3, completeErr: errors.New("database error")},
			courses:      &mockCourseRepository{belongs: true},
			expectAnyErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := newTestEnrollmentService(tt.enrollments, tt.completions, tt.courses)

			err := svc.RecordProgress(context.Background(), testLearnerModel(), testCourseID, tt.lessonID, tt.percent)

			switch {
			case tt.expectedError != nil:
				assert.ErrorIs(t, err, tt.expectedError)
			case tt.expectAnyErr:
				assert.Error(t, err)
				assert.NotErrorIs(t, err, models.ErrNotEnrolled)
			default:
				assert.NoError(t, err)
				assert.Equal(t, tt.expectedCalls, tt.completions.calls)
				assert.Equal(t, tt.expectedProgress, tt.completions.progress)
				assert.Equal(t, tt.expectedCompletedAt, tt.completions.completedAt)
			}
		})
	}
}

func TestEnrollmentService_RecordProgress_RetryAfterUpdateError(t *testing.T) {
	enrollments := &mockEnrollmentRepository{exists: true}
	completions := &mockLessonCompletionRepository{
		total:       2,
		completed:   map[string]bool{"l1": true},
		progress:    50,
		failUpdates: 1,
	}
	svc := newTestEnrollmentService(enrollments, completions, &mockCourseRepository{belongs: true})

	err := svc.RecordProgress(context.Background(), testLearnerModel(), testCourseID, "l2", 100)
	require.Error(t, err)
	// the lesson is stored but the progress was not updated
	assert.True(t, completions.completed["l2"])
	assert.Equal(t, 50, completions.progress)
	assert.Nil(t, completions.completedAt)

	err = svc.RecordProgress(context.Background(), testLearnerModel(), testCourseID, "l2", 100)
	require.NoError(t, err)

	completedAt := time.Date(2025, 5, 1, 9, 0, 0, 0, time.UTC)
	assert.Equal(t, 2, completions.calls)
	assert.Equal(t, 100, completions.progress)
	assert.Equal(t, &completedAt, completions.completedAt)
}

func TestEnrollmentService_RecordProgress_OverlappingCompletions(t *testing.T) {
	lessons := []string{"l1", "l2", "l3", "l4"}
	enrollments := &mockEnrollmentRepository{exists: true}
	completions := &mockLessonCompletionRepository{total: len(lessons)}
	svc := newTestEnrollmentService(enrollments, completions, &mockCourseRepository{belongs: true})

	var wg sync.WaitGroup
	errs := make(chan error, len(lessons))
	for _, lessonID := range lessons {
		wg.Add(1)
		go func(lessonID string) {
			defer wg.Done()
			errs <- svc.RecordProgress(context.Background(), testLearnerModel(), testCourseID, lessonID, 100)
		}(lessonID)
	}
	wg.Wait()
	close(errs)

	for err := range errs {
		require.NoError(t, err)
	}

	completedAt := time.Date(2025, 5, 1, 9, 0, 0, 0, time.UTC)
	assert.Equal(t, len(lessons), completions.calls)
	assert.Len(t, completions.completed, len(lessons))
	assert.Equal(t, 100, completions.progress)
	assert.Equal(t, &completedAt, completions.completedAt)
}
