package models

import (
	"math"
	"time"
)

// Enrollment represents a learner's enrollment in a course
type Enrollment struct {
	ID          int        `json:"id"`
	UserID      string     `json:"userId"`
	CourseID    string     `json:"courseId"`
	Progress    int        `json:"progress"`
	EnrolledAt  time.Time  `json:"enrolledAt"`
	CompletedAt *time.Time `json:"completedAt,omitempty"`
}

// EnrollmentListItem represents an enrollment with a short course summary (learner dashboard)
type EnrollmentListItem struct {
	CourseID       string     `json:"courseId"`
	Title          string     `json:"title"`
	Description    string     `json:"description"`
	ThumbnailURL   string     `json:"thumbnailUrl,omitempty"`
	InstructorName string     `json:"instructorName"`
	Duration       string     `json:"duration"`
	Level          Level      `json:"level"`
	Progress       int        `json:"progress"`
	EnrolledAt     time.Time  `json:"enrolledAt"`
	CompletedAt    *time.Time `json:"completedAt,omitempty"`
}

// DashboardStats are the learner's aggregate figures
type DashboardStats struct {
	EnrolledCourses  int `json:"enrolledCourses"`
	CompletedCourses int `json:"completedCourses"`
	AverageProgress  int `json:"averageProgress"`
}

// Dashboard is the learner dashboard response
type Dashboard struct {
	Stats       DashboardStats       `json:"stats"`
	Enrollments []EnrollmentListItem `json:"enrollments"`
}

// LessonCompletion records that a learner completed a lesson of a course
type LessonCompletion struct {
	ID          int       `json:"id"`
	UserID      string    `json:"userId"`
	CourseID    string    `json:"courseId"`
	LessonID    string    `json:"lessonId"`
	CompletedAt time.Time `json:"completedAt"`
}

// CourseProgress is the learner's progress in one course
type CourseProgress struct {
	CourseID         string     `json:"courseId"`
	Progress         int        `json:"progress"`
	CompletedLessons []string   `json:"completedLessons"`
	TotalLessons     int        `json:"totalLessons"`
	CompletedAt      *time.Time `json:"completedAt,omitempty"`
}

// CompletionResult is the outcome of recording a lesson completion
type CompletionResult struct {
	// Created is false when the lesson had already been completed
	Created          bool
	CompletedLessons int
	TotalLessons     int
	Progress         int
	CompletedAt      *time.Time
}

// ProgressPercent returns completed/total as a rounded percentage capped at 100
func ProgressPercent(completed, total int) int {
	if total <= 0 {
		return 0
	}
	p := int(math.Round(float64(completed) / float64(total) * 100))
	if p > 100 {
		return 100
	}
	return p
}
