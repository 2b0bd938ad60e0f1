package models

import "errors"

var (
	// ErrCourseNotFound is returned when a course does not exist or is not published
	ErrCourseNotFound = errors.New("course not found")
	// ErrAlreadyEnrolled is returned when the learner is already enrolled in the course
	ErrAlreadyEnrolled = errors.New("already enrolled in this course")
	// ErrNotEnrolled is returned when the learner is not enrolled in the course
	ErrNotEnrolled = errors.New("not enrolled in this course")
)
