package services

import "errors"

var (
	// ErrInvalidLevel is returned for course level filters other than the known levels
	ErrInvalidLevel = errors.New("invalid course level")
	// ErrInvalidCourseID is returned when a course ID is not a UUID
	ErrInvalidCourseID = errors.New("invalid course id")
	// ErrLessonNotInCourse is returned when progress is recorded for a lesson of another course
	ErrLessonNotInCourse = errors.New("lesson is not part of this course")
	// ErrInvalidEvent is returned for player events of an unknown type
	ErrInvalidEvent = errors.New("invalid player event")
)
