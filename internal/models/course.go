package models

import "time"

// Level represents the difficulty level of a course
type Level string

const (
	LevelBeginner     Level = "Beginner"
	LevelIntermediate Level = "Intermediate"
	LevelAdvanced     Level = "Advanced"
)

// Course represents a published course in the catalog
type Course struct {
	ID             string    `json:"id"`
	Title          string    `json:"title"`
	Description    string    `json:"description"`
	InstructorName string    `json:"instructorName"`
	ThumbnailURL   string    `json:"thumbnailUrl,omitempty"`
	Duration       string    `json:"duration"`
	Level          Level     `json:"level"`
	Price          float64   `json:"price"`
	Rating         *float64  `json:"rating,omitempty"`
	StudentsCount  int       `json:"studentsCount"`
	Published      bool      `json:"-"`
	CreatedAt      time.Time `json:"createdAt"`
}

// IsFree reports whether the course can be enrolled in without payment
func (c *Course) IsFree() bool {
	return c.Price <= 0
}

// CourseListItem represents a course in catalog list responses
type CourseListItem struct {
	ID             string   `json:"id"`
	Title          string   `json:"title"`
	Description    string   `json:"description"`
	InstructorName string   `json:"instructorName"`
	ThumbnailURL   string   `json:"thumbnailUrl,omitempty"`
	Duration       string   `json:"duration"`
	Level          Level    `json:"level"`
	Price          float64  `json:"price"`
	Rating         *float64 `json:"rating,omitempty"`
	StudentsCount  int      `json:"studentsCount"`
	TotalLessons   int      `json:"totalLessons"`
}

// CourseOutline is a course together with its ordered modules and lessons
type CourseOutline struct {
	Course
	Modules      []Module `json:"modules"`
	TotalLessons int      `json:"totalLessons"`
}

// CourseFilter holds catalog list filters
type CourseFilter struct {
	Level  *Level
	Search string
	Page   int
	Count  int
}
