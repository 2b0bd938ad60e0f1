package models

import "sort"

// Module represents an ordered group of lessons within a course
type Module struct {
	ID          string   `json:"id"`
	CourseID    string   `json:"courseId,omitempty"`
	Title       string   `json:"title"`
	Description string   `json:"description,omitempty"`
	OrderIndex  int      `json:"orderIndex"`
	Lessons     []Lesson `json:"lessons"`
}

// Lesson represents a single video lesson within a module
type Lesson struct {
	ID          string `json:"id"`
	ModuleID    string `json:"moduleId,omitempty"`
	Title       string `json:"title"`
	Description string `json:"description,omitempty"`
	// VideoURL is the raw video reference as entered by the author: a URL or an embed identifier.
	VideoURL   string `json:"videoUrl,omitempty"`
	Duration   string `json:"duration"`
	OrderIndex int    `json:"orderIndex"`
}

// FlatLesson is a lesson in the flattened, order-preserving view of a course.
// The module it belongs to is kept for display.
type FlatLesson struct {
	Lesson
	ModuleID    string `json:"moduleId"`
	ModuleTitle string `json:"moduleTitle"`
	Position    int    `json:"position"`
}

// SortModules orders modules and the lessons inside each module by OrderIndex
func SortModules(modules []Module) {
	sort.SliceStable(modules, func(i, j int) bool {
		return modules[i].OrderIndex < modules[j].OrderIndex
	})
	for i := range modules {
		lessons := modules[i].Lessons
		sort.SliceStable(lessons, func(a, b int) bool {
			return lessons[a].OrderIndex < lessons[b].OrderIndex
		})
	}
}

// Flatten returns all lessons of the modules in course order.
// Modules and lessons are expected to be sorted already (see SortModules).
func Flatten(modules []Module) []FlatLesson {
	var flat []FlatLesson
	for _, m := range modules {
		for _, l := range m.Lessons {
			flat = append(flat, FlatLesson{
				Lesson:      l,
				ModuleID:    m.ID,
				ModuleTitle: m.Title,
				Position:    len(flat),
			})
		}
	}
	return flat
}

// CountLessons returns the total number of lessons in the modules
func CountLessons(modules []Module) int {
	total := 0
	for _, m := range modules {
		total += len(m.Lessons)
	}
	return total
}
