// Package domain contains core domain types for the DevEnglish application.
package domain

// LessonStatus is the position of a lesson relative to the progression frontier.
type LessonStatus string

const (
	// StatusLocked lessons cannot be opened yet.
	StatusLocked LessonStatus = "locked"
	// StatusAvailable lessons can be opened and completed.
	StatusAvailable LessonStatus = "available"
	// StatusCompleted lessons have been finished at least once.
	StatusCompleted LessonStatus = "completed"
)

// Level is a CEFR level label.
type Level string

const (
	LevelA2 Level = "A2"
	LevelB1 Level = "B1"
)

// Lesson is one of the fixed curriculum units.
type Lesson struct {
	ID          string       `json:"id"`
	Day         int          `json:"day"`
	Title       string       `json:"title"`
	Description string       `json:"description"`
	Level       Level        `json:"level"`
	Topic       string       `json:"topic"`
	Status      LessonStatus `json:"status"`
}

// IsLocked returns true if the lesson cannot be selected.
func (l Lesson) IsLocked() bool {
	return l.Status == StatusLocked
}
