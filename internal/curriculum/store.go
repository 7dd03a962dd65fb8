// Package curriculum holds the lesson progression state machine.
package curriculum

import (
	"errors"
	"math"
	"sort"
	"sync"

	"github.com/ashureev/devenglish/internal/domain"
)

var (
	ErrLessonNotFound = errors.New("lesson not found")
	ErrLessonLocked   = errors.New("lesson is locked")
)

// xpPerLesson is awarded for each completed lesson.
const xpPerLesson = 10

// Stats are derived progress figures for the dashboard.
type Stats struct {
	TotalLessons   int `json:"totalLessons"`
	Completed      int `json:"completed"`
	CompletionRate int `json:"completionRate"`
	XP             int `json:"xp"`
}

// Store is the in-memory lesson progression store. It is safe for concurrent use.
type Store struct {
	mu       sync.RWMutex
	lessons  []domain.Lesson
	byID     map[string]int
	byDay    map[int]int
	progress domain.UserProgress
}

// New creates a store seeded with the 30-day plan.
func New() *Store {
	return NewWithLessons(SeedLessons())
}

// NewWithLessons creates a store from an explicit lesson list, ordered by day.
func NewWithLessons(lessons []domain.Lesson) *Store {
	sorted := make([]domain.Lesson, len(lessons))
	copy(sorted, lessons)
	sort.Slice(sorted, func(i, j int) bool {
		return sorted[i].Day < sorted[j].Day
	})

	s := &Store{
		lessons: sorted,
		byID:    make(map[string]int, len(sorted)),
		byDay:   make(map[int]int, len(sorted)),
		progress: domain.UserProgress{
			CurrentDay:         1,
			CompletedLessons:   []string{},
			VocabularyMastered: []string{},
		},
	}
	for i, l := range sorted {
		s.byID[l.ID] = i
		s.byDay[l.Day] = i
	}
	return s
}

// Lessons returns a copy of all lessons ordered by day.
func (s *Store) Lessons() []domain.Lesson {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]domain.Lesson, len(s.lessons))
	copy(out, s.lessons)
	return out
}

// Lesson returns a lesson by id.
func (s *Store) Lesson(id string) (domain.Lesson, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	i, ok := s.byID[id]
	if !ok {
		return domain.Lesson{}, ErrLessonNotFound
	}
	return s.lessons[i], nil
}

// Select returns the lesson if it may be opened. Locked lessons are rejected
// without any state change.
func (s *Store) Select(id string) (domain.Lesson, error) {
	lesson, err := s.Lesson(id)
	if err != nil {
		return domain.Lesson{}, err
	}
	if lesson.IsLocked() {
		return domain.Lesson{}, ErrLessonLocked
	}
	return lesson, nil
}

// CompleteLesson marks a lesson completed and unlocks the lesson of the next day.
// Completing the same lesson twice is a no-op for the completed set and currentDay.
func (s *Store) CompleteLesson(id string) (domain.UserProgress, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	i, ok := s.byID[id]
	if !ok {
		return domain.UserProgress{}, ErrLessonNotFound
	}

	if !s.progress.HasCompleted(id) {
		s.progress.CompletedLessons = append(s.progress.CompletedLessons, id)
	}
	s.lessons[i].Status = domain.StatusCompleted

	nextDay := s.lessons[i].Day + 1
	if j, ok := s.byDay[nextDay]; ok && s.lessons[j].Status == domain.StatusLocked {
		s.lessons[j].Status = domain.StatusAvailable
	}
	if nextDay > s.progress.CurrentDay {
		s.progress.CurrentDay = nextDay
	}

	return s.progress.Clone(), nil
}

// Progress returns a copy of the learner's progress.
func (s *Store) Progress() domain.UserProgress {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.progress.Clone()
}

// Stats returns completion figures derived from the progress.
func (s *Store) Stats() Stats {
	s.mu.RLock()
	defer s.mu.RUnlock()

	total := len(s.lessons)
	done := len(s.progress.CompletedLessons)
	rate := 0
	if total > 0 {
		rate = int(math.Round(float64(done) / float64(total) * 100))
	}
	return Stats{
		TotalLessons:   total,
		Completed:      done,
		CompletionRate: rate,
		XP:             done * xpPerLesson,
	}
}
