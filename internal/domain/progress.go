package domain

// UserProgress aggregates the learner's position in the curriculum.
type UserProgress struct {
	CurrentDay       int      `json:"currentDay"`
	CompletedLessons []string `json:"completedLessons"`
	Streak           int      `json:"streak"`
	// VocabularyMastered is reserved; no transition populates it yet.
	VocabularyMastered []string `json:"vocabularyMastered"`
}

// HasCompleted returns true if the lesson id is in the completed set.
func (p UserProgress) HasCompleted(id string) bool {
	for _, c := range p.CompletedLessons {
		if c == id {
			return true
		}
	}
	return false
}

// Clone returns a deep copy safe to hand out of a lock.
func (p UserProgress) Clone() UserProgress {
	out := p
	out.CompletedLessons = append([]string{}, p.CompletedLessons...)
	out.VocabularyMastered = append([]string{}, p.VocabularyMastered...)
	return out
}
