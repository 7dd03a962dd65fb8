package curriculum

import (
	"fmt"
	"strconv"

	"github.com/ashureev/devenglish/internal/domain"
)

// TotalDays is the length of the curriculum.
const TotalDays = 30

// SeedLessons returns the fixed 30-day plan. Day 1 starts available.
func SeedLessons() []domain.Lesson {
	lessons := []domain.Lesson{
		{Day: 1, Title: "Defining Your Environment", Description: `Mastering "To Be" and present simple in technical setups.`, Level: domain.LevelA2, Topic: "Initial Setup"},
		{Day: 2, Title: "The Loop Concept", Description: "Using present continuous to describe running processes.", Level: domain.LevelA2, Topic: "Runtime Description"},
		{Day: 3, Title: "Debugging the Past", Description: "Past simple vs Past continuous for error logs.", Level: domain.LevelB1, Topic: "Past Logs"},
		{Day: 4, Title: "Predicting Outputs", Description: `Future with "will" and "going to" for app outcomes.`, Level: domain.LevelB1, Topic: "Project Roadmap"},
		{Day: 5, Title: "HTML Semantics", Description: "Describing structure using relative clauses.", Level: domain.LevelB1, Topic: "Web Structure"},
	}
	for day := len(lessons) + 1; day <= TotalDays; day++ {
		lessons = append(lessons, domain.Lesson{
			Day:         day,
			Title:       fmt.Sprintf("Step %d: Advanced Dev Flow", day),
			Description: fmt.Sprintf("Leveling up your English communication for Day %d.", day),
			Level:       domain.LevelB1,
			Topic:       "Continuous Improvement",
		})
	}

	for i := range lessons {
		lessons[i].ID = strconv.Itoa(lessons[i].Day)
		lessons[i].Status = domain.StatusLocked
	}
	lessons[0].Status = domain.StatusAvailable
	return lessons
}
