package domain

const (
	EventNameQuizCompleted = "quiz.completed"
)

// EventQuizCompleted is published once per attempt, when it transitions to completed.
type EventQuizCompleted struct {
	AttemptID string
	Report    CompletionReport
}

func (EventQuizCompleted) Name() string { return EventNameQuizCompleted }
