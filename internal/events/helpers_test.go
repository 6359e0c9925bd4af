package events

import "time"

var testEpoch = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

// at maps a simulated minute offset to a wall time.
func at(minutes int) time.Time {
	return testEpoch.Add(time.Duration(minutes) * time.Minute)
}

func event(id string, category Category, urgency int) *Event {
	return &Event{
		ID:       id,
		Title:    id,
		Category: category,
		Urgency:  urgency,
		Choices:  []Choice{{ID: "ok", Text: "ok"}},
	}
}
