// Package model defines the core domain types for the Let's Meet scheduling service.
package model

import "time"

// Event is a meeting proposal with a set of candidate times.
// Participants refer to it by Code; ID stays internal.
type Event struct {
	ID             string      `json:"id"`
	Code           string      `json:"code"`
	Name           string      `json:"name"`
	Description    string      `json:"description"`
	CreatorName    string      `json:"creator_name"`
	CreatorEmail   string      `json:"creator_email"`
	PotentialDates []time.Time `json:"potential_dates"`
	CreatedAt      time.Time   `json:"created_at"`
}

// HasDate reports whether t is one of the event's candidate times.
func (e *Event) HasDate(t time.Time) bool {
	for _, d := range e.PotentialDates {
		if d.Equal(t) {
			return true
		}
	}
	return false
}

// AvailabilityResponse is one participant submission. Submissions are
// append-only: a participant answering twice produces two records.
type AvailabilityResponse struct {
	ID                 string      `json:"id"`
	EventID            string      `json:"event_id"`
	ParticipantName    string      `json:"participant_name"`
	ParticipantEmail   string      `json:"participant_email,omitempty"`
	AvailableTimes     []time.Time `json:"available_times"`
	CustomAvailability string      `json:"custom_availability,omitempty"`
	CreatedAt          time.Time   `json:"created_at"`
}

// SlotCount is the number of responses marking a single candidate time.
type SlotCount struct {
	Time  time.Time `json:"time"`
	Count int       `json:"count"`
}

// EventStats is derived from the stored responses on every request.
// MostPopularTime is nil while nobody has marked any slot.
type EventStats struct {
	TotalResponses  int         `json:"total_responses"`
	MostPopularTime *time.Time  `json:"most_popular_time"`
	AvailablePeople int         `json:"available_people"`
	Slots           []SlotCount `json:"slots"`
}

// CreateEventRequest is the payload for creating a new event.
type CreateEventRequest struct {
	Name           string      `json:"name"`
	Description    string      `json:"description"`
	CreatorName    string      `json:"creator_name"`
	CreatorEmail   string      `json:"creator_email"`
	PotentialDates []time.Time `json:"potential_dates"`
}

// SubmitAvailabilityRequest is the payload for answering an event.
type SubmitAvailabilityRequest struct {
	ParticipantName    string      `json:"participant_name"`
	ParticipantEmail   string      `json:"participant_email"`
	AvailableTimes     []time.Time `json:"available_times"`
	CustomAvailability string      `json:"custom_availability"`
}

// CalendarInviteRequest asks for the event's calendar invite to be emailed.
type CalendarInviteRequest struct {
	Email string `json:"email"`
}

// MessageResponse is a plain acknowledgement body.
type MessageResponse struct {
	Message string `json:"message"`
}

// ErrorResponse is a standard JSON error envelope.
type ErrorResponse struct {
	Error string `json:"error"`
}
