package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

const (
	StatusUpcoming  = "upcoming"
	StatusCompleted = "completed"
	StatusFailed    = "failed"
)

func ValidStatus(s string) bool {
	switch s {
	case StatusUpcoming, StatusCompleted, StatusFailed:
		return true
	}
	return false
}

type Event struct {
	ID                     primitive.ObjectID  `json:"_id" bson:"_id"`
	Organizer              primitive.ObjectID  `json:"organizer" bson:"organizer"`
	EventName              string              `json:"eventName" bson:"eventName"`
	Description            string              `json:"description" bson:"description"`
	Location               string              `json:"location" bson:"location"`
	Date                   string              `json:"date" bson:"date"`
	Time                   string              `json:"time" bson:"time"`
	ExpectedNumberOfPeople int                 `json:"expectedNumberOfPeople" bson:"expectedNumberOfPeople"`
	Phone                  string              `json:"phone" bson:"phone"`
	Email                  string              `json:"email" bson:"email"`
	Website                *primitive.ObjectID `json:"website,omitempty" bson:"website,omitempty"`
	Status                 string              `json:"status" bson:"status"`
	CreatedAt              time.Time           `json:"createdAt" bson:"createdAt"`
	UpdatedAt              time.Time           `json:"updatedAt" bson:"updatedAt"`
}

// Clone copies e including its website reference.
func (e Event) Clone() Event {
	if e.Website != nil {
		id := *e.Website
		e.Website = &id
	}
	return e
}

// EventPatch holds the descriptive fields an organizer may change.
// Organizer and website are never patchable.
type EventPatch struct {
	EventName              *string `json:"eventName"`
	Description            *string `json:"description"`
	Location               *string `json:"location"`
	Date                   *string `json:"date"`
	Time                   *string `json:"time"`
	ExpectedNumberOfPeople *int    `json:"expectedNumberOfPeople"`
	Phone                  *string `json:"phone"`
	Email                  *string `json:"email"`
	Status                 *string `json:"status"`
}

// Apply writes the set fields onto e.
func (p EventPatch) Apply(e *Event) {
	set := func(dst *string, src *string) {
		if src != nil {
			*dst = *src
		}
	}
	set(&e.EventName, p.EventName)
	set(&e.Description, p.Description)
	set(&e.Location, p.Location)
	set(&e.Date, p.Date)
	set(&e.Time, p.Time)
	set(&e.Phone, p.Phone)
	set(&e.Email, p.Email)
	set(&e.Status, p.Status)
	if p.ExpectedNumberOfPeople != nil {
		e.ExpectedNumberOfPeople = *p.ExpectedNumberOfPeople
	}
}

func (p EventPatch) Empty() bool {
	return p == EventPatch{}
}

// EventWithWebsite is an Event with its website summary attached.
type EventWithWebsite struct {
	Event
	WebsiteSummary *WebsiteSummary `json:"websiteSummary,omitempty"`
}
