package models

import (
	"time"

	"eventweb/content"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Section is one named block of a website or template.
type Section struct {
	ID      primitive.ObjectID `json:"_id" bson:"_id"`
	Name    string             `json:"sectionName" bson:"sectionName"`
	Content content.Value      `json:"content" bson:"content"`
}

func (s Section) Clone() Section {
	s.Content = s.Content.Clone()
	return s
}

func CloneSections(in []Section) []Section {
	if in == nil {
		return nil
	}
	out := make([]Section, len(in))
	for i, s := range in {
		out[i] = s.Clone()
	}
	return out
}

type Website struct {
	ID                 primitive.ObjectID `json:"_id" bson:"_id"`
	Type               string             `json:"type" bson:"type"`
	BelongsToThisEvent primitive.ObjectID `json:"belongsToThisEvent" bson:"belongsToThisEvent"`
	BaseTemplate       primitive.ObjectID `json:"baseTemplate" bson:"baseTemplate"`
	Sections           []Section          `json:"sections" bson:"sections"`
	Published          bool               `json:"published" bson:"published"`
	Subdomain          *string            `json:"subdomain" bson:"subdomain,omitempty"`
	URL                *string            `json:"url" bson:"url,omitempty"`
	PublishedOn        *time.Time         `json:"publishedOn" bson:"publishedOn,omitempty"`
	CreatedAt          time.Time          `json:"createdAt" bson:"createdAt"`
	UpdatedAt          time.Time          `json:"updatedAt" bson:"updatedAt"`
}

func (w Website) Clone() Website {
	w.Sections = CloneSections(w.Sections)
	if w.Subdomain != nil {
		s := *w.Subdomain
		w.Subdomain = &s
	}
	if w.URL != nil {
		u := *w.URL
		w.URL = &u
	}
	if w.PublishedOn != nil {
		t := *w.PublishedOn
		w.PublishedOn = &t
	}
	return w
}

// Section finds a section by name, falling back to its id in hex.
func (w *Website) Section(key string) (int, bool) {
	for i, s := range w.Sections {
		if s.Name == key {
			return i, true
		}
	}
	for i, s := range w.Sections {
		if s.ID.Hex() == key {
			return i, true
		}
	}
	return -1, false
}

// PublicationConsistent reports whether the four publication fields agree.
func (w *Website) PublicationConsistent() bool {
	set := w.Subdomain != nil && w.URL != nil && w.PublishedOn != nil
	unset := w.Subdomain == nil && w.URL == nil && w.PublishedOn == nil
	if w.Published {
		return set
	}
	return unset
}

// Publication is the set of fields publish writes together.
type Publication struct {
	Subdomain   string
	URL         string
	PublishedOn time.Time
}

type WebsiteSummary struct {
	ID           primitive.ObjectID `json:"_id"`
	BaseTemplate primitive.ObjectID `json:"baseTemplate"`
	Sections     []Section          `json:"sections"`
}

// WebsiteView is a website with its event and template details filled in.
type WebsiteView struct {
	Website
	Event        *EventRef `json:"event,omitempty"`
	TemplateName string    `json:"templateName,omitempty"`
}

// EventRef carries the event fields shown alongside a website.
type EventRef struct {
	ID          primitive.ObjectID `json:"_id"`
	EventName   string             `json:"eventName"`
	Organizer   primitive.ObjectID `json:"organizer,omitempty"`
	Description string             `json:"description,omitempty"`
	Date        string             `json:"date,omitempty"`
	Time        string             `json:"time,omitempty"`
	Location    string             `json:"location,omitempty"`
	Email       string             `json:"email,omitempty"`
}

// PublishedWebsite pairs a published website with its event name.
type PublishedWebsite struct {
	EventName string      `json:"eventName"`
	Website   WebsiteView `json:"website"`
}
