package events

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"eventweb/apperr"
	"eventweb/db"
	"eventweb/models"
	"eventweb/mq"
	"eventweb/rdx"

	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

// NewEvent is the body of a create-event request.
type NewEvent struct {
	EventName              string `json:"eventName"`
	Description            string `json:"description"`
	Location               string `json:"location"`
	Date                   string `json:"date"`
	Time                   string `json:"time"`
	ExpectedNumberOfPeople int    `json:"expectedNumberOfPeople"`
	Phone                  string `json:"phone"`
	Email                  string `json:"email"`
}

type Service struct {
	store   db.Store
	cache   rdx.Cache
	emitter mq.Emitter
	log     *zap.Logger
	now     func() time.Time
}

func NewService(store db.Store, cache rdx.Cache, emitter mq.Emitter, log *zap.Logger) *Service {
	return &Service{store: store, cache: cache, emitter: emitter, log: log, now: time.Now}
}

func eventErr(err error, op string) error {
	if errors.Is(err, db.ErrNotFound) {
		return apperr.NotFound("Event not found")
	}
	return fmt.Errorf("%s: %w", op, err)
}

// owned loads an event and checks the actor organizes it.
func owned(ctx context.Context, tx db.Tx, id, actor primitive.ObjectID, verb string) (*models.Event, error) {
	ev, err := tx.FindEvent(ctx, id)
	if err != nil {
		return nil, eventErr(err, "find event")
	}
	if ev.Organizer != actor {
		return nil, apperr.Unauthorized("Unauthorized to " + verb + " this event")
	}
	return ev, nil
}

// Create inserts the event and appends it to the organizer's list together.
func (s *Service) Create(ctx context.Context, actor primitive.ObjectID, in NewEvent) (*models.Event, error) {
	if strings.TrimSpace(in.EventName) == "" {
		return nil, apperr.Validation("Event name is required")
	}
	if in.ExpectedNumberOfPeople < 0 {
		return nil, apperr.Validation("Expected number of people cannot be negative")
	}
	now := s.now().UTC()
	ev := &models.Event{
		ID:                     primitive.NewObjectID(),
		Organizer:              actor,
		EventName:              in.EventName,
		Description:            in.Description,
		Location:               in.Location,
		Date:                   in.Date,
		Time:                   in.Time,
		ExpectedNumberOfPeople: in.ExpectedNumberOfPeople,
		Phone:                  in.Phone,
		Email:                  in.Email,
		Status:                 models.StatusUpcoming,
		CreatedAt:              now,
		UpdatedAt:              now,
	}
	err := s.store.RunInTx(ctx, func(ctx context.Context, tx db.Tx) error {
		if err := tx.InsertEvent(ctx, ev); err != nil {
			return fmt.Errorf("insert event: %w", err)
		}
		if err := tx.PushUserEvent(ctx, actor, ev.ID); err != nil {
			if errors.Is(err, db.ErrNotFound) {
				return apperr.NotFound("User not found")
			}
			return fmt.Errorf("push user event: %w", err)
		}
		return nil
	})
	if err != nil {
		s.log.Warn("create event aborted", zap.String("user_id", actor.Hex()), zap.Error(err))
		return nil, err
	}
	s.log.Info("event created", zap.String("event_id", ev.ID.Hex()), zap.String("user_id", actor.Hex()))
	return ev, nil
}

func (s *Service) summary(ctx context.Context, ev models.Event) (*models.WebsiteSummary, error) {
	if ev.Website == nil {
		return nil, nil
	}
	w, err := s.store.FindWebsite(ctx, *ev.Website)
	if errors.Is(err, db.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find website: %w", err)
	}
	return &models.WebsiteSummary{ID: w.ID, BaseTemplate: w.BaseTemplate, Sections: w.Sections}, nil
}

// List returns the actor's events newest first with website summaries.
func (s *Service) List(ctx context.Context, actor primitive.ObjectID) ([]models.EventWithWebsite, error) {
	list, err := s.store.ListEventsByOrganizer(ctx, actor)
	if err != nil {
		return nil, fmt.Errorf("list events: %w", err)
	}
	out := make([]models.EventWithWebsite, 0, len(list))
	for _, ev := range list {
		sum, err := s.summary(ctx, ev)
		if err != nil {
			return nil, err
		}
		out = append(out, models.EventWithWebsite{Event: ev, WebsiteSummary: sum})
	}
	return out, nil
}

func (s *Service) Get(ctx context.Context, actor, id primitive.ObjectID) (*models.EventWithWebsite, error) {
	ev, err := owned(ctx, s.store, id, actor, "view")
	if err != nil {
		return nil, err
	}
	sum, err := s.summary(ctx, *ev)
	if err != nil {
		return nil, err
	}
	return &models.EventWithWebsite{Event: *ev, WebsiteSummary: sum}, nil
}

func (s *Service) Update(ctx context.Context, actor, id primitive.ObjectID, patch models.EventPatch) (*models.Event, error) {
	if patch.Status != nil && !models.ValidStatus(*patch.Status) {
		return nil, apperr.Validation("Status must be one of upcoming, completed, failed")
	}
	if patch.EventName != nil && strings.TrimSpace(*patch.EventName) == "" {
		return nil, apperr.Validation("Event name is required")
	}
	if patch.ExpectedNumberOfPeople != nil && *patch.ExpectedNumberOfPeople < 0 {
		return nil, apperr.Validation("Expected number of people cannot be negative")
	}
	if _, err := owned(ctx, s.store, id, actor, "edit"); err != nil {
		return nil, err
	}
	if patch.Empty() {
		return s.store.FindEvent(ctx, id)
	}
	ev, err := s.store.UpdateEvent(ctx, id, patch, s.now().UTC())
	if err != nil {
		return nil, eventErr(err, "update event")
	}
	return ev, nil
}

// Delete removes the event, its website if any, and the organizer's
// reference to it, all or nothing.
func (s *Service) Delete(ctx context.Context, actor, id primitive.ObjectID) error {
	var website *models.Website
	err := s.store.RunInTx(ctx, func(ctx context.Context, tx db.Tx) error {
		website = nil
		ev, err := owned(ctx, tx, id, actor, "delete")
		if err != nil {
			return err
		}
		w, err := tx.FindWebsiteByEvent(ctx, id)
		switch {
		case errors.Is(err, db.ErrNotFound):
		case err != nil:
			return fmt.Errorf("find website: %w", err)
		default:
			website = w
		}
		if _, err := tx.DeleteWebsiteByEvent(ctx, id); err != nil {
			return fmt.Errorf("delete website: %w", err)
		}
		if err := tx.DeleteEvent(ctx, id); err != nil {
			return eventErr(err, "delete event")
		}
		if err := tx.PullUserEvent(ctx, ev.Organizer, id); err != nil && !errors.Is(err, db.ErrNotFound) {
			return fmt.Errorf("pull user event: %w", err)
		}
		return nil
	})
	if err != nil {
		s.log.Warn("delete event aborted", zap.String("event_id", id.Hex()), zap.Error(err))
		return err
	}

	s.log.Info("event deleted", zap.String("event_id", id.Hex()), zap.Bool("had_website", website != nil))
	s.emitter.Emit(ctx, mq.LifecycleEvent{Type: mq.EventDeleted, EventID: id.Hex(), ActorID: actor.Hex()})
	if website != nil {
		evt := mq.LifecycleEvent{Type: mq.WebsiteDeleted, WebsiteID: website.ID.Hex(), EventID: id.Hex(), ActorID: actor.Hex()}
		if website.Subdomain != nil {
			evt.Subdomain = *website.Subdomain
			if err := s.cache.InvalidatePublic(ctx, *website.Subdomain); err != nil {
				s.log.Warn("invalidate public cache", zap.String("subdomain", *website.Subdomain), zap.Error(err))
			}
		}
		s.emitter.Emit(ctx, evt)
	}
	return nil
}
