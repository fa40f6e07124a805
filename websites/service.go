// Package websites clones templates into event websites, edits their
// sections and publishes them under a subdomain.
package websites

import (
	"context"
	"errors"
	"fmt"
	"time"

	"eventweb/apperr"
	"eventweb/assets"
	"eventweb/db"
	"eventweb/mailer"
	"eventweb/models"
	"eventweb/mq"
	"eventweb/rdx"

	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

type Config struct {
	// DomainName is the parent domain published subdomains live under.
	DomainName string
	// Secure selects https for published URLs.
	Secure bool
	// OfficeEmail is the sender of contact form messages.
	OfficeEmail string
}

type Service struct {
	cfg      Config
	store    db.Store
	assets   *assets.Manager
	cache    rdx.Cache
	emitter  mq.Emitter
	notifier mailer.Notifier
	log      *zap.Logger
	now      func() time.Time
}

func NewService(cfg Config, store db.Store, am *assets.Manager, cache rdx.Cache,
	emitter mq.Emitter, notifier mailer.Notifier, log *zap.Logger) *Service {
	return &Service{
		cfg:      cfg,
		store:    store,
		assets:   am,
		cache:    cache,
		emitter:  emitter,
		notifier: notifier,
		log:      log,
		now:      time.Now,
	}
}

func websiteErr(err error, op string) error {
	if errors.Is(err, db.ErrNotFound) {
		return apperr.NotFound("Website not found")
	}
	return fmt.Errorf("%s: %w", op, err)
}

func eventErr(err error, op string) error {
	if errors.Is(err, db.ErrNotFound) {
		return apperr.NotFound("Event not found")
	}
	return fmt.Errorf("%s: %w", op, err)
}

// ownedWebsite loads a website and its event and checks the actor
// organizes that event.
func ownedWebsite(ctx context.Context, tx db.Tx, id, actor primitive.ObjectID, verb string) (*models.Website, *models.Event, error) {
	w, err := tx.FindWebsite(ctx, id)
	if err != nil {
		return nil, nil, websiteErr(err, "find website")
	}
	ev, err := tx.FindEvent(ctx, w.BelongsToThisEvent)
	if err != nil {
		return nil, nil, eventErr(err, "find event")
	}
	if ev.Organizer != actor {
		return nil, nil, apperr.Unauthorized("Not authorized to " + verb + " this website")
	}
	return w, ev, nil
}

// afterChange drops the cached public view and announces the change.
func (s *Service) afterChange(ctx context.Context, subdomain *string, evt mq.LifecycleEvent) {
	if subdomain != nil {
		if err := s.cache.InvalidatePublic(ctx, *subdomain); err != nil {
			s.log.Warn("invalidate public cache", zap.String("subdomain", *subdomain), zap.Error(err))
		}
		if evt.Subdomain == "" {
			evt.Subdomain = *subdomain
		}
	}
	s.emitter.Emit(ctx, evt)
}
