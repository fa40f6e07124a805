package websites

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"eventweb/apperr"
	"eventweb/db"
	"eventweb/models"
	"eventweb/mq"

	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

// CloneRequest names the event to build a website for and the template to copy.
type CloneRequest struct {
	EventID    string `json:"eventId"`
	TemplateID string `json:"templateId"`
}

// Clone copies a template's sections into a new website for the event and
// links it, both in one transaction.
func (s *Service) Clone(ctx context.Context, actor primitive.ObjectID, req CloneRequest) (*models.Website, error) {
	if req.EventID == "" {
		return nil, apperr.Validation("EventId is missing")
	}
	if req.TemplateID == "" {
		return nil, apperr.Validation("TemplateId is missing")
	}
	eventID, err := primitive.ObjectIDFromHex(req.EventID)
	if err != nil {
		return nil, apperr.Validation("Invalid event id")
	}
	templateID, err := primitive.ObjectIDFromHex(req.TemplateID)
	if err != nil {
		return nil, apperr.Validation("Invalid template id")
	}

	var website *models.Website
	err = s.store.RunInTx(ctx, func(ctx context.Context, tx db.Tx) error {
		ev, err := tx.FindEvent(ctx, eventID)
		if err != nil {
			return eventErr(err, "find event")
		}
		if ev.Organizer != actor {
			return apperr.Unauthorized("This event doesn't belong to you")
		}
		if ev.Website != nil {
			return apperr.Conflict("Website already exists for this event")
		}
		tpl, err := tx.FindTemplate(ctx, templateID)
		if errors.Is(err, db.ErrNotFound) {
			return apperr.NotFound("Template not found")
		}
		if err != nil {
			return fmt.Errorf("find template: %w", err)
		}

		now := s.now().UTC()
		sections := make([]models.Section, len(tpl.Sections))
		for i, sec := range tpl.Sections {
			sections[i] = models.Section{ID: primitive.NewObjectID(), Name: sec.Name, Content: sec.Content.Clone()}
		}
		w := &models.Website{
			ID:                 primitive.NewObjectID(),
			Type:               "event",
			BelongsToThisEvent: ev.ID,
			BaseTemplate:       tpl.ID,
			Sections:           sections,
			CreatedAt:          now,
			UpdatedAt:          now,
		}
		if err := tx.InsertWebsite(ctx, w); err != nil {
			if errors.Is(err, db.ErrDuplicate) {
				return apperr.Conflict("Website already exists for this event")
			}
			return fmt.Errorf("insert website: %w", err)
		}
		if err := tx.SetEventWebsite(ctx, ev.ID, w.ID); err != nil {
			if errors.Is(err, db.ErrPrecondition) {
				return apperr.Conflict("Website already exists for this event")
			}
			return eventErr(err, "link website")
		}
		website = w
		return nil
	})
	if err != nil {
		s.log.Info("clone aborted", zap.String("event_id", req.EventID), zap.String("template_id", req.TemplateID), zap.Error(err))
		return nil, err
	}

	s.log.Info("website cloned", zap.String("website_id", website.ID.Hex()), zap.String("event_id", eventID.Hex()))
	s.afterChange(ctx, nil, mq.LifecycleEvent{
		Type: mq.WebsiteCloned, WebsiteID: website.ID.Hex(), EventID: eventID.Hex(), ActorID: actor.Hex(),
	})
	return website, nil
}

// Delete removes the website and clears its event's reference together.
func (s *Service) Delete(ctx context.Context, actor, id primitive.ObjectID) error {
	var deleted *models.Website
	err := s.store.RunInTx(ctx, func(ctx context.Context, tx db.Tx) error {
		w, ev, err := ownedWebsite(ctx, tx, id, actor, "delete")
		if err != nil {
			return err
		}
		if err := tx.DeleteWebsite(ctx, w.ID); err != nil {
			return websiteErr(err, "delete website")
		}
		if err := tx.ClearEventWebsite(ctx, ev.ID); err != nil {
			return eventErr(err, "clear event website")
		}
		deleted = w
		return nil
	})
	if err != nil {
		s.log.Info("delete website aborted", zap.String("website_id", id.Hex()), zap.Error(err))
		return err
	}

	s.log.Info("website deleted", zap.String("website_id", id.Hex()))
	s.afterChange(ctx, deleted.Subdomain, mq.LifecycleEvent{
		Type: mq.WebsiteDeleted, WebsiteID: id.Hex(), EventID: deleted.BelongsToThisEvent.Hex(), ActorID: actor.Hex(),
	})
	return nil
}

var subdomainRe = regexp.MustCompile(`^[a-zA-Z0-9-]{2,25}$`)

// NormalizeSubdomain validates a requested subdomain and lowercases it.
func NormalizeSubdomain(raw string) (string, error) {
	if !subdomainRe.MatchString(raw) {
		return "", apperr.Validation("Invalid subdomain format")
	}
	return strings.ToLower(raw), nil
}

// PublishedURL is where a subdomain is served.
func (s *Service) PublishedURL(subdomain string) string {
	scheme := "http"
	if s.cfg.Secure {
		scheme = "https"
	}
	return scheme + "://" + subdomain + "." + s.cfg.DomainName
}

// Publish binds the website to subdomain. The four publication fields are
// written together; the unique subdomain index settles races.
func (s *Service) Publish(ctx context.Context, actor, id primitive.ObjectID, rawSubdomain string) (*models.Website, error) {
	subdomain, err := NormalizeSubdomain(rawSubdomain)
	if err != nil {
		return nil, err
	}
	w, _, err := ownedWebsite(ctx, s.store, id, actor, "publish")
	if err != nil {
		return nil, err
	}
	if w.Published || w.Subdomain != nil || w.URL != nil || w.PublishedOn != nil {
		return nil, apperr.Conflict("Website already published")
	}
	taken, err := s.store.SubdomainTaken(ctx, subdomain)
	if err != nil {
		return nil, fmt.Errorf("check subdomain: %w", err)
	}
	if taken {
		return nil, apperr.Conflict("Subdomain already taken")
	}

	pub := models.Publication{Subdomain: subdomain, URL: s.PublishedURL(subdomain), PublishedOn: s.now().UTC()}
	switch err := s.store.PublishWebsite(ctx, id, pub); {
	case errors.Is(err, db.ErrDuplicate):
		return nil, apperr.Conflict("Subdomain already taken")
	case errors.Is(err, db.ErrPrecondition):
		return nil, apperr.Conflict("Website already published")
	case err != nil:
		return nil, websiteErr(err, "publish website")
	}

	published, err := s.store.FindWebsite(ctx, id)
	if err != nil {
		return nil, websiteErr(err, "reload website")
	}
	s.log.Info("website published", zap.String("website_id", id.Hex()), zap.String("subdomain", subdomain))
	s.afterChange(ctx, &subdomain, mq.LifecycleEvent{
		Type: mq.WebsitePublished, WebsiteID: id.Hex(), EventID: w.BelongsToThisEvent.Hex(), ActorID: actor.Hex(),
	})
	return published, nil
}

// Unpublish clears the four publication fields together.
func (s *Service) Unpublish(ctx context.Context, actor, id primitive.ObjectID) error {
	w, _, err := ownedWebsite(ctx, s.store, id, actor, "unpublish")
	if err != nil {
		return err
	}
	if !w.Published || w.Subdomain == nil || w.URL == nil || w.PublishedOn == nil {
		return apperr.Validation("Website is not published yet")
	}
	switch err := s.store.UnpublishWebsite(ctx, id, s.now().UTC()); {
	case errors.Is(err, db.ErrPrecondition):
		return apperr.Validation("Website is not published yet")
	case err != nil:
		return websiteErr(err, "unpublish website")
	}
	s.log.Info("website unpublished", zap.String("website_id", id.Hex()), zap.String("subdomain", *w.Subdomain))
	s.afterChange(ctx, w.Subdomain, mq.LifecycleEvent{
		Type: mq.WebsiteUnpublished, WebsiteID: id.Hex(), EventID: w.BelongsToThisEvent.Hex(), ActorID: actor.Hex(),
	})
	return nil
}
