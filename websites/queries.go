package websites

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"eventweb/apperr"
	"eventweb/db"
	"eventweb/models"

	"github.com/skip2/go-qrcode"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

const (
	DefaultQRSize = 256
	minQRSize     = 128
	maxQRSize     = 1024
)

func (s *Service) templateName(ctx context.Context, id primitive.ObjectID) string {
	tpl, err := s.store.FindTemplate(ctx, id)
	if err != nil {
		if !errors.Is(err, db.ErrNotFound) {
			s.log.Warn("template lookup", zap.String("template_id", id.Hex()), zap.Error(err))
		}
		return ""
	}
	return tpl.TemplateName
}

// Get returns the website with its event and template names. Owner only.
func (s *Service) Get(ctx context.Context, actor, id primitive.ObjectID) (*models.WebsiteView, error) {
	w, ev, err := ownedWebsite(ctx, s.store, id, actor, "view")
	if err != nil {
		return nil, err
	}
	return &models.WebsiteView{
		Website: *w,
		Event: &models.EventRef{
			ID:        ev.ID,
			EventName: ev.EventName,
			Organizer: ev.Organizer,
			Email:     ev.Email,
		},
		TemplateName: s.templateName(ctx, w.BaseTemplate),
	}, nil
}

// GetSection returns one section addressed by name or id.
func (s *Service) GetSection(ctx context.Context, actor, id primitive.ObjectID, key string) (*models.Section, error) {
	w, _, err := ownedWebsite(ctx, s.store, id, actor, "view")
	if err != nil {
		return nil, err
	}
	i, ok := w.Section(key)
	if !ok {
		return nil, apperr.NotFound("Section doesn't exist in the website")
	}
	sec := w.Sections[i]
	return &sec, nil
}

// Public serves a published website by subdomain, from cache when warm.
func (s *Service) Public(ctx context.Context, rawSubdomain string) (*models.WebsiteView, error) {
	subdomain, err := NormalizeSubdomain(rawSubdomain)
	if err != nil {
		return nil, err
	}

	if data, ok, err := s.cache.GetPublic(ctx, subdomain); err != nil {
		s.log.Warn("public cache read", zap.String("subdomain", subdomain), zap.Error(err))
	} else if ok {
		var view models.WebsiteView
		if err := json.Unmarshal(data, &view); err == nil {
			return &view, nil
		}
		s.log.Warn("discarding unreadable cache entry", zap.String("subdomain", subdomain))
	}

	w, err := s.store.FindPublishedWebsite(ctx, subdomain)
	if err != nil {
		return nil, websiteErr(err, "find published website")
	}
	ev, err := s.store.FindEvent(ctx, w.BelongsToThisEvent)
	if err != nil {
		return nil, eventErr(err, "find event")
	}
	view := &models.WebsiteView{
		Website: *w,
		Event: &models.EventRef{
			ID:          ev.ID,
			EventName:   ev.EventName,
			Description: ev.Description,
			Date:        ev.Date,
			Time:        ev.Time,
			Location:    ev.Location,
			Email:       ev.Email,
		},
	}
	if data, err := json.Marshal(view); err == nil {
		if err := s.cache.SetPublic(ctx, subdomain, data); err != nil {
			s.log.Warn("public cache write", zap.String("subdomain", subdomain), zap.Error(err))
		}
	}
	return view, nil
}

// Published lists the actor's published websites, newest event first.
func (s *Service) Published(ctx context.Context, actor primitive.ObjectID) ([]models.PublishedWebsite, error) {
	events, err := s.store.ListEventsByOrganizer(ctx, actor)
	if err != nil {
		return nil, fmt.Errorf("list events: %w", err)
	}
	out := []models.PublishedWebsite{}
	if len(events) == 0 {
		return out, nil
	}
	names := make(map[primitive.ObjectID]string, len(events))
	ids := make([]primitive.ObjectID, 0, len(events))
	for _, ev := range events {
		names[ev.ID] = ev.EventName
		ids = append(ids, ev.ID)
	}
	sites, err := s.store.ListPublishedWebsites(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("list published websites: %w", err)
	}
	templates := map[primitive.ObjectID]string{}
	for _, w := range sites {
		name, ok := templates[w.BaseTemplate]
		if !ok {
			name = s.templateName(ctx, w.BaseTemplate)
			templates[w.BaseTemplate] = name
		}
		out = append(out, models.PublishedWebsite{
			EventName: names[w.BelongsToThisEvent],
			Website:   models.WebsiteView{Website: w, TemplateName: name},
		})
	}
	return out, nil
}

// QRCode renders a PNG QR code of the published URL.
func (s *Service) QRCode(ctx context.Context, actor, id primitive.ObjectID, size int) ([]byte, error) {
	w, _, err := ownedWebsite(ctx, s.store, id, actor, "view")
	if err != nil {
		return nil, err
	}
	if !w.Published || w.URL == nil {
		return nil, apperr.Validation("Website is not published yet")
	}
	switch {
	case size <= 0:
		size = DefaultQRSize
	case size < minQRSize:
		size = minQRSize
	case size > maxQRSize:
		size = maxQRSize
	}
	png, err := qrcode.Encode(*w.URL, qrcode.Medium, size)
	if err != nil {
		return nil, fmt.Errorf("encode qr code: %w", err)
	}
	return png, nil
}
