package websites

import (
	"context"
	"encoding/json"

	"eventweb/apperr"
	"eventweb/content"
	"eventweb/db"
	"eventweb/models"
	"eventweb/mq"

	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

type incomingSection struct {
	SectionName json.RawMessage `json:"sectionName"`
	Content     json.RawMessage `json:"content"`
}

// SaveAll replaces the content of every stored section whose name matches
// an incoming {sectionName, content} entry. Entries without a string name
// or without content are skipped, as are names the website lacks.
func (s *Service) SaveAll(ctx context.Context, actor, id primitive.ObjectID, raw json.RawMessage) (*models.Website, error) {
	var entries []json.RawMessage
	if len(raw) == 0 || json.Unmarshal(raw, &entries) != nil || entries == nil {
		return nil, apperr.Validation("Sections must be an array")
	}
	incoming := map[string]content.Value{}
	for _, e := range entries {
		var in incomingSection
		if json.Unmarshal(e, &in) != nil {
			continue
		}
		var name string
		if json.Unmarshal(in.SectionName, &name) != nil || name == "" || len(in.Content) == 0 {
			continue
		}
		v, err := content.ParseJSON(in.Content)
		if err != nil {
			return nil, apperr.Wrap(apperr.KindValidation, "Invalid content for section "+name, err)
		}
		incoming[name] = v
	}

	var saved *models.Website
	err := s.store.RunInTx(ctx, func(ctx context.Context, tx db.Tx) error {
		w, _, err := ownedWebsite(ctx, tx, id, actor, "edit")
		if err != nil {
			return err
		}
		sections := models.CloneSections(w.Sections)
		for i := range sections {
			if v, ok := incoming[sections[i].Name]; ok {
				sections[i].Content = v
			}
		}
		if err := tx.ReplaceSections(ctx, w.ID, sections, s.now().UTC()); err != nil {
			return websiteErr(err, "replace sections")
		}
		w.Sections = sections
		saved = w
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.log.Info("website sections saved", zap.String("website_id", id.Hex()), zap.Int("matched", len(incoming)))
	s.afterChange(ctx, saved.Subdomain, mq.LifecycleEvent{
		Type: mq.WebsiteSectionUpdated, WebsiteID: id.Hex(), EventID: saved.BelongsToThisEvent.Hex(), ActorID: actor.Hex(),
	})
	return saved, nil
}
