package templates

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"eventweb/apperr"
	"eventweb/content"
	"eventweb/db"
	"eventweb/models"

	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

// SectionInput is one {sectionName, content} entry of a request body.
type SectionInput struct {
	SectionName *string        `json:"sectionName"`
	Content     *content.Value `json:"content"`
}

// NewTemplate is the body of an add-template request.
type NewTemplate struct {
	TemplateName string          `json:"templateName"`
	Description  string          `json:"description"`
	PreviewImage string          `json:"previewImage"`
	Sections     json.RawMessage `json:"sections"`
}

type Service struct {
	store db.Store
	log   *zap.Logger
	now   func() time.Time
}

func NewService(store db.Store, log *zap.Logger) *Service {
	return &Service{store: store, log: log, now: time.Now}
}

// DecodeSections parses a raw sections list. A missing or non-list value
// and entries without a section name are rejected.
func DecodeSections(raw json.RawMessage) ([]SectionInput, error) {
	trimmed := strings.TrimSpace(string(raw))
	if trimmed == "" || trimmed == "null" || trimmed[0] != '[' {
		return nil, apperr.Validation("Sections must be an array")
	}
	var in []SectionInput
	if err := json.Unmarshal(raw, &in); err != nil {
		return nil, apperr.Wrap(apperr.KindValidation, "Sections must be a list of {sectionName, content}", err)
	}
	return in, nil
}

func buildSections(in []SectionInput) ([]models.Section, error) {
	seen := make(map[string]struct{}, len(in))
	out := make([]models.Section, 0, len(in))
	for i, s := range in {
		if s.SectionName == nil || strings.TrimSpace(*s.SectionName) == "" {
			return nil, apperr.Newf(apperr.KindValidation, "Section %d has no sectionName", i)
		}
		name := *s.SectionName
		if _, dup := seen[name]; dup {
			return nil, apperr.Newf(apperr.KindValidation, "Duplicate section %q", name)
		}
		seen[name] = struct{}{}
		c := content.Map()
		if s.Content != nil && !s.Content.IsNull() {
			c = s.Content.Clone()
		}
		out = append(out, models.Section{ID: primitive.NewObjectID(), Name: name, Content: c})
	}
	return out, nil
}

func (s *Service) Add(ctx context.Context, in NewTemplate) (*models.Template, error) {
	if in.TemplateName == "" || in.Description == "" || in.PreviewImage == "" || len(in.Sections) == 0 {
		return nil, apperr.Validation("Required: templateName, description, previewImage & sections")
	}
	raw, err := DecodeSections(in.Sections)
	if err != nil {
		return nil, err
	}
	sections, err := buildSections(raw)
	if err != nil {
		return nil, err
	}
	now := s.now().UTC()
	t := &models.Template{
		ID:           primitive.NewObjectID(),
		TemplateName: in.TemplateName,
		Description:  in.Description,
		PreviewImage: in.PreviewImage,
		Sections:     sections,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.store.InsertTemplate(ctx, t); err != nil {
		return nil, fmt.Errorf("insert template: %w", err)
	}
	s.log.Info("template added", zap.String("template_id", t.ID.Hex()), zap.Int("sections", len(sections)))
	return t, nil
}

func (s *Service) List(ctx context.Context) ([]models.Template, error) {
	list, err := s.store.ListTemplates(ctx)
	if err != nil {
		return nil, fmt.Errorf("list templates: %w", err)
	}
	if list == nil {
		list = []models.Template{}
	}
	return list, nil
}

func (s *Service) Get(ctx context.Context, id primitive.ObjectID) (*models.Template, error) {
	t, err := s.store.FindTemplate(ctx, id)
	if errors.Is(err, db.ErrNotFound) {
		return nil, apperr.NotFound("Template not found")
	}
	if err != nil {
		return nil, fmt.Errorf("find template: %w", err)
	}
	return t, nil
}
