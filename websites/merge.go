package websites

import (
	"context"
	"fmt"
	"slices"
	"sort"

	"eventweb/apperr"
	"eventweb/assets"
	"eventweb/content"
	"eventweb/db"
	"eventweb/models"
	"eventweb/mq"

	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

// RemovalField is the request field holding the removal manifest.
const RemovalField = "imagesToRemove"

// Field is one flattened incoming field, e.g. "features[0].title".
type Field struct {
	Path  string
	Value content.Value
}

// File is one uploaded file addressed at a content path.
type File struct {
	Path string
	Data []byte
}

// SectionUpdate is a partial edit of one section.
type SectionUpdate struct {
	Fields []Field
	Files  []File
	// ImagesToRemove is the raw JSON manifest mapping path -> URLs. Empty
	// when the request carried none.
	ImagesToRemove []byte
}

// MergeResult is the stored section after an update plus the outcome of
// every asset delete it triggered.
type MergeResult struct {
	Section models.Section   `json:"section"`
	Removed []assets.Outcome `json:"removed,omitempty"`
}

type removal struct {
	path content.Path
	urls []string
}

// parseManifest decodes {"path": ["url", ...], ...}.
func parseManifest(raw []byte) ([]removal, error) {
	if len(raw) == 0 {
		return nil, nil
	}
	v, err := content.ParseJSON(raw)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindValidation, "Malformed imagesToRemove", err)
	}
	if v.Kind() != content.Mapping {
		return nil, apperr.Validation("Malformed imagesToRemove: expected an object of path to URL list")
	}
	keys := v.Keys()
	sort.Strings(keys)
	out := make([]removal, 0, len(keys))
	for _, k := range keys {
		p, err := content.ParsePath(k)
		if err != nil {
			return nil, err
		}
		list, _ := v.Lookup(k)
		urls, ok := list.Strings()
		if !ok {
			return nil, apperr.Newf(apperr.KindValidation, "Malformed imagesToRemove: %q must be a list of URLs", k)
		}
		out = append(out, removal{path: p, urls: urls})
	}
	return out, nil
}

// applyRemovals filters each listed URL out of the list at its path. An
// absent path becomes an empty list, as does a single URL leaf that is
// listed. Removing twice changes nothing.
func applyRemovals(c content.Value, removals []removal) (content.Value, error) {
	if c.IsNull() {
		c = content.Map()
	}
	for _, r := range removals {
		existing, _ := content.GetPath(c, r.path)
		switch existing.Kind() {
		case content.Null, content.Sequence:
		case content.String:
			if u, _ := existing.AsString(); !slices.Contains(r.urls, u) {
				continue
			}
		default:
			return content.Value{}, apperr.Newf(apperr.KindPathConflict,
				"imagesToRemove path %q holds a %s, not a list", r.path.String(), existing.Kind())
		}
		kept := []content.Value{}
		for _, item := range existing.Items() {
			if u, ok := item.AsString(); ok && slices.Contains(r.urls, u) {
				continue
			}
			kept = append(kept, item)
		}
		if err := content.SetPath(&c, r.path, content.Seq(kept...)); err != nil {
			return content.Value{}, err
		}
	}
	return c, nil
}

type fileGroup struct {
	path  content.Path
	files [][]byte
}

// groupFiles collects uploads by target path in path order.
func groupFiles(files []File) ([]fileGroup, error) {
	byPath := map[string]*fileGroup{}
	var order []string
	for _, f := range files {
		if f.Path == RemovalField {
			return nil, apperr.Validation("imagesToRemove cannot be a file")
		}
		g, ok := byPath[f.Path]
		if !ok {
			p, err := content.ParsePath(f.Path)
			if err != nil {
				return nil, err
			}
			g = &fileGroup{path: p}
			byPath[f.Path] = g
			order = append(order, f.Path)
		}
		g.files = append(g.files, f.Data)
	}
	sort.Strings(order)
	out := make([]fileGroup, len(order))
	for i, k := range order {
		out[i] = *byPath[k]
	}
	return out, nil
}

type assignment struct {
	path  content.Path
	value content.Value
}

// assignments orders text fields by path, then one URL list per file group.
// Incoming fields that disagree about the shape of one location are a
// PathConflict.
func assignments(fields []Field, groups []fileGroup, urls [][]string) ([]assignment, error) {
	sorted := slices.Clone(fields)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Path < sorted[j].Path })
	patch := content.NewPatch()
	out := make([]assignment, 0, len(sorted)+len(groups))
	for _, f := range sorted {
		if f.Path == RemovalField {
			continue
		}
		p, err := content.ParsePath(f.Path)
		if err != nil {
			return nil, err
		}
		if err := patch.SetPath(p, f.Value.Clone()); err != nil {
			return nil, err
		}
		out = append(out, assignment{path: p, value: f.Value})
	}
	for i, g := range groups {
		v := content.StrList(urls[i]...)
		if err := patch.SetPath(g.path, v.Clone()); err != nil {
			return nil, err
		}
		out = append(out, assignment{path: g.path, value: v})
	}
	return out, nil
}

// applyAssignments writes every value at its own path in a copy of base.
// Only the addressed location changes: sibling keys and the other elements
// of an indexed list are kept. A mapping value merges into a mapping already
// stored there; any other value, a list included, replaces it.
func applyAssignments(base content.Value, as []assignment) (content.Value, error) {
	out := base.Clone()
	if out.IsNull() {
		out = content.Map()
	}
	for _, a := range as {
		v := a.value.Clone()
		if v.Kind() == content.Mapping {
			if existing, ok := content.GetPath(out, a.path); ok && existing.Kind() == content.Mapping {
				merged := existing.Clone()
				content.DeepMerge(&merged, v)
				v = merged
			}
		}
		if err := content.SetPath(&out, a.path, v); err != nil {
			return content.Value{}, err
		}
	}
	return out, nil
}

// UpdateSection applies a partial edit to one section: listed images are
// stripped from their lists, new files are uploaded and attached, and every
// other field is written at its path over the stored content. The section
// is written once. Deletes of removed images are best effort.
func (s *Service) UpdateSection(ctx context.Context, actor, websiteID primitive.ObjectID, sectionKey string, upd SectionUpdate) (*MergeResult, error) {
	w, _, err := ownedWebsite(ctx, s.store, websiteID, actor, "edit")
	if err != nil {
		return nil, err
	}
	idx, ok := w.Section(sectionKey)
	if !ok {
		return nil, apperr.NotFound("Section doesn't exist in the website")
	}
	section := w.Sections[idx]

	removals, err := parseManifest(upd.ImagesToRemove)
	if err != nil {
		return nil, err
	}
	next, err := applyRemovals(section.Content.Clone(), removals)
	if err != nil {
		return nil, err
	}
	groups, err := groupFiles(upd.Files)
	if err != nil {
		return nil, err
	}
	// shape check with placeholder URLs so a conflicting request uploads nothing
	placeholders := make([][]string, len(groups))
	for i, g := range groups {
		placeholders[i] = make([]string, len(g.files))
	}
	dry, err := assignments(upd.Fields, groups, placeholders)
	if err != nil {
		return nil, err
	}
	if _, err := applyAssignments(next, dry); err != nil {
		return nil, err
	}

	urls := make([][]string, len(groups))
	for i, g := range groups {
		for _, data := range g.files {
			url, err := s.assets.Upload(ctx, data, assets.SectionImagesFolder)
			if err != nil {
				s.log.Warn("section update aborted by upload failure",
					zap.String("website_id", websiteID.Hex()), zap.String("path", g.path.String()),
					zap.Int("uploaded_before_failure", countURLs(urls)), zap.Error(err))
				return nil, err
			}
			urls[i] = append(urls[i], url)
		}
	}
	as, err := assignments(upd.Fields, groups, urls)
	if err != nil {
		return nil, err
	}
	next, err = applyAssignments(next, as)
	if err != nil {
		return nil, err
	}

	var outcomes []assets.Outcome
	for _, r := range removals {
		outcomes = append(outcomes, s.assets.DeleteMany(ctx, r.urls)...)
	}

	if err := s.store.UpdateSectionContent(ctx, w.ID, section.ID, next, s.now().UTC()); err != nil {
		if err == db.ErrNotFound {
			return nil, apperr.NotFound("Section doesn't exist in the website")
		}
		return nil, fmt.Errorf("write section: %w", err)
	}
	section.Content = next

	s.log.Info("section updated",
		zap.String("website_id", w.ID.Hex()), zap.String("section", section.Name),
		zap.Int("fields", len(upd.Fields)), zap.Int("uploaded", countURLs(urls)), zap.Int("removed", len(outcomes)))
	s.afterChange(ctx, w.Subdomain, mq.LifecycleEvent{
		Type: mq.WebsiteSectionUpdated, WebsiteID: w.ID.Hex(), EventID: w.BelongsToThisEvent.Hex(),
		Section: section.Name, ActorID: actor.Hex(),
	})
	return &MergeResult{Section: section, Removed: outcomes}, nil
}

func countURLs(urls [][]string) int {
	n := 0
	for _, u := range urls {
		n += len(u)
	}
	return n
}
