package db

import (
	"context"
	"slices"
	"sort"
	"sync"
	"time"

	"eventweb/content"
	"eventweb/models"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// MemoryStore is an in-process Store. Transactions are serialized and run
// against a private copy of the data that replaces the live copy on commit.
type MemoryStore struct {
	mu    sync.Mutex
	state *memState
}

type memState struct {
	users     map[primitive.ObjectID]models.User
	events    map[primitive.ObjectID]models.Event
	templates map[primitive.ObjectID]models.Template
	websites  map[primitive.ObjectID]models.Website
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{state: &memState{
		users:     map[primitive.ObjectID]models.User{},
		events:    map[primitive.ObjectID]models.Event{},
		templates: map[primitive.ObjectID]models.Template{},
		websites:  map[primitive.ObjectID]models.Website{},
	}}
}

func (s *memState) clone() *memState {
	out := &memState{
		users:     make(map[primitive.ObjectID]models.User, len(s.users)),
		events:    make(map[primitive.ObjectID]models.Event, len(s.events)),
		templates: make(map[primitive.ObjectID]models.Template, len(s.templates)),
		websites:  make(map[primitive.ObjectID]models.Website, len(s.websites)),
	}
	for k, v := range s.users {
		out.users[k] = v.Clone()
	}
	for k, v := range s.events {
		out.events[k] = v.Clone()
	}
	for k, v := range s.templates {
		out.templates[k] = v.Clone()
	}
	for k, v := range s.websites {
		out.websites[k] = v.Clone()
	}
	return out
}

func (s *MemoryStore) RunInTx(ctx context.Context, fn TxFunc) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	snap := s.state.clone()
	if err := fn(ctx, memTx{snap}); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	s.state = snap
	return nil
}

func (s *MemoryStore) Close(context.Context) error { return nil }

func (s *MemoryStore) tx() memTx { return memTx{s.state} }

func locked[T any](s *MemoryStore, f func(memTx) (T, error)) (T, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return f(s.tx())
}

func lockedErr(s *MemoryStore, f func(memTx) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return f(s.tx())
}

func (s *MemoryStore) InsertUser(ctx context.Context, u *models.User) error {
	return lockedErr(s, func(t memTx) error { return t.InsertUser(ctx, u) })
}

func (s *MemoryStore) FindUser(ctx context.Context, id primitive.ObjectID) (*models.User, error) {
	return locked(s, func(t memTx) (*models.User, error) { return t.FindUser(ctx, id) })
}

func (s *MemoryStore) FindUserByEmail(ctx context.Context, email string) (*models.User, error) {
	return locked(s, func(t memTx) (*models.User, error) { return t.FindUserByEmail(ctx, email) })
}

func (s *MemoryStore) SetUserPassword(ctx context.Context, id primitive.ObjectID, hash string) error {
	return lockedErr(s, func(t memTx) error { return t.SetUserPassword(ctx, id, hash) })
}

func (s *MemoryStore) PushUserEvent(ctx context.Context, userID, eventID primitive.ObjectID) error {
	return lockedErr(s, func(t memTx) error { return t.PushUserEvent(ctx, userID, eventID) })
}

func (s *MemoryStore) PullUserEvent(ctx context.Context, userID, eventID primitive.ObjectID) error {
	return lockedErr(s, func(t memTx) error { return t.PullUserEvent(ctx, userID, eventID) })
}

func (s *MemoryStore) InsertEvent(ctx context.Context, e *models.Event) error {
	return lockedErr(s, func(t memTx) error { return t.InsertEvent(ctx, e) })
}

func (s *MemoryStore) FindEvent(ctx context.Context, id primitive.ObjectID) (*models.Event, error) {
	return locked(s, func(t memTx) (*models.Event, error) { return t.FindEvent(ctx, id) })
}

func (s *MemoryStore) ListEventsByOrganizer(ctx context.Context, organizer primitive.ObjectID) ([]models.Event, error) {
	return locked(s, func(t memTx) ([]models.Event, error) { return t.ListEventsByOrganizer(ctx, organizer) })
}

func (s *MemoryStore) UpdateEvent(ctx context.Context, id primitive.ObjectID, patch models.EventPatch, at time.Time) (*models.Event, error) {
	return locked(s, func(t memTx) (*models.Event, error) { return t.UpdateEvent(ctx, id, patch, at) })
}

func (s *MemoryStore) SetEventWebsite(ctx context.Context, eventID, websiteID primitive.ObjectID) error {
	return lockedErr(s, func(t memTx) error { return t.SetEventWebsite(ctx, eventID, websiteID) })
}

func (s *MemoryStore) ClearEventWebsite(ctx context.Context, eventID primitive.ObjectID) error {
	return lockedErr(s, func(t memTx) error { return t.ClearEventWebsite(ctx, eventID) })
}

func (s *MemoryStore) DeleteEvent(ctx context.Context, id primitive.ObjectID) error {
	return lockedErr(s, func(t memTx) error { return t.DeleteEvent(ctx, id) })
}

func (s *MemoryStore) InsertTemplate(ctx context.Context, tpl *models.Template) error {
	return lockedErr(s, func(t memTx) error { return t.InsertTemplate(ctx, tpl) })
}

func (s *MemoryStore) FindTemplate(ctx context.Context, id primitive.ObjectID) (*models.Template, error) {
	return locked(s, func(t memTx) (*models.Template, error) { return t.FindTemplate(ctx, id) })
}

func (s *MemoryStore) ListTemplates(ctx context.Context) ([]models.Template, error) {
	return locked(s, func(t memTx) ([]models.Template, error) { return t.ListTemplates(ctx) })
}

func (s *MemoryStore) InsertWebsite(ctx context.Context, w *models.Website) error {
	return lockedErr(s, func(t memTx) error { return t.InsertWebsite(ctx, w) })
}

func (s *MemoryStore) FindWebsite(ctx context.Context, id primitive.ObjectID) (*models.Website, error) {
	return locked(s, func(t memTx) (*models.Website, error) { return t.FindWebsite(ctx, id) })
}

func (s *MemoryStore) FindWebsiteByEvent(ctx context.Context, eventID primitive.ObjectID) (*models.Website, error) {
	return locked(s, func(t memTx) (*models.Website, error) { return t.FindWebsiteByEvent(ctx, eventID) })
}

func (s *MemoryStore) FindPublishedWebsite(ctx context.Context, subdomain string) (*models.Website, error) {
	return locked(s, func(t memTx) (*models.Website, error) { return t.FindPublishedWebsite(ctx, subdomain) })
}

func (s *MemoryStore) SubdomainTaken(ctx context.Context, subdomain string) (bool, error) {
	return locked(s, func(t memTx) (bool, error) { return t.SubdomainTaken(ctx, subdomain) })
}

func (s *MemoryStore) ListPublishedWebsites(ctx context.Context, eventIDs []primitive.ObjectID) ([]models.Website, error) {
	return locked(s, func(t memTx) ([]models.Website, error) { return t.ListPublishedWebsites(ctx, eventIDs) })
}

func (s *MemoryStore) UpdateSectionContent(ctx context.Context, websiteID, sectionID primitive.ObjectID, c content.Value, at time.Time) error {
	return lockedErr(s, func(t memTx) error { return t.UpdateSectionContent(ctx, websiteID, sectionID, c, at) })
}

func (s *MemoryStore) ReplaceSections(ctx context.Context, websiteID primitive.ObjectID, sections []models.Section, at time.Time) error {
	return lockedErr(s, func(t memTx) error { return t.ReplaceSections(ctx, websiteID, sections, at) })
}

func (s *MemoryStore) PublishWebsite(ctx context.Context, id primitive.ObjectID, p models.Publication) error {
	return lockedErr(s, func(t memTx) error { return t.PublishWebsite(ctx, id, p) })
}

func (s *MemoryStore) UnpublishWebsite(ctx context.Context, id primitive.ObjectID, at time.Time) error {
	return lockedErr(s, func(t memTx) error { return t.UnpublishWebsite(ctx, id, at) })
}

func (s *MemoryStore) DeleteWebsite(ctx context.Context, id primitive.ObjectID) error {
	return lockedErr(s, func(t memTx) error { return t.DeleteWebsite(ctx, id) })
}

func (s *MemoryStore) DeleteWebsiteByEvent(ctx context.Context, eventID primitive.ObjectID) (bool, error) {
	return locked(s, func(t memTx) (bool, error) { return t.DeleteWebsiteByEvent(ctx, eventID) })
}

// memTx operates on one memState without locking. Documents are copied on
// the way in and out so callers never share memory with the store.
type memTx struct {
	st *memState
}

func (t memTx) InsertUser(_ context.Context, u *models.User) error {
	for _, existing := range t.st.users {
		if existing.Email == u.Email {
			return ErrDuplicate
		}
	}
	if _, ok := t.st.users[u.ID]; ok {
		return ErrDuplicate
	}
	t.st.users[u.ID] = u.Clone()
	return nil
}

func (t memTx) FindUser(_ context.Context, id primitive.ObjectID) (*models.User, error) {
	u, ok := t.st.users[id]
	if !ok {
		return nil, ErrNotFound
	}
	u = u.Clone()
	return &u, nil
}

func (t memTx) FindUserByEmail(_ context.Context, email string) (*models.User, error) {
	for _, u := range t.st.users {
		if u.Email == email {
			u = u.Clone()
			return &u, nil
		}
	}
	return nil, ErrNotFound
}

func (t memTx) SetUserPassword(_ context.Context, id primitive.ObjectID, hash string) error {
	u, ok := t.st.users[id]
	if !ok {
		return ErrNotFound
	}
	u.Password = hash
	u.UpdatedAt = time.Now()
	t.st.users[id] = u
	return nil
}

func (t memTx) PushUserEvent(_ context.Context, userID, eventID primitive.ObjectID) error {
	u, ok := t.st.users[userID]
	if !ok {
		return ErrNotFound
	}
	u.Events = append(slices.Clone(u.Events), eventID)
	t.st.users[userID] = u
	return nil
}

func (t memTx) PullUserEvent(_ context.Context, userID, eventID primitive.ObjectID) error {
	u, ok := t.st.users[userID]
	if !ok {
		return ErrNotFound
	}
	u.Events = slices.DeleteFunc(slices.Clone(u.Events), func(id primitive.ObjectID) bool { return id == eventID })
	t.st.users[userID] = u
	return nil
}

func (t memTx) InsertEvent(_ context.Context, e *models.Event) error {
	if _, ok := t.st.events[e.ID]; ok {
		return ErrDuplicate
	}
	t.st.events[e.ID] = e.Clone()
	return nil
}

func (t memTx) FindEvent(_ context.Context, id primitive.ObjectID) (*models.Event, error) {
	e, ok := t.st.events[id]
	if !ok {
		return nil, ErrNotFound
	}
	e = e.Clone()
	return &e, nil
}

func (t memTx) ListEventsByOrganizer(_ context.Context, organizer primitive.ObjectID) ([]models.Event, error) {
	out := []models.Event{}
	for _, e := range t.st.events {
		if e.Organizer == organizer {
			out = append(out, e.Clone())
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return newer(out[i].CreatedAt, out[i].ID, out[j].CreatedAt, out[j].ID) })
	return out, nil
}

// newer orders by creation time descending, then by id descending.
func newer(at1 time.Time, id1 primitive.ObjectID, at2 time.Time, id2 primitive.ObjectID) bool {
	if !at1.Equal(at2) {
		return at1.After(at2)
	}
	return id1.Hex() > id2.Hex()
}

func (t memTx) UpdateEvent(_ context.Context, id primitive.ObjectID, patch models.EventPatch, at time.Time) (*models.Event, error) {
	e, ok := t.st.events[id]
	if !ok {
		return nil, ErrNotFound
	}
	patch.Apply(&e)
	e.UpdatedAt = at
	t.st.events[id] = e
	out := e.Clone()
	return &out, nil
}

func (t memTx) SetEventWebsite(_ context.Context, eventID, websiteID primitive.ObjectID) error {
	e, ok := t.st.events[eventID]
	if !ok || e.Website != nil {
		return ErrPrecondition
	}
	e.Website = &websiteID
	e.UpdatedAt = time.Now()
	t.st.events[eventID] = e
	return nil
}

func (t memTx) ClearEventWebsite(_ context.Context, eventID primitive.ObjectID) error {
	e, ok := t.st.events[eventID]
	if !ok {
		return ErrNotFound
	}
	e.Website = nil
	e.UpdatedAt = time.Now()
	t.st.events[eventID] = e
	return nil
}

func (t memTx) DeleteEvent(_ context.Context, id primitive.ObjectID) error {
	if _, ok := t.st.events[id]; !ok {
		return ErrNotFound
	}
	delete(t.st.events, id)
	return nil
}

func (t memTx) InsertTemplate(_ context.Context, tpl *models.Template) error {
	if _, ok := t.st.templates[tpl.ID]; ok {
		return ErrDuplicate
	}
	t.st.templates[tpl.ID] = tpl.Clone()
	return nil
}

func (t memTx) FindTemplate(_ context.Context, id primitive.ObjectID) (*models.Template, error) {
	tpl, ok := t.st.templates[id]
	if !ok {
		return nil, ErrNotFound
	}
	tpl = tpl.Clone()
	return &tpl, nil
}

func (t memTx) ListTemplates(context.Context) ([]models.Template, error) {
	out := make([]models.Template, 0, len(t.st.templates))
	for _, tpl := range t.st.templates {
		out = append(out, tpl.Clone())
	}
	sort.SliceStable(out, func(i, j int) bool { return newer(out[i].CreatedAt, out[i].ID, out[j].CreatedAt, out[j].ID) })
	return out, nil
}

func (t memTx) InsertWebsite(_ context.Context, w *models.Website) error {
	if _, ok := t.st.websites[w.ID]; ok {
		return ErrDuplicate
	}
	for _, existing := range t.st.websites {
		if existing.BelongsToThisEvent == w.BelongsToThisEvent {
			return ErrDuplicate
		}
		if w.Subdomain != nil && existing.Subdomain != nil && *existing.Subdomain == *w.Subdomain {
			return ErrDuplicate
		}
	}
	t.st.websites[w.ID] = w.Clone()
	return nil
}

func (t memTx) FindWebsite(_ context.Context, id primitive.ObjectID) (*models.Website, error) {
	w, ok := t.st.websites[id]
	if !ok {
		return nil, ErrNotFound
	}
	w = w.Clone()
	return &w, nil
}

func (t memTx) FindWebsiteByEvent(_ context.Context, eventID primitive.ObjectID) (*models.Website, error) {
	for _, w := range t.st.websites {
		if w.BelongsToThisEvent == eventID {
			w = w.Clone()
			return &w, nil
		}
	}
	return nil, ErrNotFound
}

func (t memTx) FindPublishedWebsite(_ context.Context, subdomain string) (*models.Website, error) {
	for _, w := range t.st.websites {
		if w.Published && w.Subdomain != nil && *w.Subdomain == subdomain {
			w = w.Clone()
			return &w, nil
		}
	}
	return nil, ErrNotFound
}

func (t memTx) SubdomainTaken(_ context.Context, subdomain string) (bool, error) {
	for _, w := range t.st.websites {
		if w.Subdomain != nil && *w.Subdomain == subdomain {
			return true, nil
		}
	}
	return false, nil
}

func (t memTx) ListPublishedWebsites(_ context.Context, eventIDs []primitive.ObjectID) ([]models.Website, error) {
	out := []models.Website{}
	for _, w := range t.st.websites {
		if w.Published && w.Subdomain != nil && w.URL != nil && slices.Contains(eventIDs, w.BelongsToThisEvent) {
			out = append(out, w.Clone())
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return newer(out[i].CreatedAt, out[i].ID, out[j].CreatedAt, out[j].ID) })
	return out, nil
}

func (t memTx) UpdateSectionContent(_ context.Context, websiteID, sectionID primitive.ObjectID, c content.Value, at time.Time) error {
	w, ok := t.st.websites[websiteID]
	if !ok {
		return ErrNotFound
	}
	for i := range w.Sections {
		if w.Sections[i].ID == sectionID {
			w.Sections = models.CloneSections(w.Sections)
			w.Sections[i].Content = c.Clone()
			w.UpdatedAt = at
			t.st.websites[websiteID] = w
			return nil
		}
	}
	return ErrNotFound
}

func (t memTx) ReplaceSections(_ context.Context, websiteID primitive.ObjectID, sections []models.Section, at time.Time) error {
	w, ok := t.st.websites[websiteID]
	if !ok {
		return ErrNotFound
	}
	w.Sections = models.CloneSections(sections)
	w.UpdatedAt = at
	t.st.websites[websiteID] = w
	return nil
}

func (t memTx) PublishWebsite(_ context.Context, id primitive.ObjectID, p models.Publication) error {
	w, ok := t.st.websites[id]
	if !ok {
		return ErrNotFound
	}
	if w.Published {
		return ErrPrecondition
	}
	for otherID, other := range t.st.websites {
		if otherID != id && other.Subdomain != nil && *other.Subdomain == p.Subdomain {
			return ErrDuplicate
		}
	}
	sub, url, on := p.Subdomain, p.URL, p.PublishedOn
	w.Published = true
	w.Subdomain = &sub
	w.URL = &url
	w.PublishedOn = &on
	w.UpdatedAt = on
	t.st.websites[id] = w
	return nil
}

func (t memTx) UnpublishWebsite(_ context.Context, id primitive.ObjectID, at time.Time) error {
	w, ok := t.st.websites[id]
	if !ok {
		return ErrNotFound
	}
	if !w.Published {
		return ErrPrecondition
	}
	w.Published = false
	w.Subdomain = nil
	w.URL = nil
	w.PublishedOn = nil
	w.UpdatedAt = at
	t.st.websites[id] = w
	return nil
}

func (t memTx) DeleteWebsite(_ context.Context, id primitive.ObjectID) error {
	if _, ok := t.st.websites[id]; !ok {
		return ErrNotFound
	}
	delete(t.st.websites, id)
	return nil
}

func (t memTx) DeleteWebsiteByEvent(_ context.Context, eventID primitive.ObjectID) (bool, error) {
	for id, w := range t.st.websites {
		if w.BelongsToThisEvent == eventID {
			delete(t.st.websites, id)
			return true, nil
		}
	}
	return false, nil
}

var (
	_ Store = (*MemoryStore)(nil)
	_ Tx    = memTx{}
)
