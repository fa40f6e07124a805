package db

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"eventweb/content"
	"eventweb/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func seedEvent(t *testing.T, s Tx) (models.User, models.Event) {
	t.Helper()
	ctx := context.Background()
	u := models.User{ID: primitive.NewObjectID(), Email: "org@example.com", Events: []primitive.ObjectID{}}
	require.NoError(t, s.InsertUser(ctx, &u))
	e := models.Event{ID: primitive.NewObjectID(), Organizer: u.ID, EventName: "Launch", CreatedAt: time.Now()}
	require.NoError(t, s.InsertEvent(ctx, &e))
	require.NoError(t, s.PushUserEvent(ctx, u.ID, e.ID))
	return u, e
}

func TestMemoryStore_RunInTxRollsBack(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()
	u, e := seedEvent(t, s)
	boom := errors.New("boom")

	err := s.RunInTx(ctx, func(ctx context.Context, tx Tx) error {
		require.NoError(t, tx.DeleteEvent(ctx, e.ID))
		require.NoError(t, tx.PullUserEvent(ctx, u.ID, e.ID))
		return boom
	})
	require.ErrorIs(t, err, boom)

	_, err = s.FindEvent(ctx, e.ID)
	require.NoError(t, err)
	got, err := s.FindUser(ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, []primitive.ObjectID{e.ID}, got.Events)
}

func TestMemoryStore_RunInTxCommits(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()
	u, e := seedEvent(t, s)

	require.NoError(t, s.RunInTx(ctx, func(ctx context.Context, tx Tx) error {
		if err := tx.DeleteEvent(ctx, e.ID); err != nil {
			return err
		}
		return tx.PullUserEvent(ctx, u.ID, e.ID)
	}))

	_, err := s.FindEvent(ctx, e.ID)
	assert.ErrorIs(t, err, ErrNotFound)
	got, err := s.FindUser(ctx, u.ID)
	require.NoError(t, err)
	assert.Empty(t, got.Events)
}

func TestMemoryStore_UniqueConstraints(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()
	_, e := seedEvent(t, s)

	dup := models.User{ID: primitive.NewObjectID(), Email: "org@example.com"}
	assert.ErrorIs(t, s.InsertUser(ctx, &dup), ErrDuplicate)

	w1 := models.Website{ID: primitive.NewObjectID(), BelongsToThisEvent: e.ID}
	require.NoError(t, s.InsertWebsite(ctx, &w1))
	w2 := models.Website{ID: primitive.NewObjectID(), BelongsToThisEvent: e.ID}
	assert.ErrorIs(t, s.InsertWebsite(ctx, &w2), ErrDuplicate)
}

func TestMemoryStore_SetEventWebsiteOnlyOnce(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()
	_, e := seedEvent(t, s)

	require.NoError(t, s.SetEventWebsite(ctx, e.ID, primitive.NewObjectID()))
	assert.ErrorIs(t, s.SetEventWebsite(ctx, e.ID, primitive.NewObjectID()), ErrPrecondition)

	require.NoError(t, s.ClearEventWebsite(ctx, e.ID))
	got, err := s.FindEvent(ctx, e.ID)
	require.NoError(t, err)
	assert.Nil(t, got.Website)
}

func TestMemoryStore_PublishGuards(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()
	now := time.Now()

	a := models.Website{ID: primitive.NewObjectID(), BelongsToThisEvent: primitive.NewObjectID()}
	b := models.Website{ID: primitive.NewObjectID(), BelongsToThisEvent: primitive.NewObjectID()}
	require.NoError(t, s.InsertWebsite(ctx, &a))
	require.NoError(t, s.InsertWebsite(ctx, &b))

	pub := models.Publication{Subdomain: "my-event", URL: "http://my-event.localhost", PublishedOn: now}
	require.NoError(t, s.PublishWebsite(ctx, a.ID, pub))
	assert.ErrorIs(t, s.PublishWebsite(ctx, a.ID, pub), ErrPrecondition)
	assert.ErrorIs(t, s.PublishWebsite(ctx, b.ID, pub), ErrDuplicate)

	got, err := s.FindPublishedWebsite(ctx, "my-event")
	require.NoError(t, err)
	assert.True(t, got.PublicationConsistent())

	require.NoError(t, s.UnpublishWebsite(ctx, a.ID, now))
	assert.ErrorIs(t, s.UnpublishWebsite(ctx, a.ID, now), ErrPrecondition)

	got, err = s.FindWebsite(ctx, a.ID)
	require.NoError(t, err)
	assert.False(t, got.Published)
	assert.Nil(t, got.Subdomain)
	assert.Nil(t, got.URL)
	assert.Nil(t, got.PublishedOn)

	taken, err := s.SubdomainTaken(ctx, "my-event")
	require.NoError(t, err)
	assert.False(t, taken)

	gone := primitive.NewObjectID()
	assert.ErrorIs(t, s.PublishWebsite(ctx, gone, models.Publication{Subdomain: "gone"}), ErrNotFound)
	assert.ErrorIs(t, s.UnpublishWebsite(ctx, gone, now), ErrNotFound)
}

func TestMemoryStore_ReturnsCopies(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	sec := models.Section{ID: primitive.NewObjectID(), Name: "Hero", Content: content.Map()}
	sec.Content.Put("title", content.Str("Welcome"))
	w := models.Website{ID: primitive.NewObjectID(), BelongsToThisEvent: primitive.NewObjectID(), Sections: []models.Section{sec}}
	require.NoError(t, s.InsertWebsite(ctx, &w))

	// mutating the caller's value after insert leaves the stored one alone
	sec.Content.Put("title", content.Str("Changed"))

	got, err := s.FindWebsite(ctx, w.ID)
	require.NoError(t, err)
	assert.Equal(t, content.Str("Welcome"), content.Get(got.Sections[0].Content, "title", content.Value{}))

	got.Sections[0].Content.Put("title", content.Str("Again"))
	again, err := s.FindWebsite(ctx, w.ID)
	require.NoError(t, err)
	assert.Equal(t, content.Str("Welcome"), content.Get(again.Sections[0].Content, "title", content.Value{}))
}

func TestMemoryStore_UpdateSectionContent(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	sec := models.Section{ID: primitive.NewObjectID(), Name: "Hero", Content: content.Map()}
	w := models.Website{ID: primitive.NewObjectID(), BelongsToThisEvent: primitive.NewObjectID(), Sections: []models.Section{sec}}
	require.NoError(t, s.InsertWebsite(ctx, &w))

	c := content.Map()
	c.Put("title", content.Str("New"))
	require.NoError(t, s.UpdateSectionContent(ctx, w.ID, sec.ID, c, time.Now()))
	assert.ErrorIs(t, s.UpdateSectionContent(ctx, w.ID, primitive.NewObjectID(), c, time.Now()), ErrNotFound)

	got, err := s.FindWebsite(ctx, w.ID)
	require.NoError(t, err)
	assert.Equal(t, content.Str("New"), content.Get(got.Sections[0].Content, "title", content.Value{}))
}

func TestMemoryStore_ListOrdering(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()
	base := time.Now()
	for i, name := range []string{"old", "new", "mid"} {
		offsets := []time.Duration{0, 2 * time.Hour, time.Hour}
		tpl := models.Template{ID: primitive.NewObjectID(), TemplateName: name, CreatedAt: base.Add(offsets[i])}
		require.NoError(t, s.InsertTemplate(ctx, &tpl))
	}
	list, err := s.ListTemplates(ctx)
	require.NoError(t, err)
	require.Len(t, list, 3)
	assert.Equal(t, "new", list[0].TemplateName)
	assert.Equal(t, "mid", list[1].TemplateName)
	assert.Equal(t, "old", list[2].TemplateName)
}

func TestMemoryStore_SerializesTransactions(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()
	_, e := seedEvent(t, s)

	var wg sync.WaitGroup
	results := make(chan error, 8)
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			results <- s.RunInTx(ctx, func(ctx context.Context, tx Tx) error {
				ev, err := tx.FindEvent(ctx, e.ID)
				if err != nil {
					return err
				}
				if ev.Website != nil {
					return ErrPrecondition
				}
				w := models.Website{ID: primitive.NewObjectID(), BelongsToThisEvent: e.ID}
				if err := tx.InsertWebsite(ctx, &w); err != nil {
					return err
				}
				return tx.SetEventWebsite(ctx, e.ID, w.ID)
			})
		}()
	}
	wg.Wait()
	close(results)

	ok := 0
	for err := range results {
		if err == nil {
			ok++
		}
	}
	assert.Equal(t, 1, ok)
}
