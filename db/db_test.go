package db

import (
	"context"
	"errors"
	"os"
	"testing"
	"time"

	"eventweb/content"
	"eventweb/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

// mongoStore connects to a throwaway database on a live replica set; set
// INTEGRATION_TEST=true and TEST_MONGO_URI.
func mongoStore(t *testing.T) *MongoStore {
	t.Helper()
	if os.Getenv("INTEGRATION_TEST") != "true" {
		t.Skip("Skipping integration test. Set INTEGRATION_TEST=true to run")
	}
	uri := os.Getenv("TEST_MONGO_URI")
	if uri == "" {
		uri = "mongodb://localhost:27017/?replicaSet=rs0"
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	name := "eventweb_test_" + primitive.NewObjectID().Hex()
	s, err := Connect(ctx, uri, name, zap.NewNop())
	require.NoError(t, err)
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = s.client.Database(name).Drop(ctx)
		_ = s.Close(ctx)
	})
	return s
}

func testCtx(t *testing.T) context.Context {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	t.Cleanup(cancel)
	return ctx
}

func TestMongoStore_SetEventWebsiteOnlyOnce(t *testing.T) {
	s := mongoStore(t)
	ctx := testCtx(t)
	_, e := seedEvent(t, s)

	first := primitive.NewObjectID()
	require.NoError(t, s.SetEventWebsite(ctx, e.ID, first))
	assert.ErrorIs(t, s.SetEventWebsite(ctx, e.ID, primitive.NewObjectID()), ErrPrecondition)

	got, err := s.FindEvent(ctx, e.ID)
	require.NoError(t, err)
	require.NotNil(t, got.Website)
	assert.Equal(t, first, *got.Website)

	require.NoError(t, s.ClearEventWebsite(ctx, e.ID))
	got, err = s.FindEvent(ctx, e.ID)
	require.NoError(t, err)
	assert.Nil(t, got.Website)
	require.NoError(t, s.SetEventWebsite(ctx, e.ID, primitive.NewObjectID()))
}

func TestMongoStore_PushOntoFreshUser(t *testing.T) {
	s := mongoStore(t)
	ctx := testCtx(t)

	u := models.User{ID: primitive.NewObjectID(), Email: "fresh@example.com"}
	require.NoError(t, s.InsertUser(ctx, &u))
	eventID := primitive.NewObjectID()
	require.NoError(t, s.PushUserEvent(ctx, u.ID, eventID))

	got, err := s.FindUser(ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, []primitive.ObjectID{eventID}, got.Events)
}

func TestMongoStore_UniqueIndexes(t *testing.T) {
	s := mongoStore(t)
	ctx := testCtx(t)
	_, e := seedEvent(t, s)

	dup := models.User{ID: primitive.NewObjectID(), Email: "org@example.com"}
	assert.ErrorIs(t, s.InsertUser(ctx, &dup), ErrDuplicate)

	w1 := models.Website{ID: primitive.NewObjectID(), BelongsToThisEvent: e.ID}
	require.NoError(t, s.InsertWebsite(ctx, &w1))
	w2 := models.Website{ID: primitive.NewObjectID(), BelongsToThisEvent: e.ID}
	assert.ErrorIs(t, s.InsertWebsite(ctx, &w2), ErrDuplicate)

	// unpublished websites carry no subdomain and never collide
	w3 := models.Website{ID: primitive.NewObjectID(), BelongsToThisEvent: primitive.NewObjectID()}
	require.NoError(t, s.InsertWebsite(ctx, &w3))

	pub := models.Publication{Subdomain: "launch", URL: "https://launch.example.com", PublishedOn: time.Now().UTC()}
	require.NoError(t, s.PublishWebsite(ctx, w1.ID, pub))
	assert.ErrorIs(t, s.PublishWebsite(ctx, w3.ID, pub), ErrDuplicate)

	got, err := s.FindWebsite(ctx, w3.ID)
	require.NoError(t, err)
	assert.False(t, got.Published)
	assert.Nil(t, got.Subdomain)
}

func TestMongoStore_PublishGuards(t *testing.T) {
	s := mongoStore(t)
	ctx := testCtx(t)
	now := time.Now().UTC()

	w := models.Website{ID: primitive.NewObjectID(), BelongsToThisEvent: primitive.NewObjectID()}
	require.NoError(t, s.InsertWebsite(ctx, &w))

	pub := models.Publication{Subdomain: "my-event", URL: "https://my-event.example.com", PublishedOn: now}
	require.NoError(t, s.PublishWebsite(ctx, w.ID, pub))
	assert.ErrorIs(t, s.PublishWebsite(ctx, w.ID, pub), ErrPrecondition)

	got, err := s.FindPublishedWebsite(ctx, "my-event")
	require.NoError(t, err)
	assert.True(t, got.PublicationConsistent())
	taken, err := s.SubdomainTaken(ctx, "my-event")
	require.NoError(t, err)
	assert.True(t, taken)

	require.NoError(t, s.UnpublishWebsite(ctx, w.ID, now))
	assert.ErrorIs(t, s.UnpublishWebsite(ctx, w.ID, now), ErrPrecondition)

	got, err = s.FindWebsite(ctx, w.ID)
	require.NoError(t, err)
	assert.False(t, got.Published)
	assert.Nil(t, got.Subdomain)
	assert.Nil(t, got.URL)
	assert.Nil(t, got.PublishedOn)
	taken, err = s.SubdomainTaken(ctx, "my-event")
	require.NoError(t, err)
	assert.False(t, taken)

	gone := primitive.NewObjectID()
	assert.ErrorIs(t, s.PublishWebsite(ctx, gone, pub), ErrNotFound)
	assert.ErrorIs(t, s.UnpublishWebsite(ctx, gone, now), ErrNotFound)
}

func TestMongoStore_UpdateSectionContent(t *testing.T) {
	s := mongoStore(t)
	ctx := testCtx(t)

	hero := models.Section{ID: primitive.NewObjectID(), Name: "hero", Content: content.Map()}
	hero.Content.Put("title", content.Str("Welcome"))
	gallery := models.Section{ID: primitive.NewObjectID(), Name: "gallery", Content: content.Map()}
	gallery.Content.Put("images", content.StrList("https://cdn.test/a"))
	w := models.Website{
		ID: primitive.NewObjectID(), BelongsToThisEvent: primitive.NewObjectID(),
		Sections: []models.Section{hero, gallery},
	}
	require.NoError(t, s.InsertWebsite(ctx, &w))

	c := content.Map()
	c.Put("images", content.StrList("https://cdn.test/b", "https://cdn.test/c"))
	require.NoError(t, s.UpdateSectionContent(ctx, w.ID, gallery.ID, c, time.Now().UTC()))
	assert.ErrorIs(t, s.UpdateSectionContent(ctx, w.ID, primitive.NewObjectID(), c, time.Now().UTC()), ErrNotFound)

	got, err := s.FindWebsite(ctx, w.ID)
	require.NoError(t, err)
	require.Len(t, got.Sections, 2)
	assert.Equal(t, content.Str("Welcome"), content.Get(got.Sections[0].Content, "title", content.Value{}))
	images, ok := content.Get(got.Sections[1].Content, "images", content.Value{}).Strings()
	require.True(t, ok)
	assert.Equal(t, []string{"https://cdn.test/b", "https://cdn.test/c"}, images)
}

func TestMongoStore_RunInTxRollsBack(t *testing.T) {
	s := mongoStore(t)
	ctx := testCtx(t)
	u, e := seedEvent(t, s)
	w := models.Website{ID: primitive.NewObjectID(), BelongsToThisEvent: e.ID}
	require.NoError(t, s.InsertWebsite(ctx, &w))
	require.NoError(t, s.SetEventWebsite(ctx, e.ID, w.ID))
	boom := errors.New("boom")

	err := s.RunInTx(ctx, func(ctx context.Context, tx Tx) error {
		deleted, err := tx.DeleteWebsiteByEvent(ctx, e.ID)
		if err != nil {
			return err
		}
		require.True(t, deleted)
		if err := tx.DeleteEvent(ctx, e.ID); err != nil {
			return err
		}
		if err := tx.PullUserEvent(ctx, u.ID, e.ID); err != nil {
			return err
		}
		return boom
	})
	require.ErrorIs(t, err, boom)

	_, err = s.FindWebsite(ctx, w.ID)
	require.NoError(t, err)
	_, err = s.FindEvent(ctx, e.ID)
	require.NoError(t, err)
	got, err := s.FindUser(ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, []primitive.ObjectID{e.ID}, got.Events)

	require.NoError(t, s.RunInTx(ctx, func(ctx context.Context, tx Tx) error {
		if _, err := tx.DeleteWebsiteByEvent(ctx, e.ID); err != nil {
			return err
		}
		if err := tx.DeleteEvent(ctx, e.ID); err != nil {
			return err
		}
		return tx.PullUserEvent(ctx, u.ID, e.ID)
	}))
	_, err = s.FindWebsite(ctx, w.ID)
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = s.FindEvent(ctx, e.ID)
	assert.ErrorIs(t, err, ErrNotFound)
	got, err = s.FindUser(ctx, u.ID)
	require.NoError(t, err)
	assert.Empty(t, got.Events)
}
