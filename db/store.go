package db

import (
	"context"
	"errors"
	"time"

	"eventweb/content"
	"eventweb/models"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

var (
	ErrNotFound = errors.New("db: document not found")
	// ErrDuplicate reports a unique index violation.
	ErrDuplicate = errors.New("db: duplicate key")
	// ErrPrecondition reports a guarded write whose filter no longer matched.
	ErrPrecondition = errors.New("db: write precondition failed")
)

// Tx is the set of reads and writes available to a caller. Inside RunInTx
// every call goes through the same isolation scope.
type Tx interface {
	InsertUser(ctx context.Context, u *models.User) error
	FindUser(ctx context.Context, id primitive.ObjectID) (*models.User, error)
	FindUserByEmail(ctx context.Context, email string) (*models.User, error)
	SetUserPassword(ctx context.Context, id primitive.ObjectID, hash string) error
	PushUserEvent(ctx context.Context, userID, eventID primitive.ObjectID) error
	PullUserEvent(ctx context.Context, userID, eventID primitive.ObjectID) error

	InsertEvent(ctx context.Context, e *models.Event) error
	FindEvent(ctx context.Context, id primitive.ObjectID) (*models.Event, error)
	ListEventsByOrganizer(ctx context.Context, organizer primitive.ObjectID) ([]models.Event, error)
	UpdateEvent(ctx context.Context, id primitive.ObjectID, patch models.EventPatch, at time.Time) (*models.Event, error)
	// SetEventWebsite links a website to an event that has none.
	SetEventWebsite(ctx context.Context, eventID, websiteID primitive.ObjectID) error
	ClearEventWebsite(ctx context.Context, eventID primitive.ObjectID) error
	DeleteEvent(ctx context.Context, id primitive.ObjectID) error

	InsertTemplate(ctx context.Context, t *models.Template) error
	FindTemplate(ctx context.Context, id primitive.ObjectID) (*models.Template, error)
	ListTemplates(ctx context.Context) ([]models.Template, error)

	InsertWebsite(ctx context.Context, w *models.Website) error
	FindWebsite(ctx context.Context, id primitive.ObjectID) (*models.Website, error)
	FindWebsiteByEvent(ctx context.Context, eventID primitive.ObjectID) (*models.Website, error)
	FindPublishedWebsite(ctx context.Context, subdomain string) (*models.Website, error)
	SubdomainTaken(ctx context.Context, subdomain string) (bool, error)
	ListPublishedWebsites(ctx context.Context, eventIDs []primitive.ObjectID) ([]models.Website, error)
	UpdateSectionContent(ctx context.Context, websiteID, sectionID primitive.ObjectID, c content.Value, at time.Time) error
	ReplaceSections(ctx context.Context, websiteID primitive.ObjectID, sections []models.Section, at time.Time) error
	// PublishWebsite sets the four publication fields of an unpublished website.
	// ErrPrecondition means it is already published; ErrNotFound that it is gone.
	PublishWebsite(ctx context.Context, id primitive.ObjectID, p models.Publication) error
	// UnpublishWebsite clears the four publication fields of a published website.
	UnpublishWebsite(ctx context.Context, id primitive.ObjectID, at time.Time) error
	DeleteWebsite(ctx context.Context, id primitive.ObjectID) error
	DeleteWebsiteByEvent(ctx context.Context, eventID primitive.ObjectID) (bool, error)
}

// TxFunc runs inside a transaction. Returning an error aborts it.
type TxFunc func(ctx context.Context, tx Tx) error

// Store is a Tx outside any transaction plus the ability to open one.
type Store interface {
	Tx
	// RunInTx commits fn's writes together or not at all. fn must use only
	// the tx and ctx it is given.
	RunInTx(ctx context.Context, fn TxFunc) error
	Close(ctx context.Context) error
}
