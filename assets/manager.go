package assets

import (
	"context"
	"errors"

	"eventweb/apperr"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// SectionImagesFolder groups images uploaded through section edits.
const SectionImagesFolder = "website_section_images"

// ObjectStore is the binary object storage collaborator.
type ObjectStore interface {
	Upload(ctx context.Context, data []byte, folder string) (string, error)
	Delete(ctx context.Context, url string) error
}

type Status string

const (
	StatusDeleted   Status = "deleted"
	StatusProtected Status = "protected"
	StatusFailed    Status = "failed"
)

// Outcome is the result of deleting one URL.
type Outcome struct {
	URL    string `json:"url"`
	Status Status `json:"status"`
	Reason string `json:"reason,omitempty"`
}

// Manager uploads assets and deletes them, never touching protected URLs.
type Manager struct {
	store     ObjectStore
	protected map[string]struct{}
	log       *zap.Logger
	// parallelism bounds concurrent deletes in DeleteMany.
	parallelism int
}

func NewManager(store ObjectStore, protected []string, log *zap.Logger) *Manager {
	m := &Manager{
		store:       store,
		protected:   make(map[string]struct{}, len(protected)),
		log:         log,
		parallelism: 8,
	}
	for _, u := range protected {
		m.protected[u] = struct{}{}
	}
	return m
}

func (m *Manager) IsProtected(url string) bool {
	_, ok := m.protected[url]
	return ok
}

// Upload stores data under folder and returns its public URL. Any store
// error is reported as UploadFailure; retrying is up to the caller.
func (m *Manager) Upload(ctx context.Context, data []byte, folder string) (string, error) {
	if len(data) == 0 {
		return "", apperr.New(apperr.KindUploadFailure, "Cannot upload an empty file")
	}
	url, err := m.store.Upload(ctx, data, folder)
	if err != nil {
		msg := "Failed to upload file"
		switch {
		case errors.Is(err, ErrInvalidMIME):
			msg = "Unsupported file type"
		case errors.Is(err, ErrFileTooLarge):
			msg = "File is too large"
		}
		m.log.Warn("asset upload failed", zap.String("folder", folder), zap.Error(err))
		return "", apperr.Wrap(apperr.KindUploadFailure, msg, err)
	}
	m.log.Debug("asset uploaded", zap.String("folder", folder), zap.String("url", url))
	return url, nil
}

// DeleteMany deletes every URL independently and reports one outcome per
// distinct URL, in input order. A failed delete never stops the others.
func (m *Manager) DeleteMany(ctx context.Context, urls []string) []Outcome {
	seen := make(map[string]struct{}, len(urls))
	var unique []string
	for _, u := range urls {
		if _, ok := seen[u]; ok {
			continue
		}
		seen[u] = struct{}{}
		unique = append(unique, u)
	}

	outcomes := make([]Outcome, len(unique))
	var g errgroup.Group
	g.SetLimit(m.parallelism)
	for i, u := range unique {
		if m.IsProtected(u) {
			outcomes[i] = Outcome{URL: u, Status: StatusProtected}
			continue
		}
		g.Go(func() error {
			if err := m.store.Delete(ctx, u); err != nil {
				outcomes[i] = Outcome{URL: u, Status: StatusFailed, Reason: err.Error()}
				return nil
			}
			outcomes[i] = Outcome{URL: u, Status: StatusDeleted}
			return nil
		})
	}
	_ = g.Wait()

	for _, o := range outcomes {
		switch o.Status {
		case StatusFailed:
			m.log.Warn("asset delete failed, object orphaned",
				zap.String("url", o.URL), zap.String("outcome", string(o.Status)), zap.String("reason", o.Reason))
		case StatusProtected:
			m.log.Info("protected asset kept", zap.String("url", o.URL), zap.String("outcome", string(o.Status)))
		default:
			m.log.Debug("asset deleted", zap.String("url", o.URL), zap.String("outcome", string(o.Status)))
		}
	}
	return outcomes
}
