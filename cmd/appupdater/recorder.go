package main

import (
	"context"

	"appupdater/internal/debug"
	"appupdater/internal/history"
	"appupdater/internal/update"
)

// recorder writes check and download outcomes to the history store. A nil
// store makes every method a no-op.
type recorder struct {
	store          *history.Store
	owner          string
	repo           string
	currentVersion string
}

func newRecorder(store *history.Store, opts runtimeOptions) *recorder {
	return &recorder{
		store:          store,
		owner:          opts.owner,
		repo:           opts.repo,
		currentVersion: opts.currentVersion,
	}
}

func (r *recorder) checked(ctx context.Context, s update.State) {
	if r == nil || r.store == nil {
		return
	}
	c := history.Check{
		Owner:          r.owner,
		Repo:           r.repo,
		CurrentVersion: r.currentVersion,
		Result:         s.Kind().String(),
	}
	switch s := s.(type) {
	case update.UpdateAvailable:
		c.FoundVersion = s.Release.Version
	case update.Failure:
		c.Message = s.Message
	}
	if _, err := r.store.RecordCheck(ctx, c); err != nil {
		debug.Logf("record check: %v", err)
	}
}

func (r *recorder) downloaded(ctx context.Context, a update.UpdateAvailable, path string) {
	if r == nil || r.store == nil {
		return
	}
	_, err := r.store.RecordDownload(ctx, history.Download{
		Owner:   r.owner,
		Repo:    r.repo,
		Version: a.Release.Version,
		Asset:   a.Asset.Name,
		Path:    path,
		Size:    a.Asset.Size,
	})
	if err != nil {
		debug.Logf("record download: %v", err)
	}
}
