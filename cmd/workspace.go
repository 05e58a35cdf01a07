package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/iksnae/workspace-chat/internal"
)

// workspace is a fully wired orchestrator plus the resources to release
// when the command finishes
type workspace struct {
	orch     *internal.Orchestrator
	restored int
	closers  []func() error
}

func (w *workspace) Close() error {
	var errs []error
	for i := len(w.closers) - 1; i >= 0; i-- {
		if err := w.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	w.closers = nil
	return errors.Join(errs...)
}

// buildWorkspace loads the catalog, restores snapshots, attaches the
// snapshot sinks and applies the seed, reporting each step on progress
func buildWorkspace(ctx context.Context, progress io.Writer, sched internal.Scheduler, hooks internal.Hooks) (*workspace, error) {
	ws := &workspace{}
	store := internal.NewSessionStore(nil)
	inbox := internal.NewInbox(nil)
	catalog := internal.DefaultCatalog()

	var (
		sqliteSink  *internal.SQLiteSnapshotter
		archiveSink *internal.ArchiveSnapshotter
	)

	steps := []internal.ProgressStep{
		{
			Message: "Loading catalog",
			Fn: func() error {
				if cfg.CatalogPath == "" {
					return nil
				}
				c, err := internal.LoadCatalog(cfg.CatalogPath)
				if err != nil {
					return err
				}
				catalog = c
				return nil
			},
		},
		{
			Message: "Restoring sessions",
			Fn: func() error {
				if cfg.SnapshotDB != "" {
					s, err := internal.OpenSQLiteSnapshotter(cfg.SnapshotDB)
					if err != nil {
						return err
					}
					sqliteSink = s
					ws.closers = append(ws.closers, s.Close)
					n, err := s.Restore(store)
					if err != nil {
						return err
					}
					ws.restored += n
				}
				if cfg.ArchiveDir != "" {
					archiveSink = internal.NewArchiveSnapshotter(cfg.ArchiveDir)
					if ws.restored > 0 {
						return nil
					}
					n, err := archiveSink.Restore(store)
					if err != nil {
						// a fresh archive has no index yet
						internal.LogDebug("Nothing restored from archive: %v", err)
						return nil
					}
					ws.restored += n
				}
				return nil
			},
		},
		{
			Message: "Applying seed",
			Fn: func() error {
				if sqliteSink != nil {
					sqliteSink.Attach(store)
				}
				if archiveSink != nil {
					archiveSink.Attach(store)
				}
				if cfg.SeedPath == "" {
					return nil
				}
				seed, err := internal.LoadSeed(cfg.SeedPath)
				if err != nil {
					return err
				}
				return seed.Apply(store, inbox)
			},
		},
	}

	if err := internal.ShowProgressWithSteps(ctx, progress, steps); err != nil {
		_ = ws.Close()
		return nil, fmt.Errorf("failed to prepare workspace: %w", err)
	}

	ws.orch = internal.NewOrchestrator(internal.OrchestratorConfig{
		Store:         store,
		Inbox:         inbox,
		Scheduler:     sched,
		Catalog:       catalog,
		Hooks:         hooks,
		ResponseDelay: cfg.ResponseDelay,
		ApprovalDelay: cfg.ApprovalDelay,
		TaskDelay:     cfg.TaskDelay,
		Ordering:      internal.ParseTimelineOrder(cfg.Ordering),
		CurrentUser:   cfg.CurrentUser,
	})
	if rs, ok := sched.(*internal.RealScheduler); ok {
		ws.closers = append(ws.closers, func() error { rs.Stop(); return nil })
	}
	internal.LogDebug("Workspace ready: %d session(s), %d inbox item(s), %d restored",
		len(store.Sessions()), len(inbox.Items()), ws.restored)
	return ws, nil
}
