package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"path"
	"sort"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/yungbote/imagerate-backend/internal/catalog/naming"
	"github.com/yungbote/imagerate-backend/internal/data/aggregates"
	"github.com/yungbote/imagerate-backend/internal/data/repos"
	types "github.com/yungbote/imagerate-backend/internal/domain"
	domainagg "github.com/yungbote/imagerate-backend/internal/domain/aggregates"
	"github.com/yungbote/imagerate-backend/internal/platform/dbctx"
	"github.com/yungbote/imagerate-backend/internal/platform/logger"
)

var tracer = otel.Tracer("github.com/yungbote/imagerate-backend/internal/services")

// Lister is the remote listing the reconciler reads from. Implementations
// classify failures as rate_limited, transient or fatal and never retry.
type Lister interface {
	ListFolder(ctx context.Context, folder, pageToken string, pageSize int) (types.Page, error)
	ListFolders(ctx context.Context) ([]string, error)
}

type SyncConfig struct {
	// Folders to reconcile. Empty means every folder the lister reports.
	Folders              []string
	PageSize             int
	MaxTransientRetries  int
	RetryInitialInterval time.Duration
	RetryMaxInterval     time.Duration
}

func (c SyncConfig) withDefaults() SyncConfig {
	if c.PageSize <= 0 {
		c.PageSize = 100
	}
	if c.MaxTransientRetries < 0 {
		c.MaxTransientRetries = 0
	}
	if c.RetryInitialInterval <= 0 {
		c.RetryInitialInterval = 500 * time.Millisecond
	}
	if c.RetryMaxInterval <= 0 {
		c.RetryMaxInterval = 30 * time.Second
	}
	return c
}

type SyncOptions struct {
	// Folders overrides the configured folder set for this run.
	Folders []string
	// Resume continues from saved cursors; otherwise every folder starts over.
	Resume bool
	// Force re-derives parsed and descriptive fields of existing assets.
	// Surrogate keys are kept. Implies Resume=false.
	Force bool
}

func (o SyncOptions) mode() types.SyncMode {
	switch {
	case o.Force:
		return types.SyncModeForce
	case o.Resume:
		return types.SyncModeResume
	default:
		return types.SyncModeFresh
	}
}

// SyncObserver is notified after every run. Hooks passed to NewSyncService
// that implement it receive the final report.
type SyncObserver interface {
	ObserveSync(report *types.SyncReport)
}

type SyncService interface {
	// Sync is the caller contract: force=false resumes, force=true runs a fresh
	// pass that re-derives fields.
	Sync(ctx context.Context, force bool) (*types.SyncReport, error)
	Run(ctx context.Context, opts SyncOptions) (*types.SyncReport, error)
	Status(ctx context.Context) ([]*types.SyncCursor, []*types.SyncRun, error)
}

type syncService struct {
	db      *gorm.DB
	log     *logger.Logger
	lister  Lister
	assets  repos.AssetRepo
	cursors repos.SyncCursorRepo
	runs    repos.SyncRunRepo
	write   aggregates.BaseDeps
	guard   *syncGuard
	cfg     SyncConfig
}

func NewSyncService(
	db *gorm.DB,
	baseLog *logger.Logger,
	lister Lister,
	r repos.Repos,
	hooks aggregates.Hooks,
	lock RunLock,
	cfg SyncConfig,
) SyncService {
	return &syncService{
		db:      db,
		log:     baseLog.With("service", "SyncService"),
		lister:  lister,
		assets:  r.Asset,
		cursors: r.SyncCursor,
		runs:    r.SyncRun,
		write:   aggregates.BaseDeps{DB: db, Hooks: hooks},
		guard:   newSyncGuard(lock),
		cfg:     cfg.withDefaults(),
	}
}

func (s *syncService) Sync(ctx context.Context, force bool) (*types.SyncReport, error) {
	return s.Run(ctx, SyncOptions{Resume: !force, Force: force})
}

func (s *syncService) Run(ctx context.Context, opts SyncOptions) (*types.SyncReport, error) {
	if s.lister == nil {
		return nil, domainagg.NewError(domainagg.CodeInternal, "sync.run", "listing client not configured", nil)
	}
	if opts.Force {
		opts.Resume = false
	}
	key := string(opts.mode()) + "|" + strings.Join(normalizeFolders(opts.Folders), ",")
	return s.guard.do(ctx, key, func(ctx context.Context) (*types.SyncReport, error) {
		return s.run(ctx, opts)
	})
}

func (s *syncService) Status(ctx context.Context) ([]*types.SyncCursor, []*types.SyncRun, error) {
	dbc := dbctx.Context{Ctx: ctx}
	cursors, err := s.cursors.List(dbc)
	if err != nil {
		return nil, nil, aggregates.MapError("sync.status", err)
	}
	runs, err := s.runs.Latest(dbc, 10)
	if err != nil {
		return nil, nil, aggregates.MapError("sync.status", err)
	}
	return cursors, runs, nil
}

func (s *syncService) run(ctx context.Context, opts SyncOptions) (_ *types.SyncReport, err error) {
	mode := opts.mode()
	runID := uuid.New()
	ctx, span := tracer.Start(ctx, "catalog.sync")
	span.SetAttributes(attribute.String("sync.mode", string(mode)), attribute.String("sync.run_id", runID.String()))
	defer func() {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		span.End()
	}()

	log := s.log.With("run_id", runID.String(), "mode", string(mode))
	// Bookkeeping writes must land even when the caller has gone away.
	bookCtx := context.WithoutCancel(ctx)

	// The run row is finished from this value even when an error aborts the run.
	report := &types.SyncReport{RunID: runID, Mode: mode, FoldersDone: []string{}}
	run := &types.SyncRun{ID: runID, Mode: mode, StartedAt: time.Now().UTC()}
	if err := s.runs.Create(dbctx.Context{Ctx: bookCtx}, run); err != nil {
		return nil, aggregates.MapError("sync.run", err)
	}
	defer func() {
		s.finishRun(bookCtx, log, run, report)
	}()

	folders, err := s.resolveFolders(ctx, opts)
	if err != nil {
		switch {
		case ctx.Err() != nil:
			report.Cancelled = true
			report.MoreRemaining = true
			return report, nil
		case domainagg.IsCode(err, domainagg.CodeRateLimited):
			report.RateLimited = true
			report.MoreRemaining = true
			return report, nil
		}
		return nil, err
	}

	if mode != types.SyncModeResume {
		if err := s.cursors.DeleteFolders(dbctx.Context{Ctx: bookCtx}, folders); err != nil {
			return nil, aggregates.MapError("sync.run", err)
		}
	}

	log.Info("Catalog sync started", "folders", len(folders))

	for _, folder := range folders {
		if ctx.Err() != nil {
			report.Cancelled = true
			break
		}
		outcome, err := s.syncFolder(ctx, log, runID, folder, mode, report)
		if err != nil {
			return nil, err
		}
		if outcome == folderStopRun {
			break
		}
	}

	report.MoreRemaining = report.RateLimited || report.Cancelled || len(report.FailedFolders) > 0
	if !report.RateLimited && !report.Cancelled {
		// Folders listed to the end start from scratch next run so objects
		// added remotely since then are found. Failed folders keep their
		// cursors and folders outside this run are left alone.
		if err := s.cursors.DeleteFolders(dbctx.Context{Ctx: bookCtx}, report.FoldersDone); err != nil {
			return nil, aggregates.MapError("sync.run", err)
		}
	}

	log.Info("Catalog sync finished",
		"added", report.Added,
		"skipped", report.Skipped,
		"updated", report.Updated,
		"rate_limited", report.RateLimited,
		"cancelled", report.Cancelled,
		"failed_folders", len(report.FailedFolders),
	)
	return report, nil
}

type folderOutcome int

const (
	folderDone folderOutcome = iota
	folderFailed
	folderStopRun
)

func (s *syncService) syncFolder(
	ctx context.Context,
	log *logger.Logger,
	runID uuid.UUID,
	folder string,
	mode types.SyncMode,
	report *types.SyncReport,
) (outcome folderOutcome, err error) {
	ctx, span := tracer.Start(ctx, "catalog.sync.folder")
	span.SetAttributes(attribute.String("sync.folder", folder))
	defer span.End()

	flog := log.With("folder", folder)
	bookCtx := context.WithoutCancel(ctx)

	token := ""
	if mode == types.SyncModeResume {
		cur, err := s.cursors.Get(dbctx.Context{Ctx: bookCtx}, folder)
		if err != nil {
			return folderStopRun, aggregates.MapError("sync.folder", err)
		}
		if cur != nil && cur.Completed {
			flog.Debug("Folder already complete; skipping")
			report.FoldersDone = append(report.FoldersDone, folder)
			return folderDone, nil
		}
		if cur != nil {
			token = cur.PageToken
		}
	}

	tag := path.Base(folder)
	for {
		if ctx.Err() != nil {
			report.Cancelled = true
			return folderStopRun, nil
		}

		page, err := s.listWithRetry(ctx, flog, folder, token)
		if err != nil {
			code := domainagg.CodeOf(err)
			switch {
			case ctx.Err() != nil:
				report.Cancelled = true
				return folderStopRun, nil
			case code == domainagg.CodeRateLimited:
				flog.Warn("Listing rate limited; stopping run", "error", err)
				report.RateLimited = true
				return folderStopRun, nil
			default:
				flog.Error("Folder sync failed; continuing with next folder", "error", err, "code", string(code))
				span.RecordError(err)
				report.FailedFolders = append(report.FailedFolders, types.FolderFailure{
					Folder: folder,
					Code:   string(domainagg.CodeFatal),
					Error:  err.Error(),
				})
				if err := s.cursors.Save(dbctx.Context{Ctx: bookCtx}, folder, token, false, runID); err != nil {
					return folderStopRun, aggregates.MapError("sync.folder", err)
				}
				return folderFailed, nil
			}
		}

		// The page and its cursor commit together; cancellation is honoured
		// only after the commit.
		counts, err := s.applyPage(bookCtx, runID, folder, tag, page, mode == types.SyncModeForce)
		if err != nil {
			span.RecordError(err)
			return folderStopRun, err
		}
		report.Added += counts.added
		report.Skipped += counts.skipped
		report.Updated += counts.updated

		token = page.NextPageToken
		if token == "" {
			report.FoldersDone = append(report.FoldersDone, folder)
			flog.Debug("Folder complete")
			return folderDone, nil
		}
	}
}

// listWithRetry retries transient failures with exponential backoff. Rate
// limits and fatal errors are returned immediately; exhausted retries come
// back as fatal.
func (s *syncService) listWithRetry(ctx context.Context, log *logger.Logger, folder, token string) (types.Page, error) {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = s.cfg.RetryInitialInterval
	b.MaxInterval = s.cfg.RetryMaxInterval

	attempt := 0
	page, err := backoff.Retry(ctx, func() (types.Page, error) {
		attempt++
		p, err := s.lister.ListFolder(ctx, folder, token, s.cfg.PageSize)
		if err == nil {
			return p, nil
		}
		if domainagg.CodeOf(err) == domainagg.CodeTransient || domainagg.CodeOf(err) == "" {
			return types.Page{}, err
		}
		return types.Page{}, backoff.Permanent(err)
	},
		backoff.WithBackOff(b),
		backoff.WithMaxTries(uint(s.cfg.MaxTransientRetries+1)),
		backoff.WithMaxElapsedTime(0),
		backoff.WithNotify(func(err error, next time.Duration) {
			s.write.Hooks.IncRetry("sync.list_folder")
			log.Warn("Transient listing failure; retrying",
				"attempt", attempt,
				"next_in", next.String(),
				"error", err,
			)
		}),
	)
	if err == nil {
		return page, nil
	}
	code := domainagg.CodeOf(err)
	if code == domainagg.CodeTransient || code == "" {
		return types.Page{}, domainagg.NewError(domainagg.CodeFatal, "sync.list_folder",
			fmt.Sprintf("transient failures exhausted after %d attempts", attempt), err)
	}
	return types.Page{}, err
}

type pageCounts struct {
	added, skipped, updated int
}

func (s *syncService) applyPage(ctx context.Context, runID uuid.UUID, folder, tag string, page types.Page, force bool) (pageCounts, error) {
	var counts pageCounts
	err := aggregates.ExecuteWrite(ctx, s.write, "sync.apply_page", func(dbc dbctx.Context) error {
		counts = pageCounts{}
		if len(page.Descriptors) > 0 {
			remoteIDs := make([]string, 0, len(page.Descriptors))
			for _, d := range page.Descriptors {
				remoteIDs = append(remoteIDs, d.RemoteID)
			}
			existingRows, err := s.assets.GetByRemoteIDs(dbc, remoteIDs)
			if err != nil {
				return err
			}
			existing := make(map[string]*types.Asset, len(existingRows))
			for _, a := range existingRows {
				existing[a.RemoteID] = a
			}

			for _, d := range page.Descriptors {
				if strings.TrimSpace(d.RemoteID) == "" {
					continue
				}
				fresh := assetFromDescriptor(d, folder, tag)
				if cur, ok := existing[d.RemoteID]; ok {
					updates := refreshUpdates(cur, fresh, force)
					if len(updates) == 0 {
						counts.skipped++
						continue
					}
					if err := s.assets.UpdateFields(dbc, cur.ID, updates); err != nil {
						return err
					}
					counts.updated++
					continue
				}
				inserted, err := s.assets.InsertIfAbsent(dbc, fresh)
				if err != nil {
					return err
				}
				if inserted {
					counts.added++
					// Duplicate ids within one page land on the first row.
					existing[fresh.RemoteID] = fresh
				} else {
					counts.skipped++
				}
			}
		}
		return s.cursors.Save(dbc, folder, page.NextPageToken, page.NextPageToken == "", runID)
	})
	if err != nil {
		return pageCounts{}, err
	}
	return counts, nil
}

func assetFromDescriptor(d types.Descriptor, folder, tag string) *types.Asset {
	parsed := naming.Parse(naming.BaseName(d.RemoteID), tag)
	desc := types.DescriptiveFromMetadata(d.Metadata)
	created := d.CreatedAt.UTC()
	if d.CreatedAt.IsZero() {
		created = time.Now().UTC()
	}
	a := &types.Asset{
		RemoteID:        d.RemoteID,
		Folder:          folder,
		GroupID:         parsed.GroupID,
		Ordinal:         parsed.Ordinal,
		SourceTag:       parsed.SourceTag,
		DescriptiveText: desc.DescriptiveText,
		Category:        desc.Category,
		Variant:         desc.Variant,
		QualityTier:     desc.QualityTier,
		CreatedAt:       created,
	}
	if len(d.Metadata) > 0 {
		if raw, err := json.Marshal(d.Metadata); err == nil {
			a.RemoteMetadata = datatypes.JSON(raw)
		}
	}
	return a
}

// refreshUpdates computes what an already-cataloged asset may receive.
// Without force only blank descriptive fields are filled. With force the
// parsed identity and any descriptive field present remotely are re-derived.
// The surrogate key and remote_id are never part of the update.
func refreshUpdates(cur, fresh *types.Asset, force bool) map[string]interface{} {
	desc := types.DescriptiveFields{
		DescriptiveText: fresh.DescriptiveText,
		Category:        fresh.Category,
		Variant:         fresh.Variant,
		QualityTier:     fresh.QualityTier,
	}
	if !force {
		updates := desc.BlankUpdates(cur)
		if len(cur.RemoteMetadata) == 0 && len(fresh.RemoteMetadata) > 0 {
			updates["remote_metadata"] = fresh.RemoteMetadata
		}
		return updates
	}

	updates := map[string]interface{}{}
	set := func(col, curVal, newVal string) {
		if newVal != "" && curVal != newVal {
			updates[col] = newVal
		}
	}
	set("folder", cur.Folder, fresh.Folder)
	set("group_id", cur.GroupID, fresh.GroupID)
	set("source_tag", cur.SourceTag, fresh.SourceTag)
	if cur.Ordinal != fresh.Ordinal {
		updates["ordinal"] = fresh.Ordinal
	}
	set("descriptive_text", cur.DescriptiveText, fresh.DescriptiveText)
	set("category", cur.Category, fresh.Category)
	set("variant", cur.Variant, fresh.Variant)
	set("quality_tier", cur.QualityTier, fresh.QualityTier)
	if len(fresh.RemoteMetadata) > 0 && string(cur.RemoteMetadata) != string(fresh.RemoteMetadata) {
		updates["remote_metadata"] = fresh.RemoteMetadata
	}
	return updates
}

func (s *syncService) resolveFolders(ctx context.Context, opts SyncOptions) ([]string, error) {
	folders := normalizeFolders(opts.Folders)
	if len(folders) == 0 {
		folders = normalizeFolders(s.cfg.Folders)
	}
	if len(folders) > 0 {
		return folders, nil
	}
	discovered, err := s.lister.ListFolders(ctx)
	if err != nil {
		return nil, err
	}
	return normalizeFolders(discovered), nil
}

// normalizeFolders trims, de-duplicates and sorts so resumption order is stable.
func normalizeFolders(in []string) []string {
	seen := map[string]struct{}{}
	out := make([]string, 0, len(in))
	for _, f := range in {
		f = strings.Trim(strings.TrimSpace(f), "/")
		if f == "" {
			continue
		}
		if _, ok := seen[f]; ok {
			continue
		}
		seen[f] = struct{}{}
		out = append(out, f)
	}
	sort.Strings(out)
	return out
}

func (s *syncService) finishRun(ctx context.Context, log *logger.Logger, run *types.SyncRun, report *types.SyncReport) {
	now := time.Now().UTC()
	run.FinishedAt = &now
	run.Added = report.Added
	run.Skipped = report.Skipped
	run.Updated = report.Updated
	run.RateLimited = report.RateLimited
	run.Cancelled = report.Cancelled
	if len(report.FailedFolders) > 0 {
		if raw, err := json.Marshal(report.FailedFolders); err == nil {
			run.FailedFolders = datatypes.JSON(raw)
		}
	}
	if err := s.runs.Finish(dbctx.Context{Ctx: ctx}, run); err != nil && !errors.Is(err, context.Canceled) {
		log.Warn("Failed to record sync run", "error", err)
	}
	if o, ok := s.write.Hooks.(SyncObserver); ok {
		o.ObserveSync(report)
	}
}
