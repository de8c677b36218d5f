package services

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	aggtestutil "github.com/yungbote/imagerate-backend/internal/data/aggregates/testutil"
	"github.com/yungbote/imagerate-backend/internal/data/repos"
	"github.com/yungbote/imagerate-backend/internal/data/repos/testutil"
	types "github.com/yungbote/imagerate-backend/internal/domain"
	domainagg "github.com/yungbote/imagerate-backend/internal/domain/aggregates"
)

var (
	errRateLimited = domainagg.NewError(domainagg.CodeRateLimited, "fake.list", "quota exhausted", nil)
	errTransient   = domainagg.NewError(domainagg.CodeTransient, "fake.list", "connection reset", nil)
	errForbidden   = domainagg.NewError(domainagg.CodeFatal, "fake.list", "forbidden", nil)
)

type fakeFailure struct {
	err   error
	times int // <0 means always
}

// fakeLister serves scripted folder listings. Page tokens are "<folder>#<n>".
type fakeLister struct {
	mu       sync.Mutex
	pages    map[string][]types.Page
	failures map[string]*fakeFailure
	calls    []string
	onList   func(folder, token string)
	// foldersErr fails folder discovery when set.
	foldersErr error
}

func newFakeLister() *fakeLister {
	return &fakeLister{pages: map[string][]types.Page{}, failures: map[string]*fakeFailure{}}
}

// addFolder splits objects into pages of pageSize.
func (f *fakeLister) addFolder(folder string, pageSize int, objects ...string) *fakeLister {
	var pages []types.Page
	for i := 0; i < len(objects); i += pageSize {
		end := i + pageSize
		if end > len(objects) {
			end = len(objects)
		}
		var p types.Page
		for _, name := range objects[i:end] {
			p.Descriptors = append(p.Descriptors, types.Descriptor{
				RemoteID:  folder + "/" + name,
				CreatedAt: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
			})
		}
		pages = append(pages, p)
	}
	if len(pages) == 0 {
		pages = []types.Page{{}}
	}
	for i := range pages {
		if i+1 < len(pages) {
			pages[i].NextPageToken = fmt.Sprintf("%s#%d", folder, i+1)
		}
	}
	f.pages[folder] = pages
	return f
}

func (f *fakeLister) setMetadata(folder, name string, md map[string]string) {
	for pi := range f.pages[folder] {
		for di := range f.pages[folder][pi].Descriptors {
			if f.pages[folder][pi].Descriptors[di].RemoteID == folder+"/"+name {
				f.pages[folder][pi].Descriptors[di].Metadata = md
			}
		}
	}
}

func (f *fakeLister) fail(folder, token string, err error, times int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.failures[folder+"|"+token] = &fakeFailure{err: err, times: times}
}

func (f *fakeLister) ListFolder(_ context.Context, folder, token string, _ int) (types.Page, error) {
	f.mu.Lock()
	f.calls = append(f.calls, folder+"|"+token)
	onList := f.onList
	var failErr error
	if fl, ok := f.failures[folder+"|"+token]; ok && fl.times != 0 {
		failErr = fl.err
		if fl.times > 0 {
			fl.times--
		}
	}
	pages, ok := f.pages[folder]
	f.mu.Unlock()

	if onList != nil {
		onList(folder, token)
	}
	if failErr != nil {
		return types.Page{}, failErr
	}
	if !ok {
		return types.Page{}, nil
	}
	idx := 0
	if token != "" {
		if _, err := fmt.Sscanf(token, folder+"#%d", &idx); err != nil {
			return types.Page{}, domainagg.NewError(domainagg.CodeFatal, "fake.list", "bad token "+token, nil)
		}
	}
	return pages[idx], nil
}

func (f *fakeLister) ListFolders(context.Context) ([]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.foldersErr != nil {
		return nil, f.foldersErr
	}
	out := make([]string, 0, len(f.pages))
	for k := range f.pages {
		out = append(out, k)
	}
	return out, nil
}

func (f *fakeLister) callCount(prefix string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, c := range f.calls {
		if len(c) >= len(prefix) && c[:len(prefix)] == prefix {
			n++
		}
	}
	return n
}

func (f *fakeLister) callExact(folder, token string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, c := range f.calls {
		if c == folder+"|"+token {
			n++
		}
	}
	return n
}

type harness struct {
	db     *gorm.DB
	repos  repos.Repos
	hooks  *aggtestutil.HooksRecorder
	lister *fakeLister
	lock   RunLock
	sync   SyncService
	ledger LedgerService
	read   CatalogService
}

func newHarness(t *testing.T, lister *fakeLister, cfg SyncConfig) *harness {
	t.Helper()
	db := testutil.DB(t)
	log := testutil.Logger(t)
	r := repos.New(db, log)
	hooks := &aggtestutil.HooksRecorder{}
	lock := NewLocalRunLock()
	if cfg.RetryInitialInterval == 0 {
		cfg.RetryInitialInterval = time.Millisecond
		cfg.RetryMaxInterval = 2 * time.Millisecond
	}
	return &harness{
		db:     db,
		repos:  r,
		hooks:  hooks,
		lister: lister,
		lock:   lock,
		sync:   NewSyncService(db, log, lister, r, hooks, lock, cfg),
		ledger: NewLedgerService(db, log, r, hooks),
		read:   NewCatalogService(log, r, nil),
	}
}

func (h *harness) assetsByRemote(t *testing.T) map[string]*types.Asset {
	t.Helper()
	var rows []*types.Asset
	require.NoError(t, h.db.Order("id ASC").Find(&rows).Error)
	out := make(map[string]*types.Asset, len(rows))
	for _, a := range rows {
		out[a.RemoteID] = a
	}
	return out
}
