package gcp

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"cloud.google.com/go/storage"
	"google.golang.org/api/iterator"

	"github.com/yungbote/imagerate-backend/internal/domain/catalog"
	"github.com/yungbote/imagerate-backend/internal/platform/logger"
)

// Lister reads one page of a virtual folder at a time. It never retries;
// failures come back classified for the caller.
type Lister struct {
	log    *logger.Logger
	client *storage.Client
	cfg    ListingConfig
	owned  bool
}

func NewLister(ctx context.Context, log *logger.Logger, cfg ListingConfig) (*Lister, error) {
	cfg = cfg.withDefaults()
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	client, err := newStorageClientForMode(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("create storage client: %w", err)
	}
	l, err := NewListerWithClient(log, client, cfg)
	if err != nil {
		_ = client.Close()
		return nil, err
	}
	l.owned = true
	l.log.Info("Listing client ready",
		"bucket", cfg.Bucket,
		"root_folder", cfg.RootFolder,
		"object_storage_mode", string(cfg.Storage.Mode),
		"object_storage_mode_source", cfg.Storage.ModeSource(),
		"page_size", cfg.PageSize,
		"call_timeout", cfg.CallTimeout.String(),
	)
	return l, nil
}

// NewListerWithClient wraps an existing client. The caller keeps ownership.
func NewListerWithClient(log *logger.Logger, client *storage.Client, cfg ListingConfig) (*Lister, error) {
	if client == nil {
		return nil, errors.New("storage client is required")
	}
	cfg = cfg.withDefaults()
	if cfg.Storage.Mode == "" {
		cfg.Storage.Mode = ObjectStorageModeGCS
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &Lister{
		log:    log.With("client", "GCSLister"),
		client: client,
		cfg:    cfg,
	}, nil
}

func (l *Lister) Close() error {
	if l == nil || !l.owned || l.client == nil {
		return nil
	}
	return l.client.Close()
}

func (l *Lister) Config() ListingConfig { return l.cfg }

// The storage library retries 429 and 5xx on its own; the reconciler owns
// retry policy, so it is switched off here.
func (l *Lister) bucket() *storage.BucketHandle {
	return l.client.Bucket(l.cfg.Bucket).Retryer(storage.WithPolicy(storage.RetryNever))
}

// ListFolder returns one page of the folder. A folder with no objects yields
// an empty page with no token rather than an error.
func (l *Lister) ListFolder(ctx context.Context, folder, pageToken string, pageSize int) (catalog.Page, error) {
	if pageSize <= 0 {
		pageSize = l.cfg.PageSize
	}
	if pageSize > MaxPageSize {
		pageSize = MaxPageSize
	}
	ctx, cancel := context.WithTimeout(ctx, l.cfg.CallTimeout)
	defer cancel()

	prefix := l.cfg.FolderPrefix(folder)
	it := l.bucket().Objects(ctx, &storage.Query{Prefix: prefix, Delimiter: "/"})

	var attrs []*storage.ObjectAttrs
	next, err := iterator.NewPager(it, pageSize, pageToken).NextPage(&attrs)
	if err != nil {
		return catalog.Page{}, classifiedError("gcp.ListFolder", err)
	}

	page := catalog.Page{NextPageToken: next}
	for _, a := range attrs {
		if a == nil || a.Prefix != "" || a.Name == "" || strings.HasSuffix(a.Name, "/") {
			continue
		}
		page.Descriptors = append(page.Descriptors, catalog.Descriptor{
			RemoteID:  a.Name,
			CreatedAt: a.Created,
			Metadata:  copyMetadata(a.Metadata),
		})
	}
	l.log.Debug("Listed page",
		"folder", folder,
		"objects", len(page.Descriptors),
		"has_more", next != "",
	)
	return page, nil
}

// ListFolders returns the immediate virtual folders under the root, sorted.
func (l *Lister) ListFolders(ctx context.Context) ([]string, error) {
	ctx, cancel := context.WithTimeout(ctx, l.cfg.CallTimeout)
	defer cancel()

	root := l.cfg.FolderPrefix("")
	it := l.bucket().Objects(ctx, &storage.Query{Prefix: root, Delimiter: "/"})
	seen := map[string]struct{}{}
	for {
		a, err := it.Next()
		if errors.Is(err, iterator.Done) {
			break
		}
		if err != nil {
			return nil, classifiedError("gcp.ListFolders", err)
		}
		if a.Prefix == "" {
			continue
		}
		name := strings.Trim(strings.TrimPrefix(a.Prefix, root), "/")
		if name != "" {
			seen[name] = struct{}{}
		}
	}
	out := make([]string, 0, len(seen))
	for name := range seen {
		out = append(out, name)
	}
	sort.Strings(out)
	return out, nil
}

func copyMetadata(in map[string]string) map[string]string {
	if len(in) == 0 {
		return nil
	}
	out := make(map[string]string, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}
