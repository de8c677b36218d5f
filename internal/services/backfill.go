package services

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
	"gorm.io/gorm"

	"github.com/yungbote/imagerate-backend/internal/data/aggregates"
	"github.com/yungbote/imagerate-backend/internal/data/repos"
	types "github.com/yungbote/imagerate-backend/internal/domain"
	domainagg "github.com/yungbote/imagerate-backend/internal/domain/aggregates"
	"github.com/yungbote/imagerate-backend/internal/platform/dbctx"
	"github.com/yungbote/imagerate-backend/internal/platform/logger"
)

// BackfillSource says where descriptive fields come from. The concrete
// types below are the only implementations.
type BackfillSource interface {
	SourceName() string
	backfillSource()
}

// NoBackfill is a valid source that changes nothing.
type NoBackfill struct{}

// RemoteMetadataSource reads the custom metadata captured at sync time.
type RemoteMetadataSource struct{}

// MappingFileSource reads a YAML or JSON map keyed by remote_id or group_id.
type MappingFileSource struct {
	Path string
}

func (NoBackfill) SourceName() string           { return "none" }
func (RemoteMetadataSource) SourceName() string { return "remote_metadata" }
func (MappingFileSource) SourceName() string    { return "mapping" }

func (NoBackfill) backfillSource()           {}
func (RemoteMetadataSource) backfillSource() {}
func (MappingFileSource) backfillSource()    {}

// ParseBackfillSource maps the wire names used by the HTTP API and CLI.
func ParseBackfillSource(name, path string) (BackfillSource, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "none":
		return NoBackfill{}, nil
	case "remote_metadata", "metadata":
		return RemoteMetadataSource{}, nil
	case "mapping", "file":
		if strings.TrimSpace(path) == "" {
			return nil, domainagg.Validation("backfill.source", "mapping source requires a path")
		}
		return MappingFileSource{Path: strings.TrimSpace(path)}, nil
	default:
		return nil, domainagg.Validation("backfill.source", fmt.Sprintf("unknown backfill source %q", name))
	}
}

type BackfillReport struct {
	Source  string `json:"source"`
	Scanned int    `json:"scanned"`
	Updated int    `json:"updated"`
}

// BackfillService fills blank descriptive fields. Non-blank values are never
// overwritten, so running it again changes nothing.
type BackfillService interface {
	Backfill(ctx context.Context, src BackfillSource) (*BackfillReport, error)
}

type backfillService struct {
	log       *logger.Logger
	assets    repos.AssetRepo
	write     aggregates.BaseDeps
	batchSize int
}

func NewBackfillService(db *gorm.DB, baseLog *logger.Logger, r repos.Repos, hooks aggregates.Hooks) BackfillService {
	return &backfillService{
		log:       baseLog.With("service", "BackfillService"),
		assets:    r.Asset,
		write:     aggregates.BaseDeps{DB: db, Hooks: hooks},
		batchSize: 200,
	}
}

type descriptiveLookup func(a *types.Asset) types.DescriptiveFields

func (s *backfillService) Backfill(ctx context.Context, src BackfillSource) (*BackfillReport, error) {
	if src == nil {
		src = NoBackfill{}
	}
	report := &BackfillReport{Source: src.SourceName()}

	var lookup descriptiveLookup
	switch v := src.(type) {
	case NoBackfill:
		return report, nil
	case RemoteMetadataSource:
		lookup = fromStoredMetadata
	case MappingFileSource:
		m, err := loadMappingFile(v.Path)
		if err != nil {
			return nil, err
		}
		lookup = m.lookup
	default:
		return nil, domainagg.Validation("backfill", fmt.Sprintf("unsupported source %T", src))
	}

	var afterID int64
	for {
		if err := ctx.Err(); err != nil {
			return report, err
		}
		batch, err := s.assets.ListAfterID(dbctx.Context{Ctx: ctx}, afterID, s.batchSize)
		if err != nil {
			return nil, aggregates.MapError("backfill.scan", err)
		}
		if len(batch) == 0 {
			break
		}
		afterID = batch[len(batch)-1].ID

		err = aggregates.ExecuteWrite(ctx, s.write, "backfill.apply_batch", func(dbc dbctx.Context) error {
			for _, a := range batch {
				updates := lookup(a).BlankUpdates(a)
				if len(updates) == 0 {
					continue
				}
				if err := s.assets.UpdateFields(dbc, a.ID, updates); err != nil {
					return err
				}
				report.Updated++
			}
			return nil
		})
		if err != nil {
			return nil, err
		}
		report.Scanned += len(batch)
	}

	s.log.Info("Backfill finished", "source", report.Source, "scanned", report.Scanned, "updated", report.Updated)
	return report, nil
}

func fromStoredMetadata(a *types.Asset) types.DescriptiveFields {
	if len(a.RemoteMetadata) == 0 {
		return types.DescriptiveFields{}
	}
	var md map[string]string
	if err := json.Unmarshal(a.RemoteMetadata, &md); err != nil {
		return types.DescriptiveFields{}
	}
	return types.DescriptiveFromMetadata(md)
}

type descriptiveMapping map[string]types.DescriptiveFields

// lookup prefers an exact remote_id entry over a group_id entry.
func (m descriptiveMapping) lookup(a *types.Asset) types.DescriptiveFields {
	if f, ok := m[a.RemoteID]; ok {
		return f
	}
	if f, ok := m[a.GroupID]; ok {
		return f
	}
	return types.DescriptiveFields{}
}

func loadMappingFile(path string) (descriptiveMapping, error) {
	const op = "backfill.mapping"
	raw, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, domainagg.NewError(domainagg.CodeNotFound, op, "mapping file not found: "+path, err)
		}
		return nil, domainagg.NewError(domainagg.CodeInternal, op, "read mapping file", err)
	}
	m := descriptiveMapping{}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		err = json.Unmarshal(raw, &m)
	default:
		err = yaml.Unmarshal(raw, &m)
	}
	if err != nil {
		return nil, domainagg.NewError(domainagg.CodeValidation, op, "parse mapping file "+path, err)
	}
	return m, nil
}
