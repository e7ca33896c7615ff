package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/uni-ombuds/case-api/internal/dto"
	"github.com/uni-ombuds/case-api/internal/models"
	appErrors "github.com/uni-ombuds/case-api/pkg/errors"
)

type lookupCaseRepository interface {
	GetByTrackingCode(ctx context.Context, code string) (*models.Case, error)
}

type lookupAuditRepository interface {
	List(ctx context.Context, filter models.AuditEntryFilter) ([]models.AuditEntry, error)
	AttachFiles(ctx context.Context, entries []models.AuditEntry) error
}

type lookupCache interface {
	Get(ctx context.Context, key string, dest interface{}) error
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
}

// LookupConfig tunes the public lookup surface.
type LookupConfig struct {
	CacheEnabled bool
	CacheTTL     time.Duration
}

// LookupService is the sole unauthenticated read surface: it resolves a
// tracking code to a public-safe projection. Internal-only entries are never
// part of the projection; their absence is the correct signal.
type LookupService struct {
	cases   lookupCaseRepository
	trail   lookupAuditRepository
	cache   lookupCache
	cfg     LookupConfig
	logger  *zap.Logger
	metrics *MetricsService
}

// NewLookupService constructs the service.
func NewLookupService(cases lookupCaseRepository, trail lookupAuditRepository, cache lookupCache, cfg LookupConfig, logger *zap.Logger, metrics *MetricsService) *LookupService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.CacheTTL <= 0 {
		cfg.CacheTTL = 5 * time.Minute
	}
	return &LookupService{cases: cases, trail: trail, cache: cache, cfg: cfg, logger: logger, metrics: metrics}
}

// FindByCode resolves a tracking code, case-insensitively, to its public
// projection. Unknown codes yield NOT_FOUND as a normal control-flow signal.
func (s *LookupService) FindByCode(ctx context.Context, code string) (*dto.PublicCaseView, error) {
	code = strings.TrimSpace(code)
	if code == "" {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "tracking code not found")
	}

	key := cacheKey(code)
	if s.cfg.CacheEnabled && s.cache != nil {
		var cached dto.PublicCaseView
		if err := s.cache.Get(ctx, key, &cached); err == nil {
			if s.metrics != nil {
				s.metrics.ObserveLookup(true)
			}
			return &cached, nil
		}
	}

	c, err := s.cases.GetByTrackingCode(ctx, code)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "tracking code not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to resolve tracking code")
	}

	entries, err := s.trail.List(ctx, models.AuditEntryFilter{CaseID: c.ID, VisibleOnly: true})
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load case history")
	}
	if err := s.trail.AttachFiles(ctx, entries); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load entry files")
	}

	view := project(c, entries)
	if s.cfg.CacheEnabled && s.cache != nil {
		if err := s.cache.Set(ctx, key, view, s.cfg.CacheTTL); err != nil {
			s.logger.Warn("lookup cache write failed", zap.String("code", code), zap.Error(err))
		}
	}
	if s.metrics != nil {
		s.metrics.ObserveLookup(false)
	}
	return view, nil
}

// Invalidate drops the cached projection for a tracking code. Called by the
// mutating services after every successful change.
func (s *LookupService) Invalidate(ctx context.Context, trackingCode string) {
	if !s.cfg.CacheEnabled || s.cache == nil {
		return
	}
	if err := s.cache.Delete(ctx, cacheKey(trackingCode)); err != nil {
		s.logger.Warn("lookup cache invalidation failed", zap.String("code", trackingCode), zap.Error(err))
	}
}

func cacheKey(code string) string {
	return fmt.Sprintf("lookup:%s", strings.ToUpper(strings.TrimSpace(code)))
}

// project builds the public-safe view: complainant reduced to a display name,
// no respondent data, no internal notes, no storage references.
func project(c *models.Case, entries []models.AuditEntry) *dto.PublicCaseView {
	view := &dto.PublicCaseView{
		TrackingCode:    c.TrackingCode,
		Type:            c.Type,
		State:           c.State,
		Priority:        c.Priority,
		ComplainantName: strings.TrimSpace(c.ComplainantFirstName + " " + c.ComplainantLastName),
		ResponseDueAt:   c.ResponseDueAt,
		CreatedAt:       c.CreatedAt,
		Resolution:      c.Resolution,
		Entries:         make([]dto.PublicEntryView, 0, len(entries)),
	}
	for _, entry := range entries {
		publicEntry := dto.PublicEntryView{
			Action:    entry.Action,
			Comment:   entry.Comment,
			NewState:  entry.NewState,
			CreatedAt: entry.CreatedAt,
		}
		for _, att := range entry.Attachments {
			publicEntry.Attachments = append(publicEntry.Attachments, dto.PublicFileView{
				DisplayName: att.DisplayName,
				Category:    att.Category,
			})
		}
		view.Entries = append(view.Entries, publicEntry)
	}
	return view
}
