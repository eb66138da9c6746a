// Package landing resolves the per-company pages served under /:slug.
package landing

import (
	"context"
	"database/sql"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"leadcapture/internal/common/database"
	"leadcapture/internal/common/logger"
	"leadcapture/internal/models"
	"leadcapture/pkg/registry"
)

var ErrPageNotFound = stderrors.New("landing page not found")

const (
	cacheKeyPrefix   = "landing:"
	defaultCTALabel  = "Book a demo"
	defaultCTATarget = "/demo"

	selectPageQuery = `SELECT slug, company_name, headline,
		COALESCE(subheadline, ''), COALESCE(industry, ''),
		COALESCE(cta_label, ''), COALESCE(cta_target, ''), COALESCE(logo_url, '')
		FROM landing_pages
		WHERE slug = $1 AND active = true`
)

type Options struct {
	RegistryPath string
	CacheTTL     time.Duration
}

// Service looks pages up in Redis, then PostgreSQL, then the registry file.
// Every source is optional.
type Service struct {
	db     *database.PostgresClient
	cache  *redis.Client
	opts   Options
	logger logger.Logger
}

func NewService(db *database.PostgresClient, cache *redis.Client, opts Options, log logger.Logger) *Service {
	if opts.CacheTTL <= 0 {
		opts.CacheTTL = 10 * time.Minute
	}
	return &Service{
		db:     db,
		cache:  cache,
		opts:   opts,
		logger: logger.Component(log, "landing"),
	}
}

func (s *Service) Get(ctx context.Context, slug string) (*models.LandingPage, error) {
	if !registry.ValidSlug(slug) {
		return nil, fmt.Errorf("%w: %q", ErrPageNotFound, slug)
	}

	if page, ok := s.fromCache(ctx, slug); ok {
		return page, nil
	}

	page, err := s.fromDatabase(ctx, slug)
	if err != nil {
		s.logger.Warn("landing page query failed", map[string]interface{}{"slug": slug, "error": err})
	}
	if page == nil {
		page, err = s.fromRegistry(slug)
		if err != nil {
			s.logger.Warn("landing registry unavailable", map[string]interface{}{
				"path":  s.opts.RegistryPath,
				"error": err,
			})
		}
	}
	if page == nil {
		return nil, fmt.Errorf("%w: %q", ErrPageNotFound, slug)
	}

	s.complete(page)
	s.store(ctx, page)
	return page, nil
}

// TitleFromSlug turns "acme-dental" into "Acme Dental".
func (s *Service) TitleFromSlug(slug string) string {
	// Casers carry state, so one is built per call.
	return cases.Title(language.English).String(strings.ReplaceAll(slug, "-", " "))
}

func (s *Service) complete(page *models.LandingPage) {
	if page.CompanyName == "" {
		page.CompanyName = s.TitleFromSlug(page.Slug)
	}
	if page.Headline == "" {
		page.Headline = fmt.Sprintf("AI automation built for %s", page.CompanyName)
	}
	if page.CTALabel == "" {
		page.CTALabel = defaultCTALabel
	}
	if page.CTATarget == "" {
		page.CTATarget = defaultCTATarget
	}
}

func (s *Service) fromCache(ctx context.Context, slug string) (*models.LandingPage, bool) {
	if s.cache == nil {
		return nil, false
	}
	data, err := s.cache.Get(ctx, cacheKeyPrefix+slug).Bytes()
	if err != nil {
		if !stderrors.Is(err, redis.Nil) {
			s.logger.Warn("landing cache read failed", map[string]interface{}{"slug": slug, "error": err})
		}
		return nil, false
	}
	var page models.LandingPage
	if err := json.Unmarshal(data, &page); err != nil {
		return nil, false
	}
	return &page, true
}

func (s *Service) store(ctx context.Context, page *models.LandingPage) {
	if s.cache == nil {
		return
	}
	data, err := json.Marshal(page)
	if err != nil {
		return
	}
	if err := s.cache.Set(ctx, cacheKeyPrefix+page.Slug, data, s.opts.CacheTTL).Err(); err != nil {
		s.logger.Warn("landing cache write failed", map[string]interface{}{"slug": page.Slug, "error": err})
	}
}

func (s *Service) fromDatabase(ctx context.Context, slug string) (*models.LandingPage, error) {
	if s.db == nil {
		return nil, nil
	}
	var p models.LandingPage
	err := s.db.QueryRow(ctx, selectPageQuery, slug).Scan(
		&p.Slug, &p.CompanyName, &p.Headline,
		&p.Subheadline, &p.Industry,
		&p.CTALabel, &p.CTATarget, &p.LogoURL,
	)
	if stderrors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (s *Service) fromRegistry(slug string) (*models.LandingPage, error) {
	if s.opts.RegistryPath == "" {
		return nil, nil
	}
	reg, err := registry.LoadRegistry(s.opts.RegistryPath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	p, ok := reg.Find(slug)
	if !ok || !p.Active {
		return nil, nil
	}
	return &models.LandingPage{
		Slug:        p.Slug,
		CompanyName: p.CompanyName,
		Headline:    p.Headline,
		Subheadline: p.Subheadline,
		Industry:    p.Industry,
		CTALabel:    p.CTALabel,
		CTATarget:   p.CTATarget,
		LogoURL:     p.LogoURL,
	}, nil
}
