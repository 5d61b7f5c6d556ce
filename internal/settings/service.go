package settings

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/aspire-solar/billdesk/internal/platform/cache"
	"github.com/aspire-solar/billdesk/internal/shared"
	"github.com/aspire-solar/billdesk/internal/storage"
)

const (
	brandingFolder = "branding"
	cacheKey       = "settings"
)

// Repository defines data access for the settings singleton.
type Repository interface {
	Get(ctx context.Context) (*Settings, error)
	InsertIfAbsent(ctx context.Context, s Settings) (bool, error)
	Update(ctx context.Context, s *Settings) error
	SetImage(ctx context.Context, kind ImageKind, fileName string) (string, error)
}

// Service manages the company profile and its branding images.
type Service struct {
	repo      Repository
	store     storage.Store
	remover   storage.Remover
	cache     *cache.JSON
	logger    *slog.Logger
	validator *validator.Validate
}

// NewService builds Service instance.
func NewService(repo Repository, store storage.Store, remover storage.Remover, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{repo: repo, store: store, remover: remover, logger: logger, validator: shared.NewValidator()}
}

// WithCache serves Get from c and drops the cached copy on every write.
func (s *Service) WithCache(c *cache.JSON) *Service {
	s.cache = c
	return s
}

// Ensure creates the settings row with defaults when missing and returns the
// stored settings. Running it repeatedly never overwrites edits.
func (s *Service) Ensure(ctx context.Context) (*Settings, error) {
	created, err := s.repo.InsertIfAbsent(ctx, Defaults())
	if err != nil {
		return nil, err
	}
	if created {
		s.logger.Info("company settings initialised with defaults")
	}
	return s.repo.Get(ctx)
}

// Get returns the current settings.
func (s *Service) Get(ctx context.Context) (*Settings, error) {
	if s.cache == nil {
		return s.repo.Get(ctx)
	}
	var out Settings
	err := s.cache.Fetch(ctx, cacheKey, &out, func(ctx context.Context) (any, error) {
		return s.repo.Get(ctx)
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// Update validates req and stores it.
func (s *Service) Update(ctx context.Context, req UpdateRequest) (*Settings, error) {
	req.CompanyName = strings.TrimSpace(req.CompanyName)
	req.AddressLine1 = strings.TrimSpace(req.AddressLine1)
	req.GSTNumber = strings.ToUpper(strings.TrimSpace(req.GSTNumber))
	req.IFSCCode = strings.ToUpper(strings.TrimSpace(req.IFSCCode))
	req.ProprietorName = strings.TrimSpace(req.ProprietorName)
	if err := shared.ValidateStruct(s.validator, req); err != nil {
		return nil, err
	}
	current, err := s.repo.Get(ctx)
	if err != nil {
		return nil, err
	}
	req.apply(current)
	if err := s.repo.Update(ctx, current); err != nil {
		return nil, err
	}
	s.cache.Invalidate(ctx, cacheKey)
	return current, nil
}

// UploadImage stores a PNG or JPEG for kind and removes the file it replaces.
func (s *Service) UploadImage(ctx context.Context, kind ImageKind, data []byte) (*Settings, error) {
	if kind != ImageLogo && kind != ImageStamp {
		return nil, fmt.Errorf("settings: unknown image kind %q", kind)
	}
	obj, err := s.store.Upload(ctx, data, brandingFolder, storage.ImageTypes)
	if err != nil {
		return nil, err
	}
	previous, err := s.repo.SetImage(ctx, kind, obj.FileName)
	if err != nil {
		s.remove(ctx, obj.FileName)
		return nil, err
	}
	s.cache.Invalidate(ctx, cacheKey)
	if previous != "" && previous != obj.FileName {
		s.remove(ctx, previous)
	}
	return s.repo.Get(ctx)
}

// Image reads the stored bytes for kind. It returns nil without error when
// the slot is empty or the file has gone missing.
func (s *Service) Image(ctx context.Context, settings *Settings, kind ImageKind) ([]byte, error) {
	name := settings.Image(kind)
	if name == "" || s.store == nil {
		return nil, nil
	}
	data, err := s.store.Open(ctx, name)
	if storage.IsNotFound(err) {
		s.logger.Warn("branding image missing", slog.String("kind", string(kind)), slog.String("file", name))
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return data, nil
}

func (s *Service) remove(ctx context.Context, fileName string) {
	if s.remover == nil {
		return
	}
	if err := s.remover.Remove(ctx, fileName); err != nil {
		s.logger.Warn("remove branding image", slog.String("file", fileName), slog.Any("error", err))
	}
}
