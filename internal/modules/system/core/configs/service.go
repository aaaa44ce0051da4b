package configs

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/minpic/core/internal/models"
	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Service persists storage sources and the short-link registration, and
// resolves which source applies to an operation. Nothing is cached: every call
// reads the latest saved state.
type Service struct {
	db     *gorm.DB
	logger *zap.Logger
	now    func() time.Time
}

type ServiceOption func(*Service)

func WithLogger(logger *zap.Logger) ServiceOption {
	return func(s *Service) {
		if logger != nil {
			s.logger = logger
		}
	}
}

func WithClock(now func() time.Time) ServiceOption {
	return func(s *Service) { s.now = now }
}

func NewService(db *gorm.DB, opts ...ServiceOption) *Service {
	s := &Service{db: db, logger: zap.NewNop(), now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	s.logger = s.logger.Named("ConfigService")
	return s
}

// Resolve picks the source for a single-object operation: the list entry whose
// id equals hint, else the legacy default record, else ErrConfigNotFound.
// The active pointer is deliberately not consulted here.
func (s *Service) Resolve(ctx context.Context, hint string) (*models.StorageConfig, error) {
	if hint != "" {
		list, err := s.ListStorage(ctx)
		if err != nil {
			return nil, err
		}
		for i := range list {
			if list[i].ID == hint {
				return &list[i], nil
			}
		}
	}
	legacy, err := s.Legacy(ctx)
	if err != nil {
		return nil, err
	}
	if legacy != nil {
		return legacy, nil
	}
	if hint != "" {
		return nil, fmt.Errorf("%w: %q", ErrConfigNotFound, hint)
	}
	return nil, ErrConfigNotFound
}

// Lookup finds a source by exact id without falling back; LegacyConfigID
// addresses the legacy record.
func (s *Service) Lookup(ctx context.Context, id string) (*models.StorageConfig, error) {
	if id == models.LegacyConfigID {
		legacy, err := s.Legacy(ctx)
		if err != nil {
			return nil, err
		}
		if legacy == nil {
			return nil, fmt.Errorf("%w: %q", ErrConfigNotFound, id)
		}
		return legacy, nil
	}
	list, err := s.ListStorage(ctx)
	if err != nil {
		return nil, err
	}
	for i := range list {
		if list[i].ID == id {
			return &list[i], nil
		}
	}
	return nil, fmt.Errorf("%w: %q", ErrConfigNotFound, id)
}

// EffectiveSource picks the source the file list is filtered by: the recorded
// active id when it is in the list, else the first source; filtered is false
// when no sources are registered.
func (s *Service) EffectiveSource(ctx context.Context) (id string, filtered bool, err error) {
	list, err := s.ListStorage(ctx)
	if err != nil {
		return "", false, err
	}
	if len(list) == 0 {
		return "", false, nil
	}
	active, _, err := s.activeID(ctx)
	if err != nil {
		return "", false, err
	}
	for _, c := range list {
		if active != "" && c.ID == active {
			return active, true, nil
		}
	}
	return list[0].ID, true, nil
}

// ListStorage returns the sources in saved order. Before the first save it
// falls back to a legacy JSON blob without rewriting it.
func (s *Service) ListStorage(ctx context.Context) ([]models.StorageConfig, error) {
	var list []models.StorageConfig
	if err := s.db.WithContext(ctx).Order("position asc").Find(&list).Error; err != nil {
		return nil, fmt.Errorf("load storage configs: %w", err)
	}
	if len(list) > 0 {
		return list, nil
	}
	blob, _, err := s.legacyList(ctx)
	return blob, err
}

// Legacy returns the single-config record, reported under LegacyConfigID, or nil.
func (s *Service) Legacy(ctx context.Context) (*models.StorageConfig, error) {
	raw, ok, err := s.option(ctx, models.OptionMinioDefault)
	if err != nil || !ok {
		return nil, err
	}
	var cfg models.StorageConfig
	if err := json.Unmarshal([]byte(raw), &cfg); err != nil {
		return nil, fmt.Errorf("decode %s: %w", models.OptionMinioDefault, err)
	}
	cfg.Normalize()
	cfg.ID = models.LegacyConfigID
	if cfg.Name == "" {
		cfg.Name = legacyDefaultName
	}
	return &cfg, nil
}

// StorageState returns the list and active pointer for the settings screen.
// Installs that only have the legacy record get it promoted into a one-element
// list, persisted so the generated id stays stable across reads.
func (s *Service) StorageState(ctx context.Context) (*StorageState, error) {
	if err := s.importLegacyList(ctx); err != nil {
		return nil, err
	}

	var list []models.StorageConfig
	if err := s.db.WithContext(ctx).Order("position asc").Find(&list).Error; err != nil {
		return nil, fmt.Errorf("load storage configs: %w", err)
	}

	if len(list) == 0 {
		legacy, err := s.Legacy(ctx)
		if err != nil {
			return nil, err
		}
		if legacy == nil {
			return &StorageState{Configs: []models.StorageConfig{}}, nil
		}
		promoted := *legacy
		promoted.ID = "default-" + strconv.FormatInt(s.now().UnixMilli(), 10)
		promoted.Name = legacyDefaultName
		state := StorageState{Configs: []models.StorageConfig{promoted}, ActiveID: promoted.ID}
		if err := s.writeStorage(ctx, &state); err != nil {
			return nil, err
		}
		s.logger.Info("promoted legacy storage config", zap.String("id", promoted.ID))
		return &state, nil
	}

	// An explicitly stored empty pointer means "no active source".
	active, recorded, err := s.activeID(ctx)
	if err != nil {
		return nil, err
	}
	if !recorded {
		active = list[0].ID
	}
	return &StorageState{Configs: list, ActiveID: active}, nil
}

// SaveStorage validates and replaces the whole list in one transaction, stores
// the active pointer and mirrors the active source into the legacy slot.
// Concurrent saves are last-write-wins.
func (s *Service) SaveStorage(ctx context.Context, in StorageState) (*StorageState, error) {
	state := StorageState{Configs: make([]models.StorageConfig, len(in.Configs)), ActiveID: in.ActiveID}
	seen := make(map[string]struct{}, len(in.Configs))
	for i, c := range in.Configs {
		c.Normalize()
		// Errors name the id the caller sent; new entries are named by position.
		given := c.ID
		if c.ID == "" {
			c.ID = uuid.NewString()
		}
		if c.ID == models.LegacyConfigID {
			return nil, &ValidationError{Index: i, ID: c.ID, Err: errors.New("id is reserved")}
		}
		if _, dup := seen[c.ID]; dup {
			return nil, &ValidationError{Index: i, ID: c.ID, Err: errors.New("duplicate id")}
		}
		seen[c.ID] = struct{}{}
		if err := c.Validate(); err != nil {
			return nil, &ValidationError{Index: i, ID: given, Err: err}
		}
		state.Configs[i] = c
	}
	if state.ActiveID != "" {
		if _, ok := seen[state.ActiveID]; !ok {
			return nil, fmt.Errorf("%w: %q", ErrActiveConfigMissing, state.ActiveID)
		}
	}

	if err := s.writeStorage(ctx, &state); err != nil {
		return nil, err
	}
	s.logger.Info("storage configs saved", zap.Int("count", len(state.Configs)), zap.String("activeId", state.ActiveID))
	return &state, nil
}

func (s *Service) writeStorage(ctx context.Context, state *StorageState) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Session(&gorm.Session{AllowGlobalUpdate: true}).Delete(&models.StorageConfig{}).Error; err != nil {
			return fmt.Errorf("clear storage configs: %w", err)
		}
		for i := range state.Configs {
			state.Configs[i].Position = i
		}
		if len(state.Configs) > 0 {
			if err := tx.Create(&state.Configs).Error; err != nil {
				return fmt.Errorf("insert storage configs: %w", err)
			}
		}
		if err := upsertOption(tx, models.OptionStorageActiveID, state.ActiveID); err != nil {
			return err
		}
		for i := range state.Configs {
			if state.Configs[i].ID != state.ActiveID {
				continue
			}
			mirror := state.Configs[i]
			mirror.ID, mirror.Name = "", ""
			data, err := json.Marshal(mirror)
			if err != nil {
				return err
			}
			if err := upsertOption(tx, models.OptionMinioDefault, string(data)); err != nil {
				return err
			}
		}
		return tx.Where("name IN ?", []string{models.OptionStorageConfigs, legacyMinioConfigs, legacyMinioActiveID}).
			Delete(&models.OptionModel{}).Error
	})
}

// importLegacyList moves a JSON-blob source list into the typed table.
func (s *Service) importLegacyList(ctx context.Context) error {
	var count int64
	if err := s.db.WithContext(ctx).Model(&models.StorageConfig{}).Count(&count).Error; err != nil {
		return err
	}
	if count > 0 {
		return nil
	}
	list, found, err := s.legacyList(ctx)
	if err != nil || !found {
		return err
	}
	active, _, err := s.activeID(ctx)
	if err != nil {
		return err
	}
	state := StorageState{Configs: list, ActiveID: active}
	if err := s.writeStorage(ctx, &state); err != nil {
		return fmt.Errorf("import legacy storage configs: %w", err)
	}
	s.logger.Info("imported legacy storage config list", zap.Int("count", len(list)))
	return nil
}

func (s *Service) legacyList(ctx context.Context) ([]models.StorageConfig, bool, error) {
	raw, ok, err := s.option(ctx, models.OptionStorageConfigs, legacyMinioConfigs)
	if err != nil || !ok {
		return nil, false, err
	}
	var list []models.StorageConfig
	if err := json.Unmarshal([]byte(raw), &list); err != nil {
		return nil, false, fmt.Errorf("decode legacy storage configs: %w", err)
	}
	out := list[:0]
	for _, c := range list {
		c.Normalize()
		if c.ID == "" {
			continue
		}
		out = append(out, c)
	}
	return out, true, nil
}

// activeID returns the stored pointer and whether any pointer record exists.
func (s *Service) activeID(ctx context.Context) (string, bool, error) {
	return s.option(ctx, models.OptionStorageActiveID, legacyMinioActiveID)
}

// Shortlink returns the stored short-link registration.
func (s *Service) Shortlink(ctx context.Context) (*models.ShortlinkConfig, error) {
	raw, ok, err := s.option(ctx, models.OptionShortlink)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrShortlinkNotConfigured
	}
	var cfg models.ShortlinkConfig
	if err := json.Unmarshal([]byte(raw), &cfg); err != nil {
		return nil, fmt.Errorf("decode %s: %w", models.OptionShortlink, err)
	}
	cfg.Normalize()
	return &cfg, nil
}

// ShortlinkIfAutoCreate returns the registration only when uploads and imports
// should mint links.
func (s *Service) ShortlinkIfAutoCreate(ctx context.Context) (*models.ShortlinkConfig, error) {
	cfg, err := s.Shortlink(ctx)
	if errors.Is(err, ErrShortlinkNotConfigured) {
		return nil, nil
	}
	if err != nil || !cfg.AutoCreate() {
		return nil, err
	}
	return cfg, nil
}

func (s *Service) SaveShortlink(ctx context.Context, cfg models.ShortlinkConfig) (*models.ShortlinkConfig, error) {
	cfg.Normalize()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidShortlink, err)
	}
	data, err := json.Marshal(cfg)
	if err != nil {
		return nil, err
	}
	if err := upsertOption(s.db.WithContext(ctx), models.OptionShortlink, string(data)); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// option returns the value of the first existing key.
func (s *Service) option(ctx context.Context, keys ...string) (string, bool, error) {
	var opts []models.OptionModel
	if err := s.db.WithContext(ctx).Where("name IN ?", keys).Find(&opts).Error; err != nil {
		return "", false, fmt.Errorf("load options: %w", err)
	}
	for _, key := range keys {
		for _, o := range opts {
			if o.Name == key {
				return o.Value, true, nil
			}
		}
	}
	return "", false, nil
}

func upsertOption(db *gorm.DB, name, value string) error {
	opt := models.OptionModel{Name: name, Value: value}
	return db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "name"}},
		DoUpdates: clause.AssignmentColumns([]string{"value"}),
	}).Create(&opt).Error
}
