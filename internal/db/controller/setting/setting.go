// Package setting provides CRUD operations for managing application settings.
package setting

import (
	"context"
	"errors"

	pkgerrors "github.com/pkg/errors"
	"gorm.io/gorm"

	"github.com/GoPowerDNS-Admin/go-settings/internal/db/models"
)

const (
	nameQueryPattern = "name = ?"
)

var (
	// ErrSettingNotFound is returned when a setting is not found.
	ErrSettingNotFound = errors.New("setting not found")
	// ErrSettingNameEmpty is returned when attempting to create/update a setting with an empty name.
	ErrSettingNameEmpty = errors.New("setting name cannot be empty")
	// ErrSettingAlreadyExists is returned when the schema rejects an insert because the name is taken.
	ErrSettingAlreadyExists = errors.New("setting already exists")
	// ErrDBNil is returned when the database connection is nil.
	ErrDBNil = errors.New("database connection is nil")
)

// Store persists settings of entity type T in T's table.
type Store[T any, PT models.EntityPtr[T]] struct {
	db *gorm.DB
}

// New returns a Store bound to entity type T.
func New[T any, PT models.EntityPtr[T]](db *gorm.DB) *Store[T, PT] {
	return &Store[T, PT]{db: db}
}

// NewDefault returns a Store bound to models.Setting.
func NewDefault(db *gorm.DB) *Store[models.Setting, *models.Setting] {
	return New[models.Setting](db)
}

// Migrate creates or updates the table of the bound entity.
func (s *Store[T, PT]) Migrate() error {
	if s.db == nil {
		return ErrDBNil
	}

	return s.db.AutoMigrate(PT(new(T)))
}

// Get retrieves a setting by its name.
func (s *Store[T, PT]) Get(ctx context.Context, name string) (PT, error) {
	if s.db == nil {
		return nil, ErrDBNil
	}
	if name == "" {
		return nil, ErrSettingNameEmpty
	}

	return s.find(s.db.WithContext(ctx), name)
}

// GetAll retrieves all settings from the database ordered by name.
func (s *Store[T, PT]) GetAll(ctx context.Context) ([]PT, error) {
	if s.db == nil {
		return nil, ErrDBNil
	}

	var rows []T
	result := s.db.WithContext(ctx).Order("name").Find(&rows)
	if result.Error != nil {
		return nil, pkgerrors.WithMessage(result.Error, "list settings")
	}

	settings := make([]PT, 0, len(rows))
	for i := range rows {
		settings = append(settings, PT(&rows[i]))
	}

	return settings, nil
}

// Values returns every setting as a name to value mapping.
func (s *Store[T, PT]) Values(ctx context.Context) (map[string]*string, error) {
	settings, err := s.GetAll(ctx)
	if err != nil {
		return nil, err
	}

	values := make(map[string]*string, len(settings))
	for _, entity := range settings {
		values[entity.GetName()] = entity.GetValue()
	}

	return values, nil
}

// Create inserts a new setting. The name must not exist yet.
func (s *Store[T, PT]) Create(ctx context.Context, entity PT) error {
	if s.db == nil {
		return ErrDBNil
	}
	if entity == nil || entity.GetName() == "" {
		return ErrSettingNameEmpty
	}

	return s.insert(s.db.WithContext(ctx), entity)
}

// Set creates or updates a setting by name (upsert operation).
func (s *Store[T, PT]) Set(ctx context.Context, name string, value *string) (PT, error) {
	if s.db == nil {
		return nil, ErrDBNil
	}
	if name == "" {
		return nil, ErrSettingNameEmpty
	}

	return s.upsert(s.db.WithContext(ctx), name, value)
}

// SetMultiple upserts every entry of values in one transaction.
// Either all values are written or none.
func (s *Store[T, PT]) SetMultiple(ctx context.Context, values map[string]*string) error {
	if s.db == nil {
		return ErrDBNil
	}
	for name := range values {
		if name == "" {
			return ErrSettingNameEmpty
		}
	}
	if len(values) == 0 {
		return nil
	}

	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for name, value := range values {
			if _, err := s.upsert(tx, name, value); err != nil {
				return err
			}
		}

		return nil
	})
}

// Delete deletes a setting by name.
func (s *Store[T, PT]) Delete(ctx context.Context, name string) error {
	if s.db == nil {
		return ErrDBNil
	}
	if name == "" {
		return ErrSettingNameEmpty
	}

	result := s.db.WithContext(ctx).Where(nameQueryPattern, name).Delete(PT(new(T)))
	if result.Error != nil {
		return pkgerrors.WithMessagef(result.Error, "delete setting %q", name)
	}
	if result.RowsAffected == 0 {
		return ErrSettingNotFound
	}

	return nil
}

func (s *Store[T, PT]) find(db *gorm.DB, name string) (PT, error) {
	entity := PT(new(T))

	result := db.Where(nameQueryPattern, name).First(entity)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, ErrSettingNotFound
		}

		return nil, pkgerrors.WithMessagef(result.Error, "load setting %q", name)
	}

	return entity, nil
}

func (s *Store[T, PT]) insert(db *gorm.DB, entity PT) error {
	if err := db.Create(entity).Error; err != nil {
		if isUniqueViolation(err) {
			return pkgerrors.Wrapf(ErrSettingAlreadyExists, "%s: %s", entity.GetName(), err.Error())
		}

		return pkgerrors.WithMessagef(err, "create setting %q", entity.GetName())
	}

	return nil
}

func (s *Store[T, PT]) upsert(db *gorm.DB, name string, value *string) (PT, error) {
	entity, err := s.find(db, name)
	if errors.Is(err, ErrSettingNotFound) {
		// Setting doesn't exist, create it
		entity = models.New[T, PT](name, value)
		if err = s.insert(db, entity); err != nil {
			return nil, err
		}

		return entity, nil
	}
	if err != nil {
		return nil, err
	}

	// Setting exists, update it in place
	entity.SetValue(value)
	if err = db.Save(entity).Error; err != nil {
		return nil, pkgerrors.WithMessagef(err, "update setting %q", name)
	}

	return entity, nil
}
