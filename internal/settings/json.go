package settings

import (
	"context"
	"encoding/json"
	"errors"

	pkgerrors "github.com/pkg/errors"
)

// ErrNullValue is returned by GetJSON when the setting holds null.
var ErrNullValue = errors.New("setting value is null")

// GetJSON loads the setting name and decodes its JSON value into dst.
func (s *Service[T, PT]) GetJSON(ctx context.Context, name string, dst any) error {
	value, err := s.Get(ctx, name)
	if err != nil {
		return err
	}

	if value == nil {
		return pkgerrors.Wrap(ErrNullValue, name)
	}

	if err = json.Unmarshal([]byte(*value), dst); err != nil {
		return pkgerrors.Wrapf(err, "decode setting %q", name)
	}

	return nil
}

// SetJSON encodes src as JSON and stores it under name.
func (s *Service[T, PT]) SetJSON(ctx context.Context, name string, src any) error {
	data, err := json.Marshal(src)
	if err != nil {
		return pkgerrors.Wrapf(err, "encode setting %q", name)
	}

	value := string(data)

	return s.Set(ctx, name, &value)
}
