// Package models contains database model definitions.
package models

// Setting represents a configuration setting stored in the database.
// The name is the primary key, so the schema rejects a second row with the same name.
type Setting struct {
	Name    string  `gorm:"primaryKey;size:255" json:"name"`
	Value   *string `gorm:"type:text"           json:"value"`
	Section *string `gorm:"size:255"            json:"section,omitempty"`
	Comment *string `gorm:"type:text"           json:"comment,omitempty"`
}

// TableName implements gorm's tabler interface.
func (Setting) TableName() string {
	return "settings"
}

// GetName returns the setting name.
func (s *Setting) GetName() string { return s.Name }

// SetName sets the setting name.
func (s *Setting) SetName(name string) { s.Name = name }

// GetValue returns the setting value, nil if the stored value is null.
func (s *Setting) GetValue() *string { return s.Value }

// SetValue sets the setting value.
func (s *Setting) SetValue(value *string) { s.Value = value }
