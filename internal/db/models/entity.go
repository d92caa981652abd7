package models

// Entity is the shape every persisted setting model has to provide.
// Custom models implement it on their pointer type and bring their own table.
type Entity interface {
	GetName() string
	SetName(name string)
	GetValue() *string
	SetValue(value *string)
}

// EntityPtr constrains PT to be a pointer to T implementing Entity.
// It lets generic code allocate a T and still call the Entity methods on it.
type EntityPtr[T any] interface {
	*T
	Entity
}

// New builds a setting entity of type T for name and value.
func New[T any, PT EntityPtr[T]](name string, value *string) PT {
	entity := PT(new(T))
	entity.SetName(name)
	entity.SetValue(value)

	return entity
}
