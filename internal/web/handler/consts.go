package handler

const (
	// RootPath is the root path the route group.
	RootPath = "/"

	// APIPath is the prefix of the JSON API.
	APIPath = RootPath + "api"

	// ErrNilACSFatalLogMsg is used if app or cfg or settings var pointer is nil.
	ErrNilACSFatalLogMsg = "app, cfg or settings is nil"
)
