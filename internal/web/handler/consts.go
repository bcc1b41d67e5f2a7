package handler

const (
	// RouterRootPath is the root path of a route group.
	RouterRootPath = "/"

	// ErrNilDepsFatalLogMsg is used if router, cfg or a dependency pointer is nil.
	ErrNilDepsFatalLogMsg = "router, cfg or dependency is nil"

	// ErrorField is the JSON field carrying the error message of a failed request.
	ErrorField = "error"
)
