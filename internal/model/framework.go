package model

// Framework is the build tooling family detected in the host project.
// The set of values is closed; anything unrecognised is FrameworkUnknown.
type Framework string

const (
	// FrameworkUnknown means no supported framework was recognised. The
	// pipeline runs with Catalog's own defaults.
	FrameworkUnknown Framework = "UNKNOWN"

	// FrameworkCreateReactApp is a project bootstrapped with react-scripts.
	FrameworkCreateReactApp Framework = "CREATE_REACT_APP"

	// FrameworkNext is a next.js project.
	FrameworkNext Framework = "NEXT"
)

// String returns the enumeration name of the framework.
func (f Framework) String() string {
	return string(f)
}

// IsValid reports whether f is one of the defined variants.
func (f Framework) IsValid() bool {
	switch f {
	case FrameworkUnknown, FrameworkCreateReactApp, FrameworkNext:
		return true
	default:
		return false
	}
}

// DisplayName returns the human-readable name printed after detection.
// FrameworkUnknown maps to the empty string, which suppresses the line.
func (f Framework) DisplayName() string {
	switch f {
	case FrameworkCreateReactApp:
		return "Create React App"
	case FrameworkNext:
		return "next.js (support is experimental)"
	default:
		return ""
	}
}

// Mode selects development or production behaviour. It is passed explicitly
// to every collaborator that needs the distinction.
type Mode string

const (
	// ModeDevelopment is used by the start command.
	ModeDevelopment Mode = "development"

	// ModeProduction is used for static builds.
	ModeProduction Mode = "production"
)

// String returns the mode name, which is also the NODE_ENV value.
func (m Mode) String() string {
	return string(m)
}

// IsDev reports whether m is ModeDevelopment.
func (m Mode) IsDev() bool {
	return m == ModeDevelopment
}
