// Package buildinfo holds build-time metadata injected through ldflags.
package buildinfo

// UnknownValue is reported for metadata that was not injected at build time.
const UnknownValue = "unknown"

// BuildInfo provides read access to build-time metadata.
type BuildInfo interface {
	GetVersion() string
	GetBuildDate() string
}

// Context contains build-time metadata that is not user-configurable.
type Context struct {
	Version   string
	BuildDate string
}

// NewContext creates a Context.
func NewContext(version, buildDate string) *Context {
	return &Context{Version: version, BuildDate: buildDate}
}

// GetVersion implements BuildInfo.GetVersion
func (c *Context) GetVersion() string {
	if c == nil || c.Version == "" {
		return UnknownValue
	}
	return c.Version
}

// GetBuildDate implements BuildInfo.GetBuildDate
func (c *Context) GetBuildDate() string {
	if c == nil || c.BuildDate == "" {
		return UnknownValue
	}
	return c.BuildDate
}

// String formats the metadata for --version output.
func (c *Context) String() string {
	return c.GetVersion() + " (built " + c.GetBuildDate() + ")"
}
