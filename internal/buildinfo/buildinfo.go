// Package buildinfo carries the service identity stamped at link time with
// -ldflags "-X freightopt/internal/buildinfo.Version=...".
package buildinfo

const Service = "freightopt"

var (
	Version = "dev"
	Commit  = ""
	BuiltAt = ""
)

func Info() map[string]string {
	return map[string]string{
		"service": Service,
		"version": Version,
		"commit":  Commit,
		"builtAt": BuiltAt,
	}
}
