package version

// version is replaced at build time via -ldflags
var version = "dev"

// Version returns the version string this binary was built with
func Version() string {
	return version
}
