package inspect

import (
	"runtime"
	"runtime/debug"

	"github.com/simon020286/go-manifest/models"
)

// RuntimeEnv reports the Go toolchain that built the binary and every module
// linked into it, keyed by module path.
func RuntimeEnv() models.RuntimeEnv {
	env := models.RuntimeEnv{
		Version:  runtime.Version() + " " + runtime.GOOS + "/" + runtime.GOARCH,
		Packages: map[string]string{},
	}

	info, ok := debug.ReadBuildInfo()
	if !ok {
		return env
	}

	if info.Main.Path != "" {
		env.Packages[info.Main.Path] = moduleVersion(&info.Main)
	}
	for _, dep := range info.Deps {
		env.Packages[dep.Path] = moduleVersion(dep)
	}
	return env
}

// moduleVersion follows replace directives; a local replacement has no
// version and is reported by its directory.
func moduleVersion(m *debug.Module) string {
	if m.Replace != nil {
		if m.Replace.Version != "" {
			return m.Replace.Version
		}
		return m.Replace.Path
	}
	return m.Version
}
