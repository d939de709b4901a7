package inspect

import (
	"runtime"
	"strings"

	"github.com/simon020286/go-manifest/models"
)

// fallbackPlatform is built from the compile-time target alone
func fallbackPlatform() models.Platform {
	return models.Platform{
		System:    systemName(runtime.GOOS),
		Machine:   runtime.GOARCH,
		Processor: runtime.GOARCH,
	}
}

var systemNames = map[string]string{
	"darwin":  "Darwin",
	"freebsd": "FreeBSD",
	"linux":   "Linux",
	"netbsd":  "NetBSD",
	"openbsd": "OpenBSD",
	"windows": "Windows",
}

func systemName(goos string) string {
	if name, ok := systemNames[goos]; ok {
		return name
	}
	if goos == "" {
		return ""
	}
	return strings.ToUpper(goos[:1]) + goos[1:]
}
