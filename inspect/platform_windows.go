//go:build windows

package inspect

import (
	"fmt"
	"os"

	"golang.org/x/sys/windows"

	"github.com/simon020286/go-manifest/models"
)

func Platform() models.Platform {
	info := windows.RtlGetVersion()
	if info == nil {
		return fallbackPlatform()
	}

	p := fallbackPlatform()
	p.Release = fmt.Sprintf("%d", info.MajorVersion)
	p.Version = fmt.Sprintf("%d.%d.%d", info.MajorVersion, info.MinorVersion, info.BuildNumber)
	if id := os.Getenv("PROCESSOR_IDENTIFIER"); id != "" {
		p.Processor = id
	}
	return p
}
