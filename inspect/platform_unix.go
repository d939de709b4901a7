//go:build linux || darwin || freebsd || netbsd || openbsd || dragonfly

package inspect

import (
	"golang.org/x/sys/unix"

	"github.com/simon020286/go-manifest/models"
)

// Platform reports uname(2). Processor mirrors the machine hardware name,
// which is what `uname -p` prints on the platforms that report it at all.
func Platform() models.Platform {
	var uts unix.Utsname
	if err := unix.Uname(&uts); err != nil {
		return fallbackPlatform()
	}

	machine := unix.ByteSliceToString(uts.Machine[:])
	return models.Platform{
		System:    unix.ByteSliceToString(uts.Sysname[:]),
		Release:   unix.ByteSliceToString(uts.Release[:]),
		Version:   unix.ByteSliceToString(uts.Version[:]),
		Machine:   machine,
		Processor: machine,
	}
}
