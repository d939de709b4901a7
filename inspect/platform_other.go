//go:build !(linux || darwin || freebsd || netbsd || openbsd || dragonfly || windows)

package inspect

import "github.com/simon020286/go-manifest/models"

func Platform() models.Platform {
	return fallbackPlatform()
}
