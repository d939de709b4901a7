// Package inspect reads the facts a run manifest records about its
// environment: version-control state, host platform and the Go runtime.
//
// Every lookup is read only and never fails; missing facilities are
// reported as data (an error variant for git, empty strings elsewhere).
package inspect

import (
	"context"

	"github.com/simon020286/go-manifest/models"
)

// Inspector gathers environment facts for a report
type Inspector interface {
	Git(ctx context.Context) models.GitStatus
	Platform() models.Platform
	Runtime() models.RuntimeEnv
}

// System inspects the real host. Dir is where repository discovery
// starts; empty means the process working directory.
type System struct {
	Dir string
}

func (s System) Git(ctx context.Context) models.GitStatus {
	return GitStatus(ctx, s.Dir)
}

func (System) Platform() models.Platform {
	return Platform()
}

func (System) Runtime() models.RuntimeEnv {
	return RuntimeEnv()
}

// Static returns fixed values, for tests and for replaying a known environment
type Static struct {
	GitStatus    models.GitStatus
	PlatformInfo models.Platform
	RuntimeInfo  models.RuntimeEnv
}

func (s Static) Git(context.Context) models.GitStatus {
	return s.GitStatus
}

func (s Static) Platform() models.Platform {
	return s.PlatformInfo
}

func (s Static) Runtime() models.RuntimeEnv {
	return s.RuntimeInfo
}
