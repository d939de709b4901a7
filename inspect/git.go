package inspect

import (
	"context"
	"errors"
	"os"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/simon020286/go-manifest/models"
)

const msgNoRepository = "no git repository found"

// detachedBranch is what git itself prints for a detached HEAD
const detachedBranch = "HEAD"

// GitStatus inspects the repository containing dir, walking up through its
// parents. Failures are returned as the error variant, never as a Go error.
func GitStatus(ctx context.Context, dir string) models.GitStatus {
	if dir == "" {
		wd, err := os.Getwd()
		if err != nil {
			return models.GitFailure("resolve working directory: %v", err)
		}
		dir = wd
	}

	repo, err := git.PlainOpenWithOptions(dir, &git.PlainOpenOptions{DetectDotGit: true})
	if errors.Is(err, git.ErrRepositoryNotExists) {
		return models.GitFailure(msgNoRepository)
	}
	if err != nil {
		return models.GitFailure("open repository: %v", err)
	}

	head, err := repo.Head()
	if errors.Is(err, plumbing.ErrReferenceNotFound) {
		return models.GitFailure("repository has no commits")
	}
	if err != nil {
		return models.GitFailure("resolve HEAD: %v", err)
	}

	if err := ctx.Err(); err != nil {
		return models.GitFailure("%v", err)
	}

	dirty, err := isDirty(repo)
	if err != nil {
		return models.GitFailure("worktree status: %v", err)
	}

	remotes, err := remoteURLs(repo)
	if err != nil {
		return models.GitFailure("list remotes: %v", err)
	}

	branch := detachedBranch
	if head.Name().IsBranch() {
		branch = head.Name().Short()
	}

	return models.GitStatus{
		Branch:  branch,
		Commit:  head.Hash().String(),
		Dirty:   dirty,
		Remotes: remotes,
	}
}

// isDirty reports changes to tracked files; untracked files are ignored.
// Bare repositories have no worktree and are never dirty.
func isDirty(repo *git.Repository) (bool, error) {
	wt, err := repo.Worktree()
	if errors.Is(err, git.ErrIsBareRepository) {
		return false, nil
	}
	if err != nil {
		return false, err
	}

	status, err := wt.Status()
	if err != nil {
		return false, err
	}

	for _, fs := range status {
		if fs.Worktree == git.Untracked && (fs.Staging == git.Untracked || fs.Staging == git.Unmodified) {
			continue
		}
		if fs.Worktree != git.Unmodified || fs.Staging != git.Unmodified {
			return true, nil
		}
	}
	return false, nil
}

func remoteURLs(repo *git.Repository) (map[string][]string, error) {
	remotes, err := repo.Remotes()
	if err != nil {
		return nil, err
	}

	out := make(map[string][]string, len(remotes))
	for _, r := range remotes {
		cfg := r.Config()
		urls := make([]string, len(cfg.URLs))
		copy(urls, cfg.URLs)
		out[cfg.Name] = urls
	}
	return out, nil
}
