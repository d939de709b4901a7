package inspect

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/go-git/go-git/v5"
	gitconfig "github.com/go-git/go-git/v5/config"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/object"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// setupTestRepo creates a repository on branch "main" with one commit of README.md
func setupTestRepo(t *testing.T) (string, *git.Repository, plumbing.Hash) {
	t.Helper()

	dir := t.TempDir()
	repo, err := git.PlainInitWithOptions(dir, &git.PlainInitOptions{
		InitOptions: git.InitOptions{DefaultBranch: plumbing.NewBranchReferenceName("main")},
	})
	require.NoError(t, err)

	writeFile(t, filepath.Join(dir, "README.md"), "# Test")

	wt, err := repo.Worktree()
	require.NoError(t, err)
	_, err = wt.Add("README.md")
	require.NoError(t, err)

	hash, err := wt.Commit("Initial commit", &git.CommitOptions{
		Author: &object.Signature{Name: "Test User", Email: "test@example.com", When: time.Now()},
	})
	require.NoError(t, err)

	return dir, repo, hash
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func TestGitStatus_NoRepository(t *testing.T) {
	status := GitStatus(context.Background(), t.TempDir())

	assert.False(t, status.OK())
	assert.Equal(t, msgNoRepository, status.Error)

	data, err := json.Marshal(status)
	require.NoError(t, err)
	assert.JSONEq(t, `{"error": "no git repository found"}`, string(data))
}

func TestGitStatus_OneCommitNoRemotes(t *testing.T) {
	dir, _, hash := setupTestRepo(t)

	status := GitStatus(context.Background(), dir)

	require.True(t, status.OK(), status.Error)
	assert.Equal(t, "main", status.Branch)
	assert.Equal(t, hash.String(), status.Commit)
	assert.Len(t, status.Commit, 40)
	assert.False(t, status.Dirty)
	assert.Empty(t, status.Remotes)

	data, err := json.Marshal(status)
	require.NoError(t, err)

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, map[string]any{}, decoded["remotes"])
	assert.Equal(t, false, decoded["dirty"])
	assert.NotContains(t, decoded, "error")
}

func TestGitStatus_DiscoversFromSubdirectory(t *testing.T) {
	dir, _, hash := setupTestRepo(t)
	sub := filepath.Join(dir, "data", "raw")
	require.NoError(t, os.MkdirAll(sub, 0o755))

	status := GitStatus(context.Background(), sub)

	require.True(t, status.OK(), status.Error)
	assert.Equal(t, hash.String(), status.Commit)
}

func TestGitStatus_Dirty(t *testing.T) {
	t.Run("untracked file is clean", func(t *testing.T) {
		dir, _, _ := setupTestRepo(t)
		writeFile(t, filepath.Join(dir, "scratch.txt"), "tmp")

		assert.False(t, GitStatus(context.Background(), dir).Dirty)
	})

	t.Run("modified tracked file", func(t *testing.T) {
		dir, _, _ := setupTestRepo(t)
		writeFile(t, filepath.Join(dir, "README.md"), "# Changed")

		assert.True(t, GitStatus(context.Background(), dir).Dirty)
	})

	t.Run("staged new file", func(t *testing.T) {
		dir, repo, _ := setupTestRepo(t)
		writeFile(t, filepath.Join(dir, "new.txt"), "new")
		wt, err := repo.Worktree()
		require.NoError(t, err)
		_, err = wt.Add("new.txt")
		require.NoError(t, err)

		assert.True(t, GitStatus(context.Background(), dir).Dirty)
	})

	t.Run("deleted tracked file", func(t *testing.T) {
		dir, _, _ := setupTestRepo(t)
		require.NoError(t, os.Remove(filepath.Join(dir, "README.md")))

		assert.True(t, GitStatus(context.Background(), dir).Dirty)
	})
}

func TestGitStatus_Remotes(t *testing.T) {
	dir, repo, _ := setupTestRepo(t)

	_, err := repo.CreateRemote(&gitconfig.RemoteConfig{
		Name: "origin",
		URLs: []string{"https://example.com/data.git", "git@example.com:data.git"},
	})
	require.NoError(t, err)
	_, err = repo.CreateRemote(&gitconfig.RemoteConfig{
		Name: "mirror",
		URLs: []string{"https://mirror.example.com/data.git"},
	})
	require.NoError(t, err)

	status := GitStatus(context.Background(), dir)

	require.True(t, status.OK(), status.Error)
	assert.Equal(t, map[string][]string{
		"origin": {"https://example.com/data.git", "git@example.com:data.git"},
		"mirror": {"https://mirror.example.com/data.git"},
	}, status.Remotes)
}

func TestGitStatus_DetachedHead(t *testing.T) {
	dir, repo, hash := setupTestRepo(t)

	wt, err := repo.Worktree()
	require.NoError(t, err)
	require.NoError(t, wt.Checkout(&git.CheckoutOptions{Hash: hash}))

	status := GitStatus(context.Background(), dir)

	require.True(t, status.OK(), status.Error)
	assert.Equal(t, detachedBranch, status.Branch)
	assert.Equal(t, hash.String(), status.Commit)
}

func TestGitStatus_NoCommits(t *testing.T) {
	dir := t.TempDir()
	_, err := git.PlainInit(dir, false)
	require.NoError(t, err)

	status := GitStatus(context.Background(), dir)

	assert.False(t, status.OK())
	assert.Equal(t, "repository has no commits", status.Error)
}

func TestSystem_UsesDir(t *testing.T) {
	dir, _, hash := setupTestRepo(t)

	status := System{Dir: dir}.Git(context.Background())

	assert.Equal(t, hash.String(), status.Commit)
}
