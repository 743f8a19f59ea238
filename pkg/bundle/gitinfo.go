package bundle

import (
	gogit "github.com/go-git/go-git/v5"
)

// GitInfo is the source-control state captured into a bundle.
type GitInfo struct {
	Commit *string
	Dirty  *bool
}

// CaptureGitInfo inspects the execution environment's source checkout,
// walking up from dir to find a .git directory. A deployed artifact has
// no checkout, and that absence is itself a fact worth recording, so
// every failure path returns empty info rather than an error.
func CaptureGitInfo(dir string) GitInfo {
	repo, err := gogit.PlainOpenWithOptions(dir, &gogit.PlainOpenOptions{DetectDotGit: true})
	if err != nil {
		return GitInfo{}
	}

	head, err := repo.Head()
	if err != nil {
		return GitInfo{}
	}
	commit := head.Hash().String()
	info := GitInfo{Commit: &commit}

	worktree, err := repo.Worktree()
	if err != nil {
		return info
	}
	status, err := worktree.Status()
	if err != nil {
		return info
	}
	dirty := !status.IsClean()
	info.Dirty = &dirty
	return info
}
