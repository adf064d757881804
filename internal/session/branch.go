package session

import (
	"github.com/go-git/go-git/v5"
)

// CurrentBranch reports the checked-out branch of the
// repository containing dir, or "" when dir is not in a
// repository or HEAD is detached.
func CurrentBranch(dir string) string {
	repo, err := git.PlainOpenWithOptions(dir, &git.PlainOpenOptions{
		DetectDotGit: true,
	})
	if err != nil {
		return ""
	}
	head, err := repo.Head()
	if err != nil {
		return ""
	}
	if !head.Name().IsBranch() {
		return ""
	}
	return head.Name().Short()
}
