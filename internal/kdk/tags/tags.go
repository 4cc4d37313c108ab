// Package tags derives and recognizes per-user snapshot image tags.
//
// A snapshot lives in the repository "<user>-kdk" and is tagged with the
// integer unix time at which it was committed, e.g. "alice-kdk:1700000000".
// Tags are immutable once created. Uniqueness relies on second granularity;
// two snapshots within the same second produce the same tag and the engine
// silently retags, which is accepted behavior.
package tags

import (
	"regexp"
	"sort"
	"strconv"
	"time"

	"github.com/kdk-project/kdk/internal/kdk/runtime"
)

const repoSuffix = "-kdk"

// Repository returns the snapshot image repository for a user.
func Repository(user string) string {
	return user + repoSuffix
}

// Derive returns the snapshot reference for user at the given instant.
// Call at most once per commit; there is no collision check.
func Derive(user string, now time.Time) runtime.ImageRef {
	return runtime.ImageRef{
		Repository: Repository(user),
		Tag:        strconv.FormatInt(now.Unix(), 10),
	}
}

// Matches reports whether repoTag is a snapshot reference belonging to
// user, i.e. exactly "<user>-kdk:<digits>".
func Matches(user, repoTag string) bool {
	pattern := "^" + regexp.QuoteMeta(Repository(user)) + ":[0-9]+$"
	ok, err := regexp.MatchString(pattern, repoTag)
	return err == nil && ok
}

// IsStale reports whether repoTag is a snapshot of user's that is not
// backing the currently running container.
func IsStale(user, repoTag, runningImage string) bool {
	return Matches(user, repoTag) && repoTag != runningImage
}

// Filter returns the subset of refs that are snapshots belonging to user,
// sorted newest first by tag timestamp.
func Filter(user string, refs []runtime.ImageRef) []runtime.ImageRef {
	var out []runtime.ImageRef
	for _, ref := range refs {
		if Matches(user, ref.String()) {
			out = append(out, ref)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		a, _ := strconv.ParseInt(out[i].Tag, 10, 64)
		b, _ := strconv.ParseInt(out[j].Tag, 10, 64)
		return a > b
	})
	return out
}
