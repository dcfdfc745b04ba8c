// Package version reports the build's version, injected at link time:
//
//	go build -ldflags "-X github.com/NicolasHaas/gorelay/pkg/version.Tag=v0.3.0 \
//	  -X github.com/NicolasHaas/gorelay/pkg/version.Commit=abc1234 \
//	  -X github.com/NicolasHaas/gorelay/pkg/version.Date=2026-10-01"
//	  ./cmd/server
package version

import "strings"

// Empty on local builds.
var (
	Tag    string
	Commit string
	Date   string
)

// String returns the tag, else the commit, else "dev".
func String() string {
	switch {
	case Tag != "":
		return Tag
	case Commit != "":
		return Commit
	default:
		return "dev"
	}
}

// Full adds the commit and build date to String when they are known.
func Full() string {
	var details []string
	if Tag != "" && Commit != "" {
		details = append(details, "commit "+Commit)
	}
	if Date != "" {
		details = append(details, "built "+Date)
	}
	if len(details) == 0 {
		return String()
	}
	return String() + " (" + strings.Join(details, ", ") + ")"
}
