// Package buildinfo holds release metadata stamped in by the linker, e.g.
//
//	go build -ldflags "-X github.com/nuacha-app/nuacha/internal/buildinfo.Version=v1.2.0"
package buildinfo

var (
	// Version is the release tag.
	Version = "dev"
	// Commit is the git revision the binary was built from.
	Commit = "none"
	// Date is the build timestamp.
	Date = "unknown"
)
