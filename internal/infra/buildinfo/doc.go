// Package buildinfo exposes the version of kasb-cli.
//
// Values are injected at build time via ldflags:
//
//	go build -ldflags "-X github.com/kasbhub/kasb-go/internal/infra/buildinfo.Version=v1.2.0 \
//	  -X github.com/kasbhub/kasb-go/internal/infra/buildinfo.Commit=$(git rev-parse --short HEAD)"
//
// The version also forms the User-Agent of API requests.
package buildinfo
