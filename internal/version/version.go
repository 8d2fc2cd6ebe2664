package version

import (
	"github.com/earthboundkid/versioninfo/v2"
)

// Set at build time:
//
//	go build -ldflags "-X github.com/shindakun/areagate/internal/version.version=v1.2.0 -X github.com/shindakun/areagate/internal/version.gitCommit=abc1234"
var (
	version   string
	gitCommit string
)

// getVersionInfo prefers the linker values and falls back to the module and
// VCS information the go tool embeds in the binary
func getVersionInfo() (string, string) {
	ver, commit := version, gitCommit

	if ver == "" {
		ver = versioninfo.Version
		if ver == "" || ver == "unknown" || ver == "(devel)" {
			ver = "dev"
		}
	}

	if commit == "" && versioninfo.Revision != "unknown" && len(versioninfo.Revision) >= 7 {
		commit = versioninfo.Revision[:7]
		if versioninfo.DirtyBuild {
			commit += "-dirty"
		}
	}

	return ver, commit
}

// GetVersion returns the version string with git commit if available
func GetVersion() string {
	ver, commit := getVersionInfo()
	if commit != "" && ver != "dev" {
		return ver + "-" + commit
	}
	return ver
}

// GetFullVersion returns version with commit info
func GetFullVersion() string {
	ver, commit := getVersionInfo()
	if commit != "" {
		return ver + " (commit: " + commit + ")"
	}
	return ver
}
