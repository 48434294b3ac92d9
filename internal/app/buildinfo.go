package app

// Set with -ldflags "-X github.com/hyperifyio/patchday/internal/app.BuildVersion=..."
// and printed by patchday -version.
var (
    BuildVersion = "0.0.0-dev"
    BuildCommit  = "unknown"
    BuildDate    = "unknown"
)

// userAgentVersion is the version string reported in the default User-Agent.
func userAgentVersion() string {
    if BuildVersion == "" {
        return "dev"
    }
    return BuildVersion
}
