package buildinfo

import "fmt"

var (
	Version    = "v0.1.0"
	CommitHash = "unknown"
)

type Info struct {
	About      string `json:"about,omitempty"`
	Service    string `json:"service,omitempty"`
	Version    string `json:"version,omitempty"`
	CommitHash string `json:"commit_hash,omitempty"`
}

func GetBuildInfo() Info {
	return Info{
		About:      "https://github.com/darmiel/clientauth",
		Service:    "clientauth",
		Version:    Version,
		CommitHash: CommitHash,
	}
}

// UserAgent is sent on outgoing requests (e.g. key set fetches).
func UserAgent() string {
	return fmt.Sprintf("clientauth/%s (commit=%s)", Version, CommitHash)
}
