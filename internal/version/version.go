package version

import "fmt"

// Populated at build time via -ldflags.
var (
	App       = "giftgate"
	Version   string
	GitCommit string
	BuildTime string
)

// String returns the version, with the short commit appended when built
// from an untagged revision.
func String() string {
	v := Version
	if v == "" {
		v = "dev"
	}
	if len(GitCommit) >= 7 {
		return fmt.Sprintf("%s (%s)", v, GitCommit[:7])
	}
	return v
}

// PrintVersion writes the build information to stdout.
func PrintVersion() {
	fmt.Printf("%s version %s\n", App, String())
	if BuildTime != "" {
		fmt.Printf("Build time: %s\n", BuildTime)
	}
}
