package version

import (
	"regexp"

	goversion "github.com/hashicorp/go-version"
)

// Name is the producer name written into archive manifests.
const Name = "drbackup"

// Unknown is recorded when a tool version cannot be determined.
const Unknown = "unknown"

// Version is overridden at build time:
// go build -ldflags "-X drbackup/pkg/version.Version=1.2.3" ./cmd
var Version = "0.4.0"

var versionPattern = regexp.MustCompile(`\d+\.\d+(\.\d+)?([-+][0-9A-Za-z.\-]+)?`)

// Normalize extracts the first version-looking token from a tool banner such as
// "mysqldump  Ver 8.0.36 for Linux on x86_64" and returns it in canonical form.
func Normalize(banner string) string {
	match := versionPattern.FindString(banner)
	if match == "" {
		return Unknown
	}
	v, err := goversion.NewVersion(match)
	if err != nil {
		return Unknown
	}
	return v.String()
}

// Agent returns the normalized version of this binary.
func Agent() string {
	return Normalize(Version)
}
