// Package buildinfo reports how the running binary was built.
package buildinfo

import (
	"fmt"
	"runtime/debug"
	"strings"
)

// readBuildInfo is replaced in tests.
var readBuildInfo = debug.ReadBuildInfo

type Info struct {
	Version   string
	Revision  string
	Modified  bool
	Tags      string
	GoVersion string
}

// Read collects the module version and VCS settings recorded at compile time.
// Version is "dev" for local builds.
func Read() Info {
	info := Info{Version: "dev"}
	bi, ok := readBuildInfo()
	if !ok || bi == nil {
		return info
	}
	info.GoVersion = bi.GoVersion
	if v := bi.Main.Version; v != "" && v != "(devel)" {
		info.Version = v
	}
	for _, s := range bi.Settings {
		switch s.Key {
		case "-tags":
			info.Tags = s.Value
		case "vcs.revision":
			info.Revision = s.Value
		case "vcs.modified":
			info.Modified = s.Value == "true"
		}
	}
	return info
}

func (i Info) String() string {
	var b strings.Builder
	b.WriteString(i.Version)
	if i.Revision != "" {
		rev := i.Revision
		if len(rev) > 12 {
			rev = rev[:12]
		}
		if i.Modified {
			rev += "-dirty"
		}
		fmt.Fprintf(&b, " (%s)", rev)
	}
	if i.Tags != "" {
		fmt.Fprintf(&b, " tags: %s", i.Tags)
	}
	if i.GoVersion != "" {
		fmt.Fprintf(&b, " %s", i.GoVersion)
	}
	return b.String()
}
