package version

import (
	"fmt"
	"runtime"
	"runtime/debug"
	"strings"
)

var (
	Version   = "(dev)"
	buildInfo = debug.BuildInfo{}
)

func init() {
	if bi, ok := debug.ReadBuildInfo(); ok {
		buildInfo = *bi
		if len(bi.Main.Version) > 0 {
			Version = bi.Main.Version
		}
	}
}

// GetMore returns the version line, or the full module build info when mod
// is set.
func GetMore(mod bool) string {
	if mod {
		info := buildInfo.String()
		if len(info) > 0 {
			return fmt.Sprintf("\t%s\n", strings.ReplaceAll(info[:len(info)-1], "\n", "\n\t"))
		}
	}
	return fmt.Sprintf("version %s %s %s/%s\n", Version, runtime.Version(), runtime.GOOS, runtime.GOARCH)
}
