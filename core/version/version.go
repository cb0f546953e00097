// Package version reports build version information.
package version

import (
	"fmt"
	"runtime/debug"
	"sync"
	"time"
)

// Version records build version information.
type Version struct {
	Version   string    `json:"version"`
	Commit    string    `json:"commit"`
	Date      time.Time `json:"date"`
	Dirty     bool      `json:"dirty"`
	GoVersion string    `json:"goVersion"`
}

func (v Version) String() string {
	return v.Version
}

// Get returns version information derived from the embedded build info.
// Builds outside a git checkout report "development".
var Get = sync.OnceValue(func() (v Version) {
	v = Version{
		Version: "development",
		Commit:  "unknown",
		Date:    time.Now(),
		Dirty:   true,
	}
	bi, ok := debug.ReadBuildInfo()
	if !ok {
		return v
	}
	v.GoVersion = bi.GoVersion
	return fromSettings(v, bi.Settings)
})

func fromSettings(v Version, settings []debug.BuildSetting) Version {
	bs := map[string]string{}
	for _, kv := range settings {
		bs[kv.Key] = kv.Value
	}
	dt, e := time.Parse(time.RFC3339, bs["vcs.time"])
	if bs["vcs"] != "git" || len(bs["vcs.revision"]) != 40 || e != nil {
		return v
	}

	v.Commit = bs["vcs.revision"]
	v.Date = dt
	v.Dirty = bs["vcs.modified"] == "true"
	suffix := ""
	if v.Dirty {
		suffix = "-dirty"
	}
	v.Version = fmt.Sprintf("v0.0.0-%s-%s%s", v.Date.UTC().Format("20060102150405"), v.Commit[:12], suffix)
	return v
}
