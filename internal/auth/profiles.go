package auth

import (
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"sort"
	"time"
)

// Profile is a browser profile directory found on disk.
type Profile struct {
	Name     string // directory name, e.g. "Default" or "Profile 1"
	Browser  string
	Path     string
	LastUsed time.Time
}

// browser describes where a Chromium-based browser keeps its user data and
// which executables may run it.
type browser struct {
	name     string
	dataDirs map[string]string // GOOS -> path relative to os.UserConfigDir
	execs    map[string][]string
}

var browsers = []browser{
	{
		name: "Chrome",
		dataDirs: map[string]string{
			"darwin":  "Google/Chrome",
			"linux":   "google-chrome",
			"windows": `Google\Chrome\User Data`,
		},
		execs: map[string][]string{
			"darwin": {"/Applications/Google Chrome.app/Contents/MacOS/Google Chrome"},
		},
	},
	{
		name: "Chromium",
		dataDirs: map[string]string{
			"darwin": "Chromium",
			"linux":  "chromium",
		},
		execs: map[string][]string{
			"darwin": {"/Applications/Chromium.app/Contents/MacOS/Chromium"},
			"linux":  {"chromium", "chromium-browser"},
		},
	},
	{
		name: "Brave",
		dataDirs: map[string]string{
			"darwin":  "BraveSoftware/Brave-Browser",
			"linux":   "BraveSoftware/Brave-Browser",
			"windows": `BraveSoftware\Brave-Browser\User Data`,
		},
		execs: map[string][]string{
			"darwin": {"/Applications/Brave Browser.app/Contents/MacOS/Brave Browser"},
			"linux":  {"brave-browser", "brave"},
		},
	},
}

// FindProfiles lists the profiles of every known browser installed for the
// current user, most recently used first.
func FindProfiles() []Profile {
	base, err := os.UserConfigDir()
	if err != nil {
		return nil
	}
	var all []Profile
	for _, b := range browsers {
		rel, ok := b.dataDirs[runtime.GOOS]
		if !ok {
			continue
		}
		all = append(all, scanProfiles(filepath.Join(base, rel), b.name)...)
	}
	sortProfiles(all)
	return all
}

// scanProfiles returns the profile directories under a browser's user data
// directory. A directory counts as a profile when it holds a cookie store.
func scanProfiles(dataDir, browserName string) []Profile {
	entries, err := os.ReadDir(dataDir)
	if err != nil {
		return nil
	}
	var profiles []Profile
	for _, e := range entries {
		if !e.IsDir() || e.Name() == "System Profile" || e.Name() == "Guest Profile" {
			continue
		}
		dir := filepath.Join(dataDir, e.Name())
		fi, err := os.Stat(filepath.Join(dir, "Cookies"))
		if err != nil {
			continue
		}
		profiles = append(profiles, Profile{
			Name:     e.Name(),
			Browser:  browserName,
			Path:     dir,
			LastUsed: fi.ModTime(),
		})
	}
	sortProfiles(profiles)
	return profiles
}

func sortProfiles(p []Profile) {
	sort.SliceStable(p, func(i, j int) bool { return p[i].LastUsed.After(p[j].LastUsed) })
}

// SelectProfile returns the profile named name, or the most recently used
// profile when none matches. profiles must be sorted most recent first.
func SelectProfile(profiles []Profile, name string) (Profile, bool) {
	for _, p := range profiles {
		if p.Name == name {
			return p, true
		}
	}
	if len(profiles) == 0 {
		return Profile{}, false
	}
	return profiles[0], true
}

// ExecPath returns the browser executable for p, or "" to let chromedp find
// a Chrome installation itself.
func (p Profile) ExecPath() string {
	for _, b := range browsers {
		if b.name != p.Browser {
			continue
		}
		for _, candidate := range b.execs[runtime.GOOS] {
			if filepath.IsAbs(candidate) {
				if fileExists(candidate) {
					return candidate
				}
				continue
			}
			if path, err := exec.LookPath(candidate); err == nil {
				return path
			}
		}
	}
	return ""
}
