package engine

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"regexp"
	"runtime"
	"sort"
	"strconv"
	"strings"
	"time"
)

// DefaultMinVersion is the oldest browser major version with the DevTools
// domains the chrome engine relies on (Fetch interception, bindings).
const DefaultMinVersion = 90

// DefaultDownloadURL points users at a browser installer.
const DefaultDownloadURL = "https://www.google.com/chrome/"

// DetectConfig controls browser discovery.
type DetectConfig struct {
	ExecPath   string
	MinVersion int
}

// Availability is the outcome of Detect. Reason is empty when the engine can
// be used and otherwise holds a human readable explanation.
type Availability struct {
	ExecPath string
	Version  string
	Major    int
	Reason   string
}

// Available reports whether the engine can be started.
func (a Availability) Available() bool {
	return a.Reason == ""
}

var versionPattern = regexp.MustCompile(`(\d+)\.(\d+)\.(\d+)\.(\d+)`)

// Detect locates a Chromium-family browser and checks its version.
func Detect(ctx context.Context, cfg DetectConfig) Availability {
	minVersion := cfg.MinVersion
	if minVersion <= 0 {
		minVersion = DefaultMinVersion
	}
	path, err := locate(cfg.ExecPath)
	if err != nil {
		return Availability{Reason: fmt.Sprintf("Viewing this file requires Google Chrome, Chromium or Microsoft Edge (version %d or higher) to be installed.", minVersion)}
	}
	avail := Availability{ExecPath: path}
	version := readVersion(ctx, path)
	if version == "" {
		return avail
	}
	avail.Version = version
	avail.Major = majorOf(version)
	if avail.Major < minVersion {
		avail.Reason = fmt.Sprintf("webviewplus found incompatible browser: %s - %d or higher needed", version, minVersion)
	}
	return avail
}

func locate(override string) (string, error) {
	if override = strings.TrimSpace(override); override != "" {
		if _, err := os.Stat(override); err == nil {
			return override, nil
		}
		if p, err := exec.LookPath(override); err == nil {
			return p, nil
		}
		return "", fmt.Errorf("browser %q not found", override)
	}
	for _, p := range wellKnownPaths() {
		if _, err := os.Stat(p); err == nil {
			return p, nil
		}
	}
	for _, name := range []string{
		"google-chrome", "google-chrome-stable", "chromium", "chromium-browser",
		"microsoft-edge", "microsoft-edge-stable", "msedge", "chrome",
	} {
		if p, err := exec.LookPath(name); err == nil {
			return p, nil
		}
	}
	return "", errors.New("no browser found")
}

func wellKnownPaths() []string {
	switch runtime.GOOS {
	case "windows":
		return []string{
			`C:\Program Files (x86)\Microsoft\Edge\Application\msedge.exe`,
			`C:\Program Files\Microsoft\Edge\Application\msedge.exe`,
			`C:\Program Files\Google\Chrome\Application\chrome.exe`,
			`C:\Program Files (x86)\Google\Chrome\Application\chrome.exe`,
			filepath.Join(os.Getenv("LOCALAPPDATA"), `Google\Chrome\Application\chrome.exe`),
		}
	case "darwin":
		return []string{
			"/Applications/Google Chrome.app/Contents/MacOS/Google Chrome",
			"/Applications/Chromium.app/Contents/MacOS/Chromium",
			"/Applications/Microsoft Edge.app/Contents/MacOS/Microsoft Edge",
		}
	default:
		return nil
	}
}

func readVersion(ctx context.Context, path string) string {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	out, err := exec.CommandContext(ctx, path, "--version").Output()
	if err == nil {
		if v := versionPattern.FindString(string(out)); v != "" {
			return v
		}
	}
	// Windows builds do not print a version; the install directory carries
	// one sub-directory per installed version instead.
	return versionFromInstallDir(filepath.Dir(path))
}

func versionFromInstallDir(dir string) string {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return ""
	}
	var versions []string
	for _, entry := range entries {
		if entry.IsDir() && versionPattern.MatchString(entry.Name()) && versionPattern.FindString(entry.Name()) == entry.Name() {
			versions = append(versions, entry.Name())
		}
	}
	if len(versions) == 0 {
		return ""
	}
	sort.Slice(versions, func(i, j int) bool {
		return compareVersions(versions[i], versions[j]) < 0
	})
	return versions[len(versions)-1]
}

func majorOf(version string) int {
	head, _, _ := strings.Cut(version, ".")
	n, err := strconv.Atoi(head)
	if err != nil {
		return 0
	}
	return n
}

func compareVersions(a, b string) int {
	pa := strings.Split(a, ".")
	pb := strings.Split(b, ".")
	for i := 0; i < len(pa) && i < len(pb); i++ {
		na, _ := strconv.Atoi(pa[i])
		nb, _ := strconv.Atoi(pb[i])
		if na != nb {
			if na < nb {
				return -1
			}
			return 1
		}
	}
	return len(pa) - len(pb)
}
