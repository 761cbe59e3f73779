package fingerprint

import (
	"bufio"
	"fmt"
	"os"
	"runtime"
	"strings"
)

// hostOSVersion identifies the current build host's OS for fingerprint
// invalidation purposes. On Linux it reads /etc/os-release the same way
// internal/platform's distro detection once did; elsewhere, or if that
// file is missing, it falls back to the Go runtime's own OS identifier.
func hostOSVersion() string {
	if v := linuxOSRelease("/etc/os-release"); v != "" {
		return v
	}
	return runtime.GOOS
}

// linuxOSRelease parses an os-release file and returns "id-version_id"
// (or just "id" if no version is published), or "" if the file can't be
// read or names no ID.
func linuxOSRelease(path string) string {
	f, err := os.Open(path)
	if err != nil {
		return ""
	}
	defer f.Close()

	var id, versionID string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := scanner.Text()
		key, value, found := strings.Cut(line, "=")
		if !found {
			continue
		}
		value = strings.Trim(value, `"'`)
		switch key {
		case "ID":
			id = value
		case "VERSION_ID":
			versionID = value
		}
	}
	if id == "" {
		return ""
	}
	if versionID == "" {
		return id
	}
	return fmt.Sprintf("%s-%s", id, versionID)
}
