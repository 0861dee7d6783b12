// Package devices lists video capture devices available to the simulator.
// On Linux it reads /sys/class/video4linux, which is enough to enumerate
// device indexes and names without opening any of them.
package devices

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
)

// sysfsRoot is a variable so tests can point it at a fake tree.
var sysfsRoot = "/sys/class/video4linux"

// DeviceInfo describes a single capture device.
type DeviceInfo struct {
	Index int    `json:"index" example:"0" doc:"Device index, usable as capture device number"`
	Path  string `json:"path" example:"/dev/video0" doc:"System device path"`
	Name  string `json:"name" example:"USB Camera" doc:"Device name as reported by the driver"`
}

// List enumerates video capture devices, sorted by index.
// A missing sysfs tree yields an empty list, not an error, so the
// daemon can run on systems without V4L2.
func List() ([]DeviceInfo, error) {
	entries, err := os.ReadDir(sysfsRoot)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read %s: %w", sysfsRoot, err)
	}

	var devices []DeviceInfo
	for _, entry := range entries {
		idx, ok := parseIndex(entry.Name())
		if !ok {
			continue
		}

		name := readName(filepath.Join(sysfsRoot, entry.Name(), "name"))

		devices = append(devices, DeviceInfo{
			Index: idx,
			Path:  "/dev/" + entry.Name(),
			Name:  name,
		})
	}

	sort.Slice(devices, func(i, j int) bool {
		return devices[i].Index < devices[j].Index
	})

	return devices, nil
}

// parseIndex extracts the numeric index from a videoN entry name.
func parseIndex(entry string) (int, bool) {
	const prefix = "video"
	if !strings.HasPrefix(entry, prefix) {
		return 0, false
	}
	idx, err := strconv.Atoi(entry[len(prefix):])
	if err != nil {
		return 0, false
	}
	return idx, true
}

// readName reads the driver-reported device name, or "unknown" if unreadable.
func readName(path string) string {
	data, err := os.ReadFile(path)
	if err != nil {
		return "unknown"
	}
	name := strings.TrimSpace(string(data))
	if name == "" {
		return "unknown"
	}
	return name
}
