package devices

import (
	"os"
	"path/filepath"
	"testing"
)

func setupFakeSysfs(t *testing.T, entries map[string]string) {
	t.Helper()
	root := t.TempDir()
	for entry, name := range entries {
		dir := filepath.Join(root, entry)
		if err := os.MkdirAll(dir, 0o755); err != nil {
			t.Fatal(err)
		}
		if name != "" {
			if err := os.WriteFile(filepath.Join(dir, "name"), []byte(name+"\n"), 0o644); err != nil {
				t.Fatal(err)
			}
		}
	}

	prev := sysfsRoot
	sysfsRoot = root
	t.Cleanup(func() { sysfsRoot = prev })
}

func TestListSortedByIndex(t *testing.T) {
	setupFakeSysfs(t, map[string]string{
		"video2": "Rear Camera",
		"video0": "Front Camera",
	})

	devices, err := List()
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(devices) != 2 {
		t.Fatalf("Expected 2 devices, got %d", len(devices))
	}

	if devices[0].Index != 0 || devices[0].Path != "/dev/video0" || devices[0].Name != "Front Camera" {
		t.Errorf("Unexpected first device: %+v", devices[0])
	}
	if devices[1].Index != 2 || devices[1].Name != "Rear Camera" {
		t.Errorf("Unexpected second device: %+v", devices[1])
	}
}

func TestListIgnoresNonVideoEntries(t *testing.T) {
	setupFakeSysfs(t, map[string]string{
		"video0":   "Camera",
		"radio0":   "FM Tuner",
		"videoctl": "Not a device",
	})

	devices, err := List()
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(devices) != 1 {
		t.Fatalf("Expected 1 device, got %d: %+v", len(devices), devices)
	}
}

func TestListMissingNameFile(t *testing.T) {
	setupFakeSysfs(t, map[string]string{
		"video0": "",
	})

	devices, err := List()
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(devices) != 1 || devices[0].Name != "unknown" {
		t.Errorf("Expected unknown name fallback, got %+v", devices)
	}
}

func TestListMissingSysfs(t *testing.T) {
	prev := sysfsRoot
	sysfsRoot = filepath.Join(t.TempDir(), "absent")
	t.Cleanup(func() { sysfsRoot = prev })

	devices, err := List()
	if err != nil {
		t.Fatalf("Missing sysfs should not error: %v", err)
	}
	if devices != nil {
		t.Errorf("Expected nil device list, got %+v", devices)
	}
}
