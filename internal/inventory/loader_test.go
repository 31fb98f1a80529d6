package inventory

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func testLoader(warn *bytes.Buffer) *Loader {
	return &Loader{
		Warn: warn,
		Resolve: func(name string) (string, error) {
			switch name {
			case "eth0":
				return "192.0.2.10", nil
			case "eth1":
				return "192.0.2.11", nil
			default:
				return "", errors.New("no such interface")
			}
		},
		DefaultCommunity: "public",
		DefaultInterface: "eth0",
	}
}

func writeFile(t *testing.T, dir, name, content string) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644); err != nil {
		t.Fatalf("failed to write %s: %v", name, err)
	}
}

func TestLoadDirectivesAndDefaults(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "lab", `# lab switches
%community labsecret
sw1 10.0.0.1

%group edge
sw2 10.0.0.2
sw3 10.0.0.3 override core
`)

	var warn bytes.Buffer
	devices, err := testLoader(&warn).Load(dir)
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}

	if len(devices) != 3 {
		t.Fatalf("expected 3 devices, got %d", len(devices))
	}

	sw1 := devices[0]
	if sw1.Name != "sw1" || sw1.IP != "10.0.0.1" {
		t.Errorf("unexpected first device: %+v", sw1)
	}
	if sw1.Community != "labsecret" {
		t.Errorf("expected %%community directive to apply, got %q", sw1.Community)
	}
	if sw1.Group != "lab" {
		t.Errorf("expected group from filename, got %q", sw1.Group)
	}
	if sw1.LocalIP != "192.0.2.10" {
		t.Errorf("expected default interface address, got %q", sw1.LocalIP)
	}

	if devices[1].Group != "edge" {
		t.Errorf("expected %%group directive to apply, got %q", devices[1].Group)
	}

	sw3 := devices[2]
	if sw3.Community != "override" || sw3.Group != "core" {
		t.Errorf("expected per-line community/group columns to win, got %+v", sw3)
	}
}

func TestLoadFileNameOrder(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "zebra", "z1 10.0.2.1\n")
	writeFile(t, dir, "alpha", "a1 10.0.1.1\na2 10.0.1.2\n")

	var warn bytes.Buffer
	devices, err := testLoader(&warn).Load(dir)
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}

	got := make([]string, len(devices))
	for i, d := range devices {
		got[i] = d.Name
	}
	want := []string{"a1", "a2", "z1"}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("expected order %v, got %v", want, got)
		}
	}
}

func TestLoadExtraColumnsWarnButParse(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "lab", "sw1 10.0.0.1 comm lab extra junk\n")

	var warn bytes.Buffer
	devices, err := testLoader(&warn).Load(dir)
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}

	if len(devices) != 1 {
		t.Fatalf("expected the line to still parse, got %d devices", len(devices))
	}
	if devices[0].Community != "comm" || devices[0].Group != "lab" {
		t.Errorf("expected first four columns to apply, got %+v", devices[0])
	}
	if !strings.Contains(warn.String(), "lab:1") {
		t.Errorf("expected warning with file and line, got %q", warn.String())
	}
	if !strings.Contains(warn.String(), "extra") {
		t.Errorf("expected warning to name the extra columns, got %q", warn.String())
	}
}

func TestLoadPhysicalLineNumbersInWarnings(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "lab", "# comment\n\nsw1 10.0.0.1 c g five\n")

	var warn bytes.Buffer
	if _, err := testLoader(&warn).Load(dir); err != nil {
		t.Fatalf("load failed: %v", err)
	}
	// Blank and comment lines count toward the reported line number.
	if !strings.Contains(warn.String(), "lab:3") {
		t.Errorf("expected warning on physical line 3, got %q", warn.String())
	}
}

func TestLoadUnresolvableInterfaceIsNotFatal(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "lab", "%interface bogus0\nsw1 10.0.0.1\n")

	var warn bytes.Buffer
	devices, err := testLoader(&warn).Load(dir)
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}

	if devices[0].LocalIP != "" {
		t.Errorf("expected empty local IP, got %q", devices[0].LocalIP)
	}
	if !strings.Contains(warn.String(), "bogus0") {
		t.Errorf("expected a warning naming the interface, got %q", warn.String())
	}
}

func TestLoadInterfaceDirectiveSwitchesAddress(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "lab", "sw1 10.0.0.1\n%interface eth1\nsw2 10.0.0.2\n")

	var warn bytes.Buffer
	devices, err := testLoader(&warn).Load(dir)
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}

	if devices[0].LocalIP != "192.0.2.10" {
		t.Errorf("expected sw1 on the default interface, got %q", devices[0].LocalIP)
	}
	if devices[1].LocalIP != "192.0.2.11" {
		t.Errorf("expected sw2 on eth1, got %q", devices[1].LocalIP)
	}
}

func TestLoadDuplicateNameWarns(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "lab", "sw1 10.0.0.1\nsw1 10.0.0.99\n")

	var warn bytes.Buffer
	devices, err := testLoader(&warn).Load(dir)
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}

	// Last-wins archive semantics are kept; the collision is flagged.
	if len(devices) != 2 {
		t.Fatalf("expected both entries kept, got %d", len(devices))
	}
	if !strings.Contains(warn.String(), "duplicate device name sw1") {
		t.Errorf("expected a duplicate warning, got %q", warn.String())
	}
}

func TestLoadMissingDirectoryIsFatal(t *testing.T) {
	var warn bytes.Buffer
	if _, err := testLoader(&warn).Load(filepath.Join(t.TempDir(), "missing")); err == nil {
		t.Fatal("expected an error for a missing inventory directory")
	}
}
