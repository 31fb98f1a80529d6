// Package inventory parses per-group device list files into Device
// records. Directive lines (%community, %group, %interface) set
// defaults for the lines that follow them within the same file.
package inventory

import (
	"bufio"
	"fmt"
	"io"
	"net"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/switchback-net/switchback/pkg/types"
)

// parserState holds the defaults in effect for the next device line.
// It is immutable: directive lines produce a new value rather than
// mutating shared state.
type parserState struct {
	community string
	group     string
	localIP   string
}

func (s parserState) withCommunity(v string) parserState { s.community = v; return s }
func (s parserState) withGroup(v string) parserState     { s.group = v; return s }
func (s parserState) withLocalIP(v string) parserState   { s.localIP = v; return s }

// InterfaceResolver maps an interface name to its assigned IPv4
// address. Injected so tests do not depend on host interfaces.
type InterfaceResolver func(name string) (string, error)

// ResolveInterfaceIP returns the first IPv4 address assigned to the
// named network interface.
func ResolveInterfaceIP(name string) (string, error) {
	iface, err := net.InterfaceByName(name)
	if err != nil {
		return "", fmt.Errorf("interface %s: %w", name, err)
	}
	addrs, err := iface.Addrs()
	if err != nil {
		return "", fmt.Errorf("interface %s addresses: %w", name, err)
	}
	for _, addr := range addrs {
		var ip net.IP
		switch a := addr.(type) {
		case *net.IPNet:
			ip = a.IP
		case *net.IPAddr:
			ip = a.IP
		}
		if ip != nil && ip.To4() != nil {
			return ip.String(), nil
		}
	}
	return "", fmt.Errorf("interface %s has no IPv4 address", name)
}

// Loader reads a directory of group files and produces devices in
// deterministic order: files by name, lines in file order.
type Loader struct {
	// Warnings about malformed lines go here; defaults to stderr.
	Warn io.Writer
	// Resolve maps %interface names to addresses.
	Resolve InterfaceResolver

	// Defaults applied before any directive is seen.
	DefaultCommunity string
	DefaultInterface string
}

// NewLoader returns a Loader with stderr warnings and real interface
// resolution.
func NewLoader(defaultCommunity, defaultInterface string) *Loader {
	return &Loader{
		Warn:             os.Stderr,
		Resolve:          ResolveInterfaceIP,
		DefaultCommunity: defaultCommunity,
		DefaultInterface: defaultInterface,
	}
}

// Load parses every file in dir and returns the device records. A
// missing or unreadable directory is fatal; per-line problems are
// warnings. Line numbers in warnings are physical line numbers, so
// blank and comment lines count.
func (l *Loader) Load(dir string) ([]types.Device, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read inventory directory: %w", err)
	}

	names := make([]string, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		names = append(names, e.Name())
	}
	sort.Strings(names)

	baseIP := ""
	if l.DefaultInterface != "" {
		baseIP, err = l.Resolve(l.DefaultInterface)
		if err != nil {
			fmt.Fprintf(l.Warn, "warning: cannot resolve interface %s: %v\n", l.DefaultInterface, err)
			baseIP = ""
		}
	}

	var devices []types.Device
	seen := make(map[string]bool) // group/name pairs, for collision warnings
	for _, name := range names {
		devs, err := l.loadFile(filepath.Join(dir, name), parserState{
			community: l.DefaultCommunity,
			group:     strings.TrimSuffix(name, filepath.Ext(name)),
			localIP:   baseIP,
		})
		if err != nil {
			return nil, err
		}
		for _, d := range devs {
			key := d.Group + "/" + d.Name
			if seen[key] {
				fmt.Fprintf(l.Warn, "warning: duplicate device name %s in group %s, later entry overwrites the archive\n", d.Name, d.Group)
			}
			seen[key] = true
		}
		devices = append(devices, devs...)
	}
	return devices, nil
}

func (l *Loader) loadFile(path string, state parserState) ([]types.Device, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open inventory file: %w", err)
	}
	defer f.Close()

	var devices []types.Device
	scanner := bufio.NewScanner(f)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		if strings.HasPrefix(line, "%") {
			state = l.applyDirective(path, lineNo, line, state)
			continue
		}

		fields := strings.Fields(line)
		if len(fields) < 2 {
			fmt.Fprintf(l.Warn, "warning: %s:%d: expected at least name and ip, skipping\n", path, lineNo)
			continue
		}
		if len(fields) > 4 {
			fmt.Fprintf(l.Warn, "warning: %s:%d: ignoring extra columns %v\n", path, lineNo, fields[4:])
		}

		dev := types.Device{
			Name:      fields[0],
			IP:        fields[1],
			Community: state.community,
			Group:     state.group,
			LocalIP:   state.localIP,
		}
		if len(fields) >= 3 {
			dev.Community = fields[2]
		}
		if len(fields) >= 4 {
			dev.Group = fields[3]
		}
		devices = append(devices, dev)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read inventory file %s: %w", path, err)
	}
	return devices, nil
}

func (l *Loader) applyDirective(path string, lineNo int, line string, state parserState) parserState {
	fields := strings.Fields(line)
	if len(fields) != 2 {
		fmt.Fprintf(l.Warn, "warning: %s:%d: malformed directive %q\n", path, lineNo, line)
		return state
	}
	switch fields[0] {
	case "%community":
		return state.withCommunity(fields[1])
	case "%group":
		return state.withGroup(fields[1])
	case "%interface":
		ip, err := l.Resolve(fields[1])
		if err != nil {
			// Not fatal here: the device lines carry an empty
			// local IP and fail later as an SNMP timeout.
			fmt.Fprintf(l.Warn, "warning: %s:%d: cannot resolve interface %s: %v\n", path, lineNo, fields[1], err)
			ip = ""
		}
		return state.withLocalIP(ip)
	default:
		fmt.Fprintf(l.Warn, "warning: %s:%d: unknown directive %s\n", path, lineNo, fields[0])
		return state
	}
}
