// Package differ compares an archived switch configuration against a
// freshly retrieved one. Device-generated header lines and
// known-volatile counters are stripped first so only meaningful
// changes count.
package differ

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/pmezard/go-difflib/difflib"

	"github.com/switchback-net/switchback/pkg/types"
)

// Differ normalizes configuration text and reports changes.
type Differ struct {
	headerLines int
	volatile    []*regexp.Regexp
}

// New returns a Differ skipping headerLines leading lines and ignoring
// lines matching any of the volatile patterns.
func New(headerLines int, volatilePatterns []string) (*Differ, error) {
	volatile := make([]*regexp.Regexp, 0, len(volatilePatterns))
	for _, p := range volatilePatterns {
		re, err := regexp.Compile(p)
		if err != nil {
			return nil, fmt.Errorf("invalid volatile pattern %q: %w", p, err)
		}
		volatile = append(volatile, re)
	}
	return &Differ{headerLines: headerLines, volatile: volatile}, nil
}

// Normalize removes volatile lines. Idempotent: normalizing normalized
// text yields the same text.
func (d *Differ) Normalize(text string) string {
	lines := strings.Split(text, "\n")
	kept := lines[:0]
	for _, line := range lines {
		if d.isVolatile(line) {
			continue
		}
		kept = append(kept, line)
	}
	return strings.Join(kept, "\n")
}

// stripHeader drops the fixed-size device-generated banner. Applied
// exactly once per raw config, never to already-normalized text.
func (d *Differ) stripHeader(text string) string {
	lines := strings.Split(text, "\n")
	if len(lines) <= d.headerLines {
		return ""
	}
	return strings.Join(lines[d.headerLines:], "\n")
}

func (d *Differ) isVolatile(line string) bool {
	for _, re := range d.volatile {
		if re.MatchString(line) {
			return true
		}
	}
	return false
}

// Compare classifies newText against prevText for a device that
// already has an archive. Returns Unchanged, or Changed with a
// human-readable report: a banner naming the device and group followed
// by a unified diff of the normalized texts.
func (d *Differ) Compare(device types.Device, prevText, newText string) (types.Classification, string, error) {
	prev := d.Normalize(d.stripHeader(prevText))
	next := d.Normalize(d.stripHeader(newText))
	if prev == next {
		return types.ClassificationUnchanged, "", nil
	}

	diff, err := difflib.GetUnifiedDiffString(difflib.UnifiedDiff{
		A:        difflib.SplitLines(prev),
		B:        difflib.SplitLines(next),
		FromFile: fmt.Sprintf("%s/%s (archived)", device.Group, device.Name),
		ToFile:   fmt.Sprintf("%s/%s (retrieved)", device.Group, device.Name),
		Context:  3,
	})
	if err != nil {
		return types.ClassificationChanged, "", fmt.Errorf("failed to render diff: %w", err)
	}

	var report strings.Builder
	fmt.Fprintf(&report, "==== %s/%s (%s) configuration changed ====\n", device.Group, device.Name, device.IP)
	report.WriteString(diff)
	return types.ClassificationChanged, report.String(), nil
}
