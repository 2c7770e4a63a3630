// Package enricher implements the Enricher (spec §4.2): it decorates a
// normalized event with ML confidence adjustment and threat-intelligence
// signals before it reaches detection. The enricher is deterministic given
// its inputs and its current IOC/ML snapshot — running it twice over the
// same event and snapshot yields identical decorations.
package enricher

import (
	"bufio"
	"fmt"
	"os"
	"strings"
	"sync/atomic"
)

// IOCTable is a small, slowly-changing lookup of indicator-of-compromise IP
// addresses to a severity score in [0,10]. Reads never block a writer's
// refresh and vice versa: grounded on the teacher's atomic.Pointer policy
// snapshot (99souls-ariadne's engine.Policy), generalized here from a
// telemetry policy to a threat-intel table.
type IOCTable struct {
	snapshot atomic.Pointer[map[string]float64]
}

func NewIOCTable() *IOCTable {
	t := &IOCTable{}
	empty := map[string]float64{}
	t.snapshot.Store(&empty)
	return t
}

// Lookup returns the IOC severity score for ip, or 0 if it is not listed.
func (t *IOCTable) Lookup(ip string) float64 {
	if ip == "" {
		return 0
	}
	m := t.snapshot.Load()
	if m == nil {
		return 0
	}
	return (*m)[ip]
}

// Replace atomically swaps in a new IOC snapshot. Safe to call concurrently
// with any number of Lookup callers.
func (t *IOCTable) Replace(entries map[string]float64) {
	cp := make(map[string]float64, len(entries))
	for k, v := range entries {
		cp[k] = v
	}
	t.snapshot.Store(&cp)
}

// Size reports how many indicators the current snapshot holds.
func (t *IOCTable) Size() int {
	return len(*t.snapshot.Load())
}

// LoadIOCFile parses the ioc_file startup option (spec §6): one
// "ip,score" pair per line, blank lines and '#' comments ignored.
func LoadIOCFile(path string) (map[string]float64, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	entries := make(map[string]float64)
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		parts := strings.SplitN(line, ",", 2)
		if len(parts) != 2 {
			continue
		}
		ip := strings.TrimSpace(parts[0])
		score := parseScore(strings.TrimSpace(parts[1]))
		entries[ip] = score
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return entries, nil
}

func parseScore(s string) float64 {
	var v float64
	if _, err := fmt.Sscan(s, &v); err != nil {
		return 10.0 // an unparsable severity on an explicit IOC entry defaults to maximum
	}
	return v
}
