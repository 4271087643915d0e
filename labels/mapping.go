package labels

import (
	"bufio"
	"fmt"
	"io"
	"slices"
	"strconv"
	"strings"

	"github.com/janelia-flyem/cclabels/dvid"
)

// Mapping maps provisional labels to canonical labels.  Labels absent from the mapping
// are unchanged by it and 0 is always background.
type Mapping map[uint64]uint64

// Get returns the mapped label, or the label itself if it is not mapped.
func (m Mapping) Get(label uint64) uint64 {
	if label == 0 {
		return 0
	}
	if mapped, found := m[label]; found {
		return mapped
	}
	return label
}

// NumComponents returns the number of distinct canonical labels.
func (m Mapping) NumComponents() int {
	seen := make(map[uint64]struct{})
	for _, to := range m {
		seen[to] = struct{}{}
	}
	return len(seen)
}

// Changes returns the parallel old/new label lists for entries that actually change a
// label, sorted by old label.
func (m Mapping) Changes() (oldLabels, newLabels []uint64) {
	for from, to := range m {
		if from != to {
			oldLabels = append(oldLabels, from)
		}
	}
	slices.Sort(oldLabels)
	newLabels = make([]uint64, len(oldLabels))
	for i, from := range oldLabels {
		newLabels[i] = m[from]
	}
	return
}

// Apply relabels the volume in place.
func (m Mapping) Apply(v *dvid.Volume) error {
	oldLabels, newLabels := m.Changes()
	return ReplaceValues(v.Data(), oldLabels, newLabels)
}

// ReplaceValues replaces every occurrence of oldLabels[i] with newLabels[i].  Values not
// listed pass through unchanged.  Background can neither be replaced nor introduced.
func ReplaceValues(data []uint64, oldLabels, newLabels []uint64) error {
	if len(oldLabels) != len(newLabels) {
		return fmt.Errorf("got %d old labels and %d new labels", len(oldLabels), len(newLabels))
	}
	if len(oldLabels) == 0 {
		return nil
	}
	lookup := make(map[uint64]uint64, len(oldLabels))
	for i, from := range oldLabels {
		to := newLabels[i]
		if (from == 0) != (to == 0) {
			return fmt.Errorf("cannot map label %d -> %d: background must stay background", from, to)
		}
		lookup[from] = to
	}
	// runs of equal labels are common in label volumes so cache the last lookup
	var last, lastMapped uint64
	for i, label := range data {
		if label == 0 {
			continue
		}
		if label == last {
			data[i] = lastMapped
			continue
		}
		mapped, found := lookup[label]
		if !found {
			mapped = label
		}
		last, lastMapped = label, mapped
		data[i] = mapped
	}
	return nil
}

// WriteTo writes "from to" lines sorted by the from label.
func (m Mapping) WriteTo(w io.Writer) (int64, error) {
	from := make([]uint64, 0, len(m))
	for label := range m {
		from = append(from, label)
	}
	slices.Sort(from)
	bw := bufio.NewWriter(w)
	var written int64
	for _, label := range from {
		n, err := fmt.Fprintf(bw, "%d %d\n", label, m[label])
		written += int64(n)
		if err != nil {
			return written, err
		}
	}
	return written, bw.Flush()
}

// ReadMapping parses "from to" lines as written by Mapping.WriteTo.
func ReadMapping(r io.Reader) (Mapping, error) {
	m := make(Mapping)
	scanner := bufio.NewScanner(r)
	var lineNum int
	for scanner.Scan() {
		lineNum++
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		fields := strings.Fields(line)
		if len(fields) != 2 {
			return nil, fmt.Errorf("line %d: expected 2 labels, got %q", lineNum, line)
		}
		from, err := strconv.ParseUint(fields[0], 10, 64)
		if err != nil {
			return nil, fmt.Errorf("line %d: %v", lineNum, err)
		}
		to, err := strconv.ParseUint(fields[1], 10, 64)
		if err != nil {
			return nil, fmt.Errorf("line %d: %v", lineNum, err)
		}
		m[from] = to
	}
	return m, scanner.Err()
}
