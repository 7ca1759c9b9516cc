// Package labels holds the ordered label catalog a vision model scores over.
package labels

import (
	"bufio"
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"slices"
	"strings"
)

// Label is a semantic element category such as "cart" or "menu".
type Label string

// Unclassified is the sentinel label returned when no score clears the threshold.
const Unclassified Label = "unclassified"

var (
	ErrEmpty           = errors.New("label catalog is empty")
	ErrDuplicate       = errors.New("duplicate label in catalog")
	ErrMissingSentinel = errors.New("label catalog must contain " + string(Unclassified))
)

// Catalog is the fixed, ordered list of labels the model was trained on.
// Position i in a score vector corresponds to Labels()[i].
type Catalog struct {
	labels []Label
	index  map[Label]int
}

// New builds a Catalog from an ordered list of labels.
// Labels are trimmed; blank entries are skipped.
func New(names ...string) (*Catalog, error) {
	c := &Catalog{
		labels: make([]Label, 0, len(names)),
		index:  make(map[Label]int, len(names)),
	}

	for _, n := range names {
		n = strings.TrimSpace(n)
		if n == "" {
			continue
		}
		l := Label(n)
		if _, ok := c.index[l]; ok {
			return nil, fmt.Errorf("%w: %s", ErrDuplicate, n)
		}
		c.index[l] = len(c.labels)
		c.labels = append(c.labels, l)
	}

	if len(c.labels) == 0 {
		return nil, ErrEmpty
	}
	if _, ok := c.index[Unclassified]; !ok {
		return nil, ErrMissingSentinel
	}

	return c, nil
}

// Load reads a catalog file. A file whose first non-space byte is '['
// is parsed as a JSON string array; anything else is one label per line.
func Load(path string) (*Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read label catalog: %w", err)
	}

	names, err := parse(data)
	if err != nil {
		return nil, fmt.Errorf("parse label catalog %s: %w", path, err)
	}

	return New(names...)
}

// Len returns the number of labels including the sentinel.
func (c *Catalog) Len() int {
	return len(c.labels)
}

// Labels returns a copy of the ordered catalog.
func (c *Catalog) Labels() []Label {
	return slices.Clone(c.labels)
}

// Index returns the catalog position of l.
func (c *Catalog) Index(l Label) (int, bool) {
	i, ok := c.index[l]
	return i, ok
}

// Contains reports whether l is in the catalog.
func (c *Catalog) Contains(l Label) bool {
	_, ok := c.index[l]
	return ok
}

// Candidates returns the catalog in order without the sentinel.
func (c *Catalog) Candidates() []Label {
	out := make([]Label, 0, len(c.labels)-1)
	for _, l := range c.labels {
		if l != Unclassified {
			out = append(out, l)
		}
	}
	return out
}

func parse(data []byte) ([]string, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) > 0 && trimmed[0] == '[' {
		var names []string
		if err := json.Unmarshal(trimmed, &names); err != nil {
			return nil, err
		}
		return names, nil
	}

	var names []string
	scanner := bufio.NewScanner(bytes.NewReader(data))
	for scanner.Scan() {
		names = append(names, scanner.Text())
	}
	return names, scanner.Err()
}
