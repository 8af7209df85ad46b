// ABOUTME: Library: the board's clip catalog keyed by uuid handles
// ABOUTME: Probes assets at add time so triggers never discover a bad file mid-show
package library

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/cartwall/cartwall-go/pkg/audio/decode"
)

// Library holds the probed clips the board can trigger. Safe for
// concurrent use; the UI reads while imports run.
type Library struct {
	mu    sync.RWMutex
	byID  map[string]*Clip
	order []string
}

func New() *Library {
	return &Library{byID: make(map[string]*Clip)}
}

// AddFile probes the file at path and registers it. Undecodable files
// are refused with a classified ProbeError.
func (l *Library) AddFile(path string) (*Clip, error) {
	c := &Clip{
		id:   newClipID(),
		name: filepath.Base(path),
		path: path,
	}
	if err := c.probe(); err != nil {
		return nil, newProbeError(c.name, err)
	}

	l.add(c)
	return c, nil
}

// AddBytes probes an in-memory asset and registers it. ext selects the
// container the same way a file extension would.
func (l *Library) AddBytes(name string, data []byte, ext string) (*Clip, error) {
	c := &Clip{
		id:   newClipID(),
		name: name,
		data: data,
		ext:  ext,
	}
	if err := c.probe(); err != nil {
		return nil, newProbeError(name, err)
	}

	l.add(c)
	return c, nil
}

func (l *Library) add(c *Clip) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.byID[c.id] = c
	l.order = append(l.order, c.id)
}

// ScanDir registers every decodable file directly under dir. Files
// that fail to probe are logged and skipped; the scan itself only
// fails when the directory cannot be read.
func (l *Library) ScanDir(dir string) ([]*Clip, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("scanning %s: %w", dir, err)
	}

	supported := make(map[string]bool)
	for _, ext := range decode.Extensions() {
		supported[ext] = true
	}

	var added []*Clip
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		ext := strings.ToLower(strings.TrimPrefix(filepath.Ext(entry.Name()), "."))
		if !supported[ext] {
			continue
		}

		c, err := l.AddFile(filepath.Join(dir, entry.Name()))
		if err != nil {
			log.Printf("Skipping %s: %v", entry.Name(), err)
			continue
		}
		added = append(added, c)
	}
	return added, nil
}

// Get returns the clip for a handle.
func (l *Library) Get(id string) (*Clip, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	c, ok := l.byID[id]
	return c, ok
}

// ByName returns the first clip with the given display name.
func (l *Library) ByName(name string) (*Clip, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	for _, id := range l.order {
		if c := l.byID[id]; c.name == name {
			return c, true
		}
	}
	return nil, false
}

// List returns the clips in the order they were added.
func (l *Library) List() []*Clip {
	l.mu.RLock()
	defer l.mu.RUnlock()
	out := make([]*Clip, 0, len(l.order))
	for _, id := range l.order {
		out = append(out, l.byID[id])
	}
	return out
}

// ListSorted returns the clips ordered by display name, for stable
// board layouts independent of import order.
func (l *Library) ListSorted() []*Clip {
	out := l.List()
	sort.Slice(out, func(i, j int) bool { return out[i].name < out[j].name })
	return out
}

// Remove drops a clip from the catalog. Instances already playing it
// keep their borrowed reference until they finish.
func (l *Library) Remove(id string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	if _, ok := l.byID[id]; !ok {
		return false
	}
	delete(l.byID, id)
	for i, oid := range l.order {
		if oid == id {
			l.order = append(l.order[:i], l.order[i+1:]...)
			break
		}
	}
	return true
}

// Len returns the number of registered clips.
func (l *Library) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.byID)
}
