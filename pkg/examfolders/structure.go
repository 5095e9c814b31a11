package examfolders

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
)

// Structure is a folder hierarchy inferred from flat keys. A node without
// children is a leaf.
type Structure struct {
	Children map[string]*Structure
}

// IsLeaf reports whether the node has no child folders
func (s *Structure) IsLeaf() bool {
	return len(s.Children) == 0
}

// Names returns the child folder names in sorted order
func (s *Structure) Names() []string {
	names := make([]string, 0, len(s.Children))
	for name := range s.Children {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Child returns the child named name, or nil
func (s *Structure) Child(name string) *Structure {
	if s == nil {
		return nil
	}
	return s.Children[name]
}

// Paths returns every folder path relative to the root, parents first
func (s *Structure) Paths() []string {
	var paths []string
	var walk func(node *Structure, prefix string)
	walk = func(node *Structure, prefix string) {
		for _, name := range node.Names() {
			p := joinKey(prefix, name)
			paths = append(paths, p)
			walk(node.Children[name], p)
		}
	}
	walk(s, "")
	return paths
}

// MarshalJSON renders leaves as {"_isLeaf": true} and internal nodes as a
// mapping of child names.
func (s *Structure) MarshalJSON() ([]byte, error) {
	if s.IsLeaf() {
		return []byte(`{"_isLeaf":true}`), nil
	}
	return json.Marshal(s.Children)
}

func (s *Structure) insert(segments []string) {
	node := s
	for _, seg := range segments {
		child, ok := node.Children[seg]
		if !ok {
			child = &Structure{Children: map[string]*Structure{}}
			node.Children[seg] = child
		}
		node = child
	}
}

// Reconstruct lists every key under basePath and folds the folder part of each
// key into a Structure rooted at basePath. Markers and content keys both count.
func Reconstruct(ctx context.Context, store ObjectStore, basePath string) (*Structure, error) {
	base := joinKey(basePath)
	objects, err := store.List(ctx, FolderPrefix(base), "")
	if err != nil {
		return nil, fmt.Errorf("failed to list %s: %w", base, err)
	}

	keys := make([]string, 0, len(objects))
	for _, obj := range objects {
		keys = append(keys, obj.Key)
	}
	return StructureFromKeys(base, keys), nil
}

// StructureFromKeys builds a Structure from flat keys. Each key contributes its
// path minus the final segment; keys outside basePath are ignored.
func StructureFromKeys(basePath string, keys []string) *Structure {
	root := &Structure{Children: map[string]*Structure{}}
	prefix := FolderPrefix(joinKey(basePath))

	for _, key := range keys {
		if !strings.HasPrefix(key, prefix) {
			continue
		}
		rel := strings.TrimPrefix(key, prefix)
		i := strings.LastIndex(rel, Separator)
		if i <= 0 {
			continue
		}
		root.insert(strings.Split(rel[:i], Separator))
	}
	return root
}

// Diff is the difference between an intended taxonomy and a reconstructed layout.
// Paths are relative to the base path and use sanitized names.
type Diff struct {
	Missing    []string `json:"missing"`
	Unexpected []string `json:"unexpected"`
}

// Matches reports whether the layout equals the taxonomy
func (d *Diff) Matches() bool {
	return len(d.Missing) == 0 && len(d.Unexpected) == 0
}

// Verify compares the folders the taxonomy would create with a reconstructed layout.
func Verify(root Branch, actual *Structure) *Diff {
	want := make(map[string]bool)
	for _, p := range Plan(root, "") {
		want[p.Path] = true
	}

	diff := &Diff{Missing: []string{}, Unexpected: []string{}}
	have := make(map[string]bool)
	for _, p := range actual.Paths() {
		have[p] = true
		if !want[p] {
			diff.Unexpected = append(diff.Unexpected, p)
		}
	}
	for p := range want {
		if !have[p] {
			diff.Missing = append(diff.Missing, p)
		}
	}
	sort.Strings(diff.Missing)
	return diff
}
