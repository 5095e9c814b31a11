package examfolders

import (
	"errors"
	"fmt"
	"io"

	"gopkg.in/yaml.v3"
)

// LoadTaxonomyYAML parses a taxonomy document. Mappings become Branches and keep
// document order; sequences of strings and empty values become Leaves.
//
//	Cardiovascular:
//	  Inspection: []
//	  Auscultation: [Aortic, Mitral]
func LoadTaxonomyYAML(r io.Reader) (Branch, error) {
	var doc yaml.Node
	if err := yaml.NewDecoder(r).Decode(&doc); err != nil {
		if errors.Is(err, io.EOF) {
			return Branch{}, errors.New("taxonomy document is empty")
		}
		return Branch{}, fmt.Errorf("failed to decode taxonomy: %w", err)
	}
	if doc.Kind != yaml.DocumentNode || len(doc.Content) == 0 {
		return Branch{}, errors.New("taxonomy document is empty")
	}

	root := doc.Content[0]
	if root.Kind != yaml.MappingNode {
		return Branch{}, fmt.Errorf("line %d: taxonomy root must be a mapping", root.Line)
	}
	return decodeBranch(root, "")
}

func decodeBranch(n *yaml.Node, parent string) (Branch, error) {
	b := Branch{Entries: make([]Entry, 0, len(n.Content)/2)}
	seen := make(map[string]string, len(n.Content)/2)

	for i := 0; i+1 < len(n.Content); i += 2 {
		key, value := n.Content[i], n.Content[i+1]
		if key.Kind != yaml.ScalarNode {
			return Branch{}, fmt.Errorf("line %d: taxonomy keys must be strings", key.Line)
		}
		seg, err := checkSegment(seen, key.Value, parent)
		if err != nil {
			return Branch{}, fmt.Errorf("line %d: %w", key.Line, err)
		}

		child, err := decodeNode(value, joinKey(parent, seg))
		if err != nil {
			return Branch{}, err
		}
		b.Entries = append(b.Entries, Entry{Name: key.Value, Node: child})
	}
	return b, nil
}

func decodeNode(n *yaml.Node, path string) (Node, error) {
	switch n.Kind {
	case yaml.MappingNode:
		return decodeBranch(n, path)
	case yaml.SequenceNode:
		items := make([]string, 0, len(n.Content))
		seen := make(map[string]string, len(n.Content))
		for _, c := range n.Content {
			if c.Kind != yaml.ScalarNode {
				return nil, fmt.Errorf("line %d: leaf items must be strings", c.Line)
			}
			if _, err := checkSegment(seen, c.Value, path); err != nil {
				return nil, fmt.Errorf("line %d: %w", c.Line, err)
			}
			items = append(items, c.Value)
		}
		return Leaf{Items: items}, nil
	case yaml.ScalarNode:
		if n.Tag == "!!null" || n.Value == "" {
			return Leaf{}, nil
		}
		return nil, fmt.Errorf("line %d: unexpected scalar %q, want mapping or list", n.Line, n.Value)
	default:
		return nil, fmt.Errorf("line %d: unsupported taxonomy node", n.Line)
	}
}
