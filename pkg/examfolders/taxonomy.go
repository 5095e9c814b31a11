package examfolders

import "fmt"

// Node is a taxonomy node: either a Branch of named children or a Leaf list of
// item names. The set of implementations is closed.
type Node interface {
	isNode()
}

// Branch is an internal taxonomy node with ordered, named children
type Branch struct {
	Entries []Entry
}

// Leaf is a leaf container holding item names. Items may be empty.
type Leaf struct {
	Items []string
}

// Entry is a named child of a Branch
type Entry struct {
	Name string
	Node Node
}

func (Branch) isNode() {}
func (Leaf) isNode()   {}

// Sub returns an Entry whose child is a Branch of entries
func Sub(name string, entries ...Entry) Entry {
	return Entry{Name: name, Node: Branch{Entries: entries}}
}

// Items returns an Entry whose child is a Leaf of the given items
func Items(name string, items ...string) Entry {
	return Entry{Name: name, Node: Leaf{Items: items}}
}

// Count returns the number of named nodes in the tree: every entry plus every
// leaf item. It equals the number of folders Plan produces.
func Count(root Branch) int {
	n := 0
	for _, e := range root.Entries {
		n++
		switch child := e.Node.(type) {
		case Branch:
			n += Count(child)
		case Leaf:
			n += len(child.Items)
		}
	}
	return n
}

// ValidateTaxonomy checks that every name in the tree sanitizes to a non-empty
// segment and that no two siblings sanitize to the same segment.
func ValidateTaxonomy(root Branch) error {
	return validateBranch(root, "")
}

func validateBranch(b Branch, parent string) error {
	seen := make(map[string]string, len(b.Entries))
	for _, e := range b.Entries {
		seg, err := checkSegment(seen, e.Name, parent)
		if err != nil {
			return err
		}
		path := joinKey(parent, seg)
		switch child := e.Node.(type) {
		case Branch:
			if err := validateBranch(child, path); err != nil {
				return err
			}
		case Leaf:
			items := make(map[string]string, len(child.Items))
			for _, item := range child.Items {
				if _, err := checkSegment(items, item, path); err != nil {
					return err
				}
			}
		}
	}
	return nil
}

// checkSegment sanitizes name and records it in seen, failing on an empty or
// repeated segment
func checkSegment(seen map[string]string, name, parent string) (string, error) {
	where := "at the root"
	if parent != "" {
		where = fmt.Sprintf("under %q", parent)
	}
	seg := Sanitize(name)
	if seg == "" {
		return "", fmt.Errorf("%w: %q %s is empty after sanitization", ErrInvalidTaxonomy, name, where)
	}
	if prev, ok := seen[seg]; ok {
		if prev == name {
			return "", fmt.Errorf("%w: duplicate entry %q %s", ErrInvalidTaxonomy, name, where)
		}
		return "", fmt.Errorf("%w: %q and %q %s both map to %q", ErrInvalidTaxonomy, prev, name, where, seg)
	}
	seen[seg] = name
	return seg, nil
}

// PhysicalExamTaxonomy returns the reference physical examination taxonomy.
// Every subcategory is a leaf container with no items.
func PhysicalExamTaxonomy() Branch {
	return Branch{Entries: []Entry{
		Sub("General",
			Items("Appearance"),
		),
		Sub("HEENT (Head, Eyes, Ears, Nose, Throat)",
			Items("Head"),
			Items("Eyes"),
			Items("Ears"),
			Items("Nose"),
			Items("Throat/Mouth"),
		),
		Sub("Neck",
			Items("Inspection"),
			Items("Palpation"),
			Items("Auscultation"),
			Items("Range of Motion"),
			Items("Airway Assessment"),
		),
		Sub("Breast",
			Items("Inspection"),
			Items("Palpation"),
			Items("Education"),
		),
		Sub("Cardiovascular",
			Items("Inspection"),
			Items("Palpation"),
			Items("Auscultation"),
			Items("Capillary Refill"),
		),
		Sub("Respiratory",
			Items("Inspection"),
			Items("Palpation"),
			Items("Percussion"),
			Items("Auscultation"),
		),
		Sub("Abdomen",
			Items("Inspection"),
			Items("Auscultation"),
			Items("Percussion"),
			Items("Palpation"),
			Items("Special Tests"),
		),
		Sub("Genitourinary",
			Items("Male"),
			Items("Female"),
		),
		Sub("Rectal",
			Items("Digital Rectal Exam (DRE)"),
			Items("Male"),
			Items("Female"),
		),
		Sub("Peripheral Vascular",
			Items("Arterial"),
			Items("Venous"),
		),
		Sub("Musculoskeletal",
			Items("Inspection"),
			Items("Palpation"),
			Items("ROM Testing"),
			Items("Strength Testing (0–5)"),
			Items("Joint Specific Tests"),
		),
		Sub("Neurological",
			Items("Mental Status"),
			Items("Cranial Nerves (I–XII)"),
			Items("Motor Function"),
			Items("Sensory Testing"),
			Items("Reflexes"),
			Items("Coordination"),
			Items("Gait and Balance"),
			Items("Meningeal Signs (if indicated)"),
		),
		Sub("Skin / Hair / Nails",
			Items("Inspection"),
			Items("Palpation"),
			Items("Nails"),
			Items("Lesion Assessment"),
		),
		Sub("Lymphatic",
			Items("Head/Neck"),
			Items("Axillary"),
			Items("Epitrochlear"),
			Items("Inguinal"),
		),
		Sub("Endocrine",
			Items("Thyroid"),
			Items("Systemic Signs"),
		),
		Sub("Back",
			Items("Inspection"),
			Items("Palpation"),
			Items("Percussion"),
			Items("Range of Motion"),
			Items("Special Tests"),
		),
		Sub("Thorax",
			Items("Inspection"),
			Items("Palpation"),
			Items("Percussion"),
			Items("Auscultation"),
		),
		Sub("Genital (Male)",
			Items("Inspection"),
			Items("Palpation"),
			Items("Hernia Examination"),
		),
	}}
}
