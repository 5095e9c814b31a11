package examfolders

// PlannedFolder is a folder the structure planner wants to exist
type PlannedFolder struct {
	Path          string   `json:"path"`
	OriginalName  string   `json:"original_name"`
	SanitizedName string   `json:"sanitized_name"`
	Depth         int      `json:"depth"`
	Location      Location `json:"location"`
	Description   string   `json:"description,omitempty"`
}

// Renamed reports whether sanitization changed the folder name
func (p PlannedFolder) Renamed() bool {
	return p.OriginalName != p.SanitizedName
}

// Plan walks the taxonomy depth-first and returns one PlannedFolder per entry and
// per leaf item, parents before children, in taxonomy order. Categories sit at
// depth 1 below basePath. Plan performs no I/O.
func Plan(root Branch, basePath string) []PlannedFolder {
	planned := make([]PlannedFolder, 0, Count(root))
	return planBranch(planned, root, joinKey(basePath), 1, nil)
}

func planBranch(planned []PlannedFolder, b Branch, parent string, depth int, ancestry []string) []PlannedFolder {
	for _, e := range b.Entries {
		folder := newPlannedFolder(parent, e.Name, depth, ancestry)
		planned = append(planned, folder)

		names := append(ancestry[:len(ancestry):len(ancestry)], e.Name)
		switch child := e.Node.(type) {
		case Branch:
			planned = planBranch(planned, child, folder.Path, depth+1, names)
		case Leaf:
			for _, item := range child.Items {
				planned = append(planned, newPlannedFolder(folder.Path, item, depth+1, names))
			}
		}
	}
	return planned
}

func newPlannedFolder(parent, name string, depth int, ancestry []string) PlannedFolder {
	sanitized := Sanitize(name)
	return PlannedFolder{
		Path:          joinKey(parent, sanitized),
		OriginalName:  name,
		SanitizedName: sanitized,
		Depth:         depth,
		Location:      locationFor(append(ancestry[:len(ancestry):len(ancestry)], name)),
	}
}

// locationFor maps a name chain to a Location. Names below the third level
// are reported as the item.
func locationFor(names []string) Location {
	var loc Location
	switch n := len(names); {
	case n >= 3:
		loc.Item = names[n-1]
		fallthrough
	case n == 2:
		loc.Subcategory = names[1]
		fallthrough
	case n == 1:
		loc.Category = names[0]
	}
	return loc
}
