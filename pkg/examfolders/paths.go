package examfolders

import (
	"errors"
	"strings"
)

const (
	// Separator joins key segments
	Separator = "/"

	// MarkerName is the final segment of every folder marker key
	MarkerName = ".folder_marker"

	// MarkerSuffix identifies folder marker keys in listings
	MarkerSuffix = Separator + MarkerName

	// DefaultBasePath is the root folder of the reference taxonomy
	DefaultBasePath = "Patient Y"
)

// reservedReplacer maps every character the backend rejects in a path segment to "_".
var reservedReplacer = strings.NewReplacer(
	"<", "_",
	">", "_",
	":", "_",
	`"`, "_",
	"/", "_",
	`\`, "_",
	"|", "_",
	"?", "_",
	"*", "_",
)

// Sanitize maps a taxonomy or display name to a storage-safe path segment.
// Reserved characters become "_" and surrounding whitespace is trimmed.
func Sanitize(name string) string {
	return strings.TrimSpace(reservedReplacer.Replace(name))
}

// Location addresses a folder in the taxonomy. Subcategory and Item are optional.
type Location struct {
	Category    string `json:"category"`
	Subcategory string `json:"subcategory,omitempty"`
	Item        string `json:"item,omitempty"`
}

// Validate reports whether the location names a category and has no gap
// before its deepest segment. A blank Subcategory with an Item set would move
// the item up one level.
func (l Location) Validate() error {
	if Sanitize(l.Category) == "" {
		return ErrCategoryRequired
	}
	if Sanitize(l.Subcategory) == "" && Sanitize(l.Item) != "" {
		return ErrSubcategoryRequired
	}
	return nil
}

// IsInvalidLocation reports whether err comes from Location.Validate
func IsInvalidLocation(err error) bool {
	return errors.Is(err, ErrCategoryRequired) || errors.Is(err, ErrSubcategoryRequired)
}

// segments returns the sanitized, non-empty segments of the location
func (l Location) segments() []string {
	segs := make([]string, 0, 3)
	for _, s := range []string{l.Category, l.Subcategory, l.Item} {
		if seg := Sanitize(s); seg != "" {
			segs = append(segs, seg)
		}
	}
	return segs
}

// Metadata returns the location fields that are set, keyed the way object
// metadata stores them.
func (l Location) Metadata() map[string]string {
	md := make(map[string]string, 3)
	if l.Category != "" {
		md["category"] = l.Category
	}
	if l.Subcategory != "" {
		md["subcategory"] = l.Subcategory
	}
	if l.Item != "" {
		md["item"] = l.Item
	}
	return md
}

// BuildPath composes the folder key for loc under basePath.
// Every segment is sanitized; optional segments that are empty are omitted.
// Callers taking locations from outside the taxonomy check Validate first.
func BuildPath(basePath string, loc Location) string {
	return joinKey(append([]string{basePath}, loc.segments()...)...)
}

// FilePath composes the key of a file named fileName inside the folder at loc
func FilePath(basePath string, loc Location, fileName string) string {
	return joinKey(BuildPath(basePath, loc), Sanitize(fileName))
}

// MarkerKey returns the marker object key for a folder path
func MarkerKey(folderPath string) string {
	return joinKey(folderPath, MarkerName)
}

// IsMarker reports whether key is a folder marker
func IsMarker(key string) bool {
	return key == MarkerName || strings.HasSuffix(key, MarkerSuffix)
}

// FolderPrefix returns the listing prefix for a folder path
func FolderPrefix(folderPath string) string {
	if folderPath == "" || strings.HasSuffix(folderPath, Separator) {
		return folderPath
	}
	return folderPath + Separator
}

// BaseName returns the last segment of key
func BaseName(key string) string {
	if i := strings.LastIndex(key, Separator); i >= 0 {
		return key[i+1:]
	}
	return key
}

func joinKey(parts ...string) string {
	nonEmpty := parts[:0:0]
	for _, p := range parts {
		p = strings.Trim(p, Separator)
		if p != "" {
			nonEmpty = append(nonEmpty, p)
		}
	}
	return strings.Join(nonEmpty, Separator)
}
