package pipeline

import "github.com/buildkiln/kiln/src/image"

// TagConf collects the names the built image gets tagged as. Primary
// images carry the canonical repository tags; unique images carry
// one-off timestamped tags. Entries are kept exactly as added, adding
// a name twice keeps both entries; callers own de-duplication.
type TagConf struct {
	primary []image.Name
	unique  []image.Name
}

// AddPrimaryImage records a canonical tag for the built image.
func (t *TagConf) AddPrimaryImage(img image.Name) {
	t.primary = append(t.primary, img)
}

// AddUniqueImage records a one-off tag for the built image.
func (t *TagConf) AddUniqueImage(img image.Name) {
	t.unique = append(t.unique, img)
}

// PrimaryImages returns the canonical tags in insertion order.
func (t *TagConf) PrimaryImages() []image.Name {
	return append([]image.Name(nil), t.primary...)
}

// UniqueImages returns the one-off tags in insertion order.
func (t *TagConf) UniqueImages() []image.Name {
	return append([]image.Name(nil), t.unique...)
}

// Images returns every tag, primary first.
func (t *TagConf) Images() []image.Name {
	all := make([]image.Name, 0, len(t.primary)+len(t.unique))
	all = append(all, t.primary...)
	return append(all, t.unique...)
}
