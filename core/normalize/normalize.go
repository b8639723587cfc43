// Package normalize canonicalizes song titles so they can be used as join
// keys between the catalog, the prior-version feed, the deletion list and
// the ordering table.
package normalize

import (
	"maps"
	"slices"
	"strings"
)

// defaultReplacements corrects titles the catalog is known to publish with
// the wrong characters.
var defaultReplacements = map[string]string{
	"GIGANTØMAKHIA": "GIGANTOMAKHIA",
}

// entityReplacer decodes the markup entities that occur in catalog titles.
// Anything outside this list is left exactly as written.
var entityReplacer = strings.NewReplacer(
	"&amp;", "&",
	"&gt;", ">",
)

// DefaultReplacements returns a fresh copy of the compiled-in replacement
// table.
func DefaultReplacements() map[string]string {
	return maps.Clone(defaultReplacements)
}

// Normalizer maps a source title to its canonical form. It is immutable
// once built and safe to share.
type Normalizer struct {
	replacements   map[string]string
	decodeEntities bool
}

// New builds a normalizer. replacements maps a known-incorrect title to its
// canonical spelling and is matched against the whole (entity-decoded)
// title. decodeEntities enables entity decoding and should be set only for
// sources that are raw markup.
func New(replacements map[string]string, decodeEntities bool) *Normalizer {
	return &Normalizer{
		replacements:   maps.Clone(replacements),
		decodeEntities: decodeEntities,
	}
}

// Default returns a normalizer with the compiled-in replacement table.
func Default(decodeEntities bool) *Normalizer {
	return New(defaultReplacements, decodeEntities)
}

// Title returns the canonical form of title.
func (n *Normalizer) Title(title string) string {
	title = strings.TrimSpace(title)
	if n == nil {
		return title
	}
	if n.decodeEntities {
		title = DecodeEntities(title)
	}
	if repl, ok := n.replacements[title]; ok {
		return repl
	}
	return title
}

// SourcesOf returns every replacement source whose canonical form is title,
// sorted. It is used to explain lookup misses caused by a feed that still
// carries the uncorrected spelling.
func (n *Normalizer) SourcesOf(title string) []string {
	if n == nil {
		return nil
	}
	var out []string
	for from, to := range n.replacements {
		if to == title {
			out = append(out, from)
		}
	}
	slices.Sort(out)
	return out
}

// DecodeEntities decodes the entity whitelist in a single pass, so
// "&amp;gt;" becomes "&gt;" and is not decoded twice.
func DecodeEntities(s string) string {
	if !strings.Contains(s, "&") {
		return s
	}
	return entityReplacer.Replace(s)
}
