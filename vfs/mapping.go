// Package vfs implements the path-resolution engine: an ordered table of
// rewrite rules applied to a single input path to produce an output path.
package vfs

import "fmt"

// Kind is the semantic of a Mapping rule.
type Kind int

const (
	// Redirect substitutes from with to.
	Redirect Kind = iota
	// Mount makes from appear to be a child of to.
	Mount
)

func (k Kind) String() string {
	switch k {
	case Redirect:
		return "redirect"
	case Mount:
		return "mount"
	default:
		return fmt.Sprintf("Kind(%d)", int(k))
	}
}

// EndpointType tags whether a Mapping endpoint (from or to) denotes a
// single file or a folder.
type EndpointType int

const (
	File EndpointType = iota
	Folder
)

func (t EndpointType) String() string {
	switch t {
	case File:
		return "file"
	case Folder:
		return "folder"
	default:
		return fmt.Sprintf("EndpointType(%d)", int(t))
	}
}

// Mapping is a single rewrite rule. From and To are plain path strings;
// the *Type fields tag whether each endpoint is a single file or a folder,
// which together with Kind selects the rule's semantics.
type Mapping struct {
	Kind     Kind
	From     string
	FromType EndpointType
	To       string
	ToType   EndpointType
}

// Mappings is an ordered sequence of rules. Order is semantically
// significant: rules apply in sequence, each observing the output of the
// prior, so a mount can feed a later redirect.
type Mappings []Mapping

// wellFormed reports whether m's (kind, from-type, to-type) combination is
// one of the five supported ones. All other combinations are invalid and
// cause resolution to fail with ErrInvalidMapping.
func (m Mapping) wellFormed() bool {
	switch {
	case m.Kind == Redirect && m.FromType == File && m.ToType == File:
		return true
	case m.Kind == Redirect && m.FromType == File && m.ToType == Folder:
		return true
	case m.Kind == Redirect && m.FromType == Folder && m.ToType == Folder:
		return true
	case m.Kind == Mount && m.FromType == File && m.ToType == Folder:
		return true
	case m.Kind == Mount && m.FromType == Folder && m.ToType == Folder:
		return true
	default:
		return false
	}
}

// Validate reports whether every Mapping in m is a well-formed combination.
// A Mappings value is valid iff Validate returns nil.
func (m Mappings) Validate() error {
	for i, rule := range m {
		if !rule.wellFormed() {
			return fmt.Errorf("%w: mapping %d: %s combination (from=%s, to=%s) is not supported",
				ErrInvalidMapping, i, rule.Kind, rule.FromType, rule.ToType)
		}
	}
	return nil
}
