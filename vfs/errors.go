package vfs

import "errors"

// ErrInvalidMapping is returned when a Mappings value contains a rule
// whose (kind, from-type, to-type) combination is not supported, or when
// a file-to-folder redirect names a source with no basename.
var ErrInvalidMapping = errors.New("invalid mapping")
