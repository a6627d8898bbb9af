// Package controller implements the supervisor loop, the
// inject-and-connect sequence, and mapping-file loading for the
// controller side of the system.
package controller

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/maroider/asbestos-go/vfs"
)

// mappingFileEntry is one row of the on-disk mapping file. The
// File/Folder tag is encoded with an explicit fromType/toType
// discriminator, never inferred from a trailing path separator: a
// discriminator survives a from/to value that is itself ambiguous (e.g.
// an extensionless file).
type mappingFileEntry struct {
	Kind     string `json:"kind"`
	From     string `json:"from"`
	FromType string `json:"fromType"`
	To       string `json:"to"`
	ToType   string `json:"toType"`
}

// LoadMappingsFile reads and validates a JSON mapping file at path,
// returning the decoded table ready to hand to an inject-and-connect
// sequence or a StartupInfo.
func LoadMappingsFile(path string) (vfs.Mappings, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("controller: reading mappings file %q: %w", path, err)
	}

	var entries []mappingFileEntry
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, fmt.Errorf("controller: parsing mappings file %q: %w", path, err)
	}

	mappings := make(vfs.Mappings, 0, len(entries))
	for i, e := range entries {
		kind, err := parseKind(e.Kind)
		if err != nil {
			return nil, fmt.Errorf("controller: mappings file %q, entry %d: %w", path, i, err)
		}
		fromType, err := parseEndpointType(e.FromType)
		if err != nil {
			return nil, fmt.Errorf("controller: mappings file %q, entry %d: fromType: %w", path, i, err)
		}
		toType, err := parseEndpointType(e.ToType)
		if err != nil {
			return nil, fmt.Errorf("controller: mappings file %q, entry %d: toType: %w", path, i, err)
		}
		mappings = append(mappings, vfs.Mapping{
			Kind:     kind,
			From:     e.From,
			FromType: fromType,
			To:       e.To,
			ToType:   toType,
		})
	}

	if err := mappings.Validate(); err != nil {
		return nil, fmt.Errorf("controller: mappings file %q: %w", path, err)
	}
	return mappings, nil
}

func parseKind(s string) (vfs.Kind, error) {
	switch s {
	case "redirect":
		return vfs.Redirect, nil
	case "mount":
		return vfs.Mount, nil
	default:
		return 0, fmt.Errorf("unknown kind %q (want \"redirect\" or \"mount\")", s)
	}
}

func parseEndpointType(s string) (vfs.EndpointType, error) {
	switch s {
	case "file":
		return vfs.File, nil
	case "folder":
		return vfs.Folder, nil
	default:
		return 0, fmt.Errorf("unknown type %q (want \"file\" or \"folder\")", s)
	}
}
