// Package hooks implements the concrete file-API and process-creation
// detours: extract a path argument, resolve it against the process-wide
// mapping table, and re-invoke the original entry point with the
// rewritten argument if one was produced.
package hooks

import (
	"errors"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/maroider/asbestos-go/vfs"
)

// hasRelativeComponent reports whether p contains a "." or ".." path
// component. The resolver assumes canonical input; relative components
// trigger a warning but are still passed through.
func hasRelativeComponent(p string) bool {
	for _, c := range strings.FieldsFunc(p, func(r rune) bool { return r == '\\' || r == '/' }) {
		if c == "." || c == ".." {
			return true
		}
	}
	return false
}

// DecidePath implements the shared front half of every file-API detour:
// a null (empty) path passes through unmodified; a path with relative
// components is warned about but still resolved; a resolution error is
// logged and swallowed so the trampoline is still invoked and the host
// application sees defined behaviour.
//
// It returns the path to pass to the trampoline and whether it differs
// from the input; callers only re-encode a native buffer when changed is
// true.
func DecidePath(path string, mappings vfs.Mappings, log *logrus.Entry) (rewritten string, changed bool) {
	if path == "" {
		return path, false
	}

	if hasRelativeComponent(path) {
		log.Warnf("path %q contains a relative component; resolving anyway", path)
	}

	resolved, err := vfs.Resolve(path, mappings)
	if err != nil {
		if errors.Is(err, vfs.ErrInvalidMapping) {
			log.Errorf("resolving %q: %v; passing through unmodified", path, err)
		} else {
			log.Errorf("resolving %q: %v", path, err)
		}
		return path, false
	}

	if resolved == path {
		return path, false
	}
	return resolved, true
}

// DecideObjectName implements the NT object-namespace variant of
// DecidePath: both extraction strategies are logged when they disagree,
// but the null-terminated one is authoritative for rewriting. Observed
// callers do not populate UNICODE_STRING.Length reliably; keep the dual
// diagnostic until that is root-caused.
func DecideObjectName(lengthTrusting, nullTerminated string, mappings vfs.Mappings, log *logrus.Entry) (rewritten string, changed bool) {
	if lengthTrusting != nullTerminated {
		log.Debugf("NT object name extraction disagreement: length-trusting=%q null-terminated=%q", lengthTrusting, nullTerminated)
	}
	return DecidePath(nullTerminated, mappings, log)
}
