package vfs

import "strings"

// Prefix marks a platform-specific path-qualifier prefix recognised and
// temporarily stripped before rewriting, then restored on the result.
type Prefix int

const (
	// NoPrefix means neither the NT object-namespace prefix nor the
	// extended-length prefix was present.
	NoPrefix Prefix = iota
	// NTPrefix is the kernel object-namespace prefix `\??\`.
	NTPrefix
	// ExtendedPrefix is the extended-length prefix `\\?\`.
	ExtendedPrefix
)

const (
	ntPrefixStr       = `\??\`
	extendedPrefixStr = `\\?\`
)

// detectPrefix strips a recognised prefix from p and reports which one
// was found. NT-prefix detection takes precedence over the extended-length
// prefix.
func detectPrefix(p string) (core string, prefix Prefix) {
	if strings.HasPrefix(p, ntPrefixStr) {
		return p[len(ntPrefixStr):], NTPrefix
	}
	if strings.HasPrefix(p, extendedPrefixStr) {
		return p[len(extendedPrefixStr):], ExtendedPrefix
	}
	return p, NoPrefix
}

func restorePrefix(p string, prefix Prefix) string {
	switch prefix {
	case NTPrefix:
		return ntPrefixStr + p
	case ExtendedPrefix:
		return extendedPrefixStr + p
	default:
		return p
	}
}

// Resolve applies mappings to path in a single ordered pass and returns
// the rewritten path. It is a pure function of (path, mappings).
//
// Resolve does not iterate to a fixed point: a later rule may push its
// output back onto an earlier rule's domain, but the pass still runs
// exactly once over the mapping table.
func Resolve(path string, mappings Mappings) (string, error) {
	if err := mappings.Validate(); err != nil {
		return "", err
	}

	core, prefix := detectPrefix(path)
	current := parsePath(core)

	for _, m := range mappings {
		next, err := applyMapping(current, m)
		if err != nil {
			return "", err
		}
		current = next
	}

	return restorePrefix(current.join(), prefix), nil
}

func applyMapping(current winPath, m Mapping) (winPath, error) {
	from := parsePath(m.From)
	to := parsePath(m.To)

	switch {
	case m.Kind == Redirect && m.FromType == File && m.ToType == File:
		if componentsEqual(current.components, from.components) {
			return to, nil
		}
		return current, nil

	case m.Kind == Redirect && m.FromType == File && m.ToType == Folder:
		if componentsEqual(current.components, from.components) {
			name := basename(from.components)
			if name == "" {
				return winPath{}, ErrInvalidMapping
			}
			return joinRelative(to, []string{name}), nil
		}
		return current, nil

	case m.Kind == Redirect && m.FromType == Folder && m.ToType == Folder:
		if hasPrefixComponents(current.components, from.components) {
			rel := current.components[len(from.components):]
			return joinRelative(to, rel), nil
		}
		return current, nil

	case m.Kind == Mount && m.FromType == File && m.ToType == Folder:
		name := basename(from.components)
		if name == "" {
			return current, nil
		}
		want := append(append([]string{}, to.components...), name)
		if componentsEqual(current.components, want) {
			return from, nil
		}
		return current, nil

	case m.Kind == Mount && m.FromType == Folder && m.ToType == Folder:
		name := basename(from.components)
		if name == "" {
			return current, nil
		}
		mountRoot := append(append([]string{}, to.components...), name)
		if hasPrefixComponents(current.components, mountRoot) {
			rel := current.components[len(mountRoot):]
			return joinRelative(from, rel), nil
		}
		return current, nil

	default:
		return winPath{}, ErrInvalidMapping
	}
}

func componentsEqual(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if !equalComponent(a[i], b[i]) {
			return false
		}
	}
	return true
}

func joinRelative(base winPath, rel []string) winPath {
	comps := make([]string, 0, len(base.components)+len(rel))
	comps = append(comps, base.components...)
	comps = append(comps, rel...)
	return winPath{components: comps, absolute: base.absolute}
}
