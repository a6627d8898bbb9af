//go:build windows

package hooks

import (
	"unsafe"

	"golang.org/x/sys/windows"
)

// unicodeString mirrors ntdll's UNICODE_STRING: a length-prefixed, not
// necessarily null-terminated UTF-16 string. NtCreateFile and
// NtQueryAttributesFile both address their path through one of these via
// objectAttributes.ObjectName.
type unicodeString struct {
	Length        uint16
	MaximumLength uint16
	_             uint16 // padding to align Buffer on amd64
	Buffer        *uint16
}

// lengthTrusting decodes exactly Length/2 UTF-16 units, the value an
// observer that trusts UNICODE_STRING.Length would read.
func (u *unicodeString) lengthTrusting() string {
	if u == nil || u.Buffer == nil || u.Length == 0 {
		return ""
	}
	n := int(u.Length / 2)
	slice := unsafe.Slice(u.Buffer, n)
	return windows.UTF16ToString(slice)
}

// nullTerminated scans up to MaximumLength/2 UTF-16 units for a NUL,
// the value an observer that ignores Length and scans the buffer like a
// C string would read. UNICODE_STRING buffers are frequently
// over-allocated relative to Length, so this can disagree with
// lengthTrusting; both views are logged and nullTerminated wins.
func (u *unicodeString) nullTerminated() string {
	if u == nil || u.Buffer == nil || u.MaximumLength == 0 {
		return ""
	}
	max := int(u.MaximumLength / 2)
	slice := unsafe.Slice(u.Buffer, max)
	for i, c := range slice {
		if c == 0 {
			return windows.UTF16ToString(slice[:i])
		}
	}
	return windows.UTF16ToString(slice)
}

// objectAttributes mirrors ntdll's OBJECT_ATTRIBUTES.
type objectAttributes struct {
	Length                   uint32
	RootDirectory            uintptr
	ObjectName               *unicodeString
	Attributes               uint32
	SecurityDescriptor       uintptr
	SecurityQualityOfService uintptr
}

// withRewrittenName returns a copy of o whose ObjectName points at name;
// every other field is carried over from the caller's structure.
func (o *objectAttributes) withRewrittenName(name *unicodeString) objectAttributes {
	local := *o
	local.ObjectName = name
	return local
}

// copyBackFrom copies every field except ObjectName from local back into
// the caller's structure. The underlying calls treat ObjectAttributes as
// an input, but if a bug in them ever mutates it the caller should see
// the mutation; ObjectName stays untouched since that is the one field
// swapped out for the duration of the call.
func (o *objectAttributes) copyBackFrom(local *objectAttributes) {
	o.Length = local.Length
	o.RootDirectory = local.RootDirectory
	o.Attributes = local.Attributes
	o.SecurityDescriptor = local.SecurityDescriptor
	o.SecurityQualityOfService = local.SecurityQualityOfService
}

// ntCreateFileWrapper intercepts NtCreateFile. Its path lives inside
// ObjectAttributes.ObjectName, extracted both ways (length-trusting and
// null-terminated); the null-terminated reading is authoritative for
// resolution. When rewriting, the trampoline is called with a stack-local
// ObjectAttributes referencing a locally owned buffer, never with a
// mutated view of the caller's structure.
func ntCreateFileWrapper(fileHandle, desiredAccess, objectAttrs, ioStatusBlock, allocationSize, fileAttributes, shareAccess, createDisposition, createOptions, eaBuffer, eaLength uintptr) uintptr {
	defer recoverHook()

	oa := (*objectAttributes)(unsafe.Pointer(objectAttrs))
	if oa != nil && oa.ObjectName != nil && oa.ObjectName.Buffer != nil {
		log := fileState.log.WithField("api", "NtCreateFile")
		path := oa.ObjectName.nullTerminated()
		rewritten, changed := DecideObjectName(oa.ObjectName.lengthTrusting(), path, fileState.mappings(), log)
		if changed {
			if buf, length, ok := newUnicodeString(rewritten); ok {
				log.Infof("NtCreateFile: redirecting %q -> %q", path, rewritten)
				name := unicodeString{Length: length, MaximumLength: length, Buffer: buf}
				local := oa.withRewrittenName(&name)
				ret, _, _ := trampolineCaller{addr: ntCreateFileDetour.Trampoline().Addr()}.Call(
					fileHandle, desiredAccess, uintptr(unsafe.Pointer(&local)), ioStatusBlock,
					allocationSize, fileAttributes, shareAccess, createDisposition, createOptions,
					eaBuffer, eaLength,
				)
				oa.copyBackFrom(&local)
				return ret
			}
		}
	}

	ret, _, _ := trampolineCaller{addr: ntCreateFileDetour.Trampoline().Addr()}.Call(
		fileHandle, desiredAccess, objectAttrs, ioStatusBlock, allocationSize,
		fileAttributes, shareAccess, createDisposition, createOptions, eaBuffer, eaLength,
	)
	return ret
}

// ntQueryAttributesFileWrapper intercepts NtQueryAttributesFile, the
// lighter-weight attribute-only lookup NtCreateFile is often preceded by.
// Same substitution discipline as ntCreateFileWrapper.
func ntQueryAttributesFileWrapper(objectAttrs, fileInformation uintptr) uintptr {
	defer recoverHook()

	oa := (*objectAttributes)(unsafe.Pointer(objectAttrs))
	if oa != nil && oa.ObjectName != nil && oa.ObjectName.Buffer != nil {
		log := fileState.log.WithField("api", "NtQueryAttributesFile")
		path := oa.ObjectName.nullTerminated()
		rewritten, changed := DecideObjectName(oa.ObjectName.lengthTrusting(), path, fileState.mappings(), log)
		if changed {
			if buf, length, ok := newUnicodeString(rewritten); ok {
				log.Infof("NtQueryAttributesFile: redirecting %q -> %q", path, rewritten)
				name := unicodeString{Length: length, MaximumLength: length, Buffer: buf}
				local := oa.withRewrittenName(&name)
				ret, _, _ := trampolineCaller{addr: ntQueryAttrDetour.Trampoline().Addr()}.Call(
					uintptr(unsafe.Pointer(&local)), fileInformation,
				)
				oa.copyBackFrom(&local)
				return ret
			}
		}
	}

	ret, _, _ := trampolineCaller{addr: ntQueryAttrDetour.Trampoline().Addr()}.Call(objectAttrs, fileInformation)
	return ret
}

// newUnicodeString allocates a UTF-16 buffer for s and returns it along
// with its byte length, suitable for referencing from a stack-local
// unicodeString for the duration of a single trampoline call.
func newUnicodeString(s string) (*uint16, uint16, bool) {
	u16, err := windows.UTF16FromString(s)
	if err != nil {
		return nil, 0, false
	}
	u16 = u16[:len(u16)-1] // UNICODE_STRING.Length excludes the NUL UTF16FromString appends
	if len(u16)*2 > 0xffff {
		return nil, 0, false
	}
	if len(u16) == 0 {
		return nil, 0, false
	}
	return &u16[0], uint16(len(u16) * 2), true
}
