package wire

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"

	"github.com/maroider/asbestos-go/vfs"
)

// ErrConnectionLost is returned by ReadFrame when the underlying stream
// ends unexpectedly, leaving a truncated frame behind.
var ErrConnectionLost = errors.New("protocol: connection lost")

// maxFrameLen bounds a single message's length prefix to guard against a
// corrupt or hostile peer requesting an unbounded allocation.
const maxFrameLen = 64 * 1024 * 1024

// WriteFrame writes one length-framed message: a little-endian uint32
// byte count, followed by the encoded Message. A single Write call is used
// for the combined buffer to avoid interleaving with concurrent writers on
// the same connection.
func WriteFrame(w io.Writer, msg Message) error {
	body := Encode(msg)
	buf := make([]byte, 4+len(body))
	binary.LittleEndian.PutUint32(buf[:4], uint32(len(body)))
	copy(buf[4:], body)
	_, err := w.Write(buf)
	return err
}

// ReadFrame reads one length-framed message from r.
func ReadFrame(r io.Reader) (Message, error) {
	var lenBuf [4]byte
	if _, err := io.ReadFull(r, lenBuf[:]); err != nil {
		if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
			return Message{}, ErrConnectionLost
		}
		return Message{}, err
	}
	n := binary.LittleEndian.Uint32(lenBuf[:])
	if n > maxFrameLen {
		return Message{}, fmt.Errorf("protocol: frame of %d bytes exceeds maximum", n)
	}
	body := make([]byte, n)
	if _, err := io.ReadFull(r, body); err != nil {
		if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
			return Message{}, ErrConnectionLost
		}
		return Message{}, err
	}
	return Decode(body)
}

// Encode serialises msg's tag and fields: little-endian integers, dense
// tag byte, u64-length-prefixed UTF-8 strings.
func Encode(msg Message) []byte {
	var b bytes.Buffer
	b.WriteByte(byte(msg.Tag))

	switch msg.Tag {
	case TagStartupInfo:
		encodeStartupInfo(&b, msg.StartupInfo)
	case TagLogMessage:
		encodeLogMessage(&b, msg.LogMessage)
	case TagInitialized:
		// no fields
	case TagInitializationFailed:
		putString(&b, msg.InitializationFailed)
	case TagProcessSpawned:
		putU32(&b, msg.ProcessSpawned.PID)
	case TagProcessDetach:
		// no fields
	}

	return b.Bytes()
}

// Decode parses a byte slice previously produced by Encode.
func Decode(data []byte) (Message, error) {
	r := bytes.NewReader(data)
	tagByte, err := r.ReadByte()
	if err != nil {
		return Message{}, fmt.Errorf("protocol: decoding tag: %w", err)
	}
	tag := Tag(tagByte)

	switch tag {
	case TagStartupInfo:
		si, err := decodeStartupInfo(r)
		if err != nil {
			return Message{}, err
		}
		return NewStartupInfo(si), nil
	case TagLogMessage:
		lm, err := decodeLogMessage(r)
		if err != nil {
			return Message{}, err
		}
		return NewLogMessage(lm), nil
	case TagInitialized:
		return NewInitialized(), nil
	case TagInitializationFailed:
		s, err := getString(r)
		if err != nil {
			return Message{}, err
		}
		return NewInitializationFailed(s), nil
	case TagProcessSpawned:
		pid, err := getU32(r)
		if err != nil {
			return Message{}, err
		}
		return NewProcessSpawned(pid), nil
	case TagProcessDetach:
		return NewProcessDetach(), nil
	default:
		return Message{}, fmt.Errorf("protocol: unknown message tag %d", tagByte)
	}
}

func putString(b *bytes.Buffer, s string) {
	var lenBuf [8]byte
	binary.LittleEndian.PutUint64(lenBuf[:], uint64(len(s)))
	b.Write(lenBuf[:])
	b.WriteString(s)
}

func getString(r *bytes.Reader) (string, error) {
	var lenBuf [8]byte
	if _, err := io.ReadFull(r, lenBuf[:]); err != nil {
		return "", fmt.Errorf("protocol: decoding string length: %w", err)
	}
	n := binary.LittleEndian.Uint64(lenBuf[:])
	if n > maxFrameLen {
		return "", fmt.Errorf("protocol: string of %d bytes exceeds maximum", n)
	}
	buf := make([]byte, n)
	if _, err := io.ReadFull(r, buf); err != nil {
		return "", fmt.Errorf("protocol: decoding string body: %w", err)
	}
	return string(buf), nil
}

func putU32(b *bytes.Buffer, v uint32) {
	var buf [4]byte
	binary.LittleEndian.PutUint32(buf[:], v)
	b.Write(buf[:])
}

func getU32(r *bytes.Reader) (uint32, error) {
	var buf [4]byte
	if _, err := io.ReadFull(r, buf[:]); err != nil {
		return 0, fmt.Errorf("protocol: decoding u32: %w", err)
	}
	return binary.LittleEndian.Uint32(buf[:]), nil
}

func putBool(b *bytes.Buffer, v bool) {
	if v {
		b.WriteByte(1)
	} else {
		b.WriteByte(0)
	}
}

func getBool(r *bytes.Reader) (bool, error) {
	v, err := r.ReadByte()
	if err != nil {
		return false, fmt.Errorf("protocol: decoding bool: %w", err)
	}
	return v != 0, nil
}

func encodeStartupInfo(b *bytes.Buffer, si StartupInfo) {
	putBool(b, si.MainThreadSuspended)
	putBool(b, si.DontHookSubprocesses)
	putBool(b, si.ShowConsole)
	putU32(b, uint32(len(si.Mappings)))
	for _, m := range si.Mappings {
		b.WriteByte(byte(m.Kind))
		b.WriteByte(byte(m.FromType))
		putString(b, m.From)
		b.WriteByte(byte(m.ToType))
		putString(b, m.To)
	}
}

func decodeStartupInfo(r *bytes.Reader) (StartupInfo, error) {
	var si StartupInfo
	var err error
	if si.MainThreadSuspended, err = getBool(r); err != nil {
		return si, err
	}
	if si.DontHookSubprocesses, err = getBool(r); err != nil {
		return si, err
	}
	if si.ShowConsole, err = getBool(r); err != nil {
		return si, err
	}
	count, err := getU32(r)
	if err != nil {
		return si, err
	}
	si.Mappings = make(vfs.Mappings, 0, count)
	for i := uint32(0); i < count; i++ {
		kindByte, err := r.ReadByte()
		if err != nil {
			return si, fmt.Errorf("protocol: decoding mapping %d kind: %w", i, err)
		}
		fromTypeByte, err := r.ReadByte()
		if err != nil {
			return si, fmt.Errorf("protocol: decoding mapping %d from-type: %w", i, err)
		}
		from, err := getString(r)
		if err != nil {
			return si, err
		}
		toTypeByte, err := r.ReadByte()
		if err != nil {
			return si, fmt.Errorf("protocol: decoding mapping %d to-type: %w", i, err)
		}
		to, err := getString(r)
		if err != nil {
			return si, err
		}
		si.Mappings = append(si.Mappings, vfs.Mapping{
			Kind:     vfs.Kind(kindByte),
			FromType: vfs.EndpointType(fromTypeByte),
			From:     from,
			ToType:   vfs.EndpointType(toTypeByte),
			To:       to,
		})
	}
	return si, nil
}

func encodeLogMessage(b *bytes.Buffer, lm LogMessage) {
	b.WriteByte(byte(lm.Level))
	putString(b, lm.ModulePath)
	putString(b, lm.File)
	putU32(b, lm.Line)
	putString(b, lm.Message)
}

func decodeLogMessage(r *bytes.Reader) (LogMessage, error) {
	var lm LogMessage
	levelByte, err := r.ReadByte()
	if err != nil {
		return lm, fmt.Errorf("protocol: decoding log level: %w", err)
	}
	lm.Level = Level(levelByte)
	if lm.ModulePath, err = getString(r); err != nil {
		return lm, err
	}
	if lm.File, err = getString(r); err != nil {
		return lm, err
	}
	if lm.Line, err = getU32(r); err != nil {
		return lm, err
	}
	if lm.Message, err = getString(r); err != nil {
		return lm, err
	}
	return lm, nil
}
