package message

import (
	"strings"

	mdnserrors "github.com/mdnscore/beacon/internal/errors"
)

// compressionMask identifies a compression pointer: the top two bits of the
// length byte are both set (RFC 1035 §4.1.4).
const compressionMask = 0xC0

const maxLabelLength = 63

// maxPointerHops bounds how many back-pointers a single name decode may
// follow, preventing a malformed chain from looping forever (spec §4.1:
// "bound dereferences to packet size").
const maxPointerHops = 128

// encodeName writes name as a sequence of length-prefixed labels terminated
// by a zero length byte. Per spec §4.1 the writer policy is "emit full
// labels; compression is not required for correctness" — this encoder never
// emits back-pointers.
func encodeName(buf []byte, name string) ([]byte, error) {
	name = strings.TrimSuffix(name, ".")
	if name == "" {
		return append(buf, 0x00), nil
	}
	for _, label := range strings.Split(name, ".") {
		if len(label) >= maxLabelLength+1 {
			return nil, &mdnserrors.WireError{Operation: "encode name", Message: "label exceeds 63 bytes"}
		}
		if len(label) > maxLabelLength {
			return nil, &mdnserrors.WireError{Operation: "encode name", Message: "label exceeds 63 bytes"}
		}
		buf = append(buf, byte(len(label)))
		buf = append(buf, label...)
	}
	return append(buf, 0x00), nil
}

// decodeName reads a label sequence starting at offset within msg, honoring
// compression back-pointers. It returns the decoded name (case preserved
// exactly as received, per spec §4.1) and the offset immediately following
// the name's first occurrence in the message (i.e. after the terminating
// zero byte or the two bytes of the first pointer encountered, whichever
// ends the name in the caller's read position).
func decodeName(msg []byte, offset int) (string, int, error) {
	var labels []string
	pos := offset
	hops := 0
	endOffset := -1

	for {
		if pos < 0 || pos >= len(msg) {
			return "", 0, &mdnserrors.WireError{Operation: "decode name", Offset: pos, Message: "offset out of bounds"}
		}
		length := int(msg[pos])

		if length == 0 {
			pos++
			if endOffset == -1 {
				endOffset = pos
			}
			break
		}

		if length&compressionMask == compressionMask {
			if pos+1 >= len(msg) {
				return "", 0, &mdnserrors.WireError{Operation: "decode name", Offset: pos, Message: "truncated compression pointer"}
			}
			pointer := (int(length&^compressionMask) << 8) | int(msg[pos+1])
			if endOffset == -1 {
				endOffset = pos + 2
			}
			hops++
			if hops > maxPointerHops {
				return "", 0, &mdnserrors.WireError{Operation: "decode name", Offset: pos, Message: "compression loop (too many pointer hops)"}
			}
			if pointer >= pos {
				return "", 0, &mdnserrors.WireError{Operation: "decode name", Offset: pos, Message: "compression pointer does not point backwards"}
			}
			pos = pointer
			continue
		}

		if length&compressionMask != 0 {
			return "", 0, &mdnserrors.WireError{Operation: "decode name", Offset: pos, Message: "reserved label length bits set"}
		}

		start := pos + 1
		end := start + length
		if end > len(msg) {
			return "", 0, &mdnserrors.WireError{Operation: "decode name", Offset: pos, Message: "label length exceeds message"}
		}
		labels = append(labels, string(msg[start:end]))
		pos = end
	}

	if len(labels) == 0 {
		return "", endOffset, nil
	}
	return strings.Join(labels, "."), endOffset, nil
}
