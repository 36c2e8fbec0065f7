package identity

import (
	"crypto/sha256"
	"encoding/hex"
	"strconv"
	"unicode/utf8"
)

// Serialize returns the canonical bytes an event id is hashed from:
//
//	[0,"<pubkey>",<created_at>,<kind>,[["tag","values"]],"<content>"]
//
// The id and sig fields are ignored.
func Serialize(evt *Event) ([]byte, error) {
	pk, err := decodeFixedHex("pubkey", evt.PubKey, 32)
	if err != nil {
		return nil, err
	}
	if evt.Kind < 0 {
		return nil, malformed("kind", "must be non-negative", nil)
	}
	for i, tag := range evt.Tags {
		for j, s := range tag {
			if !utf8.ValidString(s) {
				return nil, malformed("tags", "element ["+strconv.Itoa(i)+"]["+strconv.Itoa(j)+"] is not valid UTF-8", nil)
			}
		}
	}
	if !utf8.ValidString(evt.Content) {
		return nil, malformed("content", "not valid UTF-8", nil)
	}

	dst := make([]byte, 0, 100+len(evt.Content)+len(evt.Tags)*80)

	dst = append(dst, `[0,"`...)
	dst = hex.AppendEncode(dst, pk)
	dst = append(dst, `",`...)
	dst = strconv.AppendInt(dst, int64(evt.CreatedAt), 10)
	dst = append(dst, ',')
	dst = strconv.AppendInt(dst, int64(evt.Kind), 10)
	dst = append(dst, ",["...)
	for i, tag := range evt.Tags {
		if i > 0 {
			dst = append(dst, ',')
		}
		dst = append(dst, '[')
		for j, s := range tag {
			if j > 0 {
				dst = append(dst, ',')
			}
			dst = appendQuoted(dst, s)
		}
		dst = append(dst, ']')
	}
	dst = append(dst, "],"...)
	dst = appendQuoted(dst, evt.Content)
	dst = append(dst, ']')

	return dst, nil
}

// Hash is the raw 32-byte event id.
func Hash(evt *Event) ([32]byte, error) {
	b, err := Serialize(evt)
	if err != nil {
		return [32]byte{}, err
	}
	return sha256.Sum256(b), nil
}

// ComputeID returns the lowercase hex event id. evt.ID is neither read nor
// written.
func ComputeID(evt *Event) (string, error) {
	h, err := Hash(evt)
	if err != nil {
		return "", err
	}
	return hex.EncodeToString(h[:]), nil
}

const hexDigits = "0123456789abcdef"

// appendQuoted writes s as a JSON string with the NIP-01 escaping table,
// which is the same one JSON.stringify uses: only quote, backslash and
// control characters are escaped, everything else is copied through.
func appendQuoted(dst []byte, s string) []byte {
	dst = append(dst, '"')
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case c == '"':
			dst = append(dst, '\\', '"')
		case c == '\\':
			dst = append(dst, '\\', '\\')
		case c >= 0x20:
			dst = append(dst, c)
		case c == '\b':
			dst = append(dst, '\\', 'b')
		case c == '\t':
			dst = append(dst, '\\', 't')
		case c == '\n':
			dst = append(dst, '\\', 'n')
		case c == '\f':
			dst = append(dst, '\\', 'f')
		case c == '\r':
			dst = append(dst, '\\', 'r')
		default:
			dst = append(dst, '\\', 'u', '0', '0', hexDigits[c>>4], hexDigits[c&0xf])
		}
	}
	return append(dst, '"')
}

func decodeFixedHex(field, s string, size int) ([]byte, error) {
	if len(s) != size*2 {
		return nil, malformed(field, "expected "+strconv.Itoa(size*2)+" hex characters, got "+strconv.Itoa(len(s)), nil)
	}
	b, err := hex.DecodeString(s)
	if err != nil {
		return nil, malformed(field, "invalid hex", err)
	}
	if hex.EncodeToString(b) != s {
		return nil, malformed(field, "must be lowercase hex", nil)
	}
	return b, nil
}
