package journal

import (
	"strconv"

	"github.com/tidwall/gjson"
)

// jsonRecord is one line of `journalctl --output=json`
type jsonRecord struct {
	doc gjson.Result
}

// ParseRecord parses a journalctl JSON line.
// ok is false for anything that is not a JSON object.
func ParseRecord(line []byte) (Record, bool) {
	if !gjson.ValidBytes(line) {
		return nil, false
	}
	doc := gjson.ParseBytes(line)
	if !doc.IsObject() {
		return nil, false
	}
	return jsonRecord{doc: doc}, true
}

func (r jsonRecord) Field(name string) (string, bool) {
	return fieldValue(r.doc.Get(name))
}

func (r jsonRecord) Message() (string, bool) {
	return r.Field(FieldMessage)
}

func (r jsonRecord) WallclockMicros() (int64, bool) {
	raw, ok := r.Field(FieldRealtime)
	if !ok {
		return 0, false
	}
	us, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, false
	}
	return us, true
}

func (r jsonRecord) UniqueID() string {
	c, _ := r.Field(FieldCursor)
	return c
}

// fieldValue converts journalctl's JSON field encodings to a string.
// Strings are used as-is, binary payloads arrive as arrays of byte values,
// and fields set more than once arrive as arrays of values (first one wins).
func fieldValue(v gjson.Result) (string, bool) {
	switch {
	case !v.Exists() || v.Type == gjson.Null:
		return "", false
	case v.IsArray():
		items := v.Array()
		if len(items) == 0 {
			return "", true
		}
		if items[0].IsArray() || items[0].Type == gjson.String {
			return fieldValue(items[0])
		}
		b := make([]byte, 0, len(items))
		for _, it := range items {
			b = append(b, byte(it.Int()))
		}
		return string(b), true
	case v.Type == gjson.String:
		return v.Str, true
	default:
		return v.Raw, true
	}
}
