package item

import (
	"encoding/base64"
	"strings"

	"github.com/sandrolain/gometapath/pkg/types"
)

// String is a string value.
type String string

func (s String) Type() types.Type { return types.TypeString }
func (s String) String() string   { return string(s) }

// UntypedAtomic is a value whose lexical form is known but whose type has
// not been resolved.
type UntypedAtomic string

func (u UntypedAtomic) Type() types.Type { return types.TypeUntypedAtomic }
func (u UntypedAtomic) String() string   { return string(u) }

// Boolean is a boolean value.
type Boolean bool

// ParseBoolean accepts "true", "false", "1" and "0".
func ParseBoolean(s string) (Boolean, error) {
	switch s {
	case "true", "1":
		return true, nil
	case "false", "0":
		return false, nil
	}
	return false, lexicalError(s, types.TypeBoolean)
}

func (b Boolean) Type() types.Type { return types.TypeBoolean }

func (b Boolean) String() string {
	if b {
		return "true"
	}
	return "false"
}

// Base64Binary is binary data rendered in base64.
type Base64Binary []byte

// ParseBase64Binary decodes standard base64. Whitespace is ignored.
func ParseBase64Binary(s string) (Base64Binary, error) {
	s = strings.Join(strings.Fields(s), "")
	b, err := base64.StdEncoding.DecodeString(s)
	if err != nil {
		return nil, lexicalError(s, types.TypeBase64Binary).WithCause(err)
	}
	return Base64Binary(b), nil
}

func (b Base64Binary) Type() types.Type { return types.TypeBase64Binary }

func (b Base64Binary) String() string {
	return base64.StdEncoding.EncodeToString(b)
}
