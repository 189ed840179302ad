package loader

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math/big"
	"path"
	"strings"

	"github.com/amazon-ion/ion-go/ion"
	"github.com/cockroachdb/apd/v3"
	"github.com/klauspost/compress/zstd"
	"sigs.k8s.io/yaml"
)

// Format is a document encoding.
type Format string

const (
	// FormatAuto detects the format from the URI extension, the content
	// type or the content itself.
	FormatAuto Format = ""
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
	FormatIon  Format = "ion"
)

var (
	zstdMagic = []byte{0x28, 0xb5, 0x2f, 0xfd}
	ionMagic  = []byte{0xe0, 0x01, 0x00, 0xea}
)

// ParseFormat returns the format with the given name.
func ParseFormat(name string) (Format, error) {
	switch f := Format(strings.ToLower(name)); f {
	case FormatAuto, FormatJSON, FormatYAML, FormatIon:
		return f, nil
	case "yml":
		return FormatYAML, nil
	}
	return "", fmt.Errorf("unknown document format %q", name)
}

// decompress inflates zstd frames and returns other content unchanged.
func decompress(data []byte) ([]byte, error) {
	if !bytes.HasPrefix(data, zstdMagic) {
		return data, nil
	}
	dec, err := zstd.NewReader(nil)
	if err != nil {
		return nil, err
	}
	defer dec.Close()
	out, err := dec.DecodeAll(data, nil)
	if err != nil {
		return nil, fmt.Errorf("zstd decompress: %w", err)
	}
	return out, nil
}

// detect picks the format of a document. Extensions win over content
// types, which win over sniffing.
func detect(uri, contentType string, data []byte) Format {
	ext := path.Ext(strings.TrimSuffix(strings.ToLower(uri), ".zst"))
	switch ext {
	case ".json":
		return FormatJSON
	case ".yaml", ".yml":
		return FormatYAML
	case ".ion", ".10n":
		return FormatIon
	}

	switch ct := strings.ToLower(contentType); {
	case strings.Contains(ct, "json"):
		return FormatJSON
	case strings.Contains(ct, "yaml"):
		return FormatYAML
	case strings.Contains(ct, "ion"):
		return FormatIon
	}

	if bytes.HasPrefix(data, ionMagic) {
		return FormatIon
	}
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) > 0 && (trimmed[0] == '{' || trimmed[0] == '[') {
		return FormatJSON
	}
	return FormatYAML
}

// decode turns document content into the generic tree that node.Document
// wraps: maps, slices and scalars.
func decode(format Format, data []byte) (any, error) {
	switch format {
	case FormatJSON:
		return decodeJSON(data)
	case FormatYAML:
		js, err := yaml.YAMLToJSON(data)
		if err != nil {
			return nil, fmt.Errorf("yaml: %w", err)
		}
		return decodeJSON(js)
	case FormatIon:
		return decodeIon(data)
	}
	return nil, fmt.Errorf("unsupported document format %q", format)
}

func decodeJSON(data []byte) (any, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil {
		return nil, fmt.Errorf("json: %w", err)
	}
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return nil, errors.New("json: unexpected content after the document")
	}
	return v, nil
}

func decodeIon(data []byte) (any, error) {
	dec := ion.NewDecoder(ion.NewReader(bytes.NewReader(data)))
	v, err := dec.Decode()
	if err != nil {
		if errors.Is(err, ion.ErrNoInput) {
			return nil, errors.New("ion: empty document")
		}
		return nil, fmt.Errorf("ion: %w", err)
	}
	return convertIon(v), nil
}

// convertIon maps Ion-specific values onto types the node package
// understands.
func convertIon(v any) any {
	switch vv := v.(type) {
	case []any:
		for i, e := range vv {
			vv[i] = convertIon(e)
		}
		return vv
	case map[string]any:
		for k, e := range vv {
			vv[k] = convertIon(e)
		}
		return vv
	case *ion.Timestamp:
		return vv.GetDateTime()
	case ion.Timestamp:
		return vv.GetDateTime()
	case *ion.Decimal:
		coef, exp := vv.CoEx()
		return ionDecimal(coef, exp)
	}
	return v
}

func ionDecimal(coef *big.Int, exp int32) *apd.Decimal {
	var b apd.BigInt
	b.SetMathBigInt(coef)
	return apd.NewWithBigInt(&b, exp)
}
