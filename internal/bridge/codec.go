package bridge

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/fxamacker/cbor/v2"
)

// Encoding selects the stream format of a connection.
type Encoding string

const (
	EncodingJSON Encoding = "json"
	EncodingCBOR Encoding = "cbor"
)

// ParseEncoding accepts "json" (also "" and "jsonl") or "cbor".
func ParseEncoding(s string) (Encoding, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "json", "jsonl":
		return EncodingJSON, nil
	case "cbor":
		return EncodingCBOR, nil
	}
	return "", fmt.Errorf("unknown encoding %q", s)
}

// Encoder writes one value per call.
type Encoder interface {
	Encode(v any) error
}

// Decoder reads one value per call.
type Decoder interface {
	Decode(v any) error
}

var (
	encMode cbor.EncMode
	decMode cbor.DecMode
)

func init() {
	var err error

	encOpts := cbor.EncOptions{
		Sort:          cbor.SortCanonical,
		IndefLength:   cbor.IndefLengthForbidden,
		NilContainers: cbor.NilContainerAsNull,
		Time:          cbor.TimeRFC3339Nano,
	}
	encMode, err = encOpts.EncMode()
	if err != nil {
		panic(fmt.Sprintf("bridge: cbor encoder mode: %v", err))
	}

	decOpts := cbor.DecOptions{
		DupMapKey:   cbor.DupMapKeyQuiet,
		IndefLength: cbor.IndefLengthAllowed,
	}
	decMode, err = decOpts.DecMode()
	if err != nil {
		panic(fmt.Sprintf("bridge: cbor decoder mode: %v", err))
	}
}

// NewEncoder returns an encoder for w. JSON values are newline-delimited.
func NewEncoder(enc Encoding, w io.Writer) Encoder {
	if enc == EncodingCBOR {
		return encMode.NewEncoder(w)
	}
	return json.NewEncoder(w)
}

// NewDecoder returns a decoder for r.
func NewDecoder(enc Encoding, r io.Reader) Decoder {
	if enc == EncodingCBOR {
		return decMode.NewDecoder(r)
	}
	return json.NewDecoder(r)
}
