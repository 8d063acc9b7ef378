package protocol

import (
	"bufio"
	"io"

	"github.com/bytedance/sonic"
)

// Marshal and Unmarshal use sonic for the hot NDJSON/frame path instead
// of encoding/json (pkg/protocol frames are encoded/decoded once per
// event).
func Marshal(v any) ([]byte, error) {
	return sonic.Marshal(v)
}

func Unmarshal(data []byte, v any) error {
	return sonic.Unmarshal(data, v)
}

// WriteNDJSON writes v as one line of JSON terminated by '\n'. If encoding
// fails it falls back to writing an empty object line rather than breaking
// framing for whatever already went out on this connection.
func WriteNDJSON(w io.Writer, v any) error {
	data, err := Marshal(v)
	if err != nil {
		_, werr := w.Write([]byte("{}\n"))
		return werr
	}
	data = append(data, '\n')
	_, err = w.Write(data)
	return err
}

// NDJSONScanner wraps bufio.Scanner with a larger buffer, since tool
// results can legitimately approach the sanitizer's MAX_BYTES bound.
func NDJSONScanner(r io.Reader) *bufio.Scanner {
	sc := bufio.NewScanner(r)
	buf := make([]byte, 0, 64*1024)
	sc.Buffer(buf, 1024*1024)
	return sc
}
