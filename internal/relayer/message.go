package relayer

import (
	"bytes"
	"encoding/json"
	"strconv"
	"strings"

	"github.com/pkg/errors"
)

// BuildMessage returns the text signed for a request:
// ZAMA_FHE_REQUEST:<sessionId>:<functionName>:<JSON(values)>:<nonce>.
func BuildMessage(sessionID string, functionName string, values []any, nonce uint64) (string, error) {
	encoded, err := encodeJSON(normalizeValues(values))
	if err != nil {
		return "", errors.Wrap(err, "failed to encode request values")
	}

	return strings.Join([]string{
		MessagePrefix,
		sessionID,
		functionName,
		string(encoded),
		strconv.FormatUint(nonce, 10),
	}, ":"), nil
}

func normalizeValues(values []any) []any {
	if values == nil {
		return []any{}
	}

	return values
}

// encodeJSON marshals like JSON.stringify: no HTML escaping, no trailing newline.
func encodeJSON(v any) ([]byte, error) {
	var buf bytes.Buffer

	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return nil, err
	}

	return unescapeLineSeparators(bytes.TrimRight(buf.Bytes(), "\n")), nil
}

// unescapeLineSeparators writes U+2028 and U+2029 raw. encoding/json always
// escapes them while JSON.stringify does not.
func unescapeLineSeparators(data []byte) []byte {
	const escapeLen = len(`\u2028`)

	if !bytes.Contains(data, []byte(`\u202`)) {
		return data
	}

	out := make([]byte, 0, len(data))
	for i := 0; i < len(data); i++ {
		if data[i] != '\\' {
			out = append(out, data[i])
			continue
		}

		rest := data[i:]
		switch {
		case bytes.HasPrefix(rest, []byte(`\u2028`)):
			out = append(out, "\u2028"...)
			i += escapeLen - 1
		case bytes.HasPrefix(rest, []byte(`\u2029`)):
			out = append(out, "\u2029"...)
			i += escapeLen - 1
		case i+1 < len(data):
			// keep any other escape pair intact, including an escaped backslash
			out = append(out, data[i], data[i+1])
			i++
		default:
			out = append(out, data[i])
		}
	}

	return out
}

func decodeJSON(data []byte, out any) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	return dec.Decode(out)
}
