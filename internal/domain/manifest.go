package domain

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
)

const (
	// ManifestFileName is the module manifest looked up in each subdirectory.
	ManifestFileName = "package.json"
	// LockFileName is rewritten alongside the manifest when present.
	LockFileName = "package-lock.json"
)

// ErrVersionMissing is returned when a manifest has no string version field.
var ErrVersionMissing = errors.New("manifest has no version field")

// Manifest represents an npm package manifest.
type Manifest struct {
	Name    string `json:"name"`
	Version string `json:"version"`
	Private bool   `json:"private"`
	Path    string `json:"-"` // Path is not part of package.json

	raw []byte
}

// ParseManifest decodes a manifest and checks that it carries a version.
func ParseManifest(path string, data []byte) (*Manifest, error) {
	m := &Manifest{Path: path, raw: data}
	if err := json.Unmarshal(data, m); err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", path, err)
	}
	if _, _, err := locateString(data, "version"); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return m, nil
}

// WithVersion returns the manifest bytes with only the version value replaced.
// changed is false when the manifest already carries version.
func (m *Manifest) WithVersion(version string) (out []byte, changed bool, err error) {
	return SetJSONString(m.raw, version, "version")
}

// Raw returns the bytes the manifest was parsed from.
func (m *Manifest) Raw() []byte {
	return m.raw
}

// SetJSONString replaces the string value found at path in a JSON object,
// leaving every other byte of the document untouched.
func SetJSONString(data []byte, value string, path ...string) ([]byte, bool, error) {
	start, end, err := locateString(data, path...)
	if err != nil {
		return nil, false, err
	}
	encoded, err := json.Marshal(value)
	if err != nil {
		return nil, false, err
	}
	if bytes.Equal(data[start:end], encoded) {
		return data, false, nil
	}
	out := make([]byte, 0, len(data)-(end-start)+len(encoded))
	out = append(out, data[:start]...)
	out = append(out, encoded...)
	out = append(out, data[end:]...)
	return out, true, nil
}

// HasJSONString reports whether path resolves to a string value in data.
func HasJSONString(data []byte, path ...string) bool {
	_, _, err := locateString(data, path...)
	return err == nil
}

// locateString returns the byte range of the quoted string value at path.
func locateString(data []byte, path ...string) (int, int, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	start, end, err := walkObject(dec, data, path)
	if err != nil {
		return 0, 0, err
	}
	return start, end, nil
}

func walkObject(dec *json.Decoder, data []byte, path []string) (int, int, error) {
	tok, err := dec.Token()
	if err != nil {
		return 0, 0, fmt.Errorf("invalid JSON: %w", err)
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return 0, 0, fmt.Errorf("expected a JSON object")
	}
	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return 0, 0, fmt.Errorf("invalid JSON: %w", err)
		}
		key, _ := keyTok.(string)
		if key != path[0] {
			var skip json.RawMessage
			if err := dec.Decode(&skip); err != nil {
				return 0, 0, fmt.Errorf("invalid JSON: %w", err)
			}
			continue
		}
		if len(path) > 1 {
			return walkObject(dec, data, path[1:])
		}
		keyEnd := int(dec.InputOffset())
		var s string
		if err := dec.Decode(&s); err != nil {
			return 0, 0, ErrVersionMissing
		}
		end := int(dec.InputOffset())
		quote := bytes.IndexByte(data[keyEnd:end], '"')
		if quote < 0 {
			return 0, 0, ErrVersionMissing
		}
		return keyEnd + quote, end, nil
	}
	return 0, 0, ErrVersionMissing
}
