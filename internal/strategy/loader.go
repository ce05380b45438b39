package strategy

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"

	"github.com/invopop/jsonschema"
	"github.com/rxtech-lab/argo-backtest/pkg/errors"
	"gopkg.in/yaml.v3"
)

// Format is the encoding of a strategy file.
type Format string

const (
	FormatYAML Format = "yaml"
	FormatJSON Format = "json"
)

// FormatFromPath infers the format from a file extension. Anything but .json is YAML.
func FormatFromPath(path string) Format {
	if strings.EqualFold(filepath.Ext(path), ".json") {
		return FormatJSON
	}

	return FormatYAML
}

// Load parses and validates a strategy. Unknown fields are rejected.
func Load(data []byte, format Format) (Definition, error) {
	var doc Document

	switch format {
	case FormatJSON:
		decoder := json.NewDecoder(bytes.NewReader(data))
		decoder.DisallowUnknownFields()

		if err := decoder.Decode(&doc); err != nil {
			return Definition{}, errors.Wrap(errors.ErrCodeInvalidStrategy, "failed to parse strategy json", err)
		}
	case FormatYAML:
		decoder := yaml.NewDecoder(bytes.NewReader(data))
		decoder.KnownFields(true)

		if err := decoder.Decode(&doc); err != nil {
			return Definition{}, errors.Wrap(errors.ErrCodeInvalidStrategy, "failed to parse strategy yaml", err)
		}
	default:
		return Definition{}, errors.Newf(errors.ErrCodeInvalidParameter, "unsupported strategy format %q", format)
	}

	return New(doc)
}

// LoadFile reads and validates a strategy file.
func LoadFile(path string) (Definition, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Definition{}, errors.Wrapf(errors.ErrCodeInvalidStrategy, err, "failed to read strategy file %s", path)
	}

	return Load(data, FormatFromPath(path))
}

// Schema returns the JSON schema of the strategy file format.
func Schema() (string, error) {
	r := new(jsonschema.Reflector)
	r.DoNotReference = true
	r.FieldNameTag = "yaml"
	schema := r.Reflect(&Document{})

	jsonSchemaBytes, err := json.Marshal(schema)
	if err != nil {
		return "", err
	}

	return string(jsonSchemaBytes), nil
}
