package config

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// Format identifies the serialization of a configuration document.
type Format string

const (
	FormatYAML Format = "yaml"
	FormatJSON Format = "json"
)

// FormatFor picks a format from the file extension. Anything that is not .json is
// read as YAML.
func FormatFor(path string) Format {
	if strings.EqualFold(filepath.Ext(path), ".json") {
		return FormatJSON
	}
	return FormatYAML
}

// Load reads, validates and decodes the configuration file at path. Relative paths
// inside the file resolve against its directory.
func Load(path string) (*File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: read %s: %w", path, err)
	}
	file, err := Parse(data, FormatFor(path))
	if err != nil {
		return nil, fmt.Errorf("config: %s: %w", path, err)
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("config: resolve %s: %w", path, err)
	}
	file.Source = path
	file.BaseDir = filepath.Dir(abs)
	return file, nil
}

// Parse validates data against the schema and decodes it.
func Parse(data []byte, format Format) (*File, error) {
	document, err := decodeDocument(data, format)
	if err != nil {
		return nil, err
	}
	if err := Validate(document); err != nil {
		return nil, err
	}

	var file File
	switch format {
	case FormatJSON:
		decoder := json.NewDecoder(bytes.NewReader(data))
		decoder.DisallowUnknownFields()
		if err := decoder.Decode(&file); err != nil {
			return nil, fmt.Errorf("decode json: %w", err)
		}
	default:
		decoder := yaml.NewDecoder(bytes.NewReader(data))
		decoder.KnownFields(true)
		if err := decoder.Decode(&file); err != nil {
			return nil, fmt.Errorf("decode yaml: %w", err)
		}
	}
	if file.Version == 0 {
		file.Version = 1
	}
	return &file, nil
}

func decodeDocument(data []byte, format Format) (any, error) {
	var document any
	switch format {
	case FormatJSON:
		if err := json.Unmarshal(data, &document); err != nil {
			return nil, fmt.Errorf("parse json: %w", err)
		}
	default:
		if err := yaml.Unmarshal(data, &document); err != nil {
			return nil, fmt.Errorf("parse yaml: %w", err)
		}
	}
	if document == nil {
		return nil, errors.New("configuration is empty")
	}
	return document, nil
}

// Write encodes file as YAML.
func Write(w io.Writer, file *File) error {
	encoder := yaml.NewEncoder(w)
	encoder.SetIndent(2)
	if err := encoder.Encode(file); err != nil {
		return fmt.Errorf("config: encode yaml: %w", err)
	}
	return encoder.Close()
}
