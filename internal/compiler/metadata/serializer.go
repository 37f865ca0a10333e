package metadata

import (
	"bytes"
	"compress/gzip"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// Format is a manifest encoding.
type Format string

const (
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
)

// ParseFormat accepts json, yaml and yml.
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(s) {
	case "", "json":
		return FormatJSON, nil
	case "yaml", "yml":
		return FormatYAML, nil
	default:
		return "", fmt.Errorf("unknown manifest format %q (want json or yaml)", s)
	}
}

// FormatForPath guesses the format from a file name, ignoring a trailing .gz.
func FormatForPath(path string) Format {
	ext := filepath.Ext(strings.TrimSuffix(path, ".gz"))
	if ext == ".yaml" || ext == ".yml" {
		return FormatYAML
	}
	return FormatJSON
}

// Serialize encodes the manifest.
// The output is deterministic - same input will always produce the same output.
func Serialize(manifest *Manifest, format Format) ([]byte, error) {
	if manifest == nil {
		return nil, fmt.Errorf("manifest cannot be nil")
	}

	var data []byte
	var err error
	switch format {
	case FormatYAML:
		var buf bytes.Buffer
		enc := yaml.NewEncoder(&buf)
		enc.SetIndent(2)
		if err = enc.Encode(manifest); err == nil {
			err = enc.Close()
		}
		data = buf.Bytes()
	default:
		data, err = json.MarshalIndent(manifest, "", "  ")
		data = append(data, '\n')
	}
	if err != nil {
		return nil, fmt.Errorf("failed to serialize manifest: %w", err)
	}

	return data, nil
}

// Deserialize decodes a manifest.
func Deserialize(data []byte, format Format) (*Manifest, error) {
	if format == FormatYAML {
		return FromYAML(string(data))
	}
	return FromJSON(string(data))
}

// Compress compresses data using gzip compression.
// Uses best compression level for optimal size reduction.
func Compress(data []byte) ([]byte, error) {
	if data == nil {
		return nil, fmt.Errorf("data cannot be nil")
	}

	if len(data) == 0 {
		return []byte{}, nil
	}

	var buf bytes.Buffer

	writer, err := gzip.NewWriterLevel(&buf, gzip.BestCompression)
	if err != nil {
		return nil, fmt.Errorf("failed to create gzip writer: %w", err)
	}

	if _, err := writer.Write(data); err != nil {
		_ = writer.Close() // Ignore close error when write failed
		return nil, fmt.Errorf("failed to compress data: %w", err)
	}

	if err := writer.Close(); err != nil {
		return nil, fmt.Errorf("failed to close gzip writer: %w", err)
	}

	return buf.Bytes(), nil
}

// Decompress decompresses gzip-compressed data.
func Decompress(data []byte) ([]byte, error) {
	if data == nil {
		return nil, fmt.Errorf("data cannot be nil")
	}

	if len(data) == 0 {
		return []byte{}, nil
	}

	reader, err := gzip.NewReader(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("failed to create gzip reader: %w", err)
	}
	defer func() {
		_ = reader.Close() // Ignore close error - we already have the data
	}()

	decompressed, err := io.ReadAll(reader)
	if err != nil {
		return nil, fmt.Errorf("failed to decompress data: %w", err)
	}

	return decompressed, nil
}

// WriteToFile writes the manifest in the given format. A path ending in .gz
// is written gzip-compressed.
func WriteToFile(manifest *Manifest, outputPath string, format Format) error {
	if manifest == nil {
		return fmt.Errorf("manifest cannot be nil")
	}

	if outputPath == "" {
		return fmt.Errorf("output path cannot be empty")
	}

	data, err := Serialize(manifest, format)
	if err != nil {
		return err
	}

	if strings.HasSuffix(outputPath, ".gz") {
		if data, err = Compress(data); err != nil {
			return fmt.Errorf("failed to compress manifest: %w", err)
		}
	}

	dir := filepath.Dir(outputPath)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create directory %s: %w", dir, err)
	}

	if err := os.WriteFile(outputPath, data, 0o644); err != nil {
		return fmt.Errorf("failed to write manifest to %s: %w", outputPath, err)
	}

	return nil
}

// ReadFromFile reads a manifest written by WriteToFile. The format is taken
// from the file name.
func ReadFromFile(path string) (*Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read manifest %s: %w", path, err)
	}

	if strings.HasSuffix(path, ".gz") {
		if data, err = Decompress(data); err != nil {
			return nil, fmt.Errorf("failed to decompress manifest %s: %w", path, err)
		}
	}

	m, err := Deserialize(data, FormatForPath(path))
	if err != nil {
		return nil, fmt.Errorf("failed to parse manifest %s: %w", path, err)
	}
	return m, nil
}
