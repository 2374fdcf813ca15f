package registry

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// Format selects the output serialization for Export.
type Format string

const (
	FormatYAML Format = "yaml"
	FormatJSON Format = "json"
)

// ExportOptions configures record export behavior.
type ExportOptions struct {
	Format      Format
	PrettyPrint bool
	AddComments bool
}

func DefaultExportOptions() ExportOptions {
	return ExportOptions{Format: FormatYAML, PrettyPrint: true, AddComments: true}
}

// ImportOptions configures record import behavior.
type ImportOptions struct {
	// MigrateSchema upgrades an older schema_version to SchemaVersion on load.
	MigrateSchema bool
}

func DefaultImportOptions() ImportOptions {
	return ImportOptions{MigrateSchema: true}
}

// Export serializes rec to the requested format, stamping SchemaVersion and
// UpdatedAt if unset.
func Export(rec *Record, opts ExportOptions) ([]byte, error) {
	if rec == nil {
		return nil, fmt.Errorf("registry: cannot export nil record")
	}

	out := *rec
	if out.SchemaVersion == "" {
		out.SchemaVersion = SchemaVersion
	}
	if out.UpdatedAt.IsZero() {
		out.UpdatedAt = time.Now()
	}

	switch opts.Format {
	case FormatJSON:
		return exportJSON(&out, opts)
	case FormatYAML, "":
		return exportYAML(&out, opts)
	default:
		return nil, fmt.Errorf("registry: unsupported export format %q", opts.Format)
	}
}

func exportYAML(rec *Record, opts ExportOptions) ([]byte, error) {
	var buf bytes.Buffer
	if opts.AddComments {
		buf.WriteString(fmt.Sprintf("# strategy record: %s\n", rec.ID))
		buf.WriteString(fmt.Sprintf("# schema version: %s\n\n", rec.SchemaVersion))
	}
	enc := yaml.NewEncoder(&buf)
	if opts.PrettyPrint {
		enc.SetIndent(2)
	}
	if err := enc.Encode(rec); err != nil {
		return nil, fmt.Errorf("registry: encode yaml: %w", err)
	}
	if err := enc.Close(); err != nil {
		return nil, fmt.Errorf("registry: close yaml encoder: %w", err)
	}
	return buf.Bytes(), nil
}

func exportJSON(rec *Record, opts ExportOptions) ([]byte, error) {
	if opts.PrettyPrint {
		return json.MarshalIndent(rec, "", "  ")
	}
	return json.Marshal(rec)
}

// ExportToFile writes rec to path, inferring format from the extension when
// opts.Format is unset.
func ExportToFile(rec *Record, path string, opts ExportOptions) error {
	if opts.Format == "" {
		switch filepath.Ext(path) {
		case ".json":
			opts.Format = FormatJSON
		default:
			opts.Format = FormatYAML
		}
	}
	data, err := Export(rec, opts)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0750); err != nil {
		return fmt.Errorf("registry: create directory: %w", err)
	}
	return os.WriteFile(path, data, 0600)
}

// Import deserializes a record from data, sniffing JSON vs YAML by the
// first non-whitespace byte, then validates and optionally migrates it.
func Import(data []byte, opts ImportOptions) (*Record, error) {
	if len(data) == 0 {
		return nil, fmt.Errorf("registry: empty record data")
	}

	var rec Record
	trimmed := bytes.TrimSpace(data)
	var err error
	if len(trimmed) > 0 && trimmed[0] == '{' {
		err = json.Unmarshal(data, &rec)
	} else {
		err = yaml.Unmarshal(data, &rec)
	}
	if err != nil {
		return nil, fmt.Errorf("registry: parse record: %w", err)
	}

	if opts.MigrateSchema {
		if err := MigrateToLatest(&rec); err != nil {
			return nil, err
		}
	}
	if err := rec.Validate(); err != nil {
		return nil, err
	}

	return &rec, nil
}

// ImportFromFile reads and imports a record from path.
func ImportFromFile(path string, opts ImportOptions) (*Record, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("registry: read record file: %w", err)
	}
	return Import(data, opts)
}
