// Package descriptor handles the dataset-metadata.json record the publish
// target requires next to every uploaded snapshot.
package descriptor

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-playground/validator/v10"

	"xau-data/internal/faults"
)

// FileName is the descriptor file name expected by the publish target.
const FileName = "dataset-metadata.json"

// DefaultLicense is used when synthesizing a descriptor from scratch.
const DefaultLicense = "CC0-1.0"

type License struct {
	Name string `json:"name" validate:"required"`
}

// Descriptor identifies and licenses a published dataset. ID is the target
// collection in owner/slug form and must match the configured collection.
type Descriptor struct {
	Title    string    `json:"title" validate:"required"`
	ID       string    `json:"id" validate:"required"`
	Licenses []License `json:"licenses" validate:"required,min=1,dive"`
}

var validate = validator.New()

// Validate checks required fields and the owner/slug shape of ID. A failure
// is a precondition error: the publisher refuses to start, nothing retries.
func (d Descriptor) Validate() error {
	if err := validate.Struct(d); err != nil {
		return faults.Preconditionf("descriptor invalid: %v", err)
	}
	owner, slug, ok := strings.Cut(d.ID, "/")
	if !ok || owner == "" || slug == "" {
		return faults.Preconditionf("descriptor id %q is not owner/slug", d.ID)
	}
	return nil
}

// Load reads the descriptor from dir. A missing file yields os.ErrNotExist
// via the wrapped error.
func Load(dir string) (Descriptor, error) {
	var d Descriptor
	data, err := os.ReadFile(filepath.Join(dir, FileName))
	if err != nil {
		return d, fmt.Errorf("read descriptor: %w", err)
	}
	if err := json.Unmarshal(data, &d); err != nil {
		return d, fmt.Errorf("decode descriptor: %w", err)
	}
	return d, nil
}

// Write stores the descriptor into dir.
func Write(dir string, d Descriptor) error {
	data, err := json.MarshalIndent(d, "", "    ")
	if err != nil {
		return fmt.Errorf("encode descriptor: %w", err)
	}
	if err := os.WriteFile(filepath.Join(dir, FileName), data, 0644); err != nil {
		return fmt.Errorf("write descriptor: %w", err)
	}
	return nil
}

// Ensure places a valid descriptor for slug into destDir: the one from
// srcDir when present (with the id forced to slug), otherwise a synthesized
// default with title and the default license.
func Ensure(srcDir, destDir, slug, title string) (Descriptor, error) {
	d, err := Load(srcDir)
	if err != nil {
		d = Descriptor{
			Title:    title,
			ID:       slug,
			Licenses: []License{{Name: DefaultLicense}},
		}
	}
	if d.ID != slug {
		d.ID = slug
	}
	if err := d.Validate(); err != nil {
		return d, err
	}
	if err := Write(destDir, d); err != nil {
		return d, err
	}
	return d, nil
}
