// Package seed loads faculty and major reference data from YAML.
package seed

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

type Catalog struct {
	Faculties []Faculty `yaml:"faculties"`
}

type Faculty struct {
	Name   string   `yaml:"name"`
	Majors []string `yaml:"majors"`
}

type Result struct {
	Faculties int `json:"faculties"`
	Majors    int `json:"majors"`
}

// Writer is satisfied by the repository store, usually a transaction.
type Writer interface {
	UpsertFaculty(ctx context.Context, name string) (int64, error)
	UpsertMajor(ctx context.Context, facultyID int64, name string) (int64, error)
}

func Load(path string) (Catalog, error) {
	f, err := os.Open(path)
	if err != nil {
		return Catalog{}, err
	}
	defer f.Close()
	return Parse(f)
}

func Parse(r io.Reader) (Catalog, error) {
	var c Catalog
	decoder := yaml.NewDecoder(r)
	decoder.KnownFields(true)
	if err := decoder.Decode(&c); err != nil {
		if err == io.EOF {
			return Catalog{}, fmt.Errorf("seed file is empty")
		}
		return Catalog{}, err
	}
	return c, c.Validate()
}

// Validate trims names and rejects blanks and duplicates.
func (c *Catalog) Validate() error {
	seen := make(map[string]bool, len(c.Faculties))
	for i := range c.Faculties {
		f := &c.Faculties[i]
		f.Name = strings.TrimSpace(f.Name)
		if f.Name == "" {
			return fmt.Errorf("faculty %d has no name", i+1)
		}
		if seen[strings.ToLower(f.Name)] {
			return fmt.Errorf("faculty %q listed twice", f.Name)
		}
		seen[strings.ToLower(f.Name)] = true

		majors := make(map[string]bool, len(f.Majors))
		for j, major := range f.Majors {
			major = strings.TrimSpace(major)
			if major == "" {
				return fmt.Errorf("faculty %q: major %d has no name", f.Name, j+1)
			}
			if majors[strings.ToLower(major)] {
				return fmt.Errorf("faculty %q: major %q listed twice", f.Name, major)
			}
			majors[strings.ToLower(major)] = true
			f.Majors[j] = major
		}
	}
	return nil
}

// Apply upserts every faculty and major. Running it again with the same
// catalog changes nothing.
func Apply(ctx context.Context, w Writer, c Catalog) (Result, error) {
	var res Result
	for _, f := range c.Faculties {
		facultyID, err := w.UpsertFaculty(ctx, f.Name)
		if err != nil {
			return res, fmt.Errorf("faculty %q: %w", f.Name, err)
		}
		res.Faculties++
		for _, major := range f.Majors {
			if _, err := w.UpsertMajor(ctx, facultyID, major); err != nil {
				return res, fmt.Errorf("faculty %q major %q: %w", f.Name, major, err)
			}
			res.Majors++
		}
	}
	return res, nil
}
