package config

import (
	"errors"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

// Profile holds reader settings per schema. Lookups for schemas without an
// entry return Defaults.
//
// A profile file looks like:
//
//	defaults:
//	  trim: true
//	schemas:
//	  price_book:
//	    separator: ";"
//	    list_separator: "|"
type Profile struct {
	Defaults CSVConfig
	Schemas  map[string]CSVConfig
}

// For returns the effective settings for a schema key.
func (p *Profile) For(schema string) CSVConfig {
	if p == nil {
		return CSVConfig{}
	}
	if c, ok := p.Schemas[schema]; ok {
		return c
	}
	return p.Defaults
}

// csvOverride mirrors CSVConfig with optional fields so a profile only
// overrides what it names.
type csvOverride struct {
	Separator      *string `yaml:"separator"`
	Quote          *string `yaml:"quote"`
	Escape         *string `yaml:"escape"`
	ListSeparator  *string `yaml:"list_separator"`
	Trim           *bool   `yaml:"trim"`
	SkipEmptyLines *bool   `yaml:"skip_empty_lines"`
	EmptyAsNull    *bool   `yaml:"empty_as_null"`
	StrictColumns  *bool   `yaml:"strict_columns"`
	Charset        *string `yaml:"charset"`
}

type profileFile struct {
	Defaults csvOverride            `yaml:"defaults"`
	Schemas  map[string]csvOverride `yaml:"schemas"`
}

func (o csvOverride) apply(c CSVConfig) CSVConfig {
	setString := func(dst *string, src *string) {
		if src != nil {
			*dst = *src
		}
	}
	setBool := func(dst *bool, src *bool) {
		if src != nil {
			*dst = *src
		}
	}
	setString(&c.Separator, o.Separator)
	setString(&c.Quote, o.Quote)
	setString(&c.Escape, o.Escape)
	setString(&c.ListSeparator, o.ListSeparator)
	setBool(&c.Trim, o.Trim)
	setBool(&c.SkipEmptyLines, o.SkipEmptyLines)
	setBool(&c.EmptyAsNull, o.EmptyAsNull)
	setBool(&c.StrictColumns, o.StrictColumns)
	setString(&c.Charset, o.Charset)
	return c
}

// LoadProfile reads a YAML profile layered over base.
func LoadProfile(path string, base CSVConfig) (*Profile, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open profile: %w", err)
	}
	defer f.Close()

	p, err := ParseProfile(f, base)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return p, nil
}

// ParseProfile decodes a YAML profile layered over base. Unknown keys are
// rejected and every resulting schema entry is validated.
func ParseProfile(r io.Reader, base CSVConfig) (*Profile, error) {
	var file profileFile
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&file); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("decode profile: %w", err)
	}

	p := &Profile{
		Defaults: file.Defaults.apply(base),
		Schemas:  make(map[string]CSVConfig, len(file.Schemas)),
	}

	var errs []string
	errs = append(errs, p.Defaults.problems("defaults.")...)

	keys := make([]string, 0, len(file.Schemas))
	for k := range file.Schemas {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		c := file.Schemas[k].apply(p.Defaults)
		p.Schemas[k] = c
		errs = append(errs, c.problems("schemas."+k+".")...)
	}

	if len(errs) > 0 {
		return nil, fmt.Errorf("validation failed:\n  - %s", strings.Join(errs, "\n  - "))
	}
	return p, nil
}
