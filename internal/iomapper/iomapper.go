// Package iomapper reads mapping rules of harvested sources from a YAML
// file.
package iomapper

import (
	"fmt"
	"log/slog"
	"os"
	"slices"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/gnames/irts/pkg/field"
	"github.com/gnames/irts/pkg/mapper"
)

type sourceRules struct {
	Fields          []mapper.FieldRule      `yaml:"fields"`
	Transformations []mapper.Transformation `yaml:"transformations"`
	Paths           []mapper.PathRule       `yaml:"paths"`
}

type mappingsFile struct {
	Sources map[string]sourceRules `yaml:"sources"`
}

var transformTypes = []string{
	mapper.Replace, mapper.Regex, mapper.Uppercase, mapper.Lowercase,
	mapper.Strip, mapper.Prefix, mapper.Suffix,
}

// Load reads rules from a mappings file.
func Load(path string) (mapper.Rules, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return mapper.Rules{}, ReadError(path, err)
	}
	res, err := Parse(data)
	if err != nil {
		return mapper.Rules{}, ParseError(path, err)
	}
	slog.Info("Mappings loaded", "path", path,
		"fields", len(res.Fields),
		"transformations", len(res.Transformations),
		"paths", len(res.Paths),
	)
	return res, nil
}

// Parse converts YAML content to rules. Source names of the rules are
// taken from their section. Sources are processed in alphabetical order.
func Parse(data []byte) (mapper.Rules, error) {
	var mf mappingsFile
	var res mapper.Rules
	if err := yaml.Unmarshal(data, &mf); err != nil {
		return res, err
	}

	sources := make([]string, 0, len(mf.Sources))
	for k := range mf.Sources {
		sources = append(sources, k)
	}
	slices.Sort(sources)

	for _, src := range sources {
		sr := mf.Sources[src]
		for _, v := range sr.Fields {
			if v.SourceField == "" {
				return res, fmt.Errorf("%s: field rule without source_field", src)
			}
			if _, err := field.Parse(string(v.Field)); err != nil {
				return res, fmt.Errorf("%s: %w", src, err)
			}
			v.Source = src
			res.Fields = append(res.Fields, v)
		}

		for _, v := range sr.Transformations {
			if _, err := field.Parse(string(v.Field)); err != nil {
				return res, fmt.Errorf("%s: %w", src, err)
			}
			v.Type = strings.ToLower(strings.TrimSpace(v.Type))
			if !slices.Contains(transformTypes, v.Type) {
				return res, fmt.Errorf("%s: unknown transformation type %q",
					src, v.Type)
			}
			v.Source = src
			res.Transformations = append(res.Transformations, v)
		}

		for _, v := range sr.Paths {
			if err := checkPath(v); err != nil {
				return res, fmt.Errorf("%s: %w", src, err)
			}
			v.Source = src
			res.Paths = append(res.Paths, v)
		}
	}
	return res, nil
}

func checkPath(r mapper.PathRule) error {
	if strings.TrimSpace(r.Path) == "" {
		return fmt.Errorf("path rule of %q without path", r.Field)
	}
	if _, err := field.Parse(string(r.Field)); err != nil {
		return err
	}
	switch r.Format {
	case "", mapper.FormatJoin, mapper.FormatDateParts:
	default:
		return fmt.Errorf("unknown format %q of path %q", r.Format, r.Path)
	}
	for _, v := range r.Children {
		if err := checkPath(v); err != nil {
			return err
		}
	}
	return nil
}
