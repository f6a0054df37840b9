// Copyright (C) 2025 Ariel Frischer
// SPDX-License-Identifier: AGPL-3.0-or-later

package bulk

import (
	"bufio"
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/adrg/frontmatter"
	"gopkg.in/yaml.v3"

	"github.com/bulkctl/bulkctl/internal/domain"
)

// MaxExplicitIDs caps how many ids one request file may list
const MaxExplicitIDs = 10000

// Format is the encoding of a request file
type Format string

const (
	FormatJSON     Format = "json"
	FormatYAML     Format = "yaml"
	FormatMarkdown Format = "markdown"
	FormatIDList   Format = "ids"
)

// Request is a bulk action described in a file. Either IDs is set, or All is true
// and Filter (minus Exclude) selects the items.
type Request struct {
	Action  string        `json:"action" yaml:"action"`
	IDs     []string      `json:"ids,omitempty" yaml:"ids,omitempty"`
	All     bool          `json:"all,omitempty" yaml:"all,omitempty"`
	Filter  domain.Filter `json:"filter,omitempty" yaml:"filter,omitempty"`
	Exclude []string      `json:"exclude,omitempty" yaml:"exclude,omitempty"`
}

// DetectFormat picks a format from the file extension
func DetectFormat(path string) Format {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		return FormatJSON
	case ".yaml", ".yml":
		return FormatYAML
	case ".md", ".markdown":
		return FormatMarkdown
	default:
		return FormatIDList
	}
}

// LoadRequest reads and validates a request file
func LoadRequest(path string) (*Request, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open request file: %w", err)
	}
	defer func() { _ = file.Close() }()

	req, err := ParseRequest(file, DetectFormat(path))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return req, nil
}

// ParseRequest decodes r in the given format and validates the result
func ParseRequest(r io.Reader, format Format) (*Request, error) {
	var req Request

	switch format {
	case FormatJSON:
		dec := json.NewDecoder(r)
		dec.DisallowUnknownFields()
		if err := dec.Decode(&req); err != nil {
			return nil, fmt.Errorf("failed to parse JSON: %w", err)
		}
	case FormatYAML:
		dec := yaml.NewDecoder(r)
		dec.KnownFields(true)
		if err := dec.Decode(&req); err != nil && err != io.EOF {
			return nil, fmt.Errorf("failed to parse YAML: %w", err)
		}
	case FormatMarkdown:
		rest, err := frontmatter.Parse(r, &req)
		if err != nil {
			return nil, fmt.Errorf("failed to parse frontmatter: %w", err)
		}
		// list items in the body add to the ids from the frontmatter
		bodyIDs, err := ReadIDs(bytes.NewReader(rest))
		if err != nil {
			return nil, err
		}
		req.IDs = append(req.IDs, bodyIDs...)
	case FormatIDList:
		ids, err := ReadIDs(r)
		if err != nil {
			return nil, err
		}
		req.IDs = ids
	default:
		return nil, fmt.Errorf("unsupported request format %q", format)
	}

	if err := req.Validate(format == FormatIDList); err != nil {
		return nil, err
	}
	return &req, nil
}

// ReadIDs reads one id per line. Blank lines, "#" comments and markdown list
// markers are skipped.
func ReadIDs(r io.Reader) ([]string, error) {
	var ids []string
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		if item, ok := strings.CutPrefix(line, "- "); ok {
			line = strings.TrimSpace(item)
		} else if item, ok := strings.CutPrefix(line, "* "); ok {
			line = strings.TrimSpace(item)
		} else if strings.ContainsAny(line, " \t") {
			// prose in a markdown body
			continue
		}
		if line != "" {
			ids = append(ids, line)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read ids: %w", err)
	}
	return ids, nil
}

// Validate checks the request is well formed. An id-list file carries no action,
// so actionOptional lets the caller supply it separately.
func (r *Request) Validate(actionOptional bool) error {
	var problems []string

	if r.Action == "" {
		if !actionOptional {
			problems = append(problems, "action is required")
		}
	} else if err := domain.Action(r.Action).Validate(); err != nil {
		problems = append(problems, err.Error())
	}

	switch {
	case r.All && len(r.IDs) > 0:
		problems = append(problems, "ids and all are mutually exclusive")
	case !r.All && len(r.IDs) == 0:
		problems = append(problems, "either ids or all: true is required")
	case !r.All && len(r.Exclude) > 0:
		problems = append(problems, "exclude is only valid with all: true")
	case !r.All && r.Filter != (domain.Filter{}):
		problems = append(problems, "filter is only valid with all: true")
	}

	if len(r.IDs) > MaxExplicitIDs {
		problems = append(problems, fmt.Sprintf("too many ids: %d (maximum %d)", len(r.IDs), MaxExplicitIDs))
	}
	if err := r.Filter.Validate(); err != nil {
		problems = append(problems, err.Error())
	}

	if len(problems) > 0 {
		return fmt.Errorf("invalid bulk request: %s", strings.Join(problems, "; "))
	}
	return nil
}

// Selection converts the request into a selection
func (r *Request) Selection() domain.Selection {
	if r.All {
		return domain.AllMatchingSelection(r.Filter, r.Exclude...)
	}
	return domain.ExplicitSelection(r.IDs...)
}
