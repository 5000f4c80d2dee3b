package discovery

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"navcheck/internal/browser"
	"navcheck/internal/domain"
)

// caseSpec is one case as written in a case file
type caseSpec struct {
	Name            string `yaml:"name"`
	TargetURL       string `yaml:"target_url"`
	ExpectedURL     string `yaml:"expected_url"`
	ExpectedContent string `yaml:"expected_content"`
	WaitUntil       string `yaml:"wait_until"`
	ContentTimeout  string `yaml:"content_timeout"`
}

// caseFile holds either a single case or a list of cases. With a list, the
// top-level wait_until and content_timeout apply to every case that does
// not set its own.
type caseFile struct {
	caseSpec `yaml:",inline"`
	Cases    []caseSpec `yaml:"cases"`
}

// Parser reads navigation cases from case files
type Parser struct{}

// NewParser creates a new Parser
func NewParser() *Parser {
	return &Parser{}
}

// ParseFile reads and validates every case in a case file
func (p *Parser) ParseFile(filePath string) ([]domain.NavigationCase, error) {
	content, err := os.ReadFile(filePath)
	if err != nil {
		return nil, fmt.Errorf("error reading file %s: %w", filePath, err)
	}

	cases, err := p.Parse(filePath, content)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", filePath, err)
	}
	return cases, nil
}

// ParseFiles parses every file and reports all broken files at once
func (p *Parser) ParseFiles(paths []string) ([]domain.NavigationCase, error) {
	var (
		cases []domain.NavigationCase
		errs  []error
	)
	for _, path := range paths {
		fileCases, err := p.ParseFile(path)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		cases = append(cases, fileCases...)
	}
	return cases, errors.Join(errs...)
}

// Parse decodes case file content; filePath names the cases and is recorded
// on each of them.
func (p *Parser) Parse(filePath string, content []byte) ([]domain.NavigationCase, error) {
	var file caseFile
	dec := yaml.NewDecoder(bytes.NewReader(content))
	dec.KnownFields(true)
	if err := dec.Decode(&file); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("no cases defined")
		}
		return nil, fmt.Errorf("invalid case file: %w", err)
	}

	specs := file.Cases
	if len(specs) == 0 {
		if file.TargetURL == "" {
			return nil, fmt.Errorf("no cases defined")
		}
		specs = []caseSpec{file.caseSpec}
	} else if file.Name != "" || file.TargetURL != "" || file.ExpectedURL != "" || file.ExpectedContent != "" {
		return nil, fmt.Errorf("a file with a cases list may only set wait_until and content_timeout at the top level")
	}

	cases := make([]domain.NavigationCase, 0, len(specs))
	seen := make(map[string]bool, len(specs))
	for i, spec := range specs {
		if spec.WaitUntil == "" {
			spec.WaitUntil = file.WaitUntil
		}
		if spec.ContentTimeout == "" {
			spec.ContentTimeout = file.ContentTimeout
		}
		if spec.Name == "" {
			spec.Name = baseName(filePath)
			if len(file.Cases) > 0 {
				spec.Name = fmt.Sprintf("%s#%d", spec.Name, i+1)
			}
		}

		c, err := spec.toCase(filePath)
		if err != nil {
			return nil, err
		}
		if seen[c.Name] {
			return nil, fmt.Errorf("duplicate case name %q", c.Name)
		}
		seen[c.Name] = true
		cases = append(cases, c)
	}

	return cases, nil
}

func (s caseSpec) toCase(filePath string) (domain.NavigationCase, error) {
	c := domain.NavigationCase{
		Name:            s.Name,
		File:            filePath,
		TargetURL:       s.TargetURL,
		ExpectedURL:     s.ExpectedURL,
		ExpectedContent: s.ExpectedContent,
		WaitUntil:       s.WaitUntil,
	}
	// A case without expected_url only asserts that navigation does not redirect.
	if c.ExpectedURL == "" {
		c.ExpectedURL = c.TargetURL
	}

	if s.ContentTimeout != "" {
		d, err := time.ParseDuration(s.ContentTimeout)
		if err != nil {
			return c, fmt.Errorf("case %q: invalid content_timeout: %w", s.Name, err)
		}
		c.ContentTimeout = d
	}

	if err := c.Validate(); err != nil {
		return c, err
	}
	if c.WaitUntil != "" {
		if _, err := browser.ParseReadiness(c.WaitUntil); err != nil {
			return c, fmt.Errorf("case %q: wait_until: %w", c.Name, err)
		}
	}
	return c, nil
}
