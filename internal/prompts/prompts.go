package prompts

import (
	"bytes"
	"embed"
	"errors"
	"fmt"
	"os"
	"strings"
	"sync"
	"text/template"

	"gopkg.in/yaml.v3"

	"github.com/yungbote/studybuddy-backend/internal/platform/logger"
)

const promptsPathEnv = "PROMPTS_YAML"

//go:embed prompts.yaml
var promptsFS embed.FS

const (
	Roadmap        = "roadmap"
	Details        = "details"
	SubDetails     = "sub_details"
	Quiz           = "quiz"
	QuizSupplement = "quiz_supplement"
	AnalyzeAnswers = "analyze_answers"
	Chat           = "chat"
	Summary        = "summary"
)

var required = []string{Roadmap, Details, SubDetails, Quiz, QuizSupplement, AnalyzeAnswers, Chat, Summary}

type yamlCatalogue struct {
	Catalogue string       `yaml:"catalogue"`
	Version   int          `yaml:"version"`
	Prompts   []yamlPrompt `yaml:"prompts"`
}

type yamlPrompt struct {
	Name     string `yaml:"name"`
	Template string `yaml:"template"`
}

type Catalogue struct {
	version   int
	templates map[string]*template.Template
}

var (
	defaultOnce sync.Once
	defaultCat  *Catalogue
	defaultErr  error
)

// Default loads the catalogue once per process, from PROMPTS_YAML when set.
func Default(log *logger.Logger) (*Catalogue, error) {
	defaultOnce.Do(func() {
		data, err := readCatalogue()
		if err != nil {
			defaultErr = err
			return
		}
		defaultCat, defaultErr = Parse(data)
	})
	if defaultErr != nil && log != nil {
		log.Error("prompts: catalogue load failed", "error", defaultErr)
	}
	return defaultCat, defaultErr
}

func readCatalogue() ([]byte, error) {
	if path := strings.TrimSpace(os.Getenv(promptsPathEnv)); path != "" {
		return os.ReadFile(path)
	}
	return promptsFS.ReadFile("prompts.yaml")
}

// Parse compiles a YAML catalogue. Every prompt the services render must be
// present.
func Parse(data []byte) (*Catalogue, error) {
	var spec yamlCatalogue
	if err := yaml.Unmarshal(data, &spec); err != nil {
		return nil, fmt.Errorf("prompts: decode yaml: %w", err)
	}
	if len(spec.Prompts) == 0 {
		return nil, errors.New("prompts: no prompts defined")
	}
	cat := &Catalogue{version: spec.Version, templates: make(map[string]*template.Template, len(spec.Prompts))}
	for _, p := range spec.Prompts {
		name := strings.TrimSpace(p.Name)
		if name == "" {
			return nil, errors.New("prompts: prompt name is required")
		}
		if _, dup := cat.templates[name]; dup {
			return nil, fmt.Errorf("prompts: duplicate prompt %s", name)
		}
		if strings.TrimSpace(p.Template) == "" {
			return nil, fmt.Errorf("prompts: %s: empty template", name)
		}
		tmpl, err := template.New(name).Option("missingkey=error").Parse(p.Template)
		if err != nil {
			return nil, fmt.Errorf("prompts: %s: %w", name, err)
		}
		cat.templates[name] = tmpl
	}
	for _, name := range required {
		if _, ok := cat.templates[name]; !ok {
			return nil, fmt.Errorf("prompts: missing prompt %s", name)
		}
	}
	return cat, nil
}

func (c *Catalogue) Version() int { return c.version }

// Render executes the named prompt against data and trims the result.
func (c *Catalogue) Render(name string, data any) (string, error) {
	tmpl, ok := c.templates[name]
	if !ok {
		return "", fmt.Errorf("prompts: unknown prompt %s", name)
	}
	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("prompts: render %s: %w", name, err)
	}
	return strings.TrimSpace(buf.String()), nil
}
