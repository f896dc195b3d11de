package kb

import (
	_ "embed"
	"fmt"
	"os"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

//go:embed seed/knowledge_base.yaml
var defaultSeed []byte

var validate = validator.New()

// Document is one knowledge-base entry. Text is what gets embedded; Answer is
// what the customer receives when the entry matches.
type Document struct {
	ID       string `json:"id" yaml:"id" validate:"required"`
	Text     string `json:"text" yaml:"text" validate:"required"`
	Category string `json:"category,omitempty" yaml:"category"`
	Answer   string `json:"answer" yaml:"answer" validate:"required"`
}

type seedFile struct {
	Documents []Document `yaml:"documents"`
}

// DefaultDocuments returns the built-in FAQ seed.
func DefaultDocuments() ([]Document, error) {
	return ParseDocuments(defaultSeed)
}

// LoadDocuments reads a YAML seed file from disk.
func LoadDocuments(path string) ([]Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read knowledge base file: %w", err)
	}
	return ParseDocuments(data)
}

// ParseDocuments decodes and validates a YAML seed. Duplicate IDs are rejected.
func ParseDocuments(data []byte) ([]Document, error) {
	var f seedFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("invalid knowledge base yaml: %w", err)
	}

	seen := make(map[string]struct{}, len(f.Documents))
	for i, doc := range f.Documents {
		if err := ValidateDocument(doc); err != nil {
			return nil, fmt.Errorf("document %d: %w", i, err)
		}
		if _, dup := seen[doc.ID]; dup {
			return nil, fmt.Errorf("duplicate document id %q", doc.ID)
		}
		seen[doc.ID] = struct{}{}
	}
	return f.Documents, nil
}

func ValidateDocument(doc Document) error {
	return validate.Struct(doc)
}
