// Package catalog loads the traffic-sign and quiz-question catalogs.
//
// Catalogs are written in CUE. The schema (schema.cue) constrains the shape
// of every sign and question; the embedded catalog.cue supplies the default
// data. A deployment can replace the data with its own CUE file, which is
// unified with the same schema before decoding.
package catalog

import (
	_ "embed"
	"fmt"
	"os"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"cuelang.org/go/cue/errors"
)

//go:embed schema.cue
var schemaCUE []byte

//go:embed catalog.cue
var defaultCUE []byte

// Sign is one traffic sign. Each sign produces a pair of cards: the sign
// image and its label.
type Sign struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Image string `json:"image"`
}

// Media references the clips played after a question is answered.
type Media struct {
	Correct   string `json:"correct"`
	Incorrect string `json:"incorrect"`
}

// Question is one two-option quiz question.
type Question struct {
	ID           string    `json:"id"`
	Prompt       string    `json:"prompt"`
	Options      [2]string `json:"options"`
	CorrectIndex int       `json:"correct_index"`
	Media        *Media    `json:"media,omitempty"`
}

// HasMedia reports whether answering this question opens the media gate.
func (q Question) HasMedia() bool {
	return q.Media != nil
}

// Clip returns the clip to play for an answer outcome.
func (q Question) Clip(correct bool) string {
	if q.Media == nil {
		return ""
	}
	if correct {
		return q.Media.Correct
	}
	return q.Media.Incorrect
}

// Catalog holds the ordered sign and question lists.
type Catalog struct {
	Signs     []Sign     `json:"signs"`
	Questions []Question `json:"questions"`
}

// ValidationError reports a catalog that decoded but is unusable.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("catalog %s: %s", e.Field, e.Message)
}

type rawQuestion struct {
	ID           string   `json:"id"`
	Prompt       string   `json:"prompt"`
	Options      []string `json:"options"`
	CorrectIndex int      `json:"correctIndex"`
	Media        *Media   `json:"media,omitempty"`
}

type rawCatalog struct {
	Signs     []Sign        `json:"signs"`
	Questions []rawQuestion `json:"questions"`
}

// Default returns the embedded catalog.
func Default() (*Catalog, error) {
	return Parse(defaultCUE, "catalog.cue")
}

// LoadFile loads a catalog from a CUE file on disk.
func LoadFile(path string) (*Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read catalog: %w", err)
	}
	return Parse(data, path)
}

// Parse compiles CUE source, unifies it with the catalog schema and decodes
// the result. filename is only used in error positions.
func Parse(src []byte, filename string) (*Catalog, error) {
	ctx := cuecontext.New()

	schema := ctx.CompileBytes(schemaCUE, cue.Filename("schema.cue"))
	if err := schema.Err(); err != nil {
		return nil, fmt.Errorf("compile catalog schema: %w", err)
	}

	data := ctx.CompileBytes(src, cue.Filename(filename))
	if err := data.Err(); err != nil {
		return nil, fmt.Errorf("compile catalog: %s", errors.Details(err, nil))
	}

	v := schema.Unify(data)
	if err := v.Validate(cue.Concrete(true)); err != nil {
		return nil, fmt.Errorf("invalid catalog: %s", errors.Details(err, nil))
	}

	var raw rawCatalog
	if err := v.Decode(&raw); err != nil {
		return nil, fmt.Errorf("decode catalog: %w", err)
	}

	cat := &Catalog{Signs: raw.Signs}
	for _, rq := range raw.Questions {
		if len(rq.Options) != 2 {
			return nil, &ValidationError{Field: "questions", Message: fmt.Sprintf("question %q must have exactly 2 options", rq.ID)}
		}
		cat.Questions = append(cat.Questions, Question{
			ID:           rq.ID,
			Prompt:       rq.Prompt,
			Options:      [2]string{rq.Options[0], rq.Options[1]},
			CorrectIndex: rq.CorrectIndex,
			Media:        rq.Media,
		})
	}

	if err := cat.Validate(); err != nil {
		return nil, err
	}
	return cat, nil
}

// Validate checks invariants CUE cannot express: unique IDs and non-empty lists.
func (c *Catalog) Validate() error {
	if len(c.Signs) == 0 {
		return &ValidationError{Field: "signs", Message: "at least one sign is required"}
	}
	if len(c.Questions) == 0 {
		return &ValidationError{Field: "questions", Message: "at least one question is required"}
	}

	seen := make(map[string]bool, len(c.Signs))
	for _, s := range c.Signs {
		if seen[s.ID] {
			return &ValidationError{Field: "signs", Message: fmt.Sprintf("duplicate sign id %q", s.ID)}
		}
		seen[s.ID] = true
	}

	seen = make(map[string]bool, len(c.Questions))
	for _, q := range c.Questions {
		if seen[q.ID] {
			return &ValidationError{Field: "questions", Message: fmt.Sprintf("duplicate question id %q", q.ID)}
		}
		seen[q.ID] = true
	}
	return nil
}

// SignsForPart returns the pairs signs used by a memory-game part. Part n
// starts at offset (n-1)*pairs.
func (c *Catalog) SignsForPart(part, pairs int) ([]Sign, error) {
	if part < 1 || pairs < 1 {
		return nil, &ValidationError{Field: "signs", Message: fmt.Sprintf("invalid part %d with %d pairs", part, pairs)}
	}
	start := (part - 1) * pairs
	end := start + pairs
	if end > len(c.Signs) {
		return nil, &ValidationError{
			Field:   "signs",
			Message: fmt.Sprintf("part %d needs signs %d..%d, catalog has %d", part, start+1, end, len(c.Signs)),
		}
	}
	out := make([]Sign, pairs)
	copy(out, c.Signs[start:end])
	return out, nil
}

// MediaIndices returns the question indices that carry media.
func (c *Catalog) MediaIndices() []int {
	var idx []int
	for i, q := range c.Questions {
		if q.HasMedia() {
			idx = append(idx, i)
		}
	}
	return idx
}
