// Package prompts holds the immutable prompt corpus: one incomplete phrase
// per supported locale per prompt. The corpus is read-only to the engine;
// each turn draws uniformly at random from the full set, with replacement
// (repeating the previous prompt is accepted behavior, not a defect).
package prompts

import (
	_ "embed"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"github.com/google/uuid"
	"gopkg.in/yaml.v3"

	"github.com/okian/mouton/internal/domain/model"
)

//go:embed prompts.yaml
var corpusYAML []byte

type promptEntry struct {
	ID   string `yaml:"id"`
	FR   string `yaml:"fr"`
	EN   string `yaml:"en"`
	ESMX string `yaml:"es_mx"`
}

type corpusFile struct {
	Prompts []promptEntry `yaml:"prompts"`
}

// Corpus is a loaded prompt set with uniform random selection.
type Corpus struct {
	mu      sync.Mutex
	rng     *rand.Rand
	prompts []model.Prompt
	byID    map[uuid.UUID]model.Prompt
}

// Option applies a configuration option to the Corpus.
type Option func(*Corpus)

// WithSeed fixes the random source for deterministic selection in tests.
func WithSeed(seed int64) Option {
	return func(c *Corpus) {
		c.rng = rand.New(rand.NewSource(seed)) //nolint:gosec // game prompt selection, not crypto
	}
}

// Load parses the embedded corpus.
func Load(opts ...Option) (*Corpus, error) {
	c := &Corpus{
		rng:  rand.New(rand.NewSource(time.Now().UnixNano())), //nolint:gosec // game prompt selection, not crypto
		byID: make(map[uuid.UUID]model.Prompt),
	}
	for _, opt := range opts {
		opt(c)
	}

	var file corpusFile
	if err := yaml.Unmarshal(corpusYAML, &file); err != nil {
		return nil, fmt.Errorf("parse prompt corpus: %w", err)
	}
	if len(file.Prompts) == 0 {
		return nil, ErrEmptyCorpus
	}

	for _, e := range file.Prompts {
		id, err := uuid.Parse(e.ID)
		if err != nil {
			return nil, fmt.Errorf("prompt id %q: %w", e.ID, err)
		}
		p := model.Prompt{
			ID: id,
			Text: map[model.Locale]string{
				model.LocaleFR:   e.FR,
				model.LocaleEN:   e.EN,
				model.LocaleESMX: e.ESMX,
			},
		}
		c.prompts = append(c.prompts, p)
		c.byID[id] = p
	}
	return c, nil
}

// Random draws one prompt uniformly from the full corpus, with replacement.
func (c *Corpus) Random() model.Prompt {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.prompts[c.rng.Intn(len(c.prompts))]
}

// Get resolves a prompt by id.
func (c *Corpus) Get(id uuid.UUID) (model.Prompt, bool) {
	p, ok := c.byID[id]
	return p, ok
}

// Len returns the corpus size.
func (c *Corpus) Len() int {
	return len(c.prompts)
}
