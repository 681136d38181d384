package token

import (
	"strings"
	"sync"
)

// defaultCharsPerToken is the widely used rule of thumb for English text.
const defaultCharsPerToken = 4.0

// familyRatio maps a model id prefix to an approximate chars-per-token ratio.
// Longest matching prefix wins. Ratios are conservative (slightly low) so the
// estimate errs toward over-counting rather than sneaking past a budget.
type familyRatio struct {
	prefix string
	ratio  float64
}

// Tokenizer counts tokens the way a specific model does. Implementations may
// fail (missing vocabulary files, unsupported input); the Estimator treats any
// failure as "fall back to the heuristic".
type Tokenizer interface {
	Count(text string) (int, error)
}

// TokenizerFunc adapts a plain function to the Tokenizer interface.
type TokenizerFunc func(text string) (int, error)

// Count implements Tokenizer.
func (f TokenizerFunc) Count(text string) (int, error) { return f(text) }

// Estimator produces approximate token counts for arbitrary text. Estimation
// is deterministic for a fixed configuration and never returns an error.
type Estimator struct {
	mu         sync.RWMutex
	tokenizers map[string]Tokenizer
	ratios     []familyRatio
}

// NewEstimator creates an Estimator with built-in model-family ratios and no
// registered tokenizers.
func NewEstimator() *Estimator {
	return &Estimator{
		tokenizers: make(map[string]Tokenizer),
		ratios: []familyRatio{
			{prefix: "gpt-4", ratio: 4.0},
			{prefix: "gpt-3.5", ratio: 4.0},
			{prefix: "o1", ratio: 4.0},
			{prefix: "o3", ratio: 4.0},
			{prefix: "claude", ratio: 3.6},
			{prefix: "llama", ratio: 3.8},
			{prefix: "mistral", ratio: 3.8},
		},
	}
}

// RegisterTokenizer installs an exact tokenizer for a model id. Registration
// replaces any previous tokenizer for the same id.
func (e *Estimator) RegisterTokenizer(modelID string, t Tokenizer) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.tokenizers[normalize(modelID)] = t
}

// Estimate returns the approximate token count of text for the given model.
// An empty text estimates to 0; any non-empty text estimates to at least 1
// (prevents budget bypass on tiny prompts). modelID may be empty, in which
// case the default heuristic ratio applies.
func (e *Estimator) Estimate(text, modelID string) int {
	if text == "" {
		return 0
	}
	if n, ok := e.tryTokenizer(text, modelID); ok {
		return n
	}
	return e.heuristic(text, modelID)
}

// tryTokenizer runs a registered tokenizer, converting errors and panics into
// a fallback signal.
func (e *Estimator) tryTokenizer(text, modelID string) (n int, ok bool) {
	e.mu.RLock()
	t := e.tokenizers[normalize(modelID)]
	e.mu.RUnlock()
	if t == nil {
		return 0, false
	}

	defer func() {
		if recover() != nil {
			n, ok = 0, false
		}
	}()

	count, err := t.Count(text)
	if err != nil || count < 0 {
		return 0, false
	}
	if count == 0 {
		count = 1
	}
	return count, true
}

// heuristic computes chars/ratio with a small per-line overhead, mirroring how
// chat templates spend a few tokens on message framing.
func (e *Estimator) heuristic(text, modelID string) int {
	ratio := defaultCharsPerToken
	id := normalize(modelID)

	e.mu.RLock()
	best := 0
	for _, fr := range e.ratios {
		if strings.HasPrefix(id, fr.prefix) && len(fr.prefix) > best {
			best = len(fr.prefix)
			ratio = fr.ratio
		}
	}
	e.mu.RUnlock()

	newlines := strings.Count(text, "\n")
	tokens := int(float64(len(text))/ratio) + newlines/2
	if tokens < 1 {
		tokens = 1
	}
	return tokens
}

func normalize(modelID string) string {
	return strings.ToLower(strings.TrimSpace(modelID))
}
