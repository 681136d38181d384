package token

import (
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestEstimate_Empty(t *testing.T) {
	e := NewEstimator()
	assert.Equal(t, 0, e.Estimate("", "gpt-4o"))
	assert.Equal(t, 0, e.Estimate("", ""))
}

func TestEstimate_NonEmptyIsAtLeastOne(t *testing.T) {
	e := NewEstimator()
	assert.Equal(t, 1, e.Estimate("a", "gpt-4o"))
	assert.Equal(t, 1, e.Estimate("x", "unknown-model"))
}

func TestEstimate_Deterministic(t *testing.T) {
	e := NewEstimator()
	text := strings.Repeat("the quick brown fox ", 50)
	first := e.Estimate(text, "gpt-4o-mini")
	for i := 0; i < 10; i++ {
		assert.Equal(t, first, e.Estimate(text, "gpt-4o-mini"))
	}
}

func TestEstimate_ScalesWithLength(t *testing.T) {
	e := NewEstimator()
	short := e.Estimate(strings.Repeat("word ", 10), "")
	long := e.Estimate(strings.Repeat("word ", 1000), "")
	assert.Greater(t, long, short)
}

func TestEstimate_ModelFamilyRatio(t *testing.T) {
	e := NewEstimator()
	text := strings.Repeat("abcd", 1000) // 4000 chars

	// claude family has a lower chars-per-token ratio, so the same text
	// estimates to more tokens than the default.
	def := e.Estimate(text, "")
	claude := e.Estimate(text, "claude-3-5-sonnet-20241022")
	assert.Greater(t, claude, def)
}

func TestEstimate_RegisteredTokenizer(t *testing.T) {
	e := NewEstimator()
	e.RegisterTokenizer("my-model", TokenizerFunc(func(text string) (int, error) {
		return 42, nil
	}))

	assert.Equal(t, 42, e.Estimate("hello world", "my-model"))
	// Other models are unaffected.
	assert.NotEqual(t, 42, e.Estimate("hi", "gpt-4o"))
}

func TestEstimate_TokenizerErrorFallsBack(t *testing.T) {
	e := NewEstimator()
	e.RegisterTokenizer("broken", TokenizerFunc(func(string) (int, error) {
		return 0, errors.New("vocab not loaded")
	}))

	text := strings.Repeat("abcd", 100)
	assert.Equal(t, e.Estimate(text, ""), e.Estimate(text, "broken"))
}

func TestEstimate_TokenizerPanicFallsBack(t *testing.T) {
	e := NewEstimator()
	e.RegisterTokenizer("panicky", TokenizerFunc(func(string) (int, error) {
		panic("boom")
	}))

	text := strings.Repeat("abcd", 100)
	assert.NotPanics(t, func() { e.Estimate(text, "panicky") })
	assert.Equal(t, e.Estimate(text, ""), e.Estimate(text, "panicky"))
}

func TestEstimate_RoleTextChangesEstimate(t *testing.T) {
	e := NewEstimator()
	role := "You are a meticulous research assistant."
	user := "Summarize topic X."
	assert.Greater(t, e.Estimate(role+user, "gpt-4o"), e.Estimate(user, "gpt-4o"))
}
