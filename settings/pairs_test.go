package settings

import (
	"testing"

	"geminify/apperr"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSetPairs(t *testing.T) {
	s := Defaults()

	require.NoError(t, Set(&s, "temperature=0.3"))
	require.NoError(t, Set(&s, "max_tokens=4096"))
	require.NoError(t, Set(&s, "Model= gemini-2.5-pro "))
	require.NoError(t, Set(&s, "language_rewrite.enabled=true"))
	require.NoError(t, Set(&s, "language_rewrite.target_language=Turkish"))
	require.NoError(t, Set(&s, "system_prompt=a=b"))

	assert.Equal(t, 0.3, s.Temperature)
	assert.Equal(t, 4096, s.MaxTokens)
	assert.Equal(t, ModelPro, s.Model)
	assert.True(t, s.LanguageRewrite.Enabled)
	assert.Equal(t, "turkish", s.LanguageRewrite.TargetLanguage)
	assert.Equal(t, "a=b", s.SystemPrompt)
}

func TestSetPairErrors(t *testing.T) {
	s := Defaults()
	before := s

	for _, pair := range []string{"temperature", "nope=1", "max_tokens=many", "language_rewrite.enabled=maybe"} {
		err := Set(&s, pair)
		require.Error(t, err, pair)
		assert.Equal(t, apperr.KindValidation, apperr.KindOf(err), pair)
	}
	assert.Equal(t, before, s)
}

func TestKeysSorted(t *testing.T) {
	keys := Keys()
	assert.Contains(t, keys, "api_key")
	assert.IsIncreasing(t, keys)
}
