package enhance

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/google/generative-ai-go/genai"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/celestiaorg/vidbatch/internal/errs"
)

type mockGenerator struct {
	mock.Mock
}

func (m *mockGenerator) Generate(ctx context.Context, prompt string) (string, error) {
	args := m.Called(ctx, prompt)
	return args.String(0), args.Error(1)
}

func TestSuggest(t *testing.T) {
	gen := new(mockGenerator)
	gen.On("Generate", mock.Anything, mock.MatchedBy(func(p string) bool {
		return containsAll(p, "Create a video about {{name}}", "{{name}}, {{city}}")
	})).Return("  A sunny walk of {{name}} through {{city}}\n", nil).Once()

	out, err := NewSuggester(gen).Suggest(context.Background(), "Create a video about {{name}}", []string{"name", "city"})
	require.NoError(t, err)
	assert.Equal(t, "A sunny walk of {{name}} through {{city}}", out)
	gen.AssertExpectations(t)
}

func TestSuggestWithContext(t *testing.T) {
	gen := new(mockGenerator)
	gen.On("Generate", mock.Anything, mock.MatchedBy(func(p string) bool {
		return containsAll(p, "Additional context: for kids")
	})).Return("x {{name}}", nil).Once()

	_, err := NewSuggester(gen).SuggestWithContext(context.Background(), "{{name}}", []string{"name"}, "for kids")
	require.NoError(t, err)
	gen.AssertExpectations(t)
}

func TestSuggestValidation(t *testing.T) {
	gen := new(mockGenerator)
	s := NewSuggester(gen)

	_, err := s.Suggest(context.Background(), " ", []string{"name"})
	require.ErrorIs(t, err, errs.ErrValidation)
	_, err = s.Suggest(context.Background(), "{{name}}", nil)
	require.ErrorIs(t, err, errs.ErrValidation)
	gen.AssertNotCalled(t, "Generate", mock.Anything, mock.Anything)
}

func TestSuggestErrors(t *testing.T) {
	gen := new(mockGenerator)
	gen.On("Generate", mock.Anything, mock.Anything).Return("", errors.New("quota")).Once()
	gen.On("Generate", mock.Anything, mock.Anything).Return("   ", nil).Once()
	s := NewSuggester(gen)

	_, err := s.Suggest(context.Background(), "{{name}}", []string{"name"})
	require.EqualError(t, err, "quota")

	_, err = s.Suggest(context.Background(), "{{name}}", []string{"name"})
	var apiErr *errs.ExternalAPIError
	require.ErrorAs(t, err, &apiErr)
}

func TestResponseText(t *testing.T) {
	assert.Equal(t, "", responseText(nil))
	resp := &genai.GenerateContentResponse{Candidates: []*genai.Candidate{{
		Content: &genai.Content{Parts: []genai.Part{genai.Text("Hello "), genai.Text("{{name}}")}},
	}}}
	assert.Equal(t, "Hello {{name}}", responseText(resp))
}

func TestNewGeminiGeneratorRequiresKey(t *testing.T) {
	_, err := NewGeminiGenerator(context.Background(), "", "")
	require.Error(t, err)
}

func containsAll(s string, subs ...string) bool {
	for _, sub := range subs {
		if !strings.Contains(s, sub) {
			return false
		}
	}
	return true
}
