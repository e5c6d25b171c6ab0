package types

// SavePromptRequest replaces a project's prompt template
// Example: {"template":"Create a video about {{name}} in {{city}}"}
type SavePromptRequest struct {
	// Template with {{column}} placeholders
	Template string `json:"template" validate:"notblank"`
}

// EnhancePromptRequest asks the text model to improve a project's template
// Example: {"context":"upbeat travel ad"}
type EnhancePromptRequest struct {
	// Optional guidance for the rewrite
	Context string `json:"context" validate:"max=2000"`
}

// SuggestPromptRequest asks for an improved version of an arbitrary template
// Example: {"template":"{{name}} in {{city}}","fields":["name","city"]}
type SuggestPromptRequest struct {
	// Template to improve
	Template string `json:"template" validate:"notblank"`
	// Fields the template may reference
	Fields []string `json:"fields" validate:"required,min=1,dive,notblank"`
	// Optional guidance for the rewrite
	Context string `json:"context" validate:"max=2000"`
}
