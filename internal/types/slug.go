package types

// Slug is a type for the slug field in the response
// It is mainly used for the client to understand the type of the response
type Slug string

// Response slugs
const (
	SuccessSlug       Slug = "success"
	InvalidInputSlug  Slug = "invalid-input"
	NotFoundSlug      Slug = "not-found"
	ConflictSlug      Slug = "conflict"
	TimeoutSlug       Slug = "timeout"
	UpstreamErrorSlug Slug = "upstream-error"
	ServerErrorSlug   Slug = "server-error"
)

// SlugResponse is the envelope of every API response
type SlugResponse struct {
	Slug  Slug        `json:"slug"`
	Error string      `json:"error,omitempty"`
	Data  interface{} `json:"data,omitempty"`
}

// Success returns a SlugResponse with the SuccessSlug and the data
func Success(data interface{}) SlugResponse {
	return SlugResponse{
		Slug: SuccessSlug,
		Data: data,
	}
}

// Failure returns a SlugResponse with the given slug and error message
func Failure(slug Slug, msg string) SlugResponse {
	return SlugResponse{
		Slug:  slug,
		Error: msg,
	}
}

// ErrInvalidInput returns a SlugResponse with the InvalidInputSlug and the error message
func ErrInvalidInput(msg string) SlugResponse {
	return Failure(InvalidInputSlug, msg)
}

// ErrServer returns a SlugResponse with the ServerErrorSlug and the error message
func ErrServer(msg string) SlugResponse {
	return Failure(ServerErrorSlug, msg)
}
