package handlers

// Slug is the machine-readable outcome tag carried by every API response
type Slug string

// Response outcome slugs
const (
	// SuccessSlug marks a successful response
	SuccessSlug Slug = "success"
	// ErrorSlug marks a general request failure
	ErrorSlug Slug = "error"
	// InvalidInputSlug marks a rejected request body or parameter
	InvalidInputSlug Slug = "invalid-input"
	// ServerErrorSlug marks an internal failure
	ServerErrorSlug Slug = "server-error"
)

// Response is the envelope returned by every v1 endpoint
type Response struct {
	Slug  Slug        `json:"slug"`
	Error string      `json:"error"`
	Data  interface{} `json:"data"`
}

func errInvalidInput(msg string) Response {
	return Response{
		Slug:  InvalidInputSlug,
		Error: msg,
	}
}

func errServer(msg string) Response {
	return Response{
		Slug:  ServerErrorSlug,
		Error: msg,
	}
}

func errGeneral(msg string) Response {
	return Response{
		Slug:  ErrorSlug,
		Error: msg,
	}
}
