package ports

import (
	"context"

	"github.com/calchat/scheduling-system/internal/core/domain"
)

// ParseError reports that free text could not be turned into a valid
// structured request. The transport layer maps it to a 400-equivalent
// response carrying the diagnostic.
type ParseError struct {
	Diagnostic string
}

func (e *ParseError) Error() string {
	return "parse request: " + e.Diagnostic
}

// RequestParser converts free text into a structured request. Parse failures
// surface as *ParseError.
type RequestParser interface {
	Parse(ctx context.Context, text, userID string) (*domain.ParsedRequest, error)
}

// ResponseRenderer turns a structured outcome back into natural language.
// Rendering is best-effort: implementations return a generic confirmation
// instead of failing the overall request.
type ResponseRenderer interface {
	Render(ctx context.Context, outcome *ScheduleOutcome) string
}
