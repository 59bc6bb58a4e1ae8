// Package ai adapts the OpenAI chat completion API into the parsing and
// rendering oracle ports. Parsing runs at low temperature with a JSON-only
// contract; rendering is best-effort and never fails the overall request.
package ai

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"
	openai "github.com/sashabaranov/go-openai"

	"github.com/calchat/scheduling-system/internal/core/domain"
	"github.com/calchat/scheduling-system/internal/core/ports"
)

const renderFallback = "Your appointment request has been processed. Check the details below."

// Config holds the OpenAI client configuration.
type Config struct {
	APIKey  string
	BaseURL string
	Model   string
	Timeout time.Duration
}

// Oracle implements ports.RequestParser and ports.ResponseRenderer.
type Oracle struct {
	client *openai.Client
	model  string
	log    zerolog.Logger
	now    func() time.Time
}

func NewOracle(cfg Config, log zerolog.Logger) *Oracle {
	clientConfig := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientConfig.BaseURL = cfg.BaseURL
	}

	model := cfg.Model
	if model == "" {
		model = openai.GPT4oMini
	}

	return &Oracle{
		client: openai.NewClientWithConfig(clientConfig),
		model:  model,
		log:    log,
		now:    time.Now,
	}
}

// parsedPayload is the wire shape the model is instructed to emit.
type parsedPayload struct {
	Intent        string `json:"intent"`
	UserID        string `json:"user_id"`
	WorkerName    string `json:"worker_name,omitempty"`
	Datetime      string `json:"datetime,omitempty"`
	Duration      int    `json:"duration,omitempty"`
	AppointmentID string `json:"appointment_id,omitempty"`
	Error         string `json:"error,omitempty"`
}

// Parse converts natural language into a validated ParsedRequest.
func (o *Oracle) Parse(ctx context.Context, text, userID string) (*domain.ParsedRequest, error) {
	resp, err := o.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       o.model,
		Temperature: 0.1,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: o.parsePrompt(userID)},
			{Role: openai.ChatMessageRoleUser, Content: text},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("parse request: %w", err)
	}
	if len(resp.Choices) == 0 {
		return nil, &ports.ParseError{Diagnostic: "empty model response"}
	}

	raw := stripFences(resp.Choices[0].Message.Content)

	var payload parsedPayload
	if err := json.Unmarshal([]byte(raw), &payload); err != nil {
		o.log.Warn().Err(err).Str("raw", raw).Msg("model output is not valid JSON")
		return nil, &ports.ParseError{Diagnostic: "invalid response format: " + err.Error()}
	}
	if payload.Error != "" {
		return nil, &ports.ParseError{Diagnostic: payload.Error}
	}

	req := &domain.ParsedRequest{
		Intent:          domain.Intent(payload.Intent),
		UserID:          payload.UserID,
		WorkerName:      payload.WorkerName,
		DurationMinutes: payload.Duration,
		AppointmentID:   payload.AppointmentID,
	}
	if req.UserID == "" {
		req.UserID = userID
	}

	if payload.Datetime != "" {
		local, err := parseNaiveDatetime(payload.Datetime)
		if err != nil {
			return nil, &ports.ParseError{Diagnostic: "unparseable datetime: " + payload.Datetime}
		}
		req.LocalTime = local
	}

	if err := req.Validate(); err != nil {
		return nil, &ports.ParseError{Diagnostic: err.Error()}
	}
	return req, nil
}

// Render turns a structured outcome into a friendly message. Any failure
// degrades to a generic confirmation.
func (o *Oracle) Render(ctx context.Context, outcome *ports.ScheduleOutcome) string {
	data, err := json.MarshalIndent(outcome, "", "  ")
	if err != nil {
		return renderFallback
	}

	prompt := fmt.Sprintf(`Convert this appointment data into a friendly user message:
%s

Rules:
- Use simple, conversational language
- Highlight key details: worker name, date/time, status
- For conflicts, suggest the alternatives clearly
- Never expose internal IDs or technical terms`, data)

	resp, err := o.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       o.model,
		Temperature: 0.3,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
	})
	if err != nil || len(resp.Choices) == 0 {
		o.log.Warn().Err(err).Msg("response rendering failed, using fallback")
		return renderFallback
	}

	return strings.TrimSpace(resp.Choices[0].Message.Content)
}

func (o *Oracle) parsePrompt(userID string) string {
	now := o.now()
	return fmt.Sprintf(`User ID: %s
Current time: %s
Convert the user's request to JSON.

Important Rules:
- Use CURRENT YEAR (%d)
- For future dates without time: assume 9 AM
- Never suggest past dates
- Datetimes are naive local wall-clock times, format 2006-01-02T15:04:05
- Appointment IDs look like: APT-1234567890-WORKER123

Response Structure:
{
"intent": "create_appointment|cancel_appointment|reschedule_appointment|get_availability",
"user_id": "USERXXX",
"worker_name": "Only for create/reschedule/get_availability",
"datetime": "Naive ISO 8601 (required for create/reschedule/get_availability)",
"duration": "Minutes between 15 and 240 (only for create/reschedule, default 30)",
"appointment_id": "Required for cancel/reschedule if mentioned"
}

Examples:
1. Cancel by ID:
{"intent": "cancel_appointment", "user_id": "USER048", "appointment_id": "APT-1740812400-WORKER123"}

2. Cancel by details:
{"intent": "cancel_appointment", "user_id": "USER048", "worker_name": "Tyler", "datetime": "2025-03-04T16:00:00"}

3. Create new:
{"intent": "create_appointment", "user_id": "USER046", "worker_name": "John", "datetime": "2025-03-22T15:00:00", "duration": 30}

4. Reschedule:
{"intent": "reschedule_appointment", "appointment_id": "APT-1740812400-WORKER123", "user_id": "USER046", "datetime": "2025-03-23T11:00:00"}

Required Fields by Intent:
- create_appointment: user_id, worker_name, datetime
- cancel_appointment: user_id + (appointment_id OR worker_name+datetime)
- reschedule_appointment: user_id + (appointment_id OR worker_name) + datetime
- get_availability: user_id, worker_name, datetime

Respond ONLY with valid JSON. Never include comments or explanations.`,
		userID, now.Format(time.RFC3339), now.Year())
}

// parseNaiveDatetime accepts the naive layout the prompt asks for, plus a
// zoned RFC 3339 fallback whose clock fields are taken as the local time.
func parseNaiveDatetime(s string) (time.Time, error) {
	if t, err := time.Parse("2006-01-02T15:04:05", s); err == nil {
		return t, nil
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return time.Date(t.Year(), t.Month(), t.Day(), t.Hour(), t.Minute(), t.Second(), 0, time.UTC), nil
	}
	return time.Time{}, fmt.Errorf("unrecognised datetime %q", s)
}

// stripFences removes a Markdown code fence the model sometimes wraps its
// JSON in.
func stripFences(s string) string {
	s = strings.TrimSpace(s)
	if strings.HasPrefix(s, "```") {
		s = strings.TrimPrefix(s, "```json")
		s = strings.TrimPrefix(s, "```")
		s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	}
	return strings.TrimSpace(s)
}
