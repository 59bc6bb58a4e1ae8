package handler

import (
	"errors"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/calchat/scheduling-system/internal/api/metrics"
	"github.com/calchat/scheduling-system/internal/core/domain"
	"github.com/calchat/scheduling-system/internal/core/ports"
)

// ChatHandler is the natural-language front door: free text in, a rendered
// reply plus the structured scheduling outcome out.
type ChatHandler struct {
	parser    ports.RequestParser
	scheduler ports.SchedulingService
	renderer  ports.ResponseRenderer
	log       zerolog.Logger
}

func NewChatHandler(parser ports.RequestParser, scheduler ports.SchedulingService, renderer ports.ResponseRenderer, log zerolog.Logger) *ChatHandler {
	return &ChatHandler{parser: parser, scheduler: scheduler, renderer: renderer, log: log}
}

// Chat handles POST /v1/chat.
//
// @Summary      Handle a natural-language scheduling request
// @Tags         chat
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        body  body      chatRequest  true  "Free-text request and user id"
// @Success      200   {object}  chatResponse
// @Failure      400   {object}  chatResponse
// @Failure      403   {object}  map[string]string
// @Failure      404   {object}  map[string]string
// @Failure      422   {object}  map[string]string
// @Failure      500   {object}  map[string]string
// @Router       /v1/chat [post]
func (h *ChatHandler) Chat(c echo.Context) error {
	var req chatRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid payload")
	}
	if err := c.Validate(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	// Client accounts act only as the scheduling user their token is bound
	// to; a payload naming someone else is rejected. Admins act for any user
	// but must say which one.
	role, _ := c.Get("role").(string)
	if role == domain.RoleAdmin {
		if req.UserID == "" {
			return echo.NewHTTPError(http.StatusBadRequest, "user_id is required")
		}
	} else {
		tokenUserID, err := ctxUserID(c)
		if err != nil {
			return err
		}
		if req.UserID != "" && req.UserID != tokenUserID {
			return echo.NewHTTPError(http.StatusForbidden, "user_id does not match the authenticated user")
		}
		req.UserID = tokenUserID
	}

	ctx := c.Request().Context()

	parsed, err := h.parser.Parse(ctx, req.Text, req.UserID)
	if err != nil {
		var pe *ports.ParseError
		if errors.As(err, &pe) {
			metrics.ParseFailuresTotal.Inc()
			h.log.Info().Str("user_id", req.UserID).Str("diagnostic", pe.Diagnostic).Msg("request not understood")
			return c.JSON(http.StatusBadRequest, chatResponse{
				Text:           "Could not understand request",
				StructuredData: map[string]string{"error": pe.Diagnostic},
			})
		}
		// Oracle transport failure, not a user problem.
		return err
	}

	metrics.ChatRequestsTotal.WithLabelValues(string(parsed.Intent)).Inc()

	started := time.Now()
	outcome, err := h.scheduler.Handle(ctx, parsed)
	metrics.SchedulingDuration.WithLabelValues(string(parsed.Intent)).Observe(time.Since(started).Seconds())
	if err != nil {
		metrics.RequestErrorsTotal.WithLabelValues(errorReason(err)).Inc()
		return err
	}
	metrics.OutcomesTotal.WithLabelValues(outcome.Status).Inc()

	return c.JSON(http.StatusOK, chatResponse{
		Text:           h.renderer.Render(ctx, outcome),
		StructuredData: outcome,
	})
}
