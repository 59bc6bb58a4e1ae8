package handler

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/calchat/scheduling-system/internal/core/domain"
	"github.com/calchat/scheduling-system/internal/core/ports"
)

// AppointmentHandler serves the read-only appointment views.
type AppointmentHandler struct {
	scheduler ports.SchedulingService
	store     ports.SchedulingStore
}

func NewAppointmentHandler(scheduler ports.SchedulingService, store ports.SchedulingStore) *AppointmentHandler {
	return &AppointmentHandler{scheduler: scheduler, store: store}
}

type appointmentResponse struct {
	AppointmentID string    `json:"appointment_id"`
	WorkerID      string    `json:"worker_id"`
	StartTime     time.Time `json:"start_time"`
	EndTime       time.Time `json:"end_time"`
	Status        string    `json:"status"`
	CreatedAt     time.Time `json:"created_at"`
}

type listAppointmentsResponse struct {
	Data []appointmentResponse `json:"data"`
}

// List handles GET /v1/appointments: the authenticated user's non-cancelled
// appointments, most recent start first.
//
// @Summary      List own appointments
// @Tags         appointments
// @Produce      json
// @Security     BearerAuth
// @Success      200  {object}  listAppointmentsResponse
// @Failure      401  {object}  map[string]string
// @Failure      500  {object}  map[string]string
// @Router       /v1/appointments [get]
func (h *AppointmentHandler) List(c echo.Context) error {
	userID, err := ctxUserID(c)
	if err != nil {
		return err
	}

	appts, err := h.scheduler.ListUserAppointments(c.Request().Context(), userID)
	if err != nil {
		return err
	}

	items := make([]appointmentResponse, len(appts))
	for i, a := range appts {
		items[i] = toAppointmentResponse(a)
	}
	return c.JSON(http.StatusOK, listAppointmentsResponse{Data: items})
}

// ListWorkers handles GET /v1/workers: the admin-only directory of bookable
// worker names.
//
// @Summary      List worker names
// @Tags         workers
// @Produce      json
// @Security     BearerAuth
// @Success      200  {object}  map[string][]string
// @Failure      401  {object}  map[string]string
// @Failure      403  {object}  map[string]string
// @Failure      500  {object}  map[string]string
// @Router       /v1/workers [get]
func (h *AppointmentHandler) ListWorkers(c echo.Context) error {
	names, err := h.store.ListWorkerNames(c.Request().Context())
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, map[string][]string{"workers": names})
}

func toAppointmentResponse(a *domain.Appointment) appointmentResponse {
	return appointmentResponse{
		AppointmentID: a.AppointmentID,
		WorkerID:      a.WorkerID,
		StartTime:     a.StartTime.UTC(),
		EndTime:       a.EndTime.UTC(),
		Status:        string(a.Status),
		CreatedAt:     a.CreatedAt.UTC(),
	}
}
