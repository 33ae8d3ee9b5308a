package routes

import (
	"context"
	"net/http"
	"strconv"
	"strings"

	"appointly/cmd/internal/service"
	"appointly/cmd/internal/utils"
	"appointly/cmd/internal/utils/apierror"
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
)

type AppointmentService interface {
	ListAppointments(ctx context.Context, contactID uuid.UUID, page int, caller *utils.TokenData) (*service.AppointmentListResponse, apierror.ErrorResponse)
	CreateAppointment(ctx context.Context, req *service.CreateAppointmentRequest, caller *utils.TokenData) (*service.AppointmentResponse, apierror.ErrorResponse)
	RescheduleAppointment(ctx context.Context, id uuid.UUID, req *service.RescheduleRequest, caller *utils.TokenData) (*service.AppointmentResponse, apierror.ErrorResponse)
	DeleteAppointment(ctx context.Context, id uuid.UUID, caller *utils.TokenData) apierror.ErrorResponse
	GetCalendar(ctx context.Context, contactID uuid.UUID, date string, caller *utils.TokenData) (*service.CalendarResponse, apierror.ErrorResponse)
}

type DefaultAppointmentRoute struct {
	AppointmentService AppointmentService
}

func NewAppointmentDefault(apptService AppointmentService) *DefaultAppointmentRoute {
	return &DefaultAppointmentRoute{AppointmentService: apptService}
}

// Register mounts the appointment endpoints on g.
func (a *DefaultAppointmentRoute) Register(g *echo.Group) {
	g.GET("/contacts/:contactId/appointments", a.ListAppointments)
	g.GET("/contacts/:contactId/calendar", a.GetCalendar)
	g.POST("/appointments", a.CreateAppointment)
	g.PUT("/appointments/:id/reschedule", a.RescheduleAppointment)
	g.DELETE("/appointments/:id", a.DeleteAppointment)
}

func (a *DefaultAppointmentRoute) ListAppointments(c echo.Context) error {
	data, err := utils.ParseTokenDataCtx(c)
	if err != nil {
		return failure(c, apierror.InvalidAuthTokenError)
	}

	contactID, apierr := uuidParam(c, "contactId")
	if apierr != nil {
		return failure(c, apierr)
	}

	page, apierr := pageParam(c)
	if apierr != nil {
		return failure(c, apierr)
	}

	resp, apierr := a.AppointmentService.ListAppointments(c.Request().Context(), contactID, page, data)
	if apierr != nil {
		return failure(c, apierr)
	}
	return success(c, http.StatusOK, resp)
}

func (a *DefaultAppointmentRoute) CreateAppointment(c echo.Context) error {
	var req service.CreateAppointmentRequest
	if err := c.Bind(&req); err != nil {
		return failure(c, apierror.MalformedBodyError)
	}

	data, err := utils.ParseTokenDataCtx(c)
	if err != nil {
		return failure(c, apierror.InvalidAuthTokenError)
	}

	appt, apierr := a.AppointmentService.CreateAppointment(c.Request().Context(), &req, data)
	if apierr != nil {
		return failure(c, apierr)
	}
	return success(c, http.StatusCreated, appt)
}

func (a *DefaultAppointmentRoute) RescheduleAppointment(c echo.Context) error {
	id, apierr := uuidParam(c, "id")
	if apierr != nil {
		return failure(c, apierr)
	}

	var req service.RescheduleRequest
	if err := c.Bind(&req); err != nil {
		return failure(c, apierror.MalformedBodyError)
	}

	data, err := utils.ParseTokenDataCtx(c)
	if err != nil {
		return failure(c, apierror.InvalidAuthTokenError)
	}

	appt, apierr := a.AppointmentService.RescheduleAppointment(c.Request().Context(), id, &req, data)
	if apierr != nil {
		return failure(c, apierr)
	}
	return success(c, http.StatusOK, appt)
}

func (a *DefaultAppointmentRoute) DeleteAppointment(c echo.Context) error {
	id, apierr := uuidParam(c, "id")
	if apierr != nil {
		return failure(c, apierr)
	}

	data, err := utils.ParseTokenDataCtx(c)
	if err != nil {
		return failure(c, apierror.InvalidAuthTokenError)
	}

	if apierr := a.AppointmentService.DeleteAppointment(c.Request().Context(), id, data); apierr != nil {
		return failure(c, apierr)
	}
	return success(c, http.StatusOK, "Appointment deleted successfully.")
}

func (a *DefaultAppointmentRoute) GetCalendar(c echo.Context) error {
	data, err := utils.ParseTokenDataCtx(c)
	if err != nil {
		return failure(c, apierror.InvalidAuthTokenError)
	}

	contactID, apierr := uuidParam(c, "contactId")
	if apierr != nil {
		return failure(c, apierr)
	}

	date := strings.TrimSpace(c.QueryParam("date")) // "01/31/2030"
	if date == "" {
		return failure(c, apierror.NewMissingParamError("date"))
	}

	calendar, apierr := a.AppointmentService.GetCalendar(c.Request().Context(), contactID, date, data)
	if apierr != nil {
		return failure(c, apierr)
	}
	return success(c, http.StatusOK, calendar)
}

func uuidParam(c echo.Context, name string) (uuid.UUID, apierror.ErrorResponse) {
	raw := strings.TrimSpace(c.Param(name))
	if raw == "" {
		return uuid.Nil, apierror.NewMissingParamError(name)
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, apierror.NewInvalidParamTypeError(name, "uuid")
	}
	return id, nil
}

// pageParam reads the 1-based page number. pageId is accepted for older
// clients.
func pageParam(c echo.Context) (int, apierror.ErrorResponse) {
	raw := strings.TrimSpace(c.QueryParam("page"))
	if raw == "" {
		raw = strings.TrimSpace(c.QueryParam("pageId"))
	}
	if raw == "" {
		return 1, nil
	}
	page, err := strconv.Atoi(raw)
	if err != nil {
		return 0, apierror.NewInvalidParamTypeError("page", "integer")
	}
	if page < 1 {
		page = 1
	}
	return page, nil
}
