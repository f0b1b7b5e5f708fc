package echo

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	echov4 "github.com/labstack/echo/v4"

	"github.com/flanksource/gigs/api"
	"github.com/flanksource/gigs/lifecycle"
	"github.com/flanksource/gigs/models"
)

type idError struct {
	value string
}

func (e idError) Error() string {
	return fmt.Sprintf("%q is not an integer", e.value)
}

// optionalID accepts a JSON number, a numeric string or a path/query value;
// null and "" leave it unset.
type optionalID struct {
	Value int64
	Set   bool
}

func (o *optionalID) UnmarshalJSON(b []byte) error {
	s := strings.TrimSpace(string(b))
	if s == "null" {
		return nil
	}
	return o.UnmarshalParam(strings.Trim(s, `"`))
}

func (o *optionalID) UnmarshalParam(s string) error {
	if s == "" {
		return nil
	}
	id, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return idError{value: s}
	}
	o.Value, o.Set = id, true
	return nil
}

// gigRequest binds gig_id from the query string and then the body, so a
// body value wins.
type gigRequest struct {
	GigID optionalID `query:"gig_id" json:"gig_id"`
}

type statusRequest struct {
	ID     optionalID               `param:"id" json:"-"`
	Status models.ApplicationStatus `json:"status"`
}

type CreateResponse struct {
	Status      string              `json:"status"`
	Application *models.Application `json:"application"`
}

// bind runs the echo binder and maps its failures to invalid request errors.
// field names the integer the request carries for the malformed-id message.
func bind(c echov4.Context, field string, v any) error {
	err := c.Bind(v)
	if err == nil {
		return nil
	}

	// HTTPError unwraps to its internal error.
	var ie idError
	if errors.As(err, &ie) {
		return api.Errorf(api.EINVALID, "%s must be an integer", field)
	}

	var he *echov4.HTTPError
	if errors.As(err, &he) {
		return api.Errorf(api.EINVALID, "invalid request body").WithDebugInfo("%v", he.Message)
	}
	return api.Errorf(api.EINVALID, "invalid request body").WithDebugInfo("%v", err)
}

type applications struct {
	service *lifecycle.Service
}

// RegisterApplicationRoutes mounts the application endpoints behind auth.
func RegisterApplicationRoutes(e *echov4.Echo, service *lifecycle.Service, authenticate echov4.MiddlewareFunc) {
	h := applications{service: service}
	g := e.Group("/applications", authenticate)
	g.POST("", h.Create)
	g.GET("", h.List)
	g.DELETE("", h.Delete)
	g.PATCH("/:id", h.UpdateStatus)
}

func (h applications) Create(c echov4.Context) error {
	ctx := requestContext(c)

	var req gigRequest
	if err := bind(c, "gig_id", &req); err != nil {
		return api.WriteError(c, err)
	}

	app, err := h.service.Create(ctx, req.GigID.Value)
	if err != nil {
		return api.WriteError(c, err)
	}
	return c.JSON(http.StatusCreated, CreateResponse{Status: string(models.ApplicationStatusApplied), Application: app})
}

func (h applications) List(c echov4.Context) error {
	ctx := requestContext(c)

	var req gigRequest
	if err := bind(c, "gig_id", &req); err != nil {
		return api.WriteError(c, err)
	}

	var filter lifecycle.ListFilter
	if req.GigID.Set {
		filter.GigID = &req.GigID.Value
	}

	views, err := h.service.List(ctx, filter)
	if err != nil {
		return api.WriteError(c, err)
	}
	return c.JSON(http.StatusOK, views)
}

func (h applications) UpdateStatus(c echov4.Context) error {
	ctx := requestContext(c)

	var req statusRequest
	if err := bind(c, "application id", &req); err != nil {
		return api.WriteError(c, err)
	}

	app, err := h.service.UpdateStatus(ctx, req.ID.Value, req.Status)
	if err != nil {
		return api.WriteError(c, err)
	}
	return c.JSON(http.StatusOK, app)
}

func (h applications) Delete(c echov4.Context) error {
	ctx := requestContext(c)

	var req gigRequest
	if err := bind(c, "gig_id", &req); err != nil {
		return api.WriteError(c, err)
	}

	if err := h.service.Delete(ctx, req.GigID.Value); err != nil {
		return api.WriteError(c, err)
	}
	return api.WriteStatus(c, "deleted")
}
