package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/fasttag/tag-position-api/internal/core/ports"
)

// PositionHandler serves device position lookups and bulk listings.
type PositionHandler struct {
	service       ports.PositionService
	defaultVendor string
}

// NewPositionHandler creates a PositionHandler. defaultVendor serves the
// single-segment lookup route.
func NewPositionHandler(service ports.PositionService, defaultVendor string) *PositionHandler {
	return &PositionHandler{service: service, defaultVendor: defaultVendor}
}

// Locate handles GET /tag/position/:vendor/:publicKey.
//
// @Summary      Get the current position of a device
// @Tags         positions
// @Produce      json
// @Security     BearerAuth
// @Param        vendor      path      string  true   "Vendor tag (mt01, mt02, webtag)"
// @Param        publicKey   path      string  true   "Device public identifier"
// @Param        timePeriod  query     string  false  "Vendor time period selector (mt01 only)"
// @Success      200         {object}  domain.PositionResponse
// @Failure      400         {object}  errorResponse
// @Failure      401         {object}  errorResponse
// @Failure      500         {object}  errorResponse
// @Failure      503         {object}  errorResponse
// @Router       /tag/position/{vendor}/{publicKey} [get]
func (h *PositionHandler) Locate(c echo.Context) error {
	var req locateRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request")
	}
	if err := c.Validate(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	return h.locate(c, req.Vendor, req.PublicKey, req.TimePeriod)
}

// LocateDefault handles GET /tag/position/:publicKey against the default vendor.
//
// @Summary      Get the current position of a device from the default vendor
// @Tags         positions
// @Produce      json
// @Security     BearerAuth
// @Param        publicKey   path      string  true   "Device public identifier"
// @Param        timePeriod  query     string  false  "Vendor time period selector"
// @Success      200         {object}  domain.PositionResponse
// @Failure      400         {object}  errorResponse
// @Failure      500         {object}  errorResponse
// @Failure      503         {object}  errorResponse
// @Router       /tag/position/{publicKey} [get]
func (h *PositionHandler) LocateDefault(c echo.Context) error {
	var req locateDefaultRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request")
	}
	if err := c.Validate(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	return h.locate(c, h.defaultVendor, req.PublicKey, req.TimePeriod)
}

func (h *PositionHandler) locate(c echo.Context, vendor, publicKey, timePeriod string) error {
	resp, err := h.service.Locate(c.Request().Context(), ports.LocateInput{
		Vendor:     vendor,
		PublicKey:  publicKey,
		TimePeriod: timePeriod,
	})
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, resp)
}

// List handles GET /tag/:vendor/all. An incomplete listing is still a 200,
// flagged with the X-Partial-Result header.
//
// @Summary      List every device visible to the vendor credentials
// @Tags         positions
// @Produce      json
// @Security     BearerAuth
// @Param        vendor  path      string  true  "Vendor tag supporting bulk listing (mt02)"
// @Success      200     {array}   domain.ListedDevice
// @Header       200     {string}  X-Partial-Result  "true when the listing stopped early"
// @Failure      400     {object}  errorResponse
// @Failure      401     {object}  errorResponse
// @Failure      403     {object}  errorResponse
// @Failure      503     {object}  errorResponse
// @Router       /tag/{vendor}/all [get]
func (h *PositionHandler) List(c echo.Context) error {
	var req listRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request")
	}
	if err := c.Validate(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	listing, err := h.service.List(c.Request().Context(), req.Vendor)
	if err != nil {
		return err
	}
	if !listing.Complete {
		c.Response().Header().Set(HeaderPartialResult, "true")
	}
	return c.JSON(http.StatusOK, listing.Devices)
}

// Vendors handles GET /tag/vendors.
//
// @Summary      Report vendor availability
// @Tags         positions
// @Produce      json
// @Security     BearerAuth
// @Success      200  {array}  vendorStatusResponse
// @Router       /tag/vendors [get]
func (h *PositionHandler) Vendors(c echo.Context) error {
	statuses := h.service.Vendors()
	out := make([]vendorStatusResponse, 0, len(statuses))
	for _, st := range statuses {
		out = append(out, vendorStatusResponse{Vendor: st.Vendor, Available: st.Available, Reason: st.Reason})
	}
	return c.JSON(http.StatusOK, out)
}
