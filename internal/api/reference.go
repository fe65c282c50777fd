package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/mr1hm/sentinel-sea/internal/filter"
	"github.com/mr1hm/sentinel-sea/internal/reference"
)

func (h *Handler) listMPAs(c *gin.Context) {
	ctx, cancel := requestContext(c)
	defer cancel()

	mpas, err := h.Catalogue.MPAs(ctx)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"mpas": mpas, "count": len(mpas)})
}

func (h *Handler) listVessels(c *gin.Context) {
	ctx, cancel := requestContext(c)
	defer cancel()

	vs, err := h.Catalogue.Vessels(ctx, filter.VesselCriteria{Search: c.Query("search"), Trust: c.Query("trust")})
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"vessels": vs, "count": len(vs)})
}

func (h *Handler) getVessel(c *gin.Context) {
	ctx, cancel := requestContext(c)
	defer cancel()

	v, err := h.Catalogue.Vessel(ctx, c.Param("vesselId"))
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, v)
}

func (h *Handler) vesselHistory(c *gin.Context) {
	ctx, cancel := requestContext(c)
	defer cancel()

	hist, err := h.Catalogue.VesselHistory(ctx, c.Param("vesselId"), c.DefaultQuery("range", reference.DefaultRange))
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, hist)
}
