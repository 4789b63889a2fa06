package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"spp-forecast/internal/api/models"
	"spp-forecast/internal/ercot"
)

// SettlementPointsHandler lists the settlement points the API accepts.
type SettlementPointsHandler struct {
	catalog      *ercot.Catalog
	defaultPoint string
}

func NewSettlementPointsHandler(catalog *ercot.Catalog, defaultPoint string) *SettlementPointsHandler {
	if catalog == nil {
		catalog = ercot.DefaultCatalog()
	}
	return &SettlementPointsHandler{catalog: catalog, defaultPoint: defaultPoint}
}

// List handles GET /api/v1/settlement-points
func (h *SettlementPointsHandler) List(c *gin.Context) {
	points := make([]models.SettlementPointInfo, len(h.catalog.Points))
	for i, p := range h.catalog.Points {
		points[i] = models.SettlementPointInfo{ID: p.ID, Name: p.Name, Type: p.Type}
	}

	c.JSON(http.StatusOK, models.SettlementPointsResponse{
		OK:               true,
		SettlementPoints: points,
		Default:          h.defaultPoint,
		UpdatedAt:        h.catalog.UpdatedAt,
		Count:            len(points),
	})
}
