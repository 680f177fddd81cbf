package http

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/tazhibayda/tours-service/internal/domain"
	"github.com/tazhibayda/tours-service/internal/query"
	"github.com/tazhibayda/tours-service/internal/repo"
)

type createTourReq struct {
	Name          string   `json:"name" binding:"required"`
	Duration      float64  `json:"duration" binding:"required,gt=0"`
	MaxGroupSize  int      `json:"maxGroupSize" binding:"required,gt=0"`
	Difficulty    string   `json:"difficulty" binding:"required,oneof=easy medium difficult"`
	Price         float64  `json:"price" binding:"required,gt=0"`
	PriceDiscount float64  `json:"priceDiscount" binding:"omitempty,ltfield=Price"`
	Summary       string   `json:"summary" binding:"required"`
	Description   string   `json:"description"`
	ImageCover    string   `json:"imageCover"`
	Images        []string `json:"images"`
}

// ListTours godoc
// @Summary List tours
// @Tags tours
// @Produce json
// @Param sort query string false "comma-separated fields, - for descending"
// @Param fields query string false "projection field list"
// @Param page query int false "page number"
// @Param limit query int false "page size"
// @Success 200 {object} map[string]any
// @Router /api/v1/tours [get]
func (h *Handler) ListTours(c *gin.Context) {
	f := query.New(c.Request.URL.Query()).Filter().Sort().LimitFields().Paginate()
	tours, err := h.Tours.FindTours(c.Request.Context(), f)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"status":  "success",
		"results": len(tours),
		"data":    gin.H{"tours": tours},
	})
}

// GetTour godoc
// @Summary Get one tour
// @Tags tours
// @Produce json
// @Param id path string true "tour id"
// @Success 200 {object} map[string]any
// @Failure 404 {object} map[string]string
// @Router /api/v1/tours/{id} [get]
func (h *Handler) GetTour(c *gin.Context) {
	id, err := primitive.ObjectIDFromHex(c.Param("id"))
	if err != nil {
		respondError(c, badRequest("invalid tour id"))
		return
	}
	t, err := h.Tours.FindTourByID(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	if t == nil {
		respondError(c, notFound("no tour found with that id"))
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "success", "data": gin.H{"tour": t}})
}

// CreateTour godoc
// @Summary Create a tour
// @Tags tours
// @Security BearerAuth
// @Accept json
// @Produce json
// @Param payload body createTourReq true "tour"
// @Success 201 {object} map[string]any
// @Failure 400 {object} map[string]string
// @Router /api/v1/tours [post]
func (h *Handler) CreateTour(c *gin.Context) {
	var in createTourReq
	if err := c.ShouldBindJSON(&in); err != nil {
		respondError(c, badRequest("invalid tour payload"))
		return
	}
	t := &domain.Tour{
		Name:          in.Name,
		Duration:      in.Duration,
		MaxGroupSize:  in.MaxGroupSize,
		Difficulty:    in.Difficulty,
		Price:         in.Price,
		PriceDiscount: in.PriceDiscount,
		Summary:       in.Summary,
		Description:   in.Description,
		ImageCover:    in.ImageCover,
		Images:        in.Images,
	}
	if err := h.Tours.InsertTour(c.Request.Context(), t); err != nil {
		if err == repo.ErrDuplicateTourName {
			respondError(c, badRequest("a tour with that name already exists"))
			return
		}
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"status": "success", "data": gin.H{"tour": t}})
}

// protected fields that a PATCH body must never touch
var immutableTourFields = []string{"_id", "id", "created_at", "createdAt"}

// UpdateTour godoc
// @Summary Patch a tour
// @Tags tours
// @Security BearerAuth
// @Accept json
// @Produce json
// @Param id path string true "tour id"
// @Success 200 {object} map[string]any
// @Failure 404 {object} map[string]string
// @Router /api/v1/tours/{id} [patch]
func (h *Handler) UpdateTour(c *gin.Context) {
	id, err := primitive.ObjectIDFromHex(c.Param("id"))
	if err != nil {
		respondError(c, badRequest("invalid tour id"))
		return
	}
	var set bson.M
	if err := c.ShouldBindJSON(&set); err != nil {
		respondError(c, badRequest("invalid tour payload"))
		return
	}
	for _, k := range immutableTourFields {
		delete(set, k)
	}
	if len(set) == 0 {
		respondError(c, badRequest("nothing to update"))
		return
	}
	t, err := h.Tours.UpdateTour(c.Request.Context(), id, set)
	if err != nil {
		if err == repo.ErrDuplicateTourName {
			respondError(c, badRequest("a tour with that name already exists"))
			return
		}
		respondError(c, err)
		return
	}
	if t == nil {
		respondError(c, notFound("no tour found with that id"))
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "success", "data": gin.H{"tour": t}})
}

// DeleteTour godoc
// @Summary Delete a tour
// @Tags tours
// @Security BearerAuth
// @Param id path string true "tour id"
// @Success 204
// @Failure 404 {object} map[string]string
// @Router /api/v1/tours/{id} [delete]
func (h *Handler) DeleteTour(c *gin.Context) {
	id, err := primitive.ObjectIDFromHex(c.Param("id"))
	if err != nil {
		respondError(c, badRequest("invalid tour id"))
		return
	}
	deleted, err := h.Tours.DeleteTour(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	if !deleted {
		respondError(c, notFound("no tour found with that id"))
		return
	}
	c.Status(http.StatusNoContent)
}
