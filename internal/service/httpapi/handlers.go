package httpapi

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/vladislavdragonenkov/frogcafe/internal/service/orders"
)

// OrdersAPI связывает HTTP-транспорт с сервисом заказов.
type OrdersAPI struct {
	service orders.Service
}

// NewOrdersAPI создаёт обработчики /orders.
func NewOrdersAPI(service orders.Service) *OrdersAPI {
	return &OrdersAPI{service: service}
}

// CreateOrder обрабатывает POST /orders.
func (api *OrdersAPI) CreateOrder(c *gin.Context) {
	caller := callerFrom(c)
	order, err := api.service.CreateOrder(c.Request.Context(), caller.UserID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, toOrderResponse(order))
}

// GetOrder обрабатывает GET /orders/:id.
func (api *OrdersAPI) GetOrder(c *gin.Context) {
	id, ok := orderIDParam(c)
	if !ok {
		return
	}
	order, err := api.service.GetOrder(c.Request.Context(), callerFrom(c), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, toOrderResponse(order))
}

// SetStatus обрабатывает PUT /orders/:id/status.
func (api *OrdersAPI) SetStatus(c *gin.Context) {
	id, ok := orderIDParam(c)
	if !ok {
		return
	}
	var req SetStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondProblem(c, problemBadRequest.withDetail("body must be {\"status_id\": <int>}"))
		return
	}
	order, err := api.service.SetStatus(c.Request.Context(), id, *req.StatusID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, toOrderResponse(order))
}

// DeleteOrder обрабатывает DELETE /orders/:id.
func (api *OrdersAPI) DeleteOrder(c *gin.Context) {
	id, ok := orderIDParam(c)
	if !ok {
		return
	}
	if err := api.service.DeleteOrder(c.Request.Context(), id); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// ClearAll обрабатывает DELETE /orders, доступен только администратору.
func (api *OrdersAPI) ClearAll(c *gin.Context) {
	if _, err := api.service.ClearAll(c.Request.Context()); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func orderIDParam(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		respondProblem(c, problemBadRequest.withDetail("order id must be a positive integer"))
		return 0, false
	}
	return id, true
}
