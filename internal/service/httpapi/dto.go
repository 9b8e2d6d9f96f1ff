package httpapi

import (
	"time"

	"github.com/vladislavdragonenkov/frogcafe/internal/domain"
)

// OrderResponse — JSON-представление заказа.
type OrderResponse struct {
	ID        int64          `json:"id"`
	CreatedAt time.Time      `json:"created_at"`
	Status    string         `json:"status"`
	ToadID    *int64         `json:"toad_id,omitempty"`
	Items     []ItemResponse `json:"items"`
}

// ItemResponse — позиция заказа, сгруппированная по блюду.
type ItemResponse struct {
	MenuItemID  int64  `json:"menu_item_id"`
	DishName    string `json:"dish_name"`
	Category    string `json:"category"`
	IsAvailable bool   `json:"is_available"`
	Quantity    int32  `json:"quantity"`
}

// SetStatusRequest — тело PUT /orders/:id/status.
type SetStatusRequest struct {
	StatusID *int64 `json:"status_id" binding:"required"`
}

func toOrderResponse(order domain.Order) OrderResponse {
	items := make([]ItemResponse, 0, len(order.Items))
	for _, item := range order.Items {
		items = append(items, ItemResponse{
			MenuItemID:  item.MenuItemID,
			DishName:    item.DishName,
			Category:    item.Category,
			IsAvailable: item.IsAvailable,
			Quantity:    item.Quantity,
		})
	}

	return OrderResponse{
		ID:        order.ID,
		CreatedAt: order.CreatedAt.UTC(),
		Status:    order.StatusName,
		ToadID:    order.ToadID,
		Items:     items,
	}
}
