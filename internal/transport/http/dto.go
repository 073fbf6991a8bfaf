package http

import (
	"github.com/shopspring/decimal"

	"github.com/Bayazov/OrderManagement/internal/domain"
)

// ProductDTO — wire-представление позиции заказа.
type ProductDTO struct {
	ProductID int64           `json:"productId,omitempty"`
	Name      string          `json:"name"`
	Price     decimal.Decimal `json:"price"`
	Quantity  int             `json:"quantity"`
}

// OrderDTO — wire-представление заказа.
type OrderDTO struct {
	OrderID      int64           `json:"orderId,omitempty"`
	CustomerName string          `json:"customerName"`
	Status       string          `json:"status"`
	TotalPrice   decimal.Decimal `json:"totalPrice"`
	Products     []ProductDTO    `json:"products"`
}

// toDomain конвертирует DTO в доменный заказ.
// Пустой статус остаётся пустым: его отвергнет валидация сервиса.
func (dto OrderDTO) toDomain() (domain.Order, error) {
	order := domain.Order{
		CustomerName: dto.CustomerName,
		TotalPrice:   dto.TotalPrice,
	}

	if dto.Status != "" {
		status, err := domain.ParseOrderStatus(dto.Status)
		if err != nil {
			return domain.Order{}, err
		}
		order.Status = status
	}

	order.Products = make([]domain.Product, 0, len(dto.Products))
	for _, p := range dto.Products {
		order.Products = append(order.Products, domain.Product{
			ID:       p.ProductID,
			Name:     p.Name,
			Price:    p.Price,
			Quantity: p.Quantity,
		})
	}

	return order, nil
}

func toOrderDTO(order domain.Order) OrderDTO {
	products := make([]ProductDTO, 0, len(order.Products))
	for _, p := range order.Products {
		products = append(products, ProductDTO{
			ProductID: p.ID,
			Name:      p.Name,
			Price:     p.Price,
			Quantity:  p.Quantity,
		})
	}

	return OrderDTO{
		OrderID:      order.ID,
		CustomerName: order.CustomerName,
		Status:       string(order.Status),
		TotalPrice:   order.TotalPrice,
		Products:     products,
	}
}

func toOrderDTOs(orders []domain.Order) []OrderDTO {
	result := make([]OrderDTO, 0, len(orders))
	for _, order := range orders {
		result = append(result, toOrderDTO(order))
	}
	return result
}
