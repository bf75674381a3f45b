package order

import (
	"fmt"
	"sync/atomic"

	"github.com/go-playground/validator/v10"

	"github.com/andrescamacho/lastmile-go/internal/domain/shared"
)

// EntityType is the registry tag for order entities.
const EntityType = "ORDER"

var validate = validator.New()

// Record is the external input shape of an order.
type Record struct {
	Number            int      `json:"number" validate:"required"`
	Name              string   `json:"name" validate:"required"`
	Mass              float64  `json:"mass" validate:"gt=0"`
	Volume            float64  `json:"volume" validate:"gte=0"`
	Price             float64  `json:"price" validate:"gte=0"`
	PickupX           float64  `json:"pickup_x"`
	PickupY           float64  `json:"pickup_y"`
	DeliveryX         float64  `json:"delivery_x"`
	DeliveryY         float64  `json:"delivery_y"`
	TimeFrom          float64  `json:"time_from" validate:"gte=0"`
	TimeTo            float64  `json:"time_to" validate:"gtefield=TimeFrom"`
	OrderType         string   `json:"order_type"`
	IsUrgent          bool     `json:"is_urgent"`
	AppearanceTime    float64  `json:"appearance_time" validate:"gte=0"`
	DisappearanceTime *float64 `json:"disappearance_time,omitempty"`
	ResponseTimeout   float64  `json:"response_timeout"`
}

// DeliveryData holds the currently accepted assignment, or nothing.
type DeliveryData struct {
	CourierName string
	Price       float64
	TimeFrom    float64
	TimeTo      float64
	Assigned    bool
}

// Order is the order entity. Input fields are immutable after construction;
// DeliveryData is mutated only by the order's own agent.
type Order struct {
	Number          int
	Name            string
	Weight          float64
	Volume          float64
	Price           float64
	PointFrom       shared.Point
	PointTo         shared.Point
	TimeFrom        float64
	TimeTo          float64
	OrderType       string
	IsUrgent        bool
	AppearanceTime  float64
	ResponseTimeout float64

	DeliveryData DeliveryData

	deleting atomic.Bool
}

// NewOrder validates the record and builds an order entity.
func NewOrder(rec Record) (*Order, error) {
	if err := validate.Struct(rec); err != nil {
		return nil, fmt.Errorf("invalid order record %q: %w", rec.Name, err)
	}
	if rec.AppearanceTime > rec.TimeFrom {
		return nil, shared.NewValidationError("appearance_time", "must not exceed time_from")
	}
	timeout := rec.ResponseTimeout
	if timeout <= 0 {
		timeout = 1
	}
	return &Order{
		Number:          rec.Number,
		Name:            rec.Name,
		Weight:          rec.Mass,
		Volume:          rec.Volume,
		Price:           rec.Price,
		PointFrom:       shared.NewPoint(rec.PickupX, rec.PickupY),
		PointTo:         shared.NewPoint(rec.DeliveryX, rec.DeliveryY),
		TimeFrom:        rec.TimeFrom,
		TimeTo:          rec.TimeTo,
		OrderType:       rec.OrderType,
		IsUrgent:        rec.IsUrgent,
		AppearanceTime:  rec.AppearanceTime,
		ResponseTimeout: timeout,
	}, nil
}

// Type implements the scene entity contract.
func (o *Order) Type() string { return EntityType }

// EntityName implements the scene entity contract.
func (o *Order) EntityName() string { return o.Name }

// IsDeleting reports whether the entity is being torn down.
func (o *Order) IsDeleting() bool { return o.deleting.Load() }

// MarkDeleting flags the entity so concurrent scene lookups skip it.
func (o *Order) MarkDeleting() { o.deleting.Store(true) }

// ClearDelivery drops the accepted assignment, if any.
func (o *Order) ClearDelivery() {
	o.DeliveryData = DeliveryData{}
}

// URI is the stable identity used by the reference book.
func (o *Order) URI() string { return fmt.Sprintf("Order%d", o.Number) }

func (o *Order) String() string {
	return "order " + o.Name
}
