package courier

import (
	"fmt"
	"strings"
	"sync/atomic"

	"github.com/go-playground/validator/v10"

	"github.com/andrescamacho/lastmile-go/internal/domain/shared"
)

// EntityType is the registry tag for courier entities.
const EntityType = "COURIER"

var validate = validator.New()

// Record is the external input shape of a courier.
type Record struct {
	Number            int      `json:"number" validate:"required"`
	Name              string   `json:"name" validate:"required"`
	InitX             float64  `json:"init_x"`
	InitY             float64  `json:"init_y"`
	DeploymentCost    float64  `json:"deployment_cost" validate:"gte=0"`
	Rate              float64  `json:"rate" validate:"gte=0"`
	ChargeVelocity    float64  `json:"charge_velocity" validate:"gt=0"`
	FlightDischarge   float64  `json:"flight_discharge" validate:"gte=0"`
	LoadDischargeA    float64  `json:"load_discharge_a"`
	LoadDischargeB    float64  `json:"load_discharge_b"`
	Capacity          float64  `json:"capacity" validate:"gt=0"`
	InitTime          float64  `json:"init_time" validate:"gte=0"`
	Speed             float64  `json:"speed" validate:"gt=0"`
	MaxMass           float64  `json:"max_mass" validate:"gt=0"`
	AppearanceTime    float64  `json:"appearance_time" validate:"gte=0"`
	DisappearanceTime *float64 `json:"disappearance_time,omitempty"`
	MinCharge         float64  `json:"min_charge" validate:"gte=0"`
	// Types is the semicolon-separated list of accepted order types.
	Types string `json:"types"`
}

// Courier is the courier entity. Physical parameters are immutable after
// construction; Schedule is mutated only inside the courier's own agent.
type Courier struct {
	Number          int
	Name            string
	InitPoint       shared.Point
	DeploymentCost  float64
	Rate            float64
	ChargeVelocity  float64
	FlightDischarge float64
	LoadDischargeA  float64
	LoadDischargeB  float64
	Capacity        float64
	MinCharge       float64
	InitTime        float64
	Velocity        float64
	MaxMass         float64
	AppearanceTime  float64
	Types           []string

	Schedule *Schedule

	deleting atomic.Bool
}

// NewCourier validates the record and builds a courier entity.
func NewCourier(rec Record) (*Courier, error) {
	if err := validate.Struct(rec); err != nil {
		return nil, fmt.Errorf("invalid courier record %q: %w", rec.Name, err)
	}
	if rec.MinCharge >= rec.Capacity {
		return nil, shared.NewValidationError("min_charge", "must be below battery capacity")
	}
	c := &Courier{
		Number:          rec.Number,
		Name:            rec.Name,
		InitPoint:       shared.NewPoint(rec.InitX, rec.InitY),
		DeploymentCost:  rec.DeploymentCost,
		Rate:            rec.Rate,
		ChargeVelocity:  rec.ChargeVelocity,
		FlightDischarge: rec.FlightDischarge,
		LoadDischargeA:  rec.LoadDischargeA,
		LoadDischargeB:  rec.LoadDischargeB,
		Capacity:        rec.Capacity,
		MinCharge:       rec.MinCharge,
		InitTime:        rec.InitTime,
		Velocity:        rec.Speed,
		MaxMass:         rec.MaxMass,
		AppearanceTime:  rec.AppearanceTime,
		Types:           splitTypes(rec.Types),
	}
	c.Schedule = NewSchedule(c)
	return c, nil
}

func splitTypes(raw string) []string {
	if raw == "" {
		return nil
	}
	parts := strings.Split(raw, ";")
	types := make([]string, 0, len(parts))
	for _, p := range parts {
		if t := strings.TrimSpace(p); t != "" {
			types = append(types, t)
		}
	}
	return types
}

// Accepts reports whether the courier delivers orders of the given type.
// A courier with no type list accepts everything.
func (c *Courier) Accepts(orderType string) bool {
	if len(c.Types) == 0 {
		return true
	}
	for _, t := range c.Types {
		if t == orderType {
			return true
		}
	}
	return false
}

// Type implements the scene entity contract.
func (c *Courier) Type() string { return EntityType }

// EntityName implements the scene entity contract.
func (c *Courier) EntityName() string { return c.Name }

// IsDeleting reports whether the entity is being torn down.
func (c *Courier) IsDeleting() bool { return c.deleting.Load() }

// MarkDeleting flags the entity so concurrent scene lookups skip it.
func (c *Courier) MarkDeleting() { c.deleting.Store(true) }

// URI is the stable identity used by the reference book.
func (c *Courier) URI() string { return fmt.Sprintf("Courier%d", c.Number) }

func (c *Courier) String() string {
	return "courier " + c.Name
}
