package coverage

import (
	"fmt"
	"math"

	"github.com/jakechorley/spv-planning/pkg/core/model"
)

// Color classifies a coverage percentage
type Color string

const (
	ColorGreen  Color = "green"
	ColorOrange Color = "orange"
	ColorRed    Color = "red"
)

// Thresholds are inclusive lower bounds, in percent, for green and orange
type Thresholds struct {
	High float64 `yaml:"high" json:"high"`
	Mid  float64 `yaml:"mid" json:"mid"`
}

// Classify returns the color of an already rounded percentage
func (t Thresholds) Classify(percent float64) Color {
	switch {
	case percent >= t.High:
		return ColorGreen
	case percent >= t.Mid:
		return ColorOrange
	default:
		return ColorRed
	}
}

func (t Thresholds) validate(name string) error {
	if t.High < 0 || t.High > 100 || t.Mid < 0 || t.Mid > 100 {
		return fmt.Errorf("%s thresholds must be between 0 and 100", name)
	}
	if t.Mid > t.High {
		return fmt.Errorf("%s mid threshold %.1f is above high threshold %.1f", name, t.Mid, t.High)
	}
	return nil
}

// Policy controls how coverage is computed and classified
type Policy struct {
	// Role applies to slots with role or vehicle needs
	Role Thresholds
	// Headcount applies to slots with only flat headcount needs
	Headcount Thresholds
	// Precision is the number of decimals kept in percentages
	Precision int
	// SlotHours is the duration credited for an assignment in each slot
	SlotHours map[model.Slot]float64
}

// DefaultPolicy returns green at 100% for role slots and 70% for headcount slots,
// one decimal and 6/6/12/6 hour slots
func DefaultPolicy() Policy {
	return Policy{
		Role:      Thresholds{High: 100, Mid: 50},
		Headcount: Thresholds{High: 70, Mid: 40},
		Precision: 1,
		SlotHours: DefaultSlotHours(),
	}
}

// DefaultSlotHours returns the default duration of each slot
func DefaultSlotHours() map[model.Slot]float64 {
	return map[model.Slot]float64{
		model.SlotPrimary:   6,
		model.SlotSecondary: 6,
		model.SlotOnCall:    12,
		model.SlotEvening:   6,
	}
}

// Validate checks the thresholds, precision and slot hours
func (p Policy) Validate() error {
	if err := p.Role.validate("role"); err != nil {
		return err
	}
	if err := p.Headcount.validate("headcount"); err != nil {
		return err
	}
	if p.Precision < 0 || p.Precision > 4 {
		return fmt.Errorf("precision must be between 0 and 4, got %d", p.Precision)
	}
	for slot, hours := range p.SlotHours {
		if !slot.Valid() {
			return fmt.Errorf("invalid slot in slot hours: %d", int(slot))
		}
		if hours < 0 {
			return fmt.Errorf("slot %s hours must not be negative", slot)
		}
	}
	return nil
}

func (p Policy) round(value float64) float64 {
	scale := math.Pow(10, float64(p.Precision))
	return math.Round(value*scale) / scale
}

// Percent returns filled/required as a rounded percentage capped at 100. Nothing required is 100%.
func (p Policy) Percent(filled, required int) float64 {
	if required <= 0 {
		return 100
	}
	percent := float64(filled) / float64(required) * 100
	if percent > 100 {
		percent = 100
	}
	return p.round(percent)
}
