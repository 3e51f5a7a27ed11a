package optimizer

import (
	"fmt"
	"reflect"
	"slices"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/jakechorley/spv-planning/pkg/core/allocator"
	"github.com/jakechorley/spv-planning/pkg/core/coverage"
	"github.com/jakechorley/spv-planning/pkg/core/model"
	"github.com/jakechorley/spv-planning/pkg/core/requirements"
)

// DefaultMaxPeriodDays bounds the length of a run
const DefaultMaxPeriodDays = 400

// RunConfig is the full configuration of one optimization run
type RunConfig struct {
	Start string            `json:"start" validate:"required,datetime=2006-01-02"`
	End   string            `json:"end" validate:"required,datetime=2006-01-02"`
	Mode  requirements.Mode `json:"mode" validate:"required,oneof=VEHICULES SIMPLIFIE"`

	// Vehicle mode
	Vehicles       []requirements.Vehicle `json:"vehicles"`
	VehicleWeights map[string]float64     `json:"vehicleWeights" validate:"dive,gte=0"`
	CrewSlots      []model.Slot           `json:"crewSlots" validate:"dive,min=1,max=4"`

	// Simplified mode
	PrimaryHeadcount int                           `json:"primaryHeadcount" validate:"gte=0"`
	OnCallNeeds      map[model.Slot]map[string]int `json:"onCallNeeds"`

	// Catalog defaults to the SPV role catalog
	Catalog requirements.Catalog `json:"-"`

	// Overrides adjust requirements on matching dates
	Overrides []requirements.Override `json:"-"`

	FairnessCoefficient   float64                  `json:"fairnessCoefficient" validate:"gte=0"`
	PreferenceCoefficient float64                  `json:"preferenceCoefficient" validate:"gte=0"`
	QuotaMinCoefficient   float64                  `json:"quotaMinCoefficient" validate:"gte=0"`
	RestCoefficient       float64                  `json:"restCoefficient" validate:"gte=0"`
	MaxConsecutiveOnCall  int                      `json:"maxConsecutiveOnCall" validate:"gte=0"`
	PriorityCoefficient   float64                  `json:"priorityCoefficient" validate:"gte=0"`
	FairnessMetric        allocator.FairnessMetric `json:"fairnessMetric" validate:"omitempty,oneof=variance range"`

	// RolePriorities rank grades per role for the priority term
	RolePriorities allocator.RolePriorities `json:"-"`

	Quotas allocator.Quotas `json:"-"`

	SlotOrder []model.Slot        `json:"slotOrder"`
	RankOrder []allocator.RankKey `json:"rankOrder"`

	Coverage coverage.Policy  `json:"-"`
	Budget   allocator.Budget `json:"-"`

	// Workers > 1 fills dates concurrently; results are only reproducible with one worker
	Workers       int `json:"workers" validate:"gte=0,lte=64"`
	MaxPeriodDays int `json:"maxPeriodDays" validate:"gte=1"`
}

var validate *validator.Validate

func init() {
	validate = validator.New()
	validate.RegisterTagNameFunc(func(field reflect.StructField) string {
		name := strings.SplitN(field.Tag.Get("json"), ",", 2)[0]
		if name == "-" || name == "" {
			return field.Name
		}
		return name
	})
}

// DefaultRunConfig returns the default configuration for a period: vehicle mode with the three default vehicles
// crewed on the on-call slot, a primary headcount of 3 and two on-call firefighters on slots 2 to 4 in simplified mode
func DefaultRunConfig(start, end string) RunConfig {
	return RunConfig{
		Start:            start,
		End:              end,
		Mode:             requirements.ModeVehicles,
		Vehicles:         requirements.DefaultVehicles(),
		VehicleWeights:   map[string]float64{"A1": 1, "A2": 1, "F1": 1},
		CrewSlots:        []model.Slot{model.SlotOnCall},
		PrimaryHeadcount: 3,
		OnCallNeeds: map[model.Slot]map[string]int{
			model.SlotSecondary: {requirements.RoleGeneral: 2},
			model.SlotOnCall:    {requirements.RoleGeneral: 2},
			model.SlotEvening:   {requirements.RoleGeneral: 2},
		},
		FairnessCoefficient:   0.1,
		PreferenceCoefficient: 0.05,
		QuotaMinCoefficient:   0.01,
		RestCoefficient:       0.01,
		MaxConsecutiveOnCall:  allocator.DefaultMaxConsecutiveOnCall,
		PriorityCoefficient:   0.01,
		FairnessMetric:        allocator.FairnessVariance,
		SlotOrder:             slices.Clone(allocator.DefaultSlotOrder),
		RankOrder:             slices.Clone(allocator.DefaultRankOrder),
		Coverage:              coverage.DefaultPolicy(),
		Budget:                allocator.DefaultBudget(),
		Workers:               1,
		MaxPeriodDays:         DefaultMaxPeriodDays,
	}
}

// Period returns the validated period of the run
func (c RunConfig) Period() (model.Period, error) {
	return model.NewPeriod(c.Start, c.End)
}

// Validate checks the configuration and returns a *ConfigError naming the first invalid field
func (c RunConfig) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fromValidationError(err)
	}

	start, _ := time.Parse(model.DateLayout, c.Start)
	end, _ := time.Parse(model.DateLayout, c.End)
	if end.Before(start) {
		return configErrorf("end", "end date %s is before start date %s", c.End, c.Start)
	}
	if days := int(end.Sub(start).Hours()/24) + 1; days > c.MaxPeriodDays {
		return configErrorf("end", "period of %d days exceeds the maximum of %d", days, c.MaxPeriodDays)
	}

	if c.Mode == requirements.ModeVehicles {
		if len(c.Vehicles) == 0 {
			return configErrorf("vehicles", "at least one vehicle is required in %s mode", c.Mode)
		}
		for name := range c.VehicleWeights {
			if !slices.ContainsFunc(c.Vehicles, func(v requirements.Vehicle) bool { return v.Name == name }) {
				return configErrorf("vehicleWeights", "unknown vehicle %q", name)
			}
		}
	}

	for slot, needs := range c.OnCallNeeds {
		if slot < model.SlotSecondary || slot > model.SlotEvening {
			return configErrorf("onCallNeeds", "on-call needs only apply to slots 2 to 4, got %d", int(slot))
		}
		for role, count := range needs {
			if count < 0 {
				return configErrorf("onCallNeeds", "need for %s on slot %d must not be negative", role, int(slot))
			}
		}
	}

	for grade, roles := range c.RolePriorities {
		if grade < model.GradeSapeur || grade > model.GradeCapitaine {
			return configErrorf("rolePriorities", "unknown grade %d", int(grade))
		}
		for role, priority := range roles {
			if priority < 0 {
				return configErrorf("rolePriorities", "priority of %s for %s must not be negative", role, grade)
			}
		}
	}

	if err := validateQuota("quotas", c.Quotas.Default); err != nil {
		return err
	}
	for id, quota := range c.Quotas.PerFirefighter {
		if err := validateQuota("quotas", quota); err != nil {
			err.Reason = fmt.Sprintf("firefighter %d: %s", id, err.Reason)
			return err
		}
	}

	if err := validateSlotOrder(c.SlotOrder); err != nil {
		return err
	}
	rankKeys := make([]string, len(c.RankOrder))
	for i, key := range c.RankOrder {
		rankKeys[i] = string(key)
	}
	if _, err := allocator.ParseRankOrder(rankKeys); err != nil {
		return configErrorf("rankOrder", "%s", err.Error())
	}

	if err := c.Coverage.Validate(); err != nil {
		return configErrorf("coverage", "%s", err.Error())
	}

	if c.Budget.MaxIterations < 0 || c.Budget.MaxPasses < 0 || c.Budget.MaxDuration < 0 {
		return configErrorf("budget", "budget bounds must not be negative")
	}

	return nil
}

func validateQuota(field string, quota allocator.Quota) *ConfigError {
	if quota.Min != nil && *quota.Min < 0 {
		return configErrorf(field, "minimum must not be negative, got %d", *quota.Min)
	}
	if quota.Max != nil && *quota.Max < 0 {
		return configErrorf(field, "maximum must not be negative, got %d", *quota.Max)
	}
	if quota.Min != nil && quota.Max != nil && *quota.Min > *quota.Max {
		return configErrorf(field, "minimum %d is above maximum %d", *quota.Min, *quota.Max)
	}
	return nil
}

func validateSlotOrder(order []model.Slot) *ConfigError {
	seen := make(map[model.Slot]bool)
	for _, slot := range order {
		if !slot.Valid() {
			return configErrorf("slotOrder", "invalid slot %d", int(slot))
		}
		if seen[slot] {
			return configErrorf("slotOrder", "duplicate slot %d", int(slot))
		}
		seen[slot] = true
	}
	return nil
}

// requirementsConfig converts the run configuration into the requirement model configuration
func (c RunConfig) requirementsConfig() requirements.Config {
	vehicles := make([]requirements.Vehicle, len(c.Vehicles))
	for i, vehicle := range c.Vehicles {
		vehicles[i] = vehicle
		vehicles[i].Crew = slices.Clone(vehicle.Crew)
		if weight, ok := c.VehicleWeights[vehicle.Name]; ok {
			vehicles[i].Weight = weight
		}
	}

	headcounts := map[model.Slot]int{}
	if c.PrimaryHeadcount > 0 {
		headcounts[model.SlotPrimary] = c.PrimaryHeadcount
	}

	cfg := requirements.Config{
		Mode:      c.Mode,
		Catalog:   c.Catalog,
		Vehicles:  vehicles,
		CrewSlots: c.CrewSlots,
		Overrides: c.Overrides,
	}
	// Vehicle mode only staffs crews; simplified mode only uses headcounts and on-call needs
	if c.Mode == requirements.ModeSimplified {
		cfg.Headcounts = headcounts
		cfg.OnCallNeeds = c.OnCallNeeds
	}
	return cfg
}

func (c RunConfig) coefficients() allocator.Coefficients {
	return allocator.Coefficients{
		Fairness:             c.FairnessCoefficient,
		Preference:           c.PreferenceCoefficient,
		QuotaMin:             c.QuotaMinCoefficient,
		Rest:                 c.RestCoefficient,
		Priority:             c.PriorityCoefficient,
		FairnessMetric:       c.FairnessMetric,
		MaxConsecutiveOnCall: c.MaxConsecutiveOnCall,
		RolePriorities:       c.RolePriorities,
	}
}
