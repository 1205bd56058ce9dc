package tuning

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

type Tuning struct {
	DayTicks int `yaml:"day_ticks"`

	Pricing Pricing `yaml:"pricing"`
	Arrival Arrival `yaml:"arrival"`
	Catalog Catalog `yaml:"catalog"`
	Session Session `yaml:"session"`
	Caravan Caravan `yaml:"caravan"`
}

type Pricing struct {
	RequestMarkup float64 `yaml:"request_markup"`

	// Distance tiers, highest applicable wins.
	DistanceTiers []DistanceTier `yaml:"distance_tiers"`

	AllyGoodwill        int     `yaml:"ally_goodwill"`
	MaxRelationDiscount float64 `yaml:"max_relation_discount"`
	MaxSkillDiscount    float64 `yaml:"max_skill_discount"`

	ApparelCostMult float64 `yaml:"apparel_cost_mult"`
	WeaponCostMult  float64 `yaml:"weapon_cost_mult"`
	GenericCostMult float64 `yaml:"generic_cost_mult"`
}

type DistanceTier struct {
	MinDays float64 `yaml:"min_days"`
	Mult    float64 `yaml:"mult"`
}

type Arrival struct {
	SettlementRadius   int     `yaml:"settlement_radius"`
	DefaultJourneyDays float64 `yaml:"default_journey_days"`
}

type Catalog struct {
	BatchPerTick int      `yaml:"batch_per_tick"`
	Restricted   []string `yaml:"restricted"`
}

type Session struct {
	CooldownTicks uint64 `yaml:"cooldown_ticks"`
}

type Caravan struct {
	HarmCooldownTicks       uint64  `yaml:"harm_cooldown_ticks"`
	UnfulfilledWaitMinTicks uint64  `yaml:"unfulfilled_wait_min_ticks"`
	UnfulfilledWaitMaxTicks uint64  `yaml:"unfulfilled_wait_max_ticks"`
	AttackEscortDelayTicks  uint64  `yaml:"attack_escort_delay_ticks"`
	CasualtyExitFraction    float64 `yaml:"casualty_exit_fraction"`

	PartialSmallMaxValue float64 `yaml:"partial_small_max_value"`
	PartialLargeMinValue float64 `yaml:"partial_large_min_value"`
	PartialPenaltySmall  int     `yaml:"partial_penalty_small"`
	PartialPenaltyMedium int     `yaml:"partial_penalty_medium"`
	PartialPenaltyLarge  int     `yaml:"partial_penalty_large"`

	UnfulfilledAllyPenalty int `yaml:"unfulfilled_ally_penalty"`
}

func Load(path string) (Tuning, error) {
	var t Tuning
	raw, err := os.ReadFile(path)
	if err != nil {
		return t, err
	}
	if err := yaml.Unmarshal(raw, &t); err != nil {
		return t, fmt.Errorf("tuning.yaml: %w", err)
	}
	t.ApplyDefaults()
	return t, nil
}

func Default() Tuning {
	var t Tuning
	t.ApplyDefaults()
	return t
}

// ApplyDefaults fills zero-valued fields so a sparse tuning file still
// yields a playable configuration.
func (t *Tuning) ApplyDefaults() {
	if t.DayTicks <= 0 {
		t.DayTicks = 60000
	}

	p := &t.Pricing
	if p.RequestMarkup <= 0 {
		p.RequestMarkup = 1.5
	}
	if len(p.DistanceTiers) == 0 {
		p.DistanceTiers = []DistanceTier{
			{MinDays: 1.5, Mult: 1.1},
			{MinDays: 2.5, Mult: 1.25},
			{MinDays: 4, Mult: 1.5},
		}
	}
	if p.AllyGoodwill <= 0 {
		p.AllyGoodwill = 75
	}
	if p.MaxRelationDiscount <= 0 {
		p.MaxRelationDiscount = 0.60
	}
	if p.MaxSkillDiscount <= 0 {
		p.MaxSkillDiscount = 0.60
	}
	if p.ApparelCostMult <= 0 {
		p.ApparelCostMult = 1.0
	}
	if p.WeaponCostMult <= 0 {
		p.WeaponCostMult = 1.0
	}
	if p.GenericCostMult <= 0 {
		p.GenericCostMult = 1.0
	}

	if t.Arrival.SettlementRadius <= 0 {
		t.Arrival.SettlementRadius = 60
	}
	if t.Arrival.DefaultJourneyDays <= 0 {
		t.Arrival.DefaultJourneyDays = 3.5
	}

	if t.Catalog.BatchPerTick <= 0 {
		t.Catalog.BatchPerTick = 50
	}

	if t.Session.CooldownTicks == 0 {
		t.Session.CooldownTicks = uint64(4 * t.DayTicks)
	}

	c := &t.Caravan
	if c.HarmCooldownTicks == 0 {
		c.HarmCooldownTicks = 1200
	}
	if c.UnfulfilledWaitMinTicks == 0 {
		c.UnfulfilledWaitMinTicks = uint64(t.DayTicks / 2)
	}
	if c.UnfulfilledWaitMaxTicks == 0 {
		c.UnfulfilledWaitMaxTicks = uint64(t.DayTicks + t.DayTicks/4)
	}
	if c.AttackEscortDelayTicks == 0 {
		c.AttackEscortDelayTicks = 10000
	}
	if c.CasualtyExitFraction <= 0 {
		c.CasualtyExitFraction = 0.20
	}
	if c.PartialSmallMaxValue <= 0 {
		c.PartialSmallMaxValue = 400
	}
	if c.PartialLargeMinValue <= 0 {
		c.PartialLargeMinValue = 1200
	}
	if c.PartialPenaltySmall == 0 {
		c.PartialPenaltySmall = -5
	}
	if c.PartialPenaltyMedium == 0 {
		c.PartialPenaltyMedium = -10
	}
	if c.PartialPenaltyLarge == 0 {
		c.PartialPenaltyLarge = -20
	}
	if c.UnfulfilledAllyPenalty == 0 {
		c.UnfulfilledAllyPenalty = -30
	}
}
