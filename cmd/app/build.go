package app

import (
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/Agrid-Dev/housemocktat/internal/household"
	"github.com/Agrid-Dev/housemocktat/internal/packet"
)

// NewLogger builds the process logger from the log section.
func (c Config) NewLogger() (*logrus.Logger, error) {
	log := logrus.New()
	lvl, err := logrus.ParseLevel(c.Log.Level)
	if err != nil {
		return nil, fmt.Errorf("log level: %w", err)
	}
	log.SetLevel(lvl)
	switch c.Log.Format {
	case "", "text":
		log.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	case "json":
		log.SetFormatter(&logrus.JSONFormatter{})
	default:
		return nil, fmt.Errorf("unsupported log format %q", c.Log.Format)
	}
	return log, nil
}

// Oracle converts the params section into a packet oracle.
func (c Config) Oracle() (packet.Oracle, error) {
	o := make(packet.Oracle, len(c.Params))
	seen := make(map[byte]string, len(c.Params))
	for name, p := range c.Params {
		t, err := packet.ParseParamType(p.Type)
		if err != nil {
			return nil, fmt.Errorf("param %q: %w", name, err)
		}
		if other, dup := seen[p.ID]; dup {
			return nil, fmt.Errorf("params %q and %q share id %d", other, name, p.ID)
		}
		seen[p.ID] = name
		o[name] = packet.Param{ID: p.ID, Type: t}
	}
	return o, nil
}

// BuildHouse instantiates the selected profile. now is used when no start time
// is configured.
func (c Config) BuildHouse(now time.Time) (*household.House, error) {
	p, ok := c.Profiles[c.Profile]
	if !ok {
		return nil, fmt.Errorf("unknown profile %q", c.Profile)
	}

	loc := time.UTC
	if c.Simulation.Location != "" {
		var err error
		if loc, err = time.LoadLocation(c.Simulation.Location); err != nil {
			return nil, fmt.Errorf("location: %w", err)
		}
	}

	label, err := household.ParseEnergyLabel(p.EnergyLabel)
	if err != nil {
		return nil, err
	}

	appliances := make([]household.Appliance, 0, len(p.Appliances))
	for i, ac := range p.Appliances {
		a, err := buildAppliance(ac, c.rand(uint64(i)+1))
		if err != nil {
			return nil, fmt.Errorf("appliance %d (%s): %w", i, ac.Kind, err)
		}
		appliances = append(appliances, a)
	}

	start := c.Simulation.StartTime
	if start == 0 {
		start = now.Unix()
	}

	return household.NewHouse(household.HouseParams{
		EnergyLabel:       label,
		SquareMeters:      p.SquareMeters,
		WallHeightMeters:  p.WallHeight,
		StartTemperature:  p.StartTemperature,
		StartTime:         start,
		ActiveDaysPerYear: p.ActiveDaysPerYear,
		Background: household.BackgroundParams{
			Coefficients: p.Background.Coefficients,
			Fluctuation:  p.Background.Fluctuation,
		},
		RandomHeatLossChance: p.RandomHeatLossChance,
		Location:             loc,
		Rand:                 c.rand(0),
	}, appliances...)
}

// rand returns the source for entity offset: 0 is the house, i+1 appliance i.
func (c Config) rand(offset uint64) *household.RandomSource {
	if c.Simulation.Seed == 0 {
		return household.NewUnseededRandomSource()
	}
	return household.NewRandomSource(c.Simulation.Seed + offset)
}

func buildAppliance(ac ApplianceConfig, rng *household.RandomSource) (household.Appliance, error) {
	kind, err := household.ParseKind(ac.Kind)
	if err != nil {
		return nil, err
	}

	if kind == household.KindHeatpump {
		return household.NewHeatpump(household.HeatpumpParams{
			PowerUsage:         ac.PowerUsage,
			PowerFluctuation:   ac.PowerFluctuation,
			TargetTemperature:  ac.TargetTemperature,
			HeatingMultiplier:  ac.HeatingMultiplier,
			HeatingFluctuation: ac.HeatingFluctuation,
			Rand:               rng,
		})
	}

	params := household.CycleParams{
		PowerUsage:          ac.PowerUsage,
		PowerFluctuation:    ac.PowerFluctuation,
		Controllable:        ac.Controllable,
		Coefficients:        ac.Coefficients,
		AllowedCyclesPerDay: ac.CyclesPerDay,
		CycleDuration:       household.CycleRange{Min: ac.CycleMin, Max: ac.CycleMax},
		Rand:                rng,
	}
	if kind == household.KindOven {
		return household.NewOven(params)
	}
	return household.NewDryer(params)
}
