package app

import "time"

// Curves fitted to measured Danish household data, coefficients in increasing
// degree over the hour of day.
var (
	ovenCoefficients = []float64{
		5.11972665e-04, -7.03402445e-04, 7.68026707e-04, -3.66363583e-04, 8.96781866e-05,
		-1.14300653e-05, 7.10339539e-07, -1.23448103e-08, -8.17581893e-10, 4.38334209e-11,
		-6.15768582e-13,
	}
	dryerCoefficients = []float64{
		2.99514846e-04, 5.92930103e-04, -9.95959187e-04, 5.19274499e-04, -1.33220995e-04,
		1.99077151e-05, -1.84839322e-06, 1.07680202e-07, -3.80412797e-09, 7.40399062e-11,
		-6.06187573e-13,
	}
	backgroundCoefficients = []float64{
		2.99994599e-01, -5.51791329e-04, -4.13148994e-02, 2.10030766e-02, -4.10493904e-03,
		4.10768972e-04, -2.29920196e-05, 7.26545140e-07, -1.20913754e-08, 8.21833884e-11,
	}
)

func smallProfile() ProfileConfig {
	return ProfileConfig{
		EnergyLabel:          "d",
		SquareMeters:         150,
		WallHeight:           2.8,
		StartTemperature:     22,
		ActiveDaysPerYear:    212,
		RandomHeatLossChance: 0.01,
		Background: BackgroundConfig{
			Coefficients: backgroundCoefficients,
		},
		Appliances: []ApplianceConfig{
			{
				Kind:             "oven",
				PowerUsage:       1.1,
				PowerFluctuation: 0.02,
				Coefficients:     ovenCoefficients,
				CyclesPerDay:     1,
				CycleMin:         30,
				CycleMax:         120,
			},
			{
				Kind:             "dryer",
				PowerUsage:       1.47,
				PowerFluctuation: 0.02,
				Coefficients:     dryerCoefficients,
				CyclesPerDay:     1,
				CycleMin:         60,
				CycleMax:         120,
			},
			{
				Kind:               "heatpump",
				PowerUsage:         1.5,
				TargetTemperature:  20.5,
				HeatingMultiplier:  3,
				HeatingFluctuation: 0.05,
			},
		},
	}
}

func largeProfile() ProfileConfig {
	return ProfileConfig{
		EnergyLabel:          "e",
		SquareMeters:         300,
		WallHeight:           3,
		StartTemperature:     20,
		ActiveDaysPerYear:    212,
		RandomHeatLossChance: 0.01,
		Background: BackgroundConfig{
			Coefficients: backgroundCoefficients,
			Fluctuation:  0.05,
		},
		Appliances: []ApplianceConfig{
			{
				Kind:               "heatpump",
				PowerUsage:         3,
				PowerFluctuation:   0.02,
				TargetTemperature:  21,
				HeatingMultiplier:  3.5,
				HeatingFluctuation: 0.05,
			},
		},
	}
}

// Default is the configuration before any file or environment override.
func Default() Config {
	return Config{
		DeviceID: "default",
		Profile:  "small",
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
		Simulation: SimulationConfig{
			Interval: time.Second,
			Step:     time.Minute,
			Running:  true,
			Location: "UTC",
		},
		Controllers: ControllersConfig{
			HTTP: HTTPConfig{Enabled: true, Addr: ":8080"},
			MQTT: MQTTConfig{
				BrokerURL:       "tcp://localhost:1883",
				PublishInterval: time.Second,
			},
			MODBUS: ModbusConfig{Addr: "127.0.0.1:1502", UnitID: 1},
			Kafka:  KafkaConfig{Topic: "housemocktat.readings"},
			AreaLink: AreaLinkConfig{
				AreaController: "10.10.0.1:42070",
				ControlAddr:    ":42069",
				StartStopAddr:  ":6969",
			},
		},
		Params: map[string]ParamConfig{
			"power_lock":         {ID: 1, Type: "bool"},
			"target_temperature": {ID: 2, Type: "float"},
		},
		Profiles: map[string]ProfileConfig{
			"small": smallProfile(),
			"large": largeProfile(),
		},
	}
}
