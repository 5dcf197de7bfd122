package main

import (
	"encoding/csv"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/Agrid-Dev/housemocktat/cmd/app"
	"github.com/Agrid-Dev/housemocktat/internal/household"
	"github.com/Agrid-Dev/housemocktat/internal/simulation"
)

type TargetCommand struct {
	IterationNumber int
	Value           float64
}

// SimulateHouse runs the given profile one step per iteration and writes the
// trace to filename.
func SimulateHouse(profile string, iterations int, step time.Duration, filename string, commands []TargetCommand) error {
	cfg := app.Default()
	cfg.Profile = profile
	cfg.Simulation.Seed = 1
	cfg.Simulation.StartTime = time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC).Unix()

	house, err := cfg.BuildHouse(time.Now())
	if err != nil {
		return fmt.Errorf("failed to build house: %v", err)
	}
	svc := simulation.NewService(house, true)

	heatpumps := []int{}
	for _, a := range svc.Appliances() {
		if a.Kind == household.KindHeatpump {
			heatpumps = append(heatpumps, a.Index)
		}
	}

	file, err := os.Create(filename)
	if err != nil {
		return fmt.Errorf("failed to create CSV file: %v", err)
	}
	defer file.Close()

	writer := csv.NewWriter(file)
	defer writer.Flush()

	if err := writer.Write([]string{"Iteration", "Time", "Temperature", "DrawKW", "Devices"}); err != nil {
		return fmt.Errorf("failed to write CSV header: %v", err)
	}

	for i := range iterations {
		for _, cmd := range commands {
			if cmd.IterationNumber == i+1 {
				for _, idx := range heatpumps {
					if err := svc.SetTargetTemperature(idx, cmd.Value); err != nil {
						return fmt.Errorf("failed to update target: %v", err)
					}
				}
				break
			}
		}

		r, err := svc.Step(int64(step / time.Second))
		if err != nil {
			return fmt.Errorf("tick %d: %v", i+1, err)
		}

		if err := writer.Write([]string{
			strconv.Itoa(i + 1),
			time.Unix(r.Time, 0).UTC().Format(time.RFC3339),
			fmt.Sprintf("%.3f", r.Temperature),
			fmt.Sprintf("%.3f", r.TotalDraw),
			fmt.Sprintf("%08b", r.Bitmask()),
		}); err != nil {
			return fmt.Errorf("failed to write CSV record: %v", err)
		}
	}

	return nil
}

func main() {
	commands := []TargetCommand{
		{
			IterationNumber: 720,
			Value:           22.0,
		},
	}
	if err := SimulateHouse("small", 1440, time.Minute, "housemocktat.csv", commands); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
