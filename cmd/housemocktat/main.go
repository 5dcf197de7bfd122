package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/Agrid-Dev/housemocktat/cmd/app"
	"github.com/Agrid-Dev/housemocktat/internal/controllers/arealink"
	httpctrl "github.com/Agrid-Dev/housemocktat/internal/controllers/http"
	kafkactrl "github.com/Agrid-Dev/housemocktat/internal/controllers/kafka"
	modbusctrl "github.com/Agrid-Dev/housemocktat/internal/controllers/modbus"
	mqttctrl "github.com/Agrid-Dev/housemocktat/internal/controllers/mqtt"
	"github.com/Agrid-Dev/housemocktat/internal/device"
	"github.com/Agrid-Dev/housemocktat/internal/metrics"
	"github.com/Agrid-Dev/housemocktat/internal/simulation"
)

func main() {
	var configPath, profile string
	var printConfig bool
	flag.StringVar(&configPath, "config", "config.yaml", "path to config file (.yaml/.yml/.json)")
	flag.StringVar(&profile, "profile", "", "house profile to simulate (overrides config)")
	flag.BoolVar(&printConfig, "print-config", false, "print the effective config and exit")
	flag.Parse()

	cfg, err := app.LoadConfig(configPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	if profile != "" {
		cfg.Profile = profile
	}

	if printConfig {
		b, err := cfg.Dump()
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(1)
		}
		_, _ = os.Stdout.Write(b)
		return
	}

	log, err := cfg.NewLogger()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx, cfg, log); err != nil && !errors.Is(err, context.Canceled) {
		log.WithError(err).Error("exited")
		os.Exit(1)
	}
	log.Info("bye")
}

type runnable interface {
	Run(ctx context.Context) error
}

func run(ctx context.Context, cfg app.Config, log *logrus.Logger) error {
	house, err := cfg.BuildHouse(time.Now())
	if err != nil {
		return fmt.Errorf("build house: %w", err)
	}
	svc := simulation.NewService(house, cfg.Simulation.Running)
	dev := device.New(cfg.DeviceID, svc)

	log.WithFields(logrus.Fields{
		"device_id":  dev.ID,
		"run_id":     dev.RunID,
		"profile":    cfg.Profile,
		"appliances": len(house.Appliances()),
	}).Info("house ready")

	rec := metrics.NewRecorder(svc, dev.ID)
	sinks := []simulation.Sink{rec}
	var services []runnable

	ctrl := cfg.Controllers
	if ctrl.HTTP.Enabled {
		services = append(services, httpctrl.New(dev, ctrl.HTTP.Addr, rec.Handler()))
		log.WithField("addr", ctrl.HTTP.Addr).Info("http controller enabled")
	}
	if ctrl.MQTT.Enabled {
		m, err := mqttctrl.New(svc, mqttctrl.Config{
			DeviceID:        dev.ID,
			BrokerURL:       ctrl.MQTT.BrokerURL,
			ClientID:        ctrl.MQTT.ClientID,
			BaseTopic:       ctrl.MQTT.BaseTopic,
			QoS:             ctrl.MQTT.QoS,
			RetainReading:   ctrl.MQTT.RetainReading,
			PublishInterval: ctrl.MQTT.PublishInterval,
			Username:        ctrl.MQTT.Username,
			Password:        ctrl.MQTT.Password,
		}, log)
		if err != nil {
			return err
		}
		services = append(services, m)
	}
	if ctrl.MODBUS.Enabled {
		m, err := modbusctrl.New(svc, modbusctrl.Config{
			DeviceID: dev.ID,
			Addr:     ctrl.MODBUS.Addr,
			UnitID:   ctrl.MODBUS.UnitID,
		}, log)
		if err != nil {
			return err
		}
		services = append(services, m)
	}
	if ctrl.Kafka.Enabled {
		k, err := kafkactrl.New(kafkactrl.Config{
			DeviceID: dev.ID,
			RunID:    dev.RunID.String(),
			Brokers:  ctrl.Kafka.Brokers,
			Topic:    ctrl.Kafka.Topic,
		}, log)
		if err != nil {
			return err
		}
		sinks = append(sinks, k)
		services = append(services, k)
	}
	if ctrl.AreaLink.Enabled {
		oracle, err := cfg.Oracle()
		if err != nil {
			return err
		}
		l, err := arealink.New(svc, arealink.Config{
			AreaController: ctrl.AreaLink.AreaController,
			ControlAddr:    ctrl.AreaLink.ControlAddr,
			StartStopAddr:  ctrl.AreaLink.StartStopAddr,
			Oracle:         oracle,
		}, log)
		if err != nil {
			return err
		}
		sinks = append(sinks, l)
		services = append(services, l)
	}

	runner, err := simulation.NewRunner(svc, simulation.RunnerConfig{
		Interval: cfg.Simulation.Interval,
		Step:     cfg.Simulation.Step,
	}, log, sinks...)
	if err != nil {
		return err
	}

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error { return runner.Run(ctx) })
	for _, s := range services {
		g.Go(func() error { return s.Run(ctx) })
	}
	return g.Wait()
}
