package simulation

import (
	"errors"
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/Agrid-Dev/housemocktat/internal/household"
	"github.com/Agrid-Dev/housemocktat/internal/packet"
	"github.com/Agrid-Dev/housemocktat/internal/ports"
)

// ApplyControl applies a decoded Area Controller command. Clock sync follows the
// monotonic adoption rule. power_lock goes to the appliances selected by the
// devices bitmask, or to every controllable appliance when none is given.
// Rejected locks are logged and reported but do not stop the other targets.
func ApplyControl(svc ports.HouseService, c packet.Control, log *logrus.Logger) error {
	entry := log.WithField("component", "control")

	if c.Clock != nil {
		adopted := svc.SetTime(int64(*c.Clock))
		entry.WithFields(logrus.Fields{"clock": *c.Clock, "adopted": adopted}).Info("clock sync")
	}

	targets := selectTargets(svc.Appliances(), c.Devices)
	var errs []error

	if v, ok := c.Params[packet.ParamPowerLock]; ok {
		if locked, ok := v.(bool); ok {
			errs = append(errs, applyPowerLock(svc, targets, locked, entry)...)
		} else {
			errs = append(errs, fmt.Errorf("%s=%v: %w", packet.ParamPowerLock, v, ErrInvalidParamValue))
		}
	}

	if v, ok := c.Params[packet.ParamTargetTemperature]; ok {
		if target, ok := v.(float64); ok {
			errs = append(errs, applyTargetTemperature(svc, targets, target, entry)...)
		} else {
			errs = append(errs, fmt.Errorf("%s=%v: %w", packet.ParamTargetTemperature, v, ErrInvalidParamValue))
		}
	}
	return errors.Join(errs...)
}

func applyPowerLock(svc ports.HouseService, targets []ports.ApplianceInfo, locked bool, entry *logrus.Entry) []error {
	var errs []error
	for _, a := range targets {
		if err := svc.SetPowerLock(a.Index, locked); err != nil {
			entry.WithError(err).WithField("appliance", a.Index).Warn("power lock rejected")
			errs = append(errs, err)
			continue
		}
		entry.WithFields(logrus.Fields{"appliance": a.Index, "locked": locked}).Info("power lock")
	}
	return errs
}

func applyTargetTemperature(svc ports.HouseService, targets []ports.ApplianceInfo, target float64, entry *logrus.Entry) []error {
	var errs []error
	for _, a := range targets {
		if a.Kind != household.KindHeatpump {
			continue
		}
		if err := svc.SetTargetTemperature(a.Index, target); err != nil {
			errs = append(errs, err)
			continue
		}
		entry.WithFields(logrus.Fields{"appliance": a.Index, "target": target}).Info("target temperature")
	}
	return errs
}

func selectTargets(apps []ports.ApplianceInfo, devices *uint8) []ports.ApplianceInfo {
	var out []ports.ApplianceInfo
	for _, a := range apps {
		if devices == nil {
			if a.Controllable {
				out = append(out, a)
			}
			continue
		}
		if a.Index < 8 && *devices&(1<<a.Index) != 0 {
			out = append(out, a)
		}
	}
	return out
}
