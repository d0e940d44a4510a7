// Package metrics wraps go-metrics so that collection is free when disabled.
package metrics

import (
	"io"
	"os"
	"strings"

	"github.com/rcrowley/go-metrics"
)

const MetricsEnabledFlag = "metrics"

// Enabled is checked by the constructors; when false they hand out the
// nil implementations of go-metrics.
var Enabled = false

func init() {
	for _, arg := range os.Args {
		if flag := strings.TrimLeft(arg, "-"); flag == MetricsEnabledFlag {
			Enabled = true
		}
	}
}

func NewCounter(name string) metrics.Counter {
	if !Enabled {
		return new(metrics.NilCounter)
	}
	return metrics.GetOrRegisterCounter(name, metrics.DefaultRegistry)
}

func NewMeter(name string) metrics.Meter {
	if !Enabled {
		return new(metrics.NilMeter)
	}
	return metrics.GetOrRegisterMeter(name, metrics.DefaultRegistry)
}

func NewTimer(name string) metrics.Timer {
	if !Enabled {
		return new(metrics.NilTimer)
	}
	return metrics.GetOrRegisterTimer(name, metrics.DefaultRegistry)
}

func NewGauge(name string) metrics.Gauge {
	if !Enabled {
		return new(metrics.NilGauge)
	}
	return metrics.GetOrRegisterGauge(name, metrics.DefaultRegistry)
}

// Dump writes a snapshot of every registered metric to w.
func Dump(w io.Writer) {
	if !Enabled {
		return
	}
	metrics.WriteOnce(metrics.DefaultRegistry, w)
}
