package search

import "github.com/Aurorachain/go-nipsvm/metrics"

var (
	statesCounter      = metrics.NewCounter("search/states")
	transitionsCounter = metrics.NewCounter("search/transitions")
	atomicCounter      = metrics.NewCounter("search/atomic")
	statesMeter        = metrics.NewMeter("search/states/rate")
	depthGauge         = metrics.NewGauge("search/depth")
	arenaGauge         = metrics.NewGauge("search/arena/used")
	searchTimer        = metrics.NewTimer("search/time")
)
