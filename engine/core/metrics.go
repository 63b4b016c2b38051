package core

import "sync"

const AVG_COUNT uint8 = 30

// Rolling statistics over scheduler update cycles. The application records
// the elapsed time of each Update call and reads back the average cycle
// time and the cycles-per-second rate.
type MetricsState struct {
	UpdateAVGCounter    uint8
	MStimes             [AVG_COUNT]float64
	MSavg               float64
	Updates             int32
	AccumulatedUpdateMS float64
	UPS                 float64
}

var onceMetrics sync.Once
var metricsState *MetricsState = nil

func MetricsInitialize() error {
	onceMetrics.Do(func() {
		metricsState = &MetricsState{
			MStimes: [AVG_COUNT]float64{0},
		}
	})
	return nil
}

func MetricsUpdate(updateElapsedTime float64) {
	// Calculate update cycle ms average
	cycleMS := (updateElapsedTime * 1000.0)
	metricsState.MStimes[metricsState.UpdateAVGCounter] = cycleMS
	if metricsState.UpdateAVGCounter == AVG_COUNT-1 {
		for i := uint8(0); i < AVG_COUNT; i++ {
			metricsState.MSavg += metricsState.MStimes[i]
		}

		metricsState.MSavg /= float64(AVG_COUNT)
	}
	metricsState.UpdateAVGCounter++
	metricsState.UpdateAVGCounter %= AVG_COUNT

	// Calculate update cycles per second.
	metricsState.AccumulatedUpdateMS += cycleMS
	if metricsState.AccumulatedUpdateMS > 1000 {
		metricsState.UPS = float64(metricsState.Updates)
		metricsState.AccumulatedUpdateMS -= 1000
		metricsState.Updates = 0
	}

	// Count all update cycles.
	metricsState.Updates++
}

func MetricsUPS() float64 {
	return metricsState.UPS
}

func MetricsCycleTime() float64 {
	return metricsState.MSavg
}

func MetricsCycle() (float64, float64) {
	return metricsState.UPS, metricsState.MSavg
}
