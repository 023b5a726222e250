package chart

import (
	"github.com/fredbi/chartviz/internal/pkg/pipeline"
)

// linearFit is a least squares regression line.
type linearFit struct {
	Slope     float64
	Intercept float64
}

func (f linearFit) At(x float64) float64 {
	return f.Slope*x + f.Intercept
}

// fitTrend computes the regression line of the non-null points of a series.
//
// It returns false with fewer than two distinct x values.
func fitTrend(points []pipeline.Point) (linearFit, bool) {
	var n, sumX, sumY float64

	for _, p := range points {
		if p.Null {
			continue
		}

		n++
		sumX += p.X
		sumY += p.Y
	}

	if n < 2 { //nolint:mnd // a line needs two points
		return linearFit{}, false
	}

	// deviations from the means keep epoch milliseconds tractable
	meanX, meanY := sumX/n, sumY/n
	var sxx, sxy float64

	for _, p := range points {
		if p.Null {
			continue
		}

		dx := p.X - meanX
		sxx += dx * dx
		sxy += dx * (p.Y - meanY)
	}

	if sxx == 0 {
		return linearFit{}, false
	}

	slope := sxy / sxx

	return linearFit{
		Slope:     slope,
		Intercept: meanY - slope*meanX,
	}, true
}
