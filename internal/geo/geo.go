// Package geo computes great-circle distances, arrival estimates and the
// proximity bands that drive volunteer/victim status messaging.
package geo

import (
	"fmt"
	"math"

	"reliefbridge/pkg/e"
)

const (
	EarthRadiusKM   = 6371.0
	DefaultSpeedKmh = 40.0
)

// Band thresholds in kilometres. A distance strictly below the threshold falls in the band.
const (
	ArrivedThresholdKM   = 0.1
	VeryCloseThresholdKM = 0.5
	NearThresholdKM      = 5.0
)

type Band string

const (
	BandArrived   Band = "arrived"
	BandVeryClose Band = "very_close"
	BandNear      Band = "near"
	BandEnRoute   Band = "en_route"
)

// DistanceKM returns the haversine distance between two points in kilometres.
func DistanceKM(lat1, lon1, lat2, lon2 float64) float64 {
	dLat := deg2rad(lat2 - lat1)
	dLon := deg2rad(lon2 - lon1)

	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(deg2rad(lat1))*math.Cos(deg2rad(lat2))*
			math.Sin(dLon/2)*math.Sin(dLon/2)

	// rounding can push a just past 1 for antipodal points
	a = math.Min(1, math.Max(0, a))
	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))

	return EarthRadiusKM * c
}

// EtaMinutes converts a distance to whole minutes at avgSpeedKmh.
func EtaMinutes(distanceKM, avgSpeedKmh float64) (int, error) {
	if avgSpeedKmh <= 0 || math.IsNaN(avgSpeedKmh) {
		return 0, fmt.Errorf("geo.EtaMinutes: speed %v km/h: %w", avgSpeedKmh, e.ErrInvalidSpeed)
	}
	return int(math.Round(distanceKM / avgSpeedKmh * 60)), nil
}

func ProximityBand(distanceKM float64) Band {
	switch {
	case distanceKM < ArrivedThresholdKM:
		return BandArrived
	case distanceKM < VeryCloseThresholdKM:
		return BandVeryClose
	case distanceKM < NearThresholdKM:
		return BandNear
	default:
		return BandEnRoute
	}
}

func (b Band) Message() string {
	switch b {
	case BandArrived:
		return "Volunteer has arrived"
	case BandVeryClose:
		return "Volunteer is very close"
	case BandNear:
		return "Volunteer is nearby"
	default:
		return "Volunteer is on the way"
	}
}

func deg2rad(deg float64) float64 {
	return deg * math.Pi / 180.0
}
