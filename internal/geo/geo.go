package geo

import (
	"fmt"
	"math"

	"github.com/geoquiz/internal/domain"
)

const (
	// earthRadiusKm is the mean Earth radius used by the haversine formula
	earthRadiusKm = 6371.0

	// DefaultPixelsPerTenMeters is the calibration of the reference image
	// maps: 92 pixels correspond to 10 meters.
	DefaultPixelsPerTenMeters = 92.0
)

// DistanceKm returns the great-circle distance in kilometers between two
// WGS84 coordinates. Symmetric in its arguments, zero for identical points.
func DistanceKm(latA, lngA, latB, lngB float64) float64 {
	phiA := latA * math.Pi / 180
	phiB := latB * math.Pi / 180
	dPhi := (latB - latA) * math.Pi / 180
	dLambda := (lngB - lngA) * math.Pi / 180

	sinPhi := math.Sin(dPhi / 2)
	sinLambda := math.Sin(dLambda / 2)

	a := sinPhi*sinPhi + math.Cos(phiA)*math.Cos(phiB)*sinLambda*sinLambda
	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))
	return earthRadiusKm * c
}

// PixelDistanceKm converts a Euclidean pixel distance on an image map to
// kilometers. pixelsPerTenMeters is the per-map calibration; values <= 0
// fall back to the reference calibration.
func PixelDistanceKm(x1, y1, x2, y2, pixelsPerTenMeters float64) float64 {
	if pixelsPerTenMeters <= 0 {
		pixelsPerTenMeters = DefaultPixelsPerTenMeters
	}
	dx := x2 - x1
	dy := y2 - y1
	pixels := math.Sqrt(dx*dx + dy*dy)
	meters := pixels / pixelsPerTenMeters * 10
	return meters / 1000
}

// FormatDistance renders a round distance for display. Image-map variants
// show whole meters, everything else shows kilometers with one decimal.
func FormatDistance(km float64, gameType domain.GameType) string {
	if gameType.IsImage() {
		return fmt.Sprintf("%d m", int64(math.Round(km*1000)))
	}
	return fmt.Sprintf("%.1f km", km)
}

// FormatTotalDistance renders a cumulative distance with three decimals,
// always in kilometers.
func FormatTotalDistance(km float64) string {
	return fmt.Sprintf("%.3f km", km)
}
