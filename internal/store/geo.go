package store

import "math"

const earthRadiusMeters = 6371008.8

func radians(deg float64) float64 { return deg * math.Pi / 180 }

func degrees(rad float64) float64 { return rad * 180 / math.Pi }

// Haversine returns the great-circle distance in meters between two points
// given as longitude/latitude degrees.
func Haversine(lng1, lat1, lng2, lat2 float64) float64 {
	phi1, phi2 := radians(lat1), radians(lat2)
	dPhi := phi2 - phi1
	dLambda := radians(lng2 - lng1)

	a := math.Sin(dPhi/2)*math.Sin(dPhi/2) +
		math.Cos(phi1)*math.Cos(phi2)*math.Sin(dLambda/2)*math.Sin(dLambda/2)
	return 2 * earthRadiusMeters * math.Asin(math.Min(1, math.Sqrt(a)))
}

type bbox struct {
	minLat, maxLat float64
	minLng, maxLng float64
	allLng         bool // longitude range wraps or covers a pole
}

// boundingBox returns a lat/lng rectangle that contains every point within
// radius meters of the center. It is a prefilter, not an exact test.
func boundingBox(lng, lat, radius float64) bbox {
	dLat := degrees(radius / earthRadiusMeters)
	b := bbox{minLat: lat - dLat, maxLat: lat + dLat}

	if b.minLat <= -90 || b.maxLat >= 90 {
		b.minLat = math.Max(b.minLat, -90)
		b.maxLat = math.Min(b.maxLat, 90)
		b.allLng = true
		return b
	}

	ratio := math.Sin(radius/earthRadiusMeters) / math.Cos(radians(lat))
	if ratio >= 1 {
		b.allLng = true
		return b
	}
	dLng := degrees(math.Asin(ratio))
	b.minLng, b.maxLng = lng-dLng, lng+dLng
	if b.minLng < -180 || b.maxLng > 180 {
		b.allLng = true
	}
	return b
}
