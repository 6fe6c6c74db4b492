package proximity

import "math"

const earthRadiusKm = 6371.0

// HaversineKm is the great-circle distance between two points in degrees.
func HaversineKm(lat1, lng1, lat2, lng2 float64) float64 {
    phi1 := lat1 * math.Pi / 180
    phi2 := lat2 * math.Pi / 180
    dPhi := (lat2 - lat1) * math.Pi / 180
    dLambda := (lng2 - lng1) * math.Pi / 180

    a := math.Sin(dPhi/2)*math.Sin(dPhi/2) +
        math.Cos(phi1)*math.Cos(phi2)*math.Sin(dLambda/2)*math.Sin(dLambda/2)
    c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))
    return earthRadiusKm * c
}

func validCoordinates(lat, lng float64) bool {
    if math.IsNaN(lat) || math.IsNaN(lng) {
        return false
    }
    return lat >= -90 && lat <= 90 && lng >= -180 && lng <= 180
}
