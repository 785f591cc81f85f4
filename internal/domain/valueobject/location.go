package valueobject

import (
	"fmt"
	"math"

	"github.com/ignatzorin/disaster-backend/internal/pkg/apperror"
)

// EarthRadiusKm используется в формуле гаверсинуса.
const EarthRadiusKm = 6371.0

// Location - точка на поверхности Земли в градусах.
type Location struct {
	Latitude  float64
	Longitude float64
}

func NewLocation(lat, lng float64) (Location, error) {
	var invalid []string
	if math.IsNaN(lat) || lat < -90 || lat > 90 {
		invalid = append(invalid, "latitude")
	}
	if math.IsNaN(lng) || lng < -180 || lng > 180 {
		invalid = append(invalid, "longitude")
	}
	if len(invalid) > 0 {
		return Location{}, apperror.Validation("координаты вне допустимого диапазона", invalid...)
	}
	return Location{Latitude: lat, Longitude: lng}, nil
}

// DistanceKm считает расстояние по большой окружности (гаверсинус).
func (l Location) DistanceKm(other Location) float64 {
	lat1 := toRadians(l.Latitude)
	lat2 := toRadians(other.Latitude)
	dLat := toRadians(other.Latitude - l.Latitude)
	dLng := toRadians(other.Longitude - l.Longitude)

	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(lat1)*math.Cos(lat2)*math.Sin(dLng/2)*math.Sin(dLng/2)
	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))

	return EarthRadiusKm * c
}

// BoundingBox возвращает прямоугольник, гарантированно содержащий круг радиуса radiusKm.
// Используется только для предварительного отбора кандидатов в SQL.
func (l Location) BoundingBox(radiusKm float64) (minLat, maxLat, minLng, maxLng float64) {
	angular := radiusKm / EarthRadiusKm
	dLat := angular * 180 / math.Pi
	minLat = math.Max(l.Latitude-dLat, -90)
	maxLat = math.Min(l.Latitude+dLat, 90)

	// У полюсов и при переходе через антимеридиан берём всю долготу.
	cosLat := math.Cos(toRadians(l.Latitude))
	if maxLat >= 90 || minLat <= -90 || angular >= math.Pi/2 || math.Sin(angular) >= cosLat {
		return minLat, maxLat, -180, 180
	}
	// Крайняя долгота окружности: asin(sin(d/R) / cos φ).
	dLng := math.Asin(math.Sin(angular)/cosLat) * 180 / math.Pi
	minLng = l.Longitude - dLng
	maxLng = l.Longitude + dLng
	if minLng < -180 || maxLng > 180 {
		return minLat, maxLat, -180, 180
	}
	return minLat, maxLat, minLng, maxLng
}

func (l Location) String() string {
	return fmt.Sprintf("%.6f, %.6f", l.Latitude, l.Longitude)
}

func toRadians(deg float64) float64 {
	return deg * math.Pi / 180
}
