package geo

import "math"

// SpiderLeg is the expanded position of one cluster member
type SpiderLeg struct {
	ID    string `json:"id"`
	Point Point  `json:"point"`
}

// SpiderfyRadiusForZoom is 40 screen pixels expressed in degrees at zoom.
func SpiderfyRadiusForZoom(zoom int) float64 {
	zoom = ClampZoom(zoom)
	return spiderfyPixels * 360.0 / (tileSize * math.Exp2(float64(zoom)))
}

// Spiderfy places n points on a circle of radius (degrees) around centre at
// angle 2πi/n. Longitude offsets are stretched by 1/cos(lat) so the circle
// stays round on a Mercator map.
func Spiderfy(centre Point, n int, radius float64) []Point {
	if n <= 0 {
		return nil
	}
	cosLat := math.Cos(degreesToRadians(centre.Lat))
	if math.Abs(cosLat) < 1e-9 {
		cosLat = 1e-9
	}
	points := make([]Point, n)
	for i := 0; i < n; i++ {
		angle := 2 * math.Pi * float64(i) / float64(n)
		points[i] = Point{
			Lat: centre.Lat + radius*math.Sin(angle),
			Lng: centre.Lng + radius*math.Cos(angle)/cosLat,
		}
	}
	return points
}

// Expand spiderfies a cluster at zoom, members in id order.
func Expand(c MarkerCluster, zoom int) []SpiderLeg {
	points := Spiderfy(c.Centroid, len(c.Members), SpiderfyRadiusForZoom(zoom))
	legs := make([]SpiderLeg, len(points))
	for i, p := range points {
		legs[i] = SpiderLeg{ID: c.Members[i], Point: p}
	}
	return legs
}
