// Package geo 提供地理信号所需的球面距离计算。
package geo

import "math"

// EarthRadiusKm 地球平均半径（球面近似）。
const EarthRadiusKm = 6371.0

const degToRad = math.Pi / 180

// Haversine 返回两个经纬度坐标间的球面距离，单位公里。
// 输入为十进制度数，坐标无效性由调用方保证（core.Location.HasCoords）。
func Haversine(lat1, lon1, lat2, lon2 float64) float64 {
	lat1Rad := lat1 * degToRad
	lat2Rad := lat2 * degToRad
	dLat := (lat2 - lat1) * degToRad
	dLon := (lon2 - lon1) * degToRad

	sinLat := math.Sin(dLat / 2)
	sinLon := math.Sin(dLon / 2)
	a := sinLat*sinLat + math.Cos(lat1Rad)*math.Cos(lat2Rad)*sinLon*sinLon
	return 2 * EarthRadiusKm * math.Asin(math.Sqrt(a))
}
