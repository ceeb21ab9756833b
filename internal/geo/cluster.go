package geo

import (
	"math"
	"slices"
	"strconv"
	"strings"

	"github.com/cespare/xxhash/v2"
)

const (
	// metres per pixel at zoom 0 on the equator in Web Mercator
	mercatorResolution = 156543.03392
	clusterPixels      = 60.0
	spiderfyPixels     = 40.0
	tileSize           = 256.0

	MinZoom = 0
	MaxZoom = 22
)

// ClusterItem is a marker to be clustered
type ClusterItem struct {
	ID    string `json:"id"`
	Point Point  `json:"point"`
}

// MarkerCluster is either a single marker or a group with a centroid.
// Members are sorted ids.
type MarkerCluster struct {
	ID       string   `json:"id"`
	Centroid Point    `json:"centroid"`
	Members  []string `json:"members"`
}

func (c MarkerCluster) Size() int {
	return len(c.Members)
}

func (c MarkerCluster) IsSingleton() bool {
	return len(c.Members) == 1
}

// ClampZoom keeps zoom inside the supported tile range
func ClampZoom(zoom int) int {
	if zoom < MinZoom {
		return MinZoom
	}
	if zoom > MaxZoom {
		return MaxZoom
	}
	return zoom
}

// ThresholdForZoom is the ground distance covered by 60 screen pixels at zoom.
// It only depends on zoom, and halves with every zoom level.
func ThresholdForZoom(zoom int, unit Unit) float64 {
	zoom = ClampZoom(zoom)
	metres := clusterPixels * mercatorResolution / math.Exp2(float64(zoom))
	return unit.FromMeters(metres)
}

// Cluster groups items greedily: items are visited in id order and each joins
// the first cluster whose current centroid is within threshold, otherwise it
// starts a new cluster. The same input and threshold always give the same output.
func Cluster(items []ClusterItem, threshold float64, unit Unit) []MarkerCluster {
	sorted := slices.Clone(items)
	slices.SortFunc(sorted, func(a, b ClusterItem) int {
		return strings.Compare(a.ID, b.ID)
	})

	type group struct {
		ids      []string
		sumLat   float64
		sumLng   float64
		centroid Point
	}
	var groups []*group

	for _, it := range sorted {
		var target *group
		for _, g := range groups {
			if Haversine(it.Point, g.centroid, unit) <= threshold {
				target = g
				break
			}
		}
		if target == nil {
			target = &group{}
			groups = append(groups, target)
		}
		target.ids = append(target.ids, it.ID)
		target.sumLat += it.Point.Lat
		target.sumLng += it.Point.Lng
		n := float64(len(target.ids))
		target.centroid = Point{Lat: target.sumLat / n, Lng: target.sumLng / n}
	}

	out := make([]MarkerCluster, 0, len(groups))
	for _, g := range groups {
		out = append(out, MarkerCluster{
			ID:       ClusterID(g.ids),
			Centroid: g.centroid,
			Members:  g.ids,
		})
	}
	return out
}

// ClusterID derives a stable id from member ids: "p_<id>" for a single
// marker, "c_<hash of sorted ids>" for a group.
func ClusterID(ids []string) string {
	if len(ids) == 1 {
		return "p_" + ids[0]
	}
	sorted := slices.Clone(ids)
	slices.Sort(sorted)
	return "c_" + strconv.FormatUint(xxhash.Sum64String(strings.Join(sorted, ",")), 16)
}

// MapLayout is what the map renders at one zoom level
type MapLayout struct {
	Zoom      int             `json:"zoom"`
	Threshold float64         `json:"threshold"`
	Selected  *ClusterItem    `json:"selected,omitempty"`
	Clusters  []MarkerCluster `json:"clusters"`
}

// Layout clusters items for zoom. The selected item, if present, is pulled
// out first and returned on its own so it never disappears into a group.
func Layout(items []ClusterItem, zoom int, selectedID string, unit Unit) MapLayout {
	zoom = ClampZoom(zoom)
	layout := MapLayout{Zoom: zoom, Threshold: ThresholdForZoom(zoom, unit)}

	rest := items
	if selectedID != "" {
		rest = make([]ClusterItem, 0, len(items))
		for _, it := range items {
			if it.ID == selectedID && layout.Selected == nil {
				sel := it
				layout.Selected = &sel
				continue
			}
			rest = append(rest, it)
		}
	}

	layout.Clusters = Cluster(rest, layout.Threshold, unit)
	return layout
}
