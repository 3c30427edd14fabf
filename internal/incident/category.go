package incident

// Category is the disaster type code of a report. Codes outside the known
// set are stored and grouped by their raw value.
type Category int

const (
	CategoryEarthquake Category = iota
	CategoryFlood
	CategoryFire
	CategoryTyphoon
	CategoryLandslide
	CategoryDebrisFlow
	CategoryDrought
	CategoryBlizzard
	CategoryOther
)

// UnknownCategoryLabel names codes outside the known set.
const UnknownCategoryLabel = "未知灾情"

var categoryLabels = map[Category]string{
	CategoryEarthquake: "地震",
	CategoryFlood:      "洪水",
	CategoryFire:       "火灾",
	CategoryTyphoon:    "台风",
	CategoryLandslide:  "滑坡",
	CategoryDebrisFlow: "泥石流",
	CategoryDrought:    "干旱",
	CategoryBlizzard:   "暴雪",
	CategoryOther:      "其他",
}

// Label returns the display name used in auto-generated event names.
func (c Category) Label() string {
	if label, ok := categoryLabels[c]; ok {
		return label
	}
	return UnknownCategoryLabel
}

// Known reports whether c has its own label.
func (c Category) Known() bool {
	_, ok := categoryLabels[c]
	return ok
}
