package domain

// MasterKind names one of the admin-editable lookup tables.
type MasterKind string

const (
	KindDestination  MasterKind = "destinations"
	KindAmenity      MasterKind = "amenities"
	KindPropertyType MasterKind = "property-types"
)

func ParseMasterKind(s string) (MasterKind, bool) {
	k := MasterKind(s)
	switch k {
	case KindDestination, KindAmenity, KindPropertyType:
		return k, true
	}
	return "", false
}

// MasterItem is a row of any master-data table; unused fields stay empty.
type MasterItem struct {
	ID          int64
	Kind        MasterKind
	Name        string
	Slug        string // destinations
	Description string // destinations
	Image       string // destinations
	Icon        string // amenities
}
