package app

import (
	"context"
	"errors"

	"homestay_hub/internal/domain"
)

// buildView composes the public read model of a homestay from its rows,
// the master-data names it references and its rating.
func buildView(ctx context.Context, st domain.Store, h domain.Homestay, withRooms bool) (domain.HomestayView, error) {
	hv := domain.HomestayView{
		ID:          h.ID,
		Name:        h.Name,
		Slug:        h.Slug,
		Description: h.Description,
		City:        h.City,
		Address:     h.Address,
		Images:      append([]string(nil), h.Images...),
		Status:      h.Status,
	}
	if h.Lat != nil && h.Lon != nil {
		hv.Coords = &domain.Coords{Lat: *h.Lat, Lon: *h.Lon}
	}

	var err error
	if hv.Destination, err = masterName(ctx, st, domain.KindDestination, h.DestinationID); err != nil {
		return domain.HomestayView{}, err
	}
	if hv.PropertyType, err = masterName(ctx, st, domain.KindPropertyType, h.PropertyTypeID); err != nil {
		return domain.HomestayView{}, err
	}
	for _, id := range h.AmenityIDs {
		name, err := masterName(ctx, st, domain.KindAmenity, id)
		if err != nil {
			return domain.HomestayView{}, err
		}
		if name != "" {
			hv.Amenities = append(hv.Amenities, name)
		}
	}

	rooms, err := st.ListRooms(ctx, h.ID)
	if err != nil {
		return domain.HomestayView{}, err
	}
	for _, r := range rooms {
		if !r.Active {
			continue
		}
		if hv.FromPrice == nil || r.PricePerNight.LessThan(*hv.FromPrice) {
			p := r.PricePerNight
			hv.FromPrice = &p
		}
		if withRooms {
			hv.Rooms = append(hv.Rooms, r)
		}
	}

	if hv.Rating, err = st.RatingSummary(ctx, h.ID); err != nil {
		return domain.HomestayView{}, err
	}
	return hv, nil
}

// masterName tolerates dangling or unset references by returning "".
func masterName(ctx context.Context, st domain.Store, kind domain.MasterKind, id int64) (string, error) {
	if id == 0 {
		return "", nil
	}
	it, err := st.GetMaster(ctx, kind, id)
	if errors.Is(err, domain.ErrNotFound) {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	return it.Name, nil
}
