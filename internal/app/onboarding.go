package app

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"

	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"

	"homestay_hub/internal/auth"
	"homestay_hub/internal/domain"
)

const (
	maxRooms  = 50
	maxImages = 20
)

type TokenIssuer interface {
	Issue(u domain.User) (auth.Token, error)
}

// OnboardingService walks a user through listing their first homestay.
type OnboardingService struct {
	store  domain.Store
	tokens TokenIssuer
}

func NewOnboardingService(s domain.Store, t TokenIssuer) *OnboardingService {
	return &OnboardingService{store: s, tokens: t}
}

type OnboardingStatus struct {
	Draft    *domain.Homestay
	Rooms    []domain.Room
	NextStep int
}

type Basics struct {
	Name           string
	Description    string
	PropertyTypeID int64
	DestinationID  int64
}

type Location struct {
	Address string
	City    string
	Lat     *float64
	Lon     *float64
}

type RoomInput struct {
	Name     string
	Capacity int
	Price    string
	Quantity int
}

type Listing struct {
	AmenityIDs []int64
	Images     []string
}

type StepResult struct {
	Homestay domain.Homestay
	NextStep int
	// Token is set when the step changed the caller's role.
	Token *auth.Token
}

func nextStep(h domain.Homestay) int {
	if h.OnboardingStep >= 4 {
		return 0
	}
	return h.OnboardingStep + 1
}

func (s *OnboardingService) Status(ctx context.Context, p domain.Principal) (OnboardingStatus, error) {
	h, err := s.store.DraftByHost(ctx, p.UserID)
	if errors.Is(err, domain.ErrNotFound) {
		return OnboardingStatus{NextStep: 1}, nil
	}
	if err != nil {
		return OnboardingStatus{}, err
	}
	rooms, err := s.store.ListRooms(ctx, h.ID)
	if err != nil {
		return OnboardingStatus{}, err
	}
	return OnboardingStatus{Draft: &h, Rooms: rooms, NextStep: nextStep(h)}, nil
}

// draftAt loads the caller's draft and checks that step may run now.
func (s *OnboardingService) draftAt(ctx context.Context, p domain.Principal, step int) (domain.Homestay, error) {
	h, err := s.store.DraftByHost(ctx, p.UserID)
	if errors.Is(err, domain.ErrNotFound) {
		return domain.Homestay{}, fmt.Errorf("%w: complete step 1 first", domain.ErrConflict)
	}
	if err != nil {
		return domain.Homestay{}, err
	}
	if h.OnboardingStep < step-1 {
		return domain.Homestay{}, fmt.Errorf("%w: complete step %d first", domain.ErrConflict, h.OnboardingStep+1)
	}
	return h, nil
}

func (s *OnboardingService) checkMaster(ctx context.Context, verr *domain.ValidationError, field string, kind domain.MasterKind, id int64) error {
	if id <= 0 {
		verr.Add(field, "is required")
		return nil
	}
	_, err := s.store.GetMaster(ctx, kind, id)
	if errors.Is(err, domain.ErrNotFound) {
		verr.Add(field, "unknown "+string(kind))
		return nil
	}
	return err
}

func (s *OnboardingService) Step1(ctx context.Context, p domain.Principal, in Basics) (StepResult, error) {
	verr := &domain.ValidationError{}
	name := strings.TrimSpace(in.Name)
	if name == "" {
		verr.Add("name", "is required")
	}
	if err := s.checkMaster(ctx, verr, "property_type_id", domain.KindPropertyType, in.PropertyTypeID); err != nil {
		return StepResult{}, err
	}
	if err := s.checkMaster(ctx, verr, "destination_id", domain.KindDestination, in.DestinationID); err != nil {
		return StepResult{}, err
	}
	if err := verr.OrNil(); err != nil {
		return StepResult{}, err
	}

	h, err := s.store.DraftByHost(ctx, p.UserID)
	switch {
	case errors.Is(err, domain.ErrNotFound):
		h = domain.Homestay{HostID: p.UserID, Status: domain.HomestayDraft}
	case err != nil:
		return StepResult{}, err
	}
	h.Name = name
	h.Slug = slugify(name)
	h.Description = strings.TrimSpace(in.Description)
	h.PropertyTypeID = in.PropertyTypeID
	h.DestinationID = in.DestinationID
	if h.OnboardingStep < 1 {
		h.OnboardingStep = 1
	}
	if h.ID == 0 {
		err = s.store.CreateHomestay(ctx, &h)
	} else {
		err = s.store.UpdateHomestay(ctx, h)
	}
	if err != nil {
		return StepResult{}, err
	}

	out := StepResult{Homestay: h, NextStep: nextStep(h)}
	if p.Role == domain.RoleGuest {
		if err := s.store.SetRole(ctx, p.UserID, domain.RoleHost); err != nil {
			return StepResult{}, err
		}
		u, err := s.store.GetUser(ctx, p.UserID)
		if err != nil {
			return StepResult{}, err
		}
		tok, err := s.tokens.Issue(u)
		if err != nil {
			return StepResult{}, err
		}
		out.Token = &tok
		log.Info().Int64("user_id", p.UserID).Msg("guest promoted to host")
	}
	return out, nil
}

func (s *OnboardingService) Step2(ctx context.Context, p domain.Principal, in Location) (StepResult, error) {
	verr := &domain.ValidationError{}
	if strings.TrimSpace(in.Address) == "" {
		verr.Add("address", "is required")
	}
	if strings.TrimSpace(in.City) == "" {
		verr.Add("city", "is required")
	}
	if (in.Lat == nil) != (in.Lon == nil) {
		verr.Add("lat", "lat and lon go together")
	}
	if in.Lat != nil && (*in.Lat < -90 || *in.Lat > 90) {
		verr.Add("lat", "must be between -90 and 90")
	}
	if in.Lon != nil && (*in.Lon < -180 || *in.Lon > 180) {
		verr.Add("lon", "must be between -180 and 180")
	}
	if err := verr.OrNil(); err != nil {
		return StepResult{}, err
	}
	h, err := s.draftAt(ctx, p, 2)
	if err != nil {
		return StepResult{}, err
	}
	h.Address = strings.TrimSpace(in.Address)
	h.City = strings.TrimSpace(in.City)
	h.Lat, h.Lon = in.Lat, in.Lon
	if h.OnboardingStep < 2 {
		h.OnboardingStep = 2
	}
	if err := s.store.UpdateHomestay(ctx, h); err != nil {
		return StepResult{}, err
	}
	return StepResult{Homestay: h, NextStep: nextStep(h)}, nil
}

func parseRooms(in []RoomInput) ([]domain.Room, error) {
	verr := &domain.ValidationError{}
	if len(in) < 1 || len(in) > maxRooms {
		verr.Add("rooms", fmt.Sprintf("between 1 and %d rooms", maxRooms))
		return nil, verr
	}
	out := make([]domain.Room, 0, len(in))
	for i, r := range in {
		room, err := parseRoom(r)
		if err != nil {
			var v *domain.ValidationError
			if errors.As(err, &v) {
				for f, m := range v.Fields {
					verr.Add(fmt.Sprintf("rooms[%d].%s", i, f), m)
				}
				continue
			}
			return nil, err
		}
		out = append(out, room)
	}
	if err := verr.OrNil(); err != nil {
		return nil, err
	}
	return out, nil
}

func parseRoom(in RoomInput) (domain.Room, error) {
	verr := &domain.ValidationError{}
	if strings.TrimSpace(in.Name) == "" {
		verr.Add("name", "is required")
	}
	if in.Capacity < 1 || in.Capacity > 20 {
		verr.Add("capacity", "must be between 1 and 20")
	}
	if in.Quantity < 1 || in.Quantity > 100 {
		verr.Add("quantity", "must be between 1 and 100")
	}
	price, err := decimal.NewFromString(strings.TrimSpace(in.Price))
	if err != nil || !price.IsPositive() {
		verr.Add("price", "must be a positive amount")
	}
	if err := verr.OrNil(); err != nil {
		return domain.Room{}, err
	}
	return domain.Room{
		Name:          strings.TrimSpace(in.Name),
		Capacity:      in.Capacity,
		PricePerNight: price.Round(2),
		Quantity:      in.Quantity,
		Active:        true,
	}, nil
}

func (s *OnboardingService) Step3(ctx context.Context, p domain.Principal, in []RoomInput) (StepResult, error) {
	rooms, err := parseRooms(in)
	if err != nil {
		return StepResult{}, err
	}
	h, err := s.draftAt(ctx, p, 3)
	if err != nil {
		return StepResult{}, err
	}
	if err := s.store.ReplaceRooms(ctx, h.ID, rooms); err != nil {
		return StepResult{}, err
	}
	if h.OnboardingStep < 3 {
		h.OnboardingStep = 3
		if err := s.store.UpdateHomestay(ctx, h); err != nil {
			return StepResult{}, err
		}
	}
	return StepResult{Homestay: h, NextStep: nextStep(h)}, nil
}

func validImages(verr *domain.ValidationError, images []string) []string {
	if len(images) < 1 || len(images) > maxImages {
		verr.Add("images", fmt.Sprintf("between 1 and %d images", maxImages))
		return nil
	}
	out := make([]string, 0, len(images))
	for _, raw := range images {
		u, err := url.Parse(strings.TrimSpace(raw))
		if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
			verr.Add("images", "must be http(s) urls")
			return nil
		}
		out = append(out, u.String())
	}
	return out
}

// Step4 records amenities and photos and submits the draft for review.
func (s *OnboardingService) Step4(ctx context.Context, p domain.Principal, in Listing) (StepResult, error) {
	verr := &domain.ValidationError{}
	images := validImages(verr, in.Images)
	amenities, err := s.amenities(ctx, verr, in.AmenityIDs)
	if err != nil {
		return StepResult{}, err
	}
	if err := verr.OrNil(); err != nil {
		return StepResult{}, err
	}
	h, err := s.draftAt(ctx, p, 4)
	if err != nil {
		return StepResult{}, err
	}
	h.AmenityIDs = amenities
	h.Images = images
	h.OnboardingStep = 4
	h.Status = domain.HomestayPending
	if err := s.store.UpdateHomestay(ctx, h); err != nil {
		return StepResult{}, err
	}
	log.Info().Int64("homestay_id", h.ID).Int64("host_id", p.UserID).Msg("homestay submitted for approval")
	return StepResult{Homestay: h}, nil
}

func (s *OnboardingService) amenities(ctx context.Context, verr *domain.ValidationError, ids []int64) ([]int64, error) {
	seen := map[int64]bool{}
	out := make([]int64, 0, len(ids))
	for _, id := range ids {
		if seen[id] {
			continue
		}
		seen[id] = true
		_, err := s.store.GetMaster(ctx, domain.KindAmenity, id)
		if errors.Is(err, domain.ErrNotFound) {
			verr.Add("amenity_ids", fmt.Sprintf("unknown amenity %d", id))
			continue
		}
		if err != nil {
			return nil, err
		}
		out = append(out, id)
	}
	return out, nil
}
