package app

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/semaphore"

	"homestay_hub/internal/domain"
)

const expiredReason = "expired"

// SweepService closes out bookings whose dates have passed.
type SweepService struct {
	store domain.Store
	inv   invalidator
	clock clock
}

func NewSweepService(s domain.Store, c domain.Cache) *SweepService {
	return &SweepService{store: s, inv: invalidator{cache: c}}
}

type SweepResult struct {
	Completed int
	Expired   int
	NoShow    int
}

func (r SweepResult) Total() int { return r.Completed + r.Expired + r.NoShow }

func (r *SweepResult) add(o SweepResult) {
	r.Completed += o.Completed
	r.Expired += o.Expired
	r.NoShow += o.NoShow
}

// due returns the status an open booking moves to on day today.
func due(b domain.Booking, today time.Time) (domain.BookingStatus, bool) {
	switch b.Status {
	case domain.BookingCheckedIn:
		return domain.BookingCompleted, !today.Before(b.CheckOut)
	case domain.BookingPending:
		return domain.BookingCancelled, today.After(b.CheckIn)
	case domain.BookingConfirmed:
		return domain.BookingNoShow, !today.Before(b.CheckOut)
	}
	return "", false
}

func (s *SweepService) SweepHomestay(ctx context.Context, homestayID int64) (SweepResult, error) {
	today := dateOnly(s.clock.now())
	hid := homestayID
	page, err := s.store.ListBookings(ctx, domain.BookingFilter{HomestayID: &hid})
	if err != nil {
		return SweepResult{}, err
	}
	var out SweepResult
	for _, b := range page.Items {
		to, ok := due(b, today)
		if !ok {
			continue
		}
		var reason *string
		if to == domain.BookingCancelled {
			r := expiredReason
			reason = &r
		}
		if _, err := transition(ctx, s.store, b, to, "system", reason); err != nil {
			if errors.Is(err, domain.ErrConflict) {
				log.Debug().Int64("booking_id", b.ID).Msg("booking moved concurrently; skipped")
				continue
			}
			return out, err
		}
		switch to {
		case domain.BookingCompleted:
			out.Completed++
		case domain.BookingCancelled:
			out.Expired++
		case domain.BookingNoShow:
			out.NoShow++
		}
	}
	if out.Total() > 0 {
		s.inv.homestay(ctx, homestayID)
	}
	return out, nil
}

// SweepAll sweeps every homestay holding open bookings, at most workers at a time.
func (s *SweepService) SweepAll(ctx context.Context, workers int) (SweepResult, error) {
	if workers < 1 {
		workers = 1
	}
	ids, err := s.store.HomestaysWithOpenBookings(ctx)
	if err != nil {
		return SweepResult{}, err
	}

	sem := semaphore.NewWeighted(int64(workers))
	var (
		wg    sync.WaitGroup
		mu    sync.Mutex
		total SweepResult
	)
	for _, id := range ids {
		// acquire before launching the goroutine; release inside it
		if err := sem.Acquire(ctx, 1); err != nil {
			wg.Wait()
			return total, err
		}
		wg.Add(1)
		go func(homestayID int64) {
			defer wg.Done()
			defer sem.Release(1)

			res, err := s.SweepHomestay(ctx, homestayID)
			if err != nil {
				log.Warn().Int64("homestay_id", homestayID).Err(err).Msg("sweep failed")
				return
			}
			if res.Total() > 0 {
				log.Info().
					Int64("homestay_id", homestayID).
					Int("completed", res.Completed).
					Int("expired", res.Expired).
					Int("no_show", res.NoShow).
					Msg("sweep ok")
			}
			mu.Lock()
			total.add(res)
			mu.Unlock()
		}(id)
	}
	wg.Wait()
	return total, nil
}
