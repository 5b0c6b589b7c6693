package syncer

import (
	"context"
	"log/slog"
	"time"

	"github.com/pkg/errors"
	"github.com/unibazaar/shipsync/internal/integrations/provider"
	"github.com/unibazaar/shipsync/internal/models"
)

type fetchResult struct {
	Checkpoints    []models.Checkpoint
	ProviderStatus string
	CourierName    string

	// Filled from registration; valid even when every query stage failed.
	ShortLink string
}

// fetchCheckpoints runs the ordered fallback chain against the provider:
// courier-specific endpoint, then the generic endpoint, then a scan of the
// full shipment list. The first stage yielding checkpoints wins; a stage that
// answered but had nothing usable counts as failed. Registration is attempted
// up front so a shipment not yet known to the provider becomes queryable on
// this same call; its failure is deliberately ignored.
func (s *Service) fetchCheckpoints(ctx context.Context, o *models.Order) (fetchResult, error) {
	var res fetchResult

	reg, err := s.provider.Register(ctx, o.TrackingNumber, o.CourierCode)
	if err != nil {
		slog.Warn("register shipment", "order_id", o.ID, "tracking_number", o.TrackingNumber, "error", err.Error())
	} else if reg.ShortLink != "" {
		res.ShortLink = reg.ShortLink
	}

	now := time.Now().UTC()

	var courierErr, genericErr, listErr error

	if body, err := s.provider.GetByCourier(ctx, o.CourierCode, o.TrackingNumber); err != nil {
		courierErr = err
	} else if cps := provider.Normalize(body, now); len(cps) > 0 {
		res.Checkpoints = cps
		res.ProviderStatus = provider.StatusOf(body)
		res.CourierName = provider.CourierNameOf(body)
		return res, nil
	} else {
		courierErr = errors.New("no checkpoints in response")
	}

	if body, err := s.provider.GetByNumber(ctx, o.TrackingNumber); err != nil {
		genericErr = err
	} else if cps := provider.Normalize(body, now); len(cps) > 0 {
		res.Checkpoints = cps
		res.ProviderStatus = provider.StatusOf(body)
		res.CourierName = provider.CourierNameOf(body)
		return res, nil
	} else {
		genericErr = errors.New("no checkpoints in response")
	}

	entries, err := s.provider.ListAll(ctx)
	switch {
	case err != nil:
		listErr = err
	default:
		listErr = errors.New("tracking number not in shipment list")
		for _, e := range entries {
			if !provider.EntryMatchesNumber(e, o.TrackingNumber) {
				continue
			}
			res.ProviderStatus = provider.EntryStatus(e)
			res.CourierName = provider.EntryCourierName(e)

			// The list entry may know the shipment under a different courier
			// code than the order does; re-query with the matched one for
			// full checkpoint detail.
			if code := provider.EntryCourierCode(e); code != "" && code != o.CourierCode {
				if body, err := s.provider.GetByCourier(ctx, code, o.TrackingNumber); err == nil {
					if cps := provider.Normalize(body, now); len(cps) > 0 {
						res.Checkpoints = cps
						return res, nil
					}
				}
			}

			// Detail fetch failed or was empty: the entry's own summary
			// checkpoint is better than nothing.
			if cp, ok := provider.EntryLatestCheckpoint(e, now); ok {
				res.Checkpoints = []models.Checkpoint{cp}
				return res, nil
			}
			listErr = errors.New("matched entry has no checkpoint data")
			break
		}
	}

	return res, errors.Errorf(
		"all fetch stages failed: courier query: %v; generic query: %v; list scan: %v",
		courierErr, genericErr, listErr,
	)
}
