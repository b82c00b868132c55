package loyalty

import (
	"context"
	"errors"
	"log/slog"

	"github.com/example/benmarket/internal/events"
)

// EventHandler turns domain events into point awards.
func EventHandler(svc *Service) events.Handler {
	return func(ctx context.Context, evt events.Event) error {
		switch evt.Kind {
		case events.UserRegistered:
			err := svc.AwardRegistrationPoints(ctx, evt.UserID)
			if evt.ReferralCode != "" {
				err = errors.Join(err, svc.ProcessReferral(ctx, evt.ReferralCode, evt.UserID))
			}
			return err
		case events.OrderCompleted:
			return svc.AwardPurchasePoints(ctx, evt.UserID, evt.Amount, evt.OrderID)
		case events.ReviewSubmitted:
			return svc.AwardReviewPoints(ctx, evt.UserID)
		default:
			slog.Warn("unhandled event", "kind", evt.Kind)
			return nil
		}
	}
}
