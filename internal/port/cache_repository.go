package port

import "context"

type CheckoutLocker interface {
	// AcquireCheckout takes the per-user checkout lock, returns false if another checkout holds it.
	// The returned release func must be called once the checkout finishes.
	AcquireCheckout(ctx context.Context, userID int64) (release func(context.Context) error, ok bool, err error)
}
