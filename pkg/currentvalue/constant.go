package currentvalue

import "context"

// Constant returns a subscription that yields v once and then completes.
// Current on the returned subscription keeps reporting v.
func Constant[T any](v T) *Subscription[T] {
	b := New(v)
	// Cannot fail: the context never ends and the broadcaster is not finished yet.
	sub, _ := b.SubscribeConfirmed(context.Background())
	b.Finish()
	return sub
}
