package clientledger

import "context"

type syncWriteKey struct{}

// MarkSyncWrite tags the context as carrying a mirror write between a client
// account and its linked identity. Writes carrying the tag skip identity
// resolution and user sync, so propagation terminates after one hop in
// either direction.
//
// The auth system must apply the same tag on its reverse hook before calling
// UpdateAccount.
func MarkSyncWrite(ctx context.Context) context.Context {
	return context.WithValue(ctx, syncWriteKey{}, true)
}

// IsSyncWrite reports whether the context carries the mirror-write tag.
func IsSyncWrite(ctx context.Context) bool {
	v, _ := ctx.Value(syncWriteKey{}).(bool)
	return v
}
