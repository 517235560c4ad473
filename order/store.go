package order

// ListOpts filters order listings by account.
type ListOpts struct {
	Status Status // zero value means any status
	Limit  int    // 0 means no limit
}
