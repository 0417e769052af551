package notes

import (
	"context"
	"errors"
)

// applyOptimistic persists a tentative version of a list, runs the server
// call, and either commits the reconciled result or reverts to the previous
// snapshot. Create, update and delete all go through here instead of
// duplicating the pattern.
//
// keep decides whether a failed call leaves the tentative state in place
// (used for offline creates); nil means always revert.
func applyOptimistic[E any](
	ctx context.Context,
	persist func([]E) error,
	prev, tentative []E,
	call func(context.Context) ([]E, error),
	keep func(error) bool,
) ([]E, error) {
	if err := persist(tentative); err != nil {
		return prev, err
	}

	final, err := call(ctx)
	if err != nil {
		if keep != nil && keep(err) {
			return tentative, err
		}
		if rerr := persist(prev); rerr != nil {
			return prev, errors.Join(err, rerr)
		}
		return prev, err
	}

	if final != nil {
		if err := persist(final); err != nil {
			return final, err
		}
	}
	return final, nil
}
