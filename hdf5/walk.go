package hdf5

import "errors"

// WalkFunc is called for every group and dataset visited. obj is a
// *Group or a *Dataset; err is set when a member could not be opened, and
// returning nil skips it.
type WalkFunc func(path string, obj any, err error) error

// ErrStopWalk ends a walk early without reporting an error.
var ErrStopWalk = errors.New("walk stopped")

// Walk visits g and everything below it, depth first, in link order.
func Walk(g *Group, fn WalkFunc) error {
	err := walkGroup(g, fn)
	if errors.Is(err, ErrStopWalk) {
		return nil
	}
	return err
}

func walkGroup(g *Group, fn WalkFunc) error {
	if err := fn(g.Path(), g, nil); err != nil {
		return err
	}

	for _, name := range g.Members() {
		obj, err := g.child(name)
		if err != nil {
			if err := fn(JoinPath(g.Path(), name), nil, err); err != nil {
				return err
			}
			continue
		}
		switch o := obj.(type) {
		case *Group:
			if err := walkGroup(o, fn); err != nil {
				return err
			}
		case *Dataset:
			if err := fn(o.Path(), o, nil); err != nil {
				return err
			}
		}
	}
	return nil
}
