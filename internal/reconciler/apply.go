package reconciler

import (
	"context"
	"fmt"

	"github.com/katharostech/lucky/internal/state"
)

// ApplyAll converges every container slot (the default container, if
// present, plus every named container) against s. It is the operation
// behind the explicit container_apply RPC and the Hook Dispatcher's
// post-script reconciliation pass.
func (r *Reconciler) ApplyAll(ctx context.Context, s *state.Store) error {
	var slots []Slot
	var clearDefault bool
	var clearNamed []string

	s.Read(func(st *state.DaemonState) {
		if st.DefaultContainer != nil {
			slots = append(slots, Slot{Name: "", Info: st.DefaultContainer})
		}
		for name, info := range st.NamedContainers {
			slots = append(slots, Slot{Name: name, Info: info})
		}
	})

	var firstErr error
	for _, slot := range slots {
		cleared, err := r.Converge(ctx, slot)
		if err != nil {
			r.logger.Error("reconciliation failed", "slot", slotLabel(slot.Name), "error", err)
			if firstErr == nil {
				firstErr = err
			}
			continue
		}
		if cleared {
			if slot.Name == "" {
				clearDefault = true
			} else {
				clearNamed = append(clearNamed, slot.Name)
			}
		}
	}

	if clearDefault || len(clearNamed) > 0 {
		s.Write(func(st *state.DaemonState) {
			if clearDefault {
				st.DefaultContainer = nil
			}
			for _, name := range clearNamed {
				delete(st.NamedContainers, name)
			}
		})
	}

	if firstErr != nil {
		return fmt.Errorf("apply: %w", firstErr)
	}
	return nil
}
