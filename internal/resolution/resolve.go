package resolution

import (
	"fmt"

	"ytvox/internal/model"
)

// Resolve returns the fetch plan stored for label.
func Resolve(label string, menu model.ResolutionMenu) (model.FetchPlan, error) {
	for _, e := range menu {
		if string(e.Label) == label {
			return e.Plan, nil
		}
	}
	return model.FetchPlan{}, fmt.Errorf("%w: %q", model.ErrNotFound, label)
}

// Best returns the top menu entry, the default selection after detect.
func Best(menu model.ResolutionMenu) (model.MenuEntry, bool) {
	if len(menu) == 0 {
		return model.MenuEntry{}, false
	}
	return menu[0], true
}
