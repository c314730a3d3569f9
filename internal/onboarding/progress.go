package onboarding

// StepInfo describes one stepper entry.
type StepInfo struct {
	Number      int    `json:"number"`
	Title       string `json:"title"`
	Description string `json:"description"`
	State       string `json:"state"`
}

// Progress is the stepper model.
type Progress struct {
	Current int        `json:"current"`
	Total   int        `json:"total"`
	Steps   []StepInfo `json:"steps"`
}

var stepLabels = [TotalSteps]struct{ title, description string }{
	{"Agent Info", "Name & business"},
	{"Template", "Select type"},
	{"Confirm", "Review & activate"},
}

// Progress returns the stepper model for the current step.
func (w *Wizard) Progress() Progress {
	return progressFor(w.Step())
}

func progressFor(step Step) Progress {
	p := Progress{Current: int(step), Total: TotalSteps, Steps: make([]StepInfo, 0, TotalSteps)}
	if step > TotalSteps {
		p.Current = TotalSteps
	}
	for i, l := range stepLabels {
		n := i + 1
		state := "upcoming"
		switch {
		case int(step) > n:
			state = "done"
		case int(step) == n:
			state = "current"
		}
		p.Steps = append(p.Steps, StepInfo{Number: n, Title: l.title, Description: l.description, State: state})
	}
	return p
}
