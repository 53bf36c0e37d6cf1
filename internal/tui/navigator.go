package tui

// ProgramNavigator turns navigation signals into NavigateMsg for a running program.
type ProgramNavigator struct {
	sender Sender
}

// NewProgramNavigator creates a navigator sending to sender.
func NewProgramNavigator(sender Sender) *ProgramNavigator {
	return &ProgramNavigator{sender: sender}
}

func (n *ProgramNavigator) NavigateToPipeline(id string) {
	n.sender.Send(NavigateMsg{Kind: "pipeline", ID: id})
}

func (n *ProgramNavigator) NavigateToAlerts(id string) {
	n.sender.Send(NavigateMsg{Kind: "alert", ID: id})
}
