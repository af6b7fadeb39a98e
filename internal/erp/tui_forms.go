package erp

import (
	"fmt"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
)

// askConfirm switches to the confirm dialog for action.
func (m *Model) askConfirm(action, msg string) {
	m.confirmAction = action
	m.confirmMsg = msg
	m.confirmReturn = m.view
	m.view = ViewConfirmAction
}

// renderConfirmAction renders the confirm action dialog
func (m Model) renderConfirmAction() string {
	content := fmt.Sprintf(`
  %s

  This action may be irreversible.

  [y] Yes, proceed    [n] No, cancel
`, m.confirmMsg)

	return boxStyle.Render(content)
}

// handleConfirmAction handles the confirm action response
func (m *Model) handleConfirmAction(confirmed bool) tea.Cmd {
	m.view = m.confirmReturn
	if !confirmed {
		return nil
	}

	m.loading = true

	switch m.confirmAction {
	case "submit_dn":
		return m.submitDN(m.selectedItem)
	case "promissory_so":
		return m.createPromissoryNote(m.selectedItem)
	}

	m.loading = false
	return nil
}

// newQtyInput returns a quantity field for one loan line.
func newQtyInput(value string) textinput.Model {
	ti := textinput.New()
	ti.Placeholder = "0"
	ti.Prompt = ""
	ti.CharLimit = 12
	ti.Width = 10
	if value != "0" {
		ti.SetValue(value)
	}
	return ti
}

// updateFocus focuses the input at index and blurs the others.
func updateFocus(inputs []textinput.Model, index int) tea.Cmd {
	var cmd tea.Cmd
	for i := range inputs {
		if i == index {
			cmd = inputs[i].Focus()
		} else {
			inputs[i].Blur()
		}
	}
	return cmd
}
