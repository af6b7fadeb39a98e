package erp

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/table"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/nbs-erp/nbs-cli/internal/conversion"
)

// loanEventMsg carries a workflow result event back into Update. session
// ties it to the workflow that produced it so results of a closed session
// are dropped.
type loanEventMsg struct {
	session string
	ev      conversion.Event
}

// workflowInbox collects what the workflow emits during one Handle call.
// The model drains it right after, inside Update.
type workflowInbox struct {
	notices  []conversion.Notice
	navigate []string
}

func (in *workflowInbox) Notify(n conversion.Notice) {
	in.notices = append(in.notices, n)
}

func (in *workflowInbox) Navigate(doctype, name string) {
	if doctype == conversion.DeliveryNoteDoctype {
		in.navigate = append(in.navigate, name)
	}
}

func (in *workflowInbox) drain() ([]conversion.Notice, []string) {
	notices, navigate := in.notices, in.navigate
	in.notices, in.navigate = nil, nil
	return notices, navigate
}

// conversionSession is the TUI side of one running conversion workflow.
type conversionSession struct {
	wf       *conversion.Workflow
	inbox    *workflowInbox
	returnTo View
	crumbs   []string
	stage    conversion.Stage

	waybills table.Model
	inputs   []textinput.Model
	focus    int

	width  int
	height int
}

func newWaybillTable() table.Model {
	columns := []table.Column{
		{Title: "Loan Waybill", Width: 18},
		{Title: "Loan Date", Width: 12},
		{Title: "Lines", Width: 6},
		{Title: "Max Convertible", Width: 16},
	}
	t := table.New(table.WithColumns(columns), table.WithFocused(true), table.WithHeight(8))

	s := table.DefaultStyles()
	s.Header = s.Header.
		BorderStyle(lipgloss.NormalBorder()).
		BorderForeground(lipgloss.Color("#7D56F4")).
		BorderBottom(true).
		Bold(true)
	s.Selected = s.Selected.
		Foreground(lipgloss.Color("#FFF")).
		Background(lipgloss.Color("#7D56F4")).
		Bold(false)
	t.SetStyles(s)
	return t
}

func (c *conversionSession) resize(w, h int) {
	c.width, c.height = w, h
	c.waybills.SetWidth(max(w-8, 20))
	c.waybills.SetHeight(max(h-10, 3))
}

// sync brings the widgets in line with the workflow state after a transition.
func (c *conversionSession) sync() tea.Cmd {
	st := c.wf.State()
	prev := c.stage
	c.stage = st.Stage

	switch st.Stage {
	case conversion.StageListShown:
		vm := conversion.Render(st)
		rows := make([]table.Row, len(vm.Waybills))
		for i, w := range vm.Waybills {
			rows[i] = table.Row{w.ID, w.LoanDate, fmt.Sprintf("%d", w.Lines), w.MaxConvertible}
		}
		c.waybills.SetRows(rows)
		if c.waybills.Cursor() >= len(rows) {
			c.waybills.SetCursor(0)
		}
	case conversion.StageQuantityCapture:
		// Back from a failed submission the typed values are kept as they are.
		if prev == conversion.StageDetailShown || len(c.inputs) != len(st.Lines) {
			c.inputs = make([]textinput.Model, len(st.Lines))
			for i, l := range st.Lines {
				c.inputs[i] = newQtyInput(l.RequestedQty.String())
			}
			if c.focus >= len(c.inputs) {
				c.focus = 0
			}
			return updateFocus(c.inputs, c.focus)
		}
	}
	return nil
}

// reconcileInput rewrites input i when the workflow stored a different
// quantity than was typed, i.e. the value was clamped.
func (c *conversionSession) reconcileInput(i int) {
	st := c.wf.State()
	if i < 0 || i >= len(c.inputs) || i >= len(st.Lines) {
		return
	}
	stored := st.Lines[i].RequestedQty
	if !conversion.ParseQuantity(c.inputs[i].Value()).Equal(stored) {
		c.inputs[i].SetValue(stored.String())
		c.inputs[i].CursorEnd()
	}
}

func (m Model) loadLoanWaybills() tea.Cmd {
	return func() tea.Msg {
		rows, err := m.client.ListLoanWaybills(context.Background(), LoanListOptions{})
		if err != nil {
			return errorMsg{err}
		}

		items := make([]ListItem, 0, len(rows))
		for _, r := range rows {
			detail := fmt.Sprintf("%s | %s | %s | %s remaining", r.Customer, r.LoanDate,
				renderStatusBadge(r.ConversionStatus), FormatQty(r.Remaining))
			items = append(items, ListItem{name: r.Name, details: detail, date: r.LoanDate, status: r.ConversionStatus})
		}
		return dataLoadedMsg{items}
	}
}

// startConversion opens the loan conversion dialogs for the Sales Order on
// screen.
func (m Model) startConversion() (tea.Model, tea.Cmd) {
	in := &workflowInbox{}
	wf := conversion.NewWorkflow(m.salesOrder.Parent(), m.client, in, in, conversion.WithLogger(m.client.Logger))

	m.conv = &conversionSession{
		wf:       wf,
		inbox:    in,
		returnTo: m.view,
		crumbs:   append([]string(nil), m.breadcrumbs...),
		waybills: newWaybillTable(),
	}
	m.conv.resize(m.width-4, m.height-8)
	m.view = ViewConversion
	m.breadcrumbs = append(append([]string(nil), m.breadcrumbs...), "Loan Conversion")
	m.message = ""
	m.messageType = ""

	return m.afterTransition(wf.Start())
}

func (m Model) runTask(t conversion.Task) tea.Cmd {
	if t == nil || m.conv == nil {
		return nil
	}
	session := m.conv.wf.ID()
	return func() tea.Msg {
		return loanEventMsg{session: session, ev: t(context.Background())}
	}
}

func (m Model) handleLoanEvent(msg loanEventMsg) (tea.Model, tea.Cmd) {
	if m.conv == nil || m.conv.wf.ID() != msg.session {
		m.client.Logger.Debug("dropping result of closed loan conversion", "session", msg.session)
		return m, nil
	}
	return m.afterTransition(m.conv.wf.Handle(msg.ev))
}

// afterTransition schedules task, shows what the workflow emitted and leaves
// the dialogs once the workflow has closed.
func (m Model) afterTransition(task conversion.Task) (tea.Model, tea.Cmd) {
	c := m.conv
	cmds := []tea.Cmd{m.runTask(task)}

	notices, navigate := c.inbox.drain()
	for _, n := range notices {
		cmds = append(cmds, m.showNotice(n))
	}

	if !c.wf.Closed() {
		cmds = append(cmds, c.sync())
		return m, tea.Batch(cmds...)
	}

	m.view = c.returnTo
	m.breadcrumbs = c.crumbs
	m.conv = nil
	for _, name := range navigate {
		model, cmd := m.openDeliveryNote(name)
		m = model.(Model)
		cmds = append(cmds, cmd)
	}
	return m, tea.Batch(cmds...)
}

// showNotice puts blocking notices in the persistent message area and the
// others in the auto-dismissing notification bar.
func (m *Model) showNotice(n conversion.Notice) tea.Cmd {
	kind := "info"
	switch n.Severity {
	case conversion.SeverityWarning:
		kind = "warning"
	case conversion.SeverityError:
		kind = "error"
	case conversion.SeveritySuccess:
		kind = "success"
	}
	if n.Blocking {
		m.message = n.Message
		m.messageType = kind
		return nil
	}
	return m.notify(kind, n.Message)
}

func (m Model) updateConversion(key tea.KeyMsg) (tea.Model, tea.Cmd) {
	c := m.conv
	if c == nil {
		m.view = ViewMain
		return m, nil
	}
	m.message = ""
	m.messageType = ""

	var ev conversion.Event
	var cmd tea.Cmd

	switch c.wf.State().Stage {
	case conversion.StageLoading:
		if k := key.String(); k == "esc" || k == "x" {
			ev = conversion.Cancel{}
		}

	case conversion.StageListShown:
		switch key.String() {
		case "enter":
			ev = conversion.SelectWaybill{Index: c.waybills.Cursor()}
		case "esc", "x":
			ev = conversion.Cancel{}
		default:
			c.waybills, cmd = c.waybills.Update(key)
		}

	case conversion.StageDetailShown:
		switch key.String() {
		case "enter":
			ev = conversion.ConfirmDetail{}
		case "esc":
			ev = conversion.GoBack{}
		case "x":
			ev = conversion.Cancel{}
		}

	case conversion.StageQuantityCapture:
		switch key.String() {
		case "tab", "down":
			c.focus = (c.focus + 1) % max(len(c.inputs), 1)
			cmd = updateFocus(c.inputs, c.focus)
		case "shift+tab", "up":
			c.focus--
			if c.focus < 0 {
				c.focus = len(c.inputs) - 1
			}
			cmd = updateFocus(c.inputs, c.focus)
		case "enter", "ctrl+s":
			ev = conversion.Submit{}
		case "esc":
			ev = conversion.GoBack{}
		case "ctrl+x":
			ev = conversion.Cancel{}
		default:
			if c.focus < len(c.inputs) {
				before := c.inputs[c.focus].Value()
				c.inputs[c.focus], cmd = c.inputs[c.focus].Update(key)
				if raw := c.inputs[c.focus].Value(); raw != before {
					ev = conversion.EditQuantity{Index: c.focus, Raw: raw}
				}
			}
		}

	case conversion.StageSubmitting:
		// One submission at a time; keys wait for the result.
	}

	if ev == nil {
		return m, cmd
	}

	edited, isEdit := ev.(conversion.EditQuantity)
	model, next := m.afterTransition(c.wf.Handle(ev))
	if isEdit && model.(Model).conv != nil {
		model.(Model).conv.reconcileInput(edited.Index)
	}
	return model, tea.Batch(cmd, next)
}

func (m Model) conversionHelp() string {
	if m.conv == nil {
		return ""
	}
	switch m.conv.wf.State().Stage {
	case conversion.StageLoading:
		return "esc: cancel"
	case conversion.StageListShown:
		return "↑/↓: navigate • enter: open loan waybill • esc: close"
	case conversion.StageDetailShown:
		return "enter: convert quantities • esc: back • x: close"
	case conversion.StageQuantityCapture:
		return "tab/↑/↓: next line • enter: create delivery note • esc: back • ctrl+x: close"
	}
	return "creating delivery note..."
}

func (m Model) renderConversion() string {
	if m.conv == nil {
		return ""
	}
	c := m.conv
	vm := conversion.Render(c.wf.State())

	var b strings.Builder
	b.WriteString(titleStyle.Render(fmt.Sprintf(" %s: %s", vm.Title, vm.ParentID)) + "\n\n")
	b.WriteString(fmt.Sprintf("  Customer: %s\n", vm.Customer))
	if vm.Waybill != "" {
		b.WriteString(fmt.Sprintf("  Loan Waybill: %s (loaned %s)\n", vm.Waybill, vm.LoanDate))
	}
	b.WriteString("\n")

	switch vm.Stage {
	case conversion.StageEmpty, conversion.StageLoading:
		b.WriteString(fmt.Sprintf("  %s Fetching pending loan waybills...", m.spinner.View()))

	case conversion.StageListShown:
		b.WriteString(c.waybills.View())

	case conversion.StageDetailShown:
		b.WriteString(renderLoanLines(vm.Lines))

	case conversion.StageQuantityCapture:
		b.WriteString(c.renderQuantityForm(vm))

	case conversion.StageSubmitting:
		b.WriteString(fmt.Sprintf("  %s Creating Delivery Note for %d line(s)...", m.spinner.View(), vm.PositiveLines))
	}

	return boxStyle.Render(b.String())
}

func renderLoanLines(lines []conversion.LineRow) string {
	var b strings.Builder
	header := fmt.Sprintf("  %-16s %-22s %-10s %8s %9s %9s %9s %8s", "Item", "Batch / Serial", "Expiry",
		"Loaned", "Converted", "Remaining", "SO Rem.", "Max")
	b.WriteString(selectedStyle.Render(header) + "\n")
	for _, l := range lines {
		b.WriteString(fmt.Sprintf("  %-16s %-22s %-10s %8s %9s %9s %9s %8s\n",
			truncate(l.ItemCode, 16), truncate(lineTrace(l), 22), l.ExpiryDate,
			l.Supplied, l.Converted, l.Remaining, l.SORemaining, successStyle.Render(l.Max)))
		if l.Description != "" && l.Description != l.ItemCode {
			b.WriteString(helpStyle.Render("    "+truncate(l.Description, 60)) + "\n")
		}
	}
	return b.String()
}

func (c *conversionSession) renderQuantityForm(vm conversion.ViewModel) string {
	var b strings.Builder
	for i, l := range vm.Lines {
		cursor := "  "
		label := fmt.Sprintf("%-16s %-22s max %-8s", truncate(l.ItemCode, 16), truncate(lineTrace(l), 22), l.Max)
		if i == c.focus {
			cursor = selectedStyle.Render("> ")
			label = selectedStyle.Render(label)
		}
		input := ""
		if i < len(c.inputs) {
			input = c.inputs[i].View()
		}
		b.WriteString(fmt.Sprintf("%s%s [%s]\n", cursor, label, input))
	}

	b.WriteString(fmt.Sprintf("\n  Total: %s across %d line(s)\n", vm.TotalRequested, vm.PositiveLines))
	if !vm.CanSubmit {
		b.WriteString(helpStyle.Render("  Enter a quantity above zero on at least one line to create the Delivery Note"))
	}
	return b.String()
}

func lineTrace(l conversion.LineRow) string {
	switch {
	case l.BatchNo != "" && l.SerialNo != "":
		return l.BatchNo + " / " + l.SerialNo
	case l.BatchNo != "":
		return l.BatchNo
	}
	return l.SerialNo
}
