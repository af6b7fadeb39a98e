package erp

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/list"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

// Version info
const (
	Version = "2.0.0"
	Author  = "NBS Systems"
	Year    = "2026"
)

// Styles
var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#FAFAFA")).
			Background(lipgloss.Color("#7D56F4")).
			Padding(0, 1)

	statusBarStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FFFDF5")).
			Background(lipgloss.Color("#333333")).
			Padding(0, 1)

	vpnStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#04B575")).
			Bold(true)

	internetStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FF9500")).
			Bold(true)

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FF0000")).
			Bold(true)

	warningStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FF9500")).
			Bold(true)

	successStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#04B575")).
			Bold(true)

	helpStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#626262"))

	creditStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#888888")).
			Italic(true)

	selectedStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#7D56F4")).
			Bold(true)

	boxStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("#7D56F4")).
			Padding(1, 2)

	// Badge styles for status indicators
	draftBadge = lipgloss.NewStyle().
			Background(lipgloss.Color("#FFA500")).
			Foreground(lipgloss.Color("#000")).
			Padding(0, 1)

	submittedBadge = lipgloss.NewStyle().
			Background(lipgloss.Color("#04B575")).
			Foreground(lipgloss.Color("#FFF")).
			Padding(0, 1)

	cancelledBadge = lipgloss.NewStyle().
			Background(lipgloss.Color("#FF4444")).
			Foreground(lipgloss.Color("#FFF")).
			Padding(0, 1)

	pendingBadge = lipgloss.NewStyle().
			Background(lipgloss.Color("#7D56F4")).
			Foreground(lipgloss.Color("#FFF")).
			Padding(0, 1)

	notificationSuccess = lipgloss.NewStyle().
				Background(lipgloss.Color("#04B575")).
				Foreground(lipgloss.Color("#FFF")).
				Padding(0, 1).
				Bold(true)

	notificationWarning = lipgloss.NewStyle().
				Background(lipgloss.Color("#FF9500")).
				Foreground(lipgloss.Color("#000")).
				Padding(0, 1).
				Bold(true)

	notificationError = lipgloss.NewStyle().
				Background(lipgloss.Color("#FF4444")).
				Foreground(lipgloss.Color("#FFF")).
				Padding(0, 1).
				Bold(true)

	breadcrumbStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#888888"))
)

// View represents different screens
type View int

const (
	ViewMain View = iota
	ViewSalesOrders
	ViewConvertibleOrders
	ViewSODetail
	ViewLoanWaybills
	ViewDeliveryNotes
	ViewDNDetail
	ViewConfirmAction
	ViewConversion
)

// MenuItem for the main menu
type MenuItem struct {
	title       string
	description string
	view        View
}

func (i MenuItem) Title() string       { return i.title }
func (i MenuItem) Description() string { return i.description }
func (i MenuItem) FilterValue() string { return i.title }

// ListItem for resource lists
type ListItem struct {
	name    string
	details string
	date    string
	amount  float64 // For totals in footer
	status  string  // For status counts
}

func (i ListItem) Title() string       { return i.name }
func (i ListItem) Description() string { return i.details }
func (i ListItem) FilterValue() string { return i.name }

func (m Model) isListView() bool {
	switch m.view {
	case ViewSalesOrders, ViewConvertibleOrders, ViewLoanWaybills, ViewDeliveryNotes:
		return true
	}
	return false
}

// Model is the main TUI model
type Model struct {
	client       *Client
	view         View
	prevView     View
	width        int
	height       int
	mainMenu     list.Model
	currentList  list.Model
	message      string
	messageType  string // "error", "warning", "info" or "success"
	loading      bool
	selectedItem string

	salesOrder   *SalesOrder
	deliveryNote *DeliveryNote

	confirmAction string
	confirmMsg    string
	confirmReturn View

	spinner          spinner.Model
	breadcrumbs      []string
	notification     string
	notificationType string // "success", "warning", "info" or "error"
	showNotification bool

	sortOrder int // 0=newest, 1=oldest, 2=name, 3=total
	listItems []ListItem

	conv *conversionSession
}

// Messages
type connectedMsg struct {
	mode string
	url  string
}

type errorMsg struct {
	err error
}

type dataLoadedMsg struct {
	items []ListItem
}

type salesOrderMsg struct {
	so SalesOrder
}

type deliveryNoteMsg struct {
	dn DeliveryNote
}

type formSubmittedMsg struct {
	success bool
	message string
}

type clearNotificationMsg struct{}

// NewTUI creates a new TUI model
func NewTUI(client *Client) Model {
	menuItems := []list.Item{
		MenuItem{"Sales Orders", "All sales orders", ViewSalesOrders},
		MenuItem{"Convertible Orders", "Submitted orders not yet fully delivered", ViewConvertibleOrders},
		MenuItem{"Loan Waybills", "Stock out on loan to customers", ViewLoanWaybills},
		MenuItem{"Delivery Notes", "Shipments and converted loans", ViewDeliveryNotes},
	}

	delegate := list.NewDefaultDelegate()
	delegate.Styles.SelectedTitle = selectedStyle
	delegate.Styles.SelectedDesc = lipgloss.NewStyle().Foreground(lipgloss.Color("#7D56F4"))

	mainMenu := list.New(menuItems, delegate, 0, 0)
	mainMenu.Title = client.Config.Brand
	mainMenu.SetShowStatusBar(false)
	mainMenu.SetFilteringEnabled(false)
	mainMenu.Styles.Title = titleStyle

	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = lipgloss.NewStyle().Foreground(lipgloss.Color("#7D56F4"))

	return Model{
		client:      client,
		view:        ViewMain,
		mainMenu:    mainMenu,
		loading:     true,
		spinner:     s,
		breadcrumbs: []string{"Main"},
	}
}

func (m Model) Init() tea.Cmd {
	return tea.Batch(
		m.detectConnection(),
		m.spinner.Tick,
	)
}

func (m Model) detectConnection() tea.Cmd {
	return func() tea.Msg {
		m.client.DetectConnection()
		return connectedMsg{
			mode: m.client.Mode,
			url:  m.client.ActiveURL,
		}
	}
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		if msg.String() == "ctrl+c" {
			return m, tea.Quit
		}
		if m.view == ViewConversion {
			return m.updateConversion(msg)
		}

		m.message = ""
		m.messageType = ""

		// Let the list filter consume keys while the user types.
		if m.isListView() && !m.loading && m.currentList.FilterState() == list.Filtering {
			var cmd tea.Cmd
			m.currentList, cmd = m.currentList.Update(msg)
			return m, cmd
		}

		switch msg.String() {
		case "q":
			if m.view == ViewMain {
				return m, tea.Quit
			}
			m.view = ViewMain
			m.breadcrumbs = []string{"Main"}
			return m, nil

		case "esc":
			switch m.view {
			case ViewMain:
			case ViewSODetail:
				m.view = m.prevView
				if m.view != ViewSalesOrders && m.view != ViewConvertibleOrders {
					m.view = ViewSalesOrders
				}
				if len(m.breadcrumbs) > 2 {
					m.breadcrumbs = m.breadcrumbs[:2]
				}
			case ViewDNDetail:
				fromList := m.prevView == ViewDeliveryNotes
				m.view = ViewDeliveryNotes
				m.breadcrumbs = []string{"Main", "Delivery Notes"}
				if !fromList {
					return m.refreshCurrentView()
				}
			case ViewConfirmAction:
				m.view = m.confirmReturn
			default:
				m.view = ViewMain
				m.breadcrumbs = []string{"Main"}
			}
			return m, nil

		case "enter":
			return m.handleEnter()

		case "y":
			if m.view == ViewConfirmAction {
				cmd := m.handleConfirmAction(true)
				return m, cmd
			}

		case "n":
			if m.view == ViewConfirmAction {
				cmd := m.handleConfirmAction(false)
				return m, cmd
			}

		case "r":
			return m.refreshCurrentView()

		case "o":
			if m.isListView() {
				m.sortOrder = (m.sortOrder + 1) % 4
				m.setListItems(m.listItems)
				return m, nil
			}

		case "l", "s", "p":
			if result, cmd, ok := m.handleSalesKeys(msg.String()); ok {
				return result, cmd
			}
		}

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height

		h := msg.Height - 8
		w := msg.Width - 4

		m.mainMenu.SetSize(w, h)
		if m.currentList.Items() != nil {
			m.currentList.SetSize(w, h)
		}
		if m.conv != nil {
			m.conv.resize(w, h)
		}

	case connectedMsg:
		m.loading = false
		m.client.Mode = msg.mode
		m.client.ActiveURL = msg.url
		return m, nil

	case errorMsg:
		m.loading = false
		m.message = msg.err.Error()
		m.messageType = "error"
		return m, nil

	case dataLoadedMsg:
		m.loading = false
		m.setListItems(msg.items)
		return m, nil

	case salesOrderMsg:
		m.loading = false
		so := msg.so
		m.salesOrder = &so
		return m, nil

	case deliveryNoteMsg:
		m.loading = false
		dn := msg.dn
		m.deliveryNote = &dn
		return m, nil

	case loanEventMsg:
		return m.handleLoanEvent(msg)

	case formSubmittedMsg:
		m.loading = false
		if msg.success {
			refreshModel, refreshCmd := m.refreshCurrentView()
			m = refreshModel.(Model)
			return m, tea.Batch(refreshCmd, m.notify("success", msg.message))
		}
		m.message = msg.message
		m.messageType = "error"
		return m, nil

	case clearNotificationMsg:
		m.showNotification = false
		m.notification = ""
		return m, nil

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}

	var cmd tea.Cmd
	switch m.view {
	case ViewMain:
		m.mainMenu, cmd = m.mainMenu.Update(msg)
	case ViewSalesOrders, ViewConvertibleOrders, ViewLoanWaybills, ViewDeliveryNotes:
		if !m.loading {
			m.currentList, cmd = m.currentList.Update(msg)
		}
	}

	return m, cmd
}

// notify shows an auto-dismissing notification.
func (m *Model) notify(kind, text string) tea.Cmd {
	m.notification = text
	m.notificationType = kind
	m.showNotification = true
	return tea.Tick(3*time.Second, func(time.Time) tea.Msg {
		return clearNotificationMsg{}
	})
}

func (m *Model) setListItems(items []ListItem) {
	m.listItems = items
	sorted := sortListItems(items, m.sortOrder)

	listItems := make([]list.Item, len(sorted))
	for i, item := range sorted {
		listItems[i] = item
	}

	delegate := list.NewDefaultDelegate()
	delegate.Styles.SelectedTitle = selectedStyle

	m.currentList = list.New(listItems, delegate, m.width-4, m.height-8)
	m.currentList.SetShowStatusBar(true)
	m.currentList.SetFilteringEnabled(true)
	m.setListTitle()
}

// sortListItems returns items ordered by order; the server returns newest first.
func sortListItems(items []ListItem, order int) []ListItem {
	sorted := make([]ListItem, len(items))
	copy(sorted, items)
	switch order {
	case 1:
		for i, j := 0, len(sorted)-1; i < j; i, j = i+1, j-1 {
			sorted[i], sorted[j] = sorted[j], sorted[i]
		}
	case 2:
		sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].name < sorted[j].name })
	case 3:
		sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].amount > sorted[j].amount })
	}
	return sorted
}

func sortLabel(order int) string {
	switch order {
	case 1:
		return "oldest"
	case 2:
		return "name"
	case 3:
		return "total"
	}
	return "newest"
}

func (m *Model) setListTitle() {
	switch m.view {
	case ViewSalesOrders:
		m.currentList.Title = "Sales Orders"
	case ViewConvertibleOrders:
		m.currentList.Title = "Convertible Orders"
	case ViewLoanWaybills:
		m.currentList.Title = "Loan Waybills"
	case ViewDeliveryNotes:
		m.currentList.Title = "Delivery Notes"
	}
	m.currentList.Styles.Title = titleStyle
}

func (m Model) handleEnter() (tea.Model, tea.Cmd) {
	switch m.view {
	case ViewMain:
		if item, ok := m.mainMenu.SelectedItem().(MenuItem); ok {
			m.view = item.view
			m.breadcrumbs = []string{"Main", item.title}
			m.currentList = list.Model{}
			return m.refreshCurrentView()
		}

	case ViewSalesOrders, ViewConvertibleOrders:
		if item, ok := m.currentList.SelectedItem().(ListItem); ok {
			return m.openSalesOrder(item.name)
		}

	case ViewDeliveryNotes:
		if item, ok := m.currentList.SelectedItem().(ListItem); ok {
			return m.openDeliveryNote(item.name)
		}
	}

	return m, nil
}

func (m Model) openSalesOrder(name string) (tea.Model, tea.Cmd) {
	m.selectedItem = name
	m.prevView = m.view
	m.view = ViewSODetail
	m.loading = true
	m.salesOrder = nil
	m.breadcrumbs = append(m.breadcrumbs[:min(len(m.breadcrumbs), 2)], name)
	return m, m.loadSODetail(name)
}

func (m Model) openDeliveryNote(name string) (tea.Model, tea.Cmd) {
	m.selectedItem = name
	m.prevView = m.view
	m.view = ViewDNDetail
	m.loading = true
	m.deliveryNote = nil
	m.breadcrumbs = []string{"Main", "Delivery Notes", name}
	return m, m.loadDNDetail(name)
}

func (m Model) refreshCurrentView() (tea.Model, tea.Cmd) {
	m.loading = true
	switch m.view {
	case ViewSalesOrders:
		return m, m.loadSalesOrders(SOListOptions{})
	case ViewConvertibleOrders:
		return m, m.loadSalesOrders(SOListOptions{Convertible: true})
	case ViewLoanWaybills:
		return m, m.loadLoanWaybills()
	case ViewDeliveryNotes:
		return m, m.loadDeliveryNotes()
	case ViewSODetail:
		return m, m.loadSODetail(m.selectedItem)
	case ViewDNDetail:
		return m, m.loadDNDetail(m.selectedItem)
	}
	m.loading = false
	return m, nil
}

func (m Model) View() string {
	if m.width == 0 {
		return "Loading..."
	}

	var content string

	switch m.view {
	case ViewMain:
		content = m.mainMenu.View()
	case ViewSalesOrders, ViewConvertibleOrders, ViewLoanWaybills, ViewDeliveryNotes:
		switch {
		case m.loading:
			content = fmt.Sprintf("\n  %s Loading...", m.spinner.View())
		case m.currentList.Items() == nil:
			content = "\n  No data"
		default:
			content = m.currentList.View() + m.renderListFooter()
		}
	case ViewSODetail:
		content = m.renderSODetail()
	case ViewDNDetail:
		content = m.renderDNDetail()
	case ViewConfirmAction:
		content = m.renderConfirmAction()
	case ViewConversion:
		content = m.renderConversion()
	}

	var b strings.Builder

	b.WriteString(m.renderStatusBar())
	b.WriteString("\n")

	b.WriteString(m.renderBreadcrumbs())
	b.WriteString("\n")

	// Notification (feedback that auto-dismisses)
	if m.showNotification {
		switch m.notificationType {
		case "success":
			b.WriteString(notificationSuccess.Render("✓ " + m.notification))
		case "warning":
			b.WriteString(notificationWarning.Render("! " + m.notification))
		case "info":
			b.WriteString(titleStyle.Render(m.notification))
		default:
			b.WriteString(notificationError.Render("✗ " + m.notification))
		}
		b.WriteString("\n")
	}

	b.WriteString(content)

	// Message (persists until user takes action)
	if m.message != "" {
		b.WriteString("\n\n")
		switch m.messageType {
		case "error":
			b.WriteString(errorStyle.Render("Error: " + m.message))
		case "warning":
			b.WriteString(warningStyle.Render("! " + m.message))
		case "success":
			b.WriteString(successStyle.Render("✓ " + m.message))
		default:
			b.WriteString(selectedStyle.Render(m.message))
		}
	}

	b.WriteString("\n\n")
	b.WriteString(m.renderHelp())

	b.WriteString("\n")
	b.WriteString(m.renderCredits())

	return b.String()
}

func (m Model) renderStatusBar() string {
	var mode string
	if m.client.Mode == "vpn" {
		mode = vpnStyle.Render("● VPN")
	} else {
		mode = internetStyle.Render("● Internet")
	}

	status := fmt.Sprintf(" %s | %s | %s ", m.client.Config.Brand, mode, m.client.ActiveURL)
	return statusBarStyle.Render(status)
}

func (m Model) renderBreadcrumbs() string {
	if len(m.breadcrumbs) == 0 {
		return ""
	}
	return breadcrumbStyle.Render("  " + strings.Join(m.breadcrumbs, " > "))
}

// renderListFooter shows the count, total and sort order of the current list.
func (m Model) renderListFooter() string {
	if len(m.listItems) == 0 {
		return ""
	}
	var total float64
	drafts := 0
	for _, it := range m.listItems {
		total += it.amount
		if it.status == "Draft" {
			drafts++
		}
	}
	footer := fmt.Sprintf("  %d records", len(m.listItems))
	if total != 0 {
		footer += " • total " + m.client.FormatCurrency(total)
	}
	if drafts > 0 {
		footer += fmt.Sprintf(" • %d draft", drafts)
	}
	footer += " • sort: " + sortLabel(m.sortOrder)
	return "\n" + helpStyle.Render(footer)
}

func (m Model) renderHelp() string {
	var help string
	switch m.view {
	case ViewMain:
		help = "↑/↓: navigate • enter: select • q: quit"
	case ViewSalesOrders, ViewConvertibleOrders:
		help = "↑/↓: navigate • enter: detail • o: sort • r: refresh • /: search • esc: back"
	case ViewLoanWaybills:
		help = "↑/↓: navigate • o: sort • r: refresh • /: search • esc: back"
	case ViewDeliveryNotes:
		help = "↑/↓: navigate • enter: detail • o: sort • r: refresh • /: search • esc: back"
	case ViewSODetail:
		help = "esc: back • p: promissory note • r: refresh"
		if m.salesOrder != nil && m.salesOrder.Parent().ConversionAvailable() {
			help = "esc: back • l: convert loan to delivery note • p: promissory note • r: refresh"
		}
	case ViewDNDetail:
		help = "esc: back • s: submit • r: refresh"
	case ViewConfirmAction:
		help = "y: confirm • n: cancel"
	case ViewConversion:
		help = m.conversionHelp()
	}
	return helpStyle.Render(help)
}

func (m Model) renderCredits() string {
	return creditStyle.Render(fmt.Sprintf("%s • v%s • %s", Author, Version, Year))
}

// renderStatusBadge renders a document status as a coloured badge.
func renderStatusBadge(status string) string {
	switch status {
	case "Draft":
		return draftBadge.Render(status)
	case "Cancelled", "Closed":
		return cancelledBadge.Render(status)
	case "Completed", "Fully Converted", "To Bill":
		return submittedBadge.Render(status)
	case "":
		return ""
	}
	return pendingBadge.Render(status)
}

// RunTUI starts the TUI
func RunTUI(client *Client) error {
	p := tea.NewProgram(NewTUI(client), tea.WithAltScreen())
	_, err := p.Run()
	return err
}
