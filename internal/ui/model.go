package ui

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/nconklindev/stringtable/internal/exporter"
	"github.com/nconklindev/stringtable/internal/table"
	"github.com/nconklindev/stringtable/internal/types"

	"github.com/charmbracelet/bubbles/filepicker"
	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/dustin/go-humanize"
)

type state int

const (
	stateFilePicker state = iota
	stateOutputs
	stateProcessing
	stateComplete
	stateError
)

const (
	fieldDefinitions = iota
	fieldText
)

type Model struct {
	state        state
	filepicker   filepicker.Model
	selectedFile string
	inputs       []textinput.Model
	focus        int
	opts         exporter.Options
	result       *types.ExportResult
	err          error
	width        int
	height       int
	progress     progress.Model
	progressChan chan float64
	resultChan   chan exportResultMsg
}

type exportResultMsg struct {
	result *types.ExportResult
	err    error
}

type exportCompleteMsg struct {
	result *types.ExportResult
	err    error
}

type progressMsg float64

type waitForProgressMsg struct{}

// ErrInterrupted is reported when the user quits while an export is running.
var ErrInterrupted = errors.New("export interrupted; outputs may be incomplete")

// InitialModel starts in the file picker. opts seeds the header and format
// settings, which can still be toggled before exporting.
func InitialModel(opts exporter.Options) Model {
	fp := filepicker.New()
	fp.AllowedTypes = table.SupportedExtensions
	fp.CurrentDirectory, _ = os.Getwd()

	fp.Styles.Cursor = lipgloss.NewStyle().Foreground(lipgloss.Color("#FF8C42"))
	fp.Styles.Symlink = lipgloss.NewStyle().Foreground(lipgloss.Color("#FFB84D"))
	fp.Styles.Directory = lipgloss.NewStyle().Foreground(lipgloss.Color("#FFB84D"))
	fp.Styles.File = lipgloss.NewStyle().Foreground(lipgloss.Color("#FFFFFF"))
	fp.Styles.Permission = lipgloss.NewStyle().Foreground(lipgloss.Color("#6B7280"))
	fp.Styles.Selected = lipgloss.NewStyle().Foreground(lipgloss.Color("#FF8C42")).Bold(true)
	fp.Styles.FileSize = lipgloss.NewStyle().Foreground(lipgloss.Color("#6B7280"))

	inputs := make([]textinput.Model, 2)
	for i := range inputs {
		ti := textinput.New()
		ti.CharLimit = 512
		ti.PromptStyle = SelectedStyle
		ti.Cursor.Style = SelectedStyle
		inputs[i] = ti
	}
	inputs[fieldDefinitions].Prompt = "Definitions: "
	inputs[fieldText].Prompt = "Text:        "

	prog := progress.New(progress.WithGradient("#FF8C42", "#FF9F5A"))

	return Model{
		state:      stateFilePicker,
		filepicker: fp,
		inputs:     inputs,
		opts:       opts,
		progress:   prog,
	}
}

func (m Model) Init() tea.Cmd {
	return m.filepicker.Init()
}

// Result returns the export result once the model reached the complete state.
func (m Model) Result() *types.ExportResult {
	return m.result
}

// Err returns the export error, if any.
func (m Model) Err() error {
	return m.err
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height

		height := msg.Height - 14
		if height < 5 {
			height = 5
		}
		m.filepicker.SetHeight(height)

		width := msg.Width - 20
		if width < 20 {
			width = 20
		}
		m.progress.Width = width

		return m, nil

	case tea.KeyMsg:
		switch m.state {
		case stateFilePicker:
			switch msg.String() {
			case "ctrl+c", "q":
				return m, tea.Quit
			}

		case stateOutputs:
			switch msg.String() {
			case "ctrl+c", "esc":
				return m, tea.Quit
			case "tab", "down", "shift+tab", "up":
				cmd := m.setFocus(1 - m.focus)
				return m, cmd
			case "ctrl+t":
				m.opts.Table.HasHeader = !m.opts.Table.HasHeader
				return m, nil
			case "ctrl+g":
				m.toggleFormat()
				return m, nil
			case "enter":
				if m.focus == fieldDefinitions {
					cmd := m.setFocus(fieldText)
					return m, cmd
				}
				if m.outputsReady() {
					m.state = stateProcessing
					return m.export()
				}
				return m, nil
			}

			var cmd tea.Cmd
			m.inputs[m.focus], cmd = m.inputs[m.focus].Update(msg)
			return m, cmd

		case stateProcessing:
			if msg.String() == "ctrl+c" {
				m.err = ErrInterrupted
				return m, tea.Quit
			}
			return m, nil

		case stateComplete, stateError:
			return m, tea.Quit
		}

	case exportCompleteMsg:
		if msg.err != nil {
			m.err = msg.err
			m.state = stateError
			return m, nil
		}
		m.result = msg.result
		m.state = stateComplete
		return m, nil

	case progress.FrameMsg:
		progressModel, cmd := m.progress.Update(msg)
		m.progress = progressModel.(progress.Model)
		return m, cmd

	case progressMsg:
		if m.state == stateProcessing {
			cmd := m.progress.SetPercent(float64(msg))
			return m, tea.Batch(cmd, waitForProgress(m.progressChan, m.resultChan))
		}
		return m, nil

	case waitForProgressMsg:
		return m, waitForProgress(m.progressChan, m.resultChan)
	}

	if m.state == stateFilePicker {
		var cmd tea.Cmd
		m.filepicker, cmd = m.filepicker.Update(msg)

		if didSelect, path := m.filepicker.DidSelectFile(msg); didSelect {
			m.selectedFile = path
			m.state = stateOutputs
			m.fillDefaultOutputs()
			focusCmd := m.setFocus(fieldDefinitions)
			return m, tea.Batch(cmd, focusCmd)
		}

		return m, cmd
	}

	if m.state == stateOutputs {
		var cmd tea.Cmd
		m.inputs[m.focus], cmd = m.inputs[m.focus].Update(msg)
		return m, cmd
	}

	return m, nil
}

// DefaultOutputs derives the definitions and text paths from the input path.
func DefaultOutputs(inputFile string, format exporter.Format) (string, string) {
	base := strings.TrimSuffix(inputFile, filepath.Ext(inputFile))
	return base + format.Ext(), base + ".txt"
}

func (m *Model) fillDefaultOutputs() {
	defs, text := DefaultOutputs(m.selectedFile, m.opts.Format)
	m.inputs[fieldDefinitions].SetValue(defs)
	m.inputs[fieldText].SetValue(text)
}

// toggleFormat switches between C and Go output and keeps a derived
// definitions path in step with the new extension.
func (m *Model) toggleFormat() {
	oldDefs, _ := DefaultOutputs(m.selectedFile, m.opts.Format)
	if m.opts.Format == exporter.FormatGo {
		m.opts.Format = exporter.FormatC
	} else {
		m.opts.Format = exporter.FormatGo
	}
	if m.inputs[fieldDefinitions].Value() == oldDefs {
		newDefs, _ := DefaultOutputs(m.selectedFile, m.opts.Format)
		m.inputs[fieldDefinitions].SetValue(newDefs)
	}
}

func (m *Model) setFocus(field int) tea.Cmd {
	m.focus = field
	for i := range m.inputs {
		if i != field {
			m.inputs[i].Blur()
		}
	}
	return m.inputs[field].Focus()
}

func (m Model) outputsReady() bool {
	for _, in := range m.inputs {
		if strings.TrimSpace(in.Value()) == "" {
			return false
		}
	}
	return true
}

func (m Model) export() (Model, tea.Cmd) {
	m.progressChan = make(chan float64, 100)
	m.resultChan = make(chan exportResultMsg, 1)

	cmd := tea.Batch(
		func() tea.Msg {
			progressChan := m.progressChan
			resultChan := m.resultChan
			selectedFile := m.selectedFile
			defsFile := strings.TrimSpace(m.inputs[fieldDefinitions].Value())
			textFile := strings.TrimSpace(m.inputs[fieldText].Value())
			opts := m.opts

			go func() {
				result, err := exporter.Export(selectedFile, defsFile, textFile, opts, progressChan)

				resultChan <- exportResultMsg{result: result, err: err}

				close(progressChan)
				close(resultChan)
			}()

			return waitForProgressMsg{}
		},
		waitForProgress(m.progressChan, m.resultChan),
		m.progress.Init(),
	)

	return m, cmd
}

func waitForProgress(progressChan chan float64, resultChan chan exportResultMsg) tea.Cmd {
	return func() tea.Msg {
		if progressChan == nil {
			return nil
		}

		p, ok := <-progressChan
		if !ok {
			res, ok := <-resultChan
			if ok {
				return exportCompleteMsg(res)
			}
			return nil
		}

		return progressMsg(p)
	}
}

func (m Model) View() string {
	switch m.state {
	case stateFilePicker:
		return m.viewFilePicker()
	case stateOutputs:
		return m.viewOutputs()
	case stateProcessing:
		return m.viewProcessing()
	case stateComplete:
		return m.viewComplete()
	case stateError:
		return m.viewError()
	}
	return ""
}

func (m Model) viewFilePicker() string {
	var s strings.Builder

	s.WriteString(TitleStyle.Render("▤ stringtable - Spreadsheet to String Table"))
	s.WriteString("\n")
	s.WriteString(SubtitleStyle.Render("Select an XLSX or CSV file with name and text columns"))
	s.WriteString("\n\n")
	s.WriteString(m.filepicker.View())
	s.WriteString("\n\n")
	s.WriteString(HelpStyle.Render("Press q to quit"))

	return s.String()
}

func (m Model) viewOutputs() string {
	var s strings.Builder

	s.WriteString(TitleStyle.Render("▤ Choose Output Files"))
	s.WriteString("\n")
	s.WriteString(SubtitleStyle.Render(fmt.Sprintf("Input: %s", filepath.Base(m.selectedFile))))
	s.WriteString("\n\n")

	for _, in := range m.inputs {
		s.WriteString(in.View())
		s.WriteString("\n")
	}
	s.WriteString("\n")

	header := "[ ]"
	if m.opts.Table.HasHeader {
		header = "[x]"
	}
	s.WriteString(fmt.Sprintf("Skip Header Row: %s\n", header))
	s.WriteString(fmt.Sprintf("Format: %s\n", CheckedStyle.Render(m.opts.Format.String())))
	s.WriteString("\n")
	s.WriteString(HelpStyle.Render("tab: switch field • ctrl+t: toggle header • ctrl+g: toggle format • enter: export • esc: quit"))

	return BoxStyle.Render(s.String())
}

func (m Model) viewProcessing() string {
	var s strings.Builder

	s.WriteString(TitleStyle.Render("▤ Processing..."))
	s.WriteString("\n\n")
	s.WriteString("Exporting rows...")
	s.WriteString("\n\n")
	s.WriteString(HelpStyle.Render("ctrl+c: abort"))
	s.WriteString("\n\n")
	s.WriteString(m.progress.View())

	return BoxStyle.Render(s.String())
}

func (m Model) viewComplete() string {
	var s strings.Builder

	s.WriteString(TitleStyle.Render("✓ Export Complete!"))
	s.WriteString("\n\n")

	maxPathLen := m.width - 20
	if maxPathLen < 30 {
		maxPathLen = 30
	}

	s.WriteString(fmt.Sprintf("Input:       %s\n", truncatePath(m.result.InputFile, maxPathLen)))
	if m.result.Sheet != "" {
		s.WriteString(fmt.Sprintf("Sheet:       %s\n", m.result.Sheet))
	}
	s.WriteString(SuccessStyle.Render(fmt.Sprintf("Definitions: %s (%s)",
		truncatePath(m.result.DefinitionsFile, maxPathLen), humanize.Bytes(uint64(m.result.DefinitionsBytes)))))
	s.WriteString("\n")
	s.WriteString(SuccessStyle.Render(fmt.Sprintf("Text:        %s (%s)",
		truncatePath(m.result.TextFile, maxPathLen), humanize.Bytes(uint64(m.result.TextBytes)))))
	s.WriteString("\n\n")
	s.WriteString(fmt.Sprintf("Rows exported: %s\n", humanize.Comma(int64(m.result.RowsExported))))
	s.WriteString("\n")
	s.WriteString(HelpStyle.Render("Press any key to exit"))

	return BoxStyle.Render(s.String())
}

func (m Model) viewError() string {
	var s strings.Builder

	s.WriteString(ErrorStyle.Render("✗ Export Failed"))
	s.WriteString("\n\n")
	s.WriteString(m.err.Error())
	s.WriteString("\n\n")
	s.WriteString(HelpStyle.Render("Outputs may be incomplete and should not be used. Press any key to exit"))

	return BoxStyle.Render(s.String())
}

func truncatePath(path string, maxLen int) string {
	if len(path) > maxLen {
		return "..." + path[len(path)-maxLen+3:]
	}
	return path
}
