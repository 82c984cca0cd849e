package debugger

import (
	"fmt"

	"github.com/gdamore/tcell/v2"
	"github.com/rivo/tview"

	"github.com/rv32im/rubicv/vm"
)

// TUI is the text user interface for the step debugger: a disassembly
// view, a register view, an output log, and a command line.
type TUI struct {
	Debugger *Debugger

	App  *tview.Application
	Flex *tview.Flex

	DisassemblyView *tview.TextView
	RegisterView    *tview.TextView
	OutputView      *tview.TextView
	CommandInput    *tview.InputField
}

// NewTUI builds a TUI bound to d, with views populated but not yet run.
func NewTUI(d *Debugger) *TUI {
	t := &TUI{
		Debugger: d,
		App:      tview.NewApplication(),
	}
	t.initViews()
	t.buildLayout()
	t.setupKeyBindings()
	t.RefreshAll()
	return t
}

func (t *TUI) initViews() {
	t.DisassemblyView = tview.NewTextView().SetDynamicColors(true).SetScrollable(true)
	t.DisassemblyView.SetBorder(true).SetTitle(" Disassembly ")

	t.RegisterView = tview.NewTextView().SetDynamicColors(true)
	t.RegisterView.SetBorder(true).SetTitle(" Registers ")

	t.OutputView = tview.NewTextView().SetDynamicColors(true).SetScrollable(true).SetWrap(true)
	t.OutputView.SetBorder(true).SetTitle(" Output ")

	t.CommandInput = tview.NewInputField().SetLabel("> ")
	t.CommandInput.SetBorder(true).SetTitle(" Command ")
	t.CommandInput.SetDoneFunc(t.handleCommand)
	t.CommandInput.SetInputCapture(func(event *tcell.EventKey) *tcell.EventKey {
		switch event.Key() {
		case tcell.KeyUp:
			if cmd := t.Debugger.History.Previous(); cmd != "" {
				t.CommandInput.SetText(cmd)
			}
			return nil
		case tcell.KeyDown:
			t.CommandInput.SetText(t.Debugger.History.Next())
			return nil
		}
		return event
	})
}

func (t *TUI) buildLayout() {
	top := tview.NewFlex().
		SetDirection(tview.FlexColumn).
		AddItem(t.DisassemblyView, 0, 2, false).
		AddItem(t.RegisterView, 0, 1, false)

	t.Flex = tview.NewFlex().
		SetDirection(tview.FlexRow).
		AddItem(top, 0, 3, false).
		AddItem(t.OutputView, 8, 0, false).
		AddItem(t.CommandInput, 3, 0, true)
}

func (t *TUI) setupKeyBindings() {
	t.App.SetInputCapture(func(event *tcell.EventKey) *tcell.EventKey {
		switch event.Key() {
		case tcell.KeyF5:
			t.execute("continue")
			return nil
		case tcell.KeyF10, tcell.KeyF11:
			t.execute("step")
			return nil
		case tcell.KeyCtrlC:
			t.App.Stop()
			return nil
		case tcell.KeyCtrlL:
			t.RefreshAll()
			return nil
		}
		return event
	})
}

func (t *TUI) handleCommand(key tcell.Key) {
	if key != tcell.KeyEnter {
		return
	}
	cmd := t.CommandInput.GetText()
	if cmd != "" {
		t.execute(cmd)
		t.CommandInput.SetText("")
	}
}

func (t *TUI) execute(cmd string) {
	if err := t.Debugger.ExecuteCommand(cmd); err != nil {
		t.Debugger.Printf("[red]error:[white] %v\n", err)
	}
	out := t.Debugger.GetOutput()
	if out != "" {
		fmt.Fprint(t.OutputView, out)
		t.OutputView.ScrollToEnd()
	}
	t.RefreshAll()
}

// RefreshAll redraws the disassembly and register panels from current
// interpreter state.
func (t *TUI) RefreshAll() {
	t.updateDisassembly()
	t.updateRegisters()
	t.App.Draw()
}

func (t *TUI) updateDisassembly() {
	t.DisassemblyView.Clear()
	ppc := t.Debugger.Runner.PPC()
	start := ppc - 5
	if start < 0 {
		start = 0
	}
	for i := start; i < start+20 && i < len(t.Debugger.Program.Records); i++ {
		marker := "  "
		if i == ppc {
			marker = "[yellow]=>[white]"
		}
		fmt.Fprintf(t.DisassemblyView, "%s rec[%d]: %s\n", marker, i, vm.Disassemble(t.Debugger.Program.Records[i]))
	}
}

func (t *TUI) updateRegisters() {
	t.RegisterView.Clear()
	regs := t.Debugger.Runner.Registers()
	for i := 0; i < vm.NumRegisters; i++ {
		fmt.Fprintf(t.RegisterView, "x%-2d 0x%08x\n", i, regs[i])
	}
}

// Run starts the tview application loop, blocking until the user quits.
func (t *TUI) Run() error {
	return t.App.SetRoot(t.Flex, true).SetFocus(t.CommandInput).Run()
}
