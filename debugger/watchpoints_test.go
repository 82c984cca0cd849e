package debugger

import (
	"strings"
	"testing"

	"github.com/rv32im/rubicv/vm"
)

func TestWatchpointManagerLifecycle(t *testing.T) {
	wm := NewWatchpointManager()

	wp := wm.Add("a0", true, 10, 0)
	if wp.ID != 1 || !wp.Enabled || !wp.IsRegister || wp.Register != 10 {
		t.Errorf("watchpoint = %+v", wp)
	}
	if wm.Count() != 1 || wm.Get(wp.ID) == nil {
		t.Error("watchpoint not registered")
	}

	if err := wm.DisableByID(wp.ID); err != nil || wm.Get(wp.ID).Enabled {
		t.Error("disable failed")
	}
	if err := wm.EnableByID(wp.ID); err != nil || !wm.Get(wp.ID).Enabled {
		t.Error("enable failed")
	}

	if err := wm.DeleteByID(wp.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if wm.Count() != 0 {
		t.Error("watchpoint not deleted")
	}
	if err := wm.DeleteByID(wp.ID); err == nil {
		t.Error("deleting missing watchpoint did not error")
	}
}

func TestRegisterWatchpointFiresOnChange(t *testing.T) {
	d := newTestDebugger(t, countLoop()...)
	wm := d.Watchpoints

	wp := wm.Add("t0", true, 5, 0)
	if err := wm.Initialize(wp.ID, d.Runner, d.Mem); err != nil {
		t.Fatalf("initialize: %v", err)
	}

	// No change yet.
	if _, changed := wm.Check(d.Runner, d.Mem); changed {
		t.Error("watchpoint fired without a value change")
	}

	d.Runner.Registers()[5] = 42
	hit, changed := wm.Check(d.Runner, d.Mem)
	if !changed || hit.ID != wp.ID {
		t.Fatal("watchpoint did not fire on register change")
	}
	if hit.LastValue != 42 || hit.HitCount != 1 {
		t.Errorf("hit = %+v", hit)
	}

	// Value is resnapshotted after a hit.
	if _, changed := wm.Check(d.Runner, d.Mem); changed {
		t.Error("watchpoint fired twice for one change")
	}
}

func TestMemoryWatchpointFiresOnChange(t *testing.T) {
	d := newTestDebugger(t, countLoop()...)
	wm := d.Watchpoints

	wp := wm.Add("[0x2000]", false, 0, vm.ScratchStart)
	if err := wm.Initialize(wp.ID, d.Runner, d.Mem); err != nil {
		t.Fatalf("initialize: %v", err)
	}

	d.Mem.WriteU32(vm.ScratchStart, 0xBEEF)
	hit, changed := wm.Check(d.Runner, d.Mem)
	if !changed || hit.LastValue != 0xBEEF {
		t.Fatalf("memory watchpoint did not fire: %+v", hit)
	}
}

func TestDisabledWatchpointDoesNotFire(t *testing.T) {
	d := newTestDebugger(t, countLoop()...)
	wm := d.Watchpoints

	wp := wm.Add("t0", true, 5, 0)
	_ = wm.Initialize(wp.ID, d.Runner, d.Mem)
	_ = wm.DisableByID(wp.ID)

	d.Runner.Registers()[5] = 7
	if _, changed := wm.Check(d.Runner, d.Mem); changed {
		t.Error("disabled watchpoint fired")
	}
}

func TestAddWatchResolvesTargets(t *testing.T) {
	d := newTestDebugger(t, countLoop()...)

	reg, err := d.AddWatch("a0")
	if err != nil {
		t.Fatalf("AddWatch register: %v", err)
	}
	if !reg.IsRegister || reg.Register != 10 {
		t.Errorf("register watch = %+v", reg)
	}

	memWatch, err := d.AddWatch("[0x2000]")
	if err != nil {
		t.Fatalf("AddWatch memory: %v", err)
	}
	if memWatch.IsRegister || memWatch.Address != vm.ScratchStart {
		t.Errorf("memory watch = %+v", memWatch)
	}

	// An address expression also resolves to a memory watch.
	exprWatch, err := d.AddWatch("0x2000 + 8")
	if err != nil {
		t.Fatalf("AddWatch expression: %v", err)
	}
	if exprWatch.IsRegister || exprWatch.Address != vm.ScratchStart+8 {
		t.Errorf("expression watch = %+v", exprWatch)
	}

	if _, err := d.AddWatch(""); err == nil {
		t.Error("empty expression accepted")
	}
	if _, err := d.AddWatch("[nosuch]"); err == nil {
		t.Error("unresolvable expression accepted")
	}
}

func TestCmdWatchAndUnwatch(t *testing.T) {
	d := newTestDebugger(t, countLoop()...)

	if err := d.ExecuteCommand("watch t0"); err != nil {
		t.Fatalf("watch: %v", err)
	}
	out := d.GetOutput()
	if !strings.Contains(out, "watchpoint 1: t0") {
		t.Errorf("watch output = %q", out)
	}

	if err := d.ExecuteCommand("info watchpoints"); err != nil {
		t.Fatalf("info watchpoints: %v", err)
	}
	out = d.GetOutput()
	if !strings.Contains(out, "t0 (x5)") {
		t.Errorf("info watchpoints output = %q", out)
	}

	if err := d.ExecuteCommand("unwatch 1"); err != nil {
		t.Fatalf("unwatch: %v", err)
	}
	if d.Watchpoints.Count() != 0 {
		t.Error("unwatch did not remove the watchpoint")
	}
	if err := d.ExecuteCommand("unwatch 9"); err == nil {
		t.Error("unwatch of missing id did not error")
	}
}

func TestContinueStopsOnWatchpoint(t *testing.T) {
	// countLoop increments x5 every iteration, so a watch on t0 (x5)
	// stops continue after the first increment.
	d := newTestDebugger(t, countLoop()...)

	if err := d.ExecuteCommand("watch t0"); err != nil {
		t.Fatalf("watch: %v", err)
	}
	d.GetOutput()

	if err := d.ExecuteCommand("continue"); err != nil {
		t.Fatalf("continue: %v", err)
	}
	out := d.GetOutput()
	if !strings.Contains(out, "watchpoint 1: t0") {
		t.Errorf("continue output = %q, expected watchpoint stop", out)
	}
	if got := d.Runner.Registers()[5]; got != 1 {
		t.Errorf("x5 = %d at watchpoint stop, expected 1", got)
	}
}
