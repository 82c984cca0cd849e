package debugger

import "testing"

func TestHistoryAddAndNavigate(t *testing.T) {
	h := NewCommandHistory()
	h.Add("step")
	h.Add("info registers")
	h.Add("continue")

	if h.Size() != 3 {
		t.Fatalf("size = %d, expected 3", h.Size())
	}

	// Walk backward through history.
	if got := h.Previous(); got != "continue" {
		t.Errorf("Previous = %q, expected continue", got)
	}
	if got := h.Previous(); got != "info registers" {
		t.Errorf("Previous = %q, expected info registers", got)
	}
	if got := h.Previous(); got != "step" {
		t.Errorf("Previous = %q, expected step", got)
	}
	// At the oldest entry, Previous stays put.
	if got := h.Previous(); got != "" {
		t.Errorf("Previous past start = %q, expected empty", got)
	}

	// Walk forward again, ending back at the empty prompt.
	if got := h.Next(); got != "info registers" {
		t.Errorf("Next = %q, expected info registers", got)
	}
	if got := h.Next(); got != "continue" {
		t.Errorf("Next = %q, expected continue", got)
	}
	if got := h.Next(); got != "" {
		t.Errorf("Next past end = %q, expected empty", got)
	}
}

func TestHistorySkipsEmptyAndRepeats(t *testing.T) {
	h := NewCommandHistory()
	h.Add("step")
	h.Add("")
	h.Add("step")
	h.Add("step")

	if h.Size() != 1 {
		t.Errorf("size = %d, expected 1 (empty lines and repeats dropped)", h.Size())
	}
}

func TestHistoryAddResetsCursor(t *testing.T) {
	h := NewCommandHistory()
	h.Add("step")
	h.Add("continue")
	h.Previous()
	h.Previous()

	h.Add("break 3")
	if got := h.Previous(); got != "break 3" {
		t.Errorf("Previous after Add = %q, expected break 3", got)
	}
}

func TestHistoryGetLastAndAll(t *testing.T) {
	h := NewCommandHistory()
	if h.GetLast() != "" {
		t.Error("GetLast on empty history not empty")
	}
	h.Add("step")
	h.Add("continue")

	if got := h.GetLast(); got != "continue" {
		t.Errorf("GetLast = %q", got)
	}
	all := h.GetAll()
	if len(all) != 2 || all[0] != "step" || all[1] != "continue" {
		t.Errorf("GetAll = %v", all)
	}
}

func TestHistorySearch(t *testing.T) {
	h := NewCommandHistory()
	h.Add("break 1")
	h.Add("step")
	h.Add("break 7")

	got := h.Search("break")
	if len(got) != 2 || got[0] != "break 1" || got[1] != "break 7" {
		t.Errorf("Search = %v", got)
	}
	if len(h.Search("watch")) != 0 {
		t.Error("Search with no matches returned entries")
	}
}

func TestHistoryClear(t *testing.T) {
	h := NewCommandHistory()
	h.Add("step")
	h.Clear()
	if h.Size() != 0 || h.Previous() != "" {
		t.Error("Clear did not empty the history")
	}
}
