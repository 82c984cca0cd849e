package api

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/rv32im/rubicv/debugger"
	"github.com/rv32im/rubicv/vm"
)

func (s *Server) handleCreateSession(w http.ResponseWriter, r *http.Request) {
	session, err := s.sessions.Create()
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusCreated, SessionCreateResponse{
		SessionID: session.ID,
		CreatedAt: session.CreatedAt,
	})
}

func (s *Server) handleGetSessionStatus(w http.ResponseWriter, r *http.Request, id string) {
	session, err := s.sessions.Get(id)
	if err != nil {
		writeError(w, http.StatusNotFound, err.Error())
		return
	}
	ppc, cycles := session.PPCAndCycles()
	writeJSON(w, http.StatusOK, SessionStatusResponse{
		SessionID: session.ID,
		PPC:       ppc,
		Cycles:    cycles,
		Loaded:    session.Debugger() != nil,
	})
}

func (s *Server) handleDestroySession(w http.ResponseWriter, r *http.Request, id string) {
	if err := s.sessions.Destroy(id); err != nil {
		writeError(w, http.StatusNotFound, err.Error())
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleLoadProgram(w http.ResponseWriter, r *http.Request, id string) {
	session, err := s.sessions.Get(id)
	if err != nil {
		writeError(w, http.StatusNotFound, err.Error())
		return
	}

	var req LoadProgramRequest
	if err := readJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	prog, err := session.Load(req.Image)
	if err != nil {
		writeJSON(w, http.StatusOK, LoadProgramResponse{Success: false, Error: err.Error()})
		return
	}

	writeJSON(w, http.StatusOK, LoadProgramResponse{
		Success:          true,
		InstructionCount: len(prog.Records),
		Entrypoint:       prog.Entrypoint,
		WritesToX0:       prog.WritesToX0,
	})
}

func (s *Server) handleRun(w http.ResponseWriter, r *http.Request, id string) {
	session, err := s.sessions.Get(id)
	if err != nil {
		writeError(w, http.StatusNotFound, err.Error())
		return
	}

	var req RunRequest
	if err := readJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	result, err := session.Run(req.ArgCount, req.MaxCycles)
	if err != nil {
		writeError(w, http.StatusConflict, err.Error())
		return
	}

	ppc, cycles := session.PPCAndCycles()
	resp := RunResponse{Kind: resultKindName(result.Kind), Cycles: cycles, PPC: ppc}
	if result.Kind == vm.Success {
		resp.Value = result.Value
	}
	if result.Err != nil {
		resp.Error = result.Err.Error()
	}

	s.broadcaster.BroadcastExecutionEvent(id, resp.Kind, map[string]interface{}{
		"ppc": ppc, "cycles": cycles,
	})
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleStep(w http.ResponseWriter, r *http.Request, id string) {
	session, err := s.sessions.Get(id)
	if err != nil {
		writeError(w, http.StatusNotFound, err.Error())
		return
	}

	stepErr := session.Step()
	ppc, cycles := session.PPCAndCycles()
	resp := map[string]interface{}{"ppc": ppc, "cycles": cycles}
	if stepErr != nil {
		var sysErr *vm.SystemCallError
		switch {
		case errors.Is(stepErr, vm.ErrBreakpoint):
			resp["terminated"] = "breakpoint"
		case errors.As(stepErr, &sysErr):
			resp["terminated"] = "syscall"
			resp["value"] = sysErr.Value
		default:
			resp["terminated"] = "error"
			resp["error"] = stepErr.Error()
		}
	}

	s.broadcaster.BroadcastState(id, resp)
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleGetRegisters(w http.ResponseWriter, r *http.Request, id string) {
	session, err := s.sessions.Get(id)
	if err != nil {
		writeError(w, http.StatusNotFound, err.Error())
		return
	}
	ppc, cycles := session.PPCAndCycles()
	writeJSON(w, http.StatusOK, RegistersResponse{
		Registers: session.Registers(),
		PPC:       ppc,
		Cycles:    cycles,
	})
}

func (s *Server) handleGetMemory(w http.ResponseWriter, r *http.Request, id string) {
	session, err := s.sessions.Get(id)
	if err != nil {
		writeError(w, http.StatusNotFound, err.Error())
		return
	}

	q := r.URL.Query()
	addr := parseUint32(q.Get("address"))
	length := parseUint32(q.Get("length"))
	if length == 0 || length > 4096 {
		writeError(w, http.StatusBadRequest, "length must be between 1 and 4096")
		return
	}

	writeJSON(w, http.StatusOK, MemoryResponse{
		Address: addr,
		Data:    session.ReadMemory(addr, length),
	})
}

func (s *Server) handleBreakpoint(w http.ResponseWriter, r *http.Request, id string) {
	session, err := s.sessions.Get(id)
	if err != nil {
		writeError(w, http.StatusNotFound, err.Error())
		return
	}
	dbg := session.Debugger()
	if dbg == nil {
		writeError(w, http.StatusConflict, "no program loaded")
		return
	}

	var req BreakpointRequest
	if err := readJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	bp := dbg.Breakpoints.Add(req.PPC, false)
	writeJSON(w, http.StatusCreated, BreakpointResponse{ID: bp.ID, PPC: bp.PPC, Enabled: bp.Enabled})
}

func (s *Server) handleListBreakpoints(w http.ResponseWriter, r *http.Request, id string) {
	session, err := s.sessions.Get(id)
	if err != nil {
		writeError(w, http.StatusNotFound, err.Error())
		return
	}
	dbg := session.Debugger()
	if dbg == nil {
		writeJSON(w, http.StatusOK, []BreakpointResponse{})
		return
	}

	out := make([]BreakpointResponse, 0, dbg.Breakpoints.Count())
	for _, bp := range dbg.Breakpoints.All() {
		out = append(out, BreakpointResponse{ID: bp.ID, PPC: bp.PPC, Enabled: bp.Enabled})
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleWatchpoint(w http.ResponseWriter, r *http.Request, id string) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	session, err := s.sessions.Get(id)
	if err != nil {
		writeError(w, http.StatusNotFound, err.Error())
		return
	}
	dbg := session.Debugger()
	if dbg == nil {
		writeError(w, http.StatusConflict, "no program loaded")
		return
	}

	var req WatchpointRequest
	if err := readJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	wp, err := dbg.AddWatch(req.Expression)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	writeJSON(w, http.StatusCreated, watchpointResponse(wp))
}

func (s *Server) handleDeleteWatchpoint(w http.ResponseWriter, r *http.Request, id string, wpID int) {
	session, err := s.sessions.Get(id)
	if err != nil {
		writeError(w, http.StatusNotFound, err.Error())
		return
	}
	dbg := session.Debugger()
	if dbg == nil {
		writeError(w, http.StatusConflict, "no program loaded")
		return
	}
	if err := dbg.Watchpoints.DeleteByID(wpID); err != nil {
		writeError(w, http.StatusNotFound, err.Error())
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleListWatchpoints(w http.ResponseWriter, r *http.Request, id string) {
	session, err := s.sessions.Get(id)
	if err != nil {
		writeError(w, http.StatusNotFound, err.Error())
		return
	}
	dbg := session.Debugger()
	if dbg == nil {
		writeJSON(w, http.StatusOK, []WatchpointResponse{})
		return
	}

	out := make([]WatchpointResponse, 0, dbg.Watchpoints.Count())
	for _, wp := range dbg.Watchpoints.All() {
		out = append(out, watchpointResponse(wp))
	}
	writeJSON(w, http.StatusOK, out)
}

func watchpointResponse(wp *debugger.Watchpoint) WatchpointResponse {
	return WatchpointResponse{
		ID:         wp.ID,
		Expression: wp.Expression,
		Address:    wp.Address,
		IsRegister: wp.IsRegister,
		Register:   wp.Register,
		Enabled:    wp.Enabled,
		HitCount:   wp.HitCount,
	}
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request, id string) {
	session, err := s.sessions.Get(id)
	if err != nil {
		writeError(w, http.StatusNotFound, err.Error())
		return
	}
	c := session.Stats()
	if c == nil {
		writeError(w, http.StatusConflict, "no program loaded")
		return
	}

	top := make(map[string]uint64)
	for _, e := range c.TopInstructions(0) {
		top[e.Kind] = e.Count
	}
	writeJSON(w, http.StatusOK, StatsResponse{
		TotalInstructions:  c.TotalInstructions,
		TotalCycles:        c.TotalCycles,
		InstructionsPerSec: c.InstructionsPerSecond(),
		TopInstructions:    top,
	})
}

func resultKindName(k vm.ResultKind) string {
	switch k {
	case vm.Success:
		return "success"
	case vm.Breakpoint:
		return "breakpoint"
	case vm.CycleLimitExceeded:
		return "cycle_limit_exceeded"
	default:
		return "failed"
	}
}

func parseUint32(s string) uint32 {
	v, _ := strconv.ParseUint(s, 0, 32)
	return uint32(v)
}
