package httpapi

import (
	"net/http"

	"github.com/godbus/dbus/v5"
)

const (
	systemdDest = "org.freedesktop.systemd1"
	systemdPath = "/org/freedesktop/systemd1"
)

var serviceActions = map[string]string{
	"start":   "StartUnit",
	"stop":    "StopUnit",
	"restart": "RestartUnit",
}

// handleServiceStatus reports a systemd unit's ActiveState over the
// system bus, the same transport internal/sensor uses for orientation.
func (s *Server) handleServiceStatus(w http.ResponseWriter, r *http.Request) {
	name := r.PathValue("name")
	if !s.svc.ServiceAllowlist[name] {
		writeBadRequest(w, "service is not allow-listed")
		return
	}

	conn, err := dbus.ConnectSystemBus()
	if err != nil {
		writeInternalError(w, "failed to reach system bus")
		return
	}
	defer conn.Close()

	systemd := conn.Object(systemdDest, dbus.ObjectPath(systemdPath))
	var unitPath dbus.ObjectPath
	if err := systemd.CallWithContext(r.Context(), systemdDest+".Manager.GetUnit", 0, name).Store(&unitPath); err != nil {
		writeNotFound(w, "service not found")
		return
	}

	unit := conn.Object(systemdDest, unitPath)
	var state dbus.Variant
	if err := unit.CallWithContext(r.Context(), "org.freedesktop.DBus.Properties.Get", 0, systemdDest+".Unit", "ActiveState").Store(&state); err != nil {
		writeInternalError(w, "failed to query service state")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"name": name, "active_state": state.Value()})
}

// handleServiceAction starts, stops, or restarts an allow-listed unit.
func (s *Server) handleServiceAction(w http.ResponseWriter, r *http.Request) {
	name := r.PathValue("name")
	action := r.PathValue("action")
	if !s.svc.ServiceAllowlist[name] {
		writeBadRequest(w, "service is not allow-listed")
		return
	}
	method, ok := serviceActions[action]
	if !ok {
		writeBadRequest(w, "unsupported service action")
		return
	}

	conn, err := dbus.ConnectSystemBus()
	if err != nil {
		writeInternalError(w, "failed to reach system bus")
		return
	}
	defer conn.Close()

	systemd := conn.Object(systemdDest, dbus.ObjectPath(systemdPath))
	var jobPath dbus.ObjectPath
	call := systemd.CallWithContext(r.Context(), systemdDest+".Manager."+method, 0, name, "replace")
	if err := call.Store(&jobPath); err != nil {
		writeInternalError(w, "failed to "+action+" service")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"name": name, "action": action, "job": string(jobPath)})
}
