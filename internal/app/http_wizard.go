package app

import (
	"net/http"
	"strconv"

	"atas/api/internal/rbac"
	"atas/api/internal/wizard"
)

func (s *HTTPServer) handleWizard(w http.ResponseWriter, r *http.Request, session Session, minutesID string, parts []string) {
	if !s.authorize(w, session, actionFor(r.Method)) {
		return
	}
	ctx := r.Context()

	if len(parts) == 0 {
		switch r.Method {
		case http.MethodGet:
			s.writeWizard(w, r, http.StatusOK)(s.service.Wizard(ctx, session.UserID, minutesID))
		case http.MethodPost:
			var body struct {
				AgendaIDs []string `json:"agendaIds"`
			}
			if !decodeOrFail(w, r, &body) {
				return
			}
			s.writeWizard(w, r, http.StatusCreated)(s.service.StartWizard(ctx, session.UserID, minutesID, body.AgendaIDs))
		case http.MethodDelete:
			if err := s.service.DiscardWizard(ctx, session.UserID, minutesID); err != nil {
				s.fail(w, r, err)
				return
			}
			w.WriteHeader(http.StatusNoContent)
		default:
			methodNotAllowed(w)
		}
		return
	}

	edit := func(fn func(*wizard.Session) error) {
		s.writeWizard(w, r, http.StatusOK)(s.service.EditWizard(ctx, session.UserID, minutesID, fn))
	}

	switch {
	case len(parts) == 1 && parts[0] == "next" && r.Method == http.MethodPost:
		edit(func(ws *wizard.Session) error { ws.Next(); return nil })

	case len(parts) == 1 && parts[0] == "previous" && r.Method == http.MethodPost:
		edit(func(ws *wizard.Session) error { ws.Previous(); return nil })

	case len(parts) == 1 && parts[0] == "jump" && r.Method == http.MethodPost:
		var body struct {
			Index int `json:"index"`
		}
		if !decodeOrFail(w, r, &body) {
			return
		}
		edit(func(ws *wizard.Session) error { ws.JumpTo(body.Index); return nil })

	case len(parts) == 1 && parts[0] == "step" && r.Method == http.MethodPut:
		var update wizard.StepUpdate
		if !decodeOrFail(w, r, &update) {
			return
		}
		edit(func(ws *wizard.Session) error { return ws.UpdateStep(update) })

	case len(parts) == 1 && parts[0] == "save" && r.Method == http.MethodPost:
		edit(func(ws *wizard.Session) error { return ws.SaveCurrentStep() })

	case len(parts) == 1 && parts[0] == "free-text" && r.Method == http.MethodPut:
		var body struct {
			Text string `json:"text"`
		}
		if !decodeOrFail(w, r, &body) {
			return
		}
		edit(func(ws *wizard.Session) error { return ws.SetFreeText(body.Text) })

	case len(parts) == 1 && parts[0] == "fragments" && r.Method == http.MethodPost:
		edit(func(ws *wizard.Session) error { return ws.AddFragment() })

	case len(parts) == 2 && parts[0] == "fragments":
		index, err := strconv.Atoi(parts[1])
		if err != nil {
			writeError(w, http.StatusNotFound, "NOT_FOUND", "Fragment not found", nil)
			return
		}
		switch r.Method {
		case http.MethodPut:
			var body struct {
				Text string `json:"text"`
			}
			if !decodeOrFail(w, r, &body) {
				return
			}
			edit(func(ws *wizard.Session) error { return ws.SetFragment(index, body.Text) })
		case http.MethodDelete:
			edit(func(ws *wizard.Session) error { return ws.RemoveFragment(index) })
		default:
			methodNotAllowed(w)
		}

	case len(parts) == 1 && parts[0] == "finalize" && r.Method == http.MethodPost:
		if !s.authorize(w, session, rbac.ActionWrite) {
			return
		}
		var body struct {
			Title string `json:"title"`
		}
		if !decodeOrFail(w, r, &body) {
			return
		}
		saved, err := s.service.FinalizeWizard(ctx, session, minutesID, body.Title)
		if err != nil {
			s.fail(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, saved)

	default:
		writeError(w, http.StatusNotFound, "NOT_FOUND", "Route not found", nil)
	}
}

// writeWizard adapts a (view, error) pair into a response.
func (s *HTTPServer) writeWizard(w http.ResponseWriter, r *http.Request, status int) func(WizardView, error) {
	return func(view WizardView, err error) {
		if err != nil {
			s.fail(w, r, err)
			return
		}
		writeJSON(w, status, view)
	}
}
