package http

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/url"
	"strings"

	"gymdash/internal/auth"
	"gymdash/internal/core"
	"gymdash/internal/paymentsapi"
	"gymdash/internal/services"
)

// sanitizeInput removes potentially dangerous characters and trims whitespace.
func sanitizeInput(s string) string {
	s = strings.TrimSpace(s)
	result := strings.Map(func(r rune) rune {
		if r < 32 && r != 9 && r != 10 && r != 13 {
			return -1
		}
		return r
	}, s)
	return result
}

// writeJSON encodes v with the given status.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

type errorBody struct {
	Error  string            `json:"error"`
	Errors map[string]string `json:"errors,omitempty"`
}

func writeJSONError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorBody{Error: msg})
}

// statusFor maps domain and upstream errors to an HTTP status and a
// user-facing message.
func statusFor(err error) (int, string) {
	var verr *services.ValidationError
	switch {
	case errors.As(err, &verr):
		return http.StatusUnprocessableEntity, "Datos inválidos"
	case errors.Is(err, core.ErrPaymentNotFound), paymentsapi.IsStatus(err, http.StatusNotFound):
		return http.StatusNotFound, "Pago no encontrado"
	case errors.Is(err, core.ErrMemberNotFound):
		return http.StatusNotFound, "Miembro no encontrado"
	case errors.Is(err, core.ErrAlreadyConfirmed), paymentsapi.IsStatus(err, http.StatusConflict):
		return http.StatusConflict, "El pago ya fue confirmado"
	case errors.Is(err, core.ErrMemberInactive):
		return http.StatusConflict, "El miembro está inactivo"
	case errors.Is(err, core.ErrEmailTaken), errors.Is(err, auth.ErrEmailInUse):
		return http.StatusConflict, "Ya existe una cuenta con este email"
	case errors.Is(err, core.ErrInvalidDate):
		return http.StatusBadRequest, "Fecha inválida"
	case errors.Is(err, core.ErrUnknownPlan):
		return http.StatusUnprocessableEntity, "Tipo de membresía inválido"
	}
	var se *paymentsapi.StatusError
	if errors.As(err, &se) {
		return http.StatusBadGateway, "El servicio de pagos no respondió correctamente"
	}
	return http.StatusInternalServerError, "Error interno"
}

// safeReturnPath keeps post-login redirects on this site.
func safeReturnPath(raw string) string {
	if raw == "" {
		return "/"
	}
	u, err := url.Parse(raw)
	if err != nil || u.IsAbs() || u.Host != "" || !strings.HasPrefix(u.Path, "/") || strings.HasPrefix(raw, "//") || strings.Contains(raw, "\\") {
		return "/"
	}
	if u.Path == "/login" || u.Path == "/logout" {
		return "/"
	}
	return u.RequestURI()
}

func isHTMX(r *http.Request) bool {
	return r.Header.Get("HX-Request") == "true"
}
