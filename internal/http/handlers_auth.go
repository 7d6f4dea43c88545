package http

import (
	"errors"
	"net/http"

	"gymdash/internal/auth"
	"gymdash/internal/core"
	applog "gymdash/internal/log"
)

// redirect sends htmx callers an HX-Redirect and browsers a 303.
func redirect(w http.ResponseWriter, r *http.Request, to string) {
	if isHTMX(r) {
		NewHTMXResponse().Redirect(to).Write(w)
		return
	}
	http.Redirect(w, r, to, http.StatusSeeOther)
}

// handleLoginPage shows the sign-in form, or the first-admin form while no
// administrator exists.
func (s *Server) handleLoginPage(w http.ResponseWriter, r *http.Request) {
	ret := safeReturnPath(r.URL.Query().Get("return"))
	if auth.FromContext(r.Context()).Authenticated() {
		http.Redirect(w, r, ret, http.StatusSeeOther)
		return
	}
	has, err := s.deps.Auth.HasAdmins(r.Context())
	if err != nil {
		s.logger.ErrorContext(r.Context(), "Admin lookup failed", applog.FieldError, err)
		InternalServerError("Error interno").Write(w)
		return
	}
	s.render(w, r, http.StatusOK, "login.html", loginView{Return: ret, Register: !has})
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	if resp := ParseFormOrFail(r); resp != nil {
		resp.Write(w)
		return
	}
	email := sanitizeInput(r.PostForm.Get("email"))
	ret := safeReturnPath(r.PostForm.Get("return"))

	admin, err := s.deps.Auth.Login(r.Context(), email, r.PostForm.Get("password"))
	if err != nil {
		status := http.StatusUnauthorized
		if errors.Is(err, auth.ErrTooManyAttempts) {
			status = http.StatusTooManyRequests
		}
		s.render(w, r, status, "login.html", loginView{Return: ret, Email: email, Error: auth.Message(err)})
		return
	}
	s.signIn(w, r, admin, ret)
}

func (s *Server) signIn(w http.ResponseWriter, r *http.Request, admin core.Admin, ret string) {
	if err := s.deps.Sessions.SignIn(w, r, admin); err != nil {
		s.logger.ErrorContext(r.Context(), "Session save failed", applog.FieldError, err)
		InternalServerError("No se pudo iniciar sesión").Write(w)
		return
	}
	s.logger.InfoContext(r.Context(), "Admin signed in", applog.FieldAdminEmail, admin.Email)
	redirect(w, r, ret)
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	if err := s.deps.Sessions.SignOut(w, r); err != nil {
		s.logger.WarnContext(r.Context(), "Session clear failed", applog.FieldError, err)
	}
	redirect(w, r, "/login")
}

// handleRegister creates an administrator. Anyone may create the first
// one; after that only a signed-in administrator can add more.
func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	if resp := ParseFormOrFail(r); resp != nil {
		resp.Write(w)
		return
	}
	ctx := r.Context()
	signedIn := auth.FromContext(ctx).Authenticated()

	has, err := s.deps.Auth.HasAdmins(ctx)
	if err != nil {
		s.logger.ErrorContext(ctx, "Admin lookup failed", applog.FieldError, err)
		InternalServerError("Error interno").Write(w)
		return
	}
	if has && !signedIn {
		ErrorResponse(http.StatusForbidden, auth.Message(auth.ErrNotSignedIn)).Write(w)
		return
	}

	email := sanitizeInput(r.PostForm.Get("email"))
	name := sanitizeInput(r.PostForm.Get("name"))
	admin, err := s.deps.Auth.Register(ctx, email, name, r.PostForm.Get("password"))
	if err != nil {
		status := http.StatusUnprocessableEntity
		if errors.Is(err, auth.ErrEmailInUse) {
			status = http.StatusConflict
		}
		s.render(w, r, status, "login.html", loginView{Return: "/", Email: email, Name: name, Error: auth.Message(err), Register: true})
		return
	}

	if signedIn {
		NewHTMXResponse().
			Status(http.StatusCreated).
			TriggerSuccessNotification("Administrador " + admin.Email + " creado").
			Write(w)
		return
	}
	s.signIn(w, r, admin, "/")
}
