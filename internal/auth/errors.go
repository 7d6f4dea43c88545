package auth

import "errors"

// Authentication failures. Message maps each to the text shown on the login form.
var (
	ErrUserNotFound    = errors.New("auth: user not found")
	ErrWrongPassword   = errors.New("auth: wrong password")
	ErrInvalidEmail    = errors.New("auth: invalid email")
	ErrUserDisabled    = errors.New("auth: user disabled")
	ErrTooManyAttempts = errors.New("auth: too many failed attempts")
	ErrEmailInUse      = errors.New("auth: email already in use")
	ErrWeakPassword    = errors.New("auth: weak password")
	ErrNotSignedIn     = errors.New("auth: not signed in")
)

var messages = []struct {
	err error
	msg string
}{
	{ErrUserNotFound, "No existe una cuenta con este email"},
	{ErrWrongPassword, "Contraseña incorrecta"},
	{ErrInvalidEmail, "Email inválido"},
	{ErrUserDisabled, "Esta cuenta ha sido deshabilitada"},
	{ErrTooManyAttempts, "Demasiados intentos fallidos. Intenta más tarde"},
	{ErrEmailInUse, "Ya existe una cuenta con este email"},
	{ErrWeakPassword, "La contraseña debe tener al menos 6 caracteres"},
	{ErrNotSignedIn, "Debes iniciar sesión"},
}

// Message returns the Spanish text for err.
func Message(err error) string {
	if err == nil {
		return ""
	}
	for _, m := range messages {
		if errors.Is(err, m.err) {
			return m.msg
		}
	}
	return "Error de inicio de sesión"
}
