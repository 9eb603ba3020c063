package httpapi

import (
	"net/http"

	goIdentity "github.com/MrEthical07/goIdentity"
	authmw "github.com/MrEthical07/goIdentity/middleware"
)

func (a *API) health(w http.ResponseWriter, _ *http.Request) {
	writeOK(w, "ok", nil)
}

func (a *API) register(w http.ResponseWriter, r *http.Request) {
	var in goIdentity.RegisterInput
	if err := decodeJSON(w, r, &in); err != nil {
		a.writeError(w, r, err)
		return
	}
	if err := validateRegister(in); err != nil {
		a.writeError(w, r, err)
		return
	}
	if err := a.engine.Register(r.Context(), in); err != nil {
		a.writeError(w, r, err)
		return
	}
	writeOK(w, "verification code sent to email", nil)
}

func (a *API) verifyRegister(w http.ResponseWriter, r *http.Request) {
	var in goIdentity.VerifyRegisterInput
	if err := decodeJSON(w, r, &in); err != nil {
		a.writeError(w, r, err)
		return
	}
	if err := validateVerifyRegister(in); err != nil {
		a.writeError(w, r, err)
		return
	}
	profile, err := a.engine.VerifyRegister(r.Context(), in)
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, envelope{Success: true, Message: "registration complete", Data: profile})
}

func (a *API) login(w http.ResponseWriter, r *http.Request) {
	var in goIdentity.LoginInput
	if err := decodeJSON(w, r, &in); err != nil {
		a.writeError(w, r, err)
		return
	}
	if err := validateLogin(in); err != nil {
		a.writeError(w, r, err)
		return
	}
	res, err := a.engine.Login(r.Context(), in)
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	writeOK(w, "login successful", res)
}

func (a *API) googleLogin(w http.ResponseWriter, r *http.Request) {
	var in goIdentity.GoogleLoginInput
	if err := decodeJSON(w, r, &in); err != nil {
		a.writeError(w, r, err)
		return
	}
	if err := validateGoogleLogin(in); err != nil {
		a.writeError(w, r, err)
		return
	}
	res, err := a.engine.GoogleLogin(r.Context(), in.Code)
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	writeOK(w, "login successful", res)
}

func (a *API) forgotPassword(w http.ResponseWriter, r *http.Request) {
	var in goIdentity.ForgotPasswordInput
	if err := decodeJSON(w, r, &in); err != nil {
		a.writeError(w, r, err)
		return
	}
	if err := validateForgotPassword(in); err != nil {
		a.writeError(w, r, err)
		return
	}
	if err := a.engine.ForgotPassword(r.Context(), in.Email); err != nil {
		a.writeError(w, r, err)
		return
	}
	writeOK(w, "verification code sent to email", nil)
}

func (a *API) verifyForgotPassword(w http.ResponseWriter, r *http.Request) {
	var in goIdentity.VerifyForgotPasswordInput
	if err := decodeJSON(w, r, &in); err != nil {
		a.writeError(w, r, err)
		return
	}
	if err := validateVerifyForgotPassword(in); err != nil {
		a.writeError(w, r, err)
		return
	}
	if err := a.engine.VerifyForgotPassword(r.Context(), in); err != nil {
		a.writeError(w, r, err)
		return
	}
	writeOK(w, "password updated", nil)
}

func (a *API) getProfile(w http.ResponseWriter, r *http.Request) {
	p, ok := authmw.PrincipalFromContext(r.Context())
	if !ok {
		a.writeError(w, r, goIdentity.ErrInvalidToken)
		return
	}
	profile, err := a.engine.GetProfile(r.Context(), p.Email)
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	writeOK(w, "profile", profile)
}

func (a *API) updateProfile(w http.ResponseWriter, r *http.Request) {
	p, ok := authmw.PrincipalFromContext(r.Context())
	if !ok {
		a.writeError(w, r, goIdentity.ErrInvalidToken)
		return
	}
	var in goIdentity.UpdateProfileInput
	if err := decodeJSON(w, r, &in); err != nil {
		a.writeError(w, r, err)
		return
	}
	profile, err := a.engine.UpdateProfile(r.Context(), p.Email, in)
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	writeOK(w, "profile updated", profile)
}
