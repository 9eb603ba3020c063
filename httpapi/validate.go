package httpapi

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/mail"
	"strings"

	goIdentity "github.com/MrEthical07/goIdentity"
)

const maxBodyBytes = 1 << 20

// decodeJSON reads a single JSON object from the request body into dst.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)

	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		var maxErr *http.MaxBytesError
		switch {
		case errors.Is(err, io.EOF):
			return &goIdentity.ValidationError{Field: "body", Message: "request body is required"}
		case errors.As(err, &maxErr):
			return &goIdentity.ValidationError{Field: "body", Message: "request body is too large"}
		default:
			return &goIdentity.ValidationError{Field: "body", Message: fmt.Sprintf("malformed JSON: %v", err)}
		}
	}
	if dec.More() {
		return &goIdentity.ValidationError{Field: "body", Message: "request body must contain a single JSON object"}
	}
	return nil
}

type validator struct {
	err *goIdentity.ValidationError
}

func (v *validator) fail(field, message string) {
	if v.err == nil {
		v.err = &goIdentity.ValidationError{Field: field, Message: message}
	}
}

func (v *validator) required(field, value string) {
	if strings.TrimSpace(value) == "" {
		v.fail(field, field+" is required")
	}
}

func (v *validator) email(field, value string) {
	value = strings.TrimSpace(value)
	if value == "" {
		v.fail(field, field+" is required")
		return
	}
	addr, err := mail.ParseAddress(value)
	if err != nil || addr.Address != value {
		v.fail(field, field+" is not a valid email address")
	}
}

func (v *validator) Err() error {
	if v.err == nil {
		return nil
	}
	return v.err
}

func validateRegister(in goIdentity.RegisterInput) error {
	var v validator
	v.email("email", in.Email)
	v.required("password", in.Password)
	v.required("confirmPassword", in.ConfirmPassword)
	return v.Err()
}

func validateVerifyRegister(in goIdentity.VerifyRegisterInput) error {
	var v validator
	v.email("email", in.Email)
	v.required("otp", in.OTP)
	return v.Err()
}

func validateLogin(in goIdentity.LoginInput) error {
	var v validator
	v.email("email", in.Email)
	v.required("password", in.Password)
	return v.Err()
}

func validateForgotPassword(in goIdentity.ForgotPasswordInput) error {
	var v validator
	v.email("email", in.Email)
	return v.Err()
}

func validateVerifyForgotPassword(in goIdentity.VerifyForgotPasswordInput) error {
	var v validator
	v.email("email", in.Email)
	v.required("otp", in.OTP)
	v.required("newPassword", in.NewPassword)
	v.required("confirmPassword", in.ConfirmPassword)
	return v.Err()
}

func validateGoogleLogin(in goIdentity.GoogleLoginInput) error {
	var v validator
	v.required("code", in.Code)
	return v.Err()
}
