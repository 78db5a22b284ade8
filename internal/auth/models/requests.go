package models

import (
	"strings"

	"warden/pkg/platform/validation"
	validate "warden/pkg/validation"
)

// RegisterRequest creates a password account with the USER role.
type RegisterRequest struct {
	Email       string `json:"email" validate:"required,email"`
	Password    string `json:"password" validate:"required"`
	Phone       string `json:"phone,omitempty" validate:"omitempty,e164"`
	DisplayName string `json:"display_name,omitempty" validate:"omitempty,notblank"`
}

func (r *RegisterRequest) Normalize() {
	r.Email = NormalizeEmail(r.Email)
	r.Phone = strings.TrimSpace(r.Phone)
	r.DisplayName = strings.TrimSpace(r.DisplayName)
}

func (r *RegisterRequest) Validate() error {
	if err := validation.CheckStringLength("email", r.Email, validation.MaxEmailLength); err != nil {
		return err
	}
	if err := validation.CheckStringLength("password", r.Password, validation.MaxPasswordLength); err != nil {
		return err
	}
	if err := validation.CheckStringLength("display_name", r.DisplayName, validation.MaxNameLength); err != nil {
		return err
	}
	if err := validate.Validate(r); err != nil {
		return err
	}
	return validation.CheckMinLength("password", r.Password, validation.MinPasswordLength)
}

// LoginRequest authenticates with email and password. OTP asks the server to
// apply the user's OTP setting to the new session.
type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
	OTP      bool   `json:"otp"`
}

func (r *LoginRequest) Normalize() {
	r.Email = NormalizeEmail(r.Email)
}

func (r *LoginRequest) Validate() error {
	if err := validation.CheckStringLength("email", r.Email, validation.MaxEmailLength); err != nil {
		return err
	}
	if err := validation.CheckStringLength("password", r.Password, validation.MaxPasswordLength); err != nil {
		return err
	}
	return validate.Validate(r)
}

// ExternalCallbackRequest carries an identity that an upstream OAuth exchange
// already verified.
type ExternalCallbackRequest struct {
	Provider   string `json:"provider" validate:"required,notblank"`
	Subject    string `json:"subject" validate:"required,notblank"`
	Email      string `json:"email" validate:"required,email"`
	Name       string `json:"name,omitempty"`
	PictureURL string `json:"picture_url,omitempty" validate:"omitempty,url"`
	OTP        bool   `json:"otp"`
}

func (r *ExternalCallbackRequest) Normalize() {
	r.Provider = strings.ToLower(strings.TrimSpace(r.Provider))
	r.Subject = strings.TrimSpace(r.Subject)
	r.Email = NormalizeEmail(r.Email)
	r.Name = strings.TrimSpace(r.Name)
	r.PictureURL = strings.TrimSpace(r.PictureURL)
}

func (r *ExternalCallbackRequest) Validate() error {
	if err := validation.CheckStringLength("email", r.Email, validation.MaxEmailLength); err != nil {
		return err
	}
	if err := validation.CheckStringLength("subject", r.Subject, validation.MaxExternalSubjectLength); err != nil {
		return err
	}
	if err := validation.CheckStringLength("name", r.Name, validation.MaxNameLength); err != nil {
		return err
	}
	if err := validation.CheckStringLength("picture_url", r.PictureURL, validation.MaxURLLength); err != nil {
		return err
	}
	return validate.Validate(r)
}

// Identity converts the request into the value the login-or-create flow consumes.
func (r *ExternalCallbackRequest) Identity() ExternalIdentity {
	return ExternalIdentity{
		Email:      r.Email,
		Name:       r.Name,
		PictureURL: r.PictureURL,
		Subject:    r.Subject,
		Provider:   r.Provider,
	}
}

// SendOTPRequest asks for a login OTP over one channel.
type SendOTPRequest struct {
	Method DeliveryMethod `json:"method" validate:"required,oneof=sms email"`
}

func (r *SendOTPRequest) Normalize() {
	r.Method = DeliveryMethod(strings.ToLower(strings.TrimSpace(string(r.Method))))
}

func (r *SendOTPRequest) Validate() error {
	return validate.Validate(r)
}

// VerifyOTPRequest submits a login OTP.
type VerifyOTPRequest struct {
	Code string `json:"code" validate:"required,len=6,digits"`
}

func (r *VerifyOTPRequest) Normalize() {
	r.Code = strings.TrimSpace(r.Code)
}

func (r *VerifyOTPRequest) Validate() error {
	if err := validation.CheckStringLength("code", r.Code, validation.MaxCodeLength); err != nil {
		return err
	}
	return validate.Validate(r)
}

// OTPChangeRequest starts an account OTP enablement change.
type OTPChangeRequest struct {
	Enabled *bool `json:"enabled" validate:"required"`
}

func (r *OTPChangeRequest) Validate() error {
	return validate.Validate(r)
}

// OTPChangeVerifyRequest confirms an account OTP enablement change.
type OTPChangeVerifyRequest struct {
	Enabled *bool  `json:"enabled" validate:"required"`
	Token   string `json:"token" validate:"required,len=6,digits"`
}

func (r *OTPChangeVerifyRequest) Normalize() {
	r.Token = strings.TrimSpace(r.Token)
}

func (r *OTPChangeVerifyRequest) Validate() error {
	if err := validation.CheckStringLength("token", r.Token, validation.MaxCodeLength); err != nil {
		return err
	}
	return validate.Validate(r)
}

// ForgotPasswordRequest asks for a reset code to be emailed.
type ForgotPasswordRequest struct {
	Email string `json:"email" validate:"required,email"`
}

func (r *ForgotPasswordRequest) Normalize() {
	r.Email = NormalizeEmail(r.Email)
}

func (r *ForgotPasswordRequest) Validate() error {
	if err := validation.CheckStringLength("email", r.Email, validation.MaxEmailLength); err != nil {
		return err
	}
	return validate.Validate(r)
}

// ResetPasswordRequest redeems a reset code.
type ResetPasswordRequest struct {
	Email       string `json:"email" validate:"required,email"`
	Code        string `json:"code" validate:"required,len=6,digits"`
	NewPassword string `json:"new_password" validate:"required"`
}

func (r *ResetPasswordRequest) Normalize() {
	r.Email = NormalizeEmail(r.Email)
	r.Code = strings.TrimSpace(r.Code)
}

func (r *ResetPasswordRequest) Validate() error {
	if err := validation.CheckStringLength("email", r.Email, validation.MaxEmailLength); err != nil {
		return err
	}
	if err := validation.CheckStringLength("new_password", r.NewPassword, validation.MaxPasswordLength); err != nil {
		return err
	}
	if err := validate.Validate(r); err != nil {
		return err
	}
	return validation.CheckMinLength("new_password", r.NewPassword, validation.MinPasswordLength)
}
