package domain

import (
	"regexp"
	"strings"
	"unicode"
)

// Field names used in FieldError and in backend validation dictionaries.
const (
	FieldPhone           = "phone"
	FieldPassword        = "password"
	FieldConfirmPassword = "confirm_password"
	FieldCode            = "code"
	FieldTelegram        = "telegram"
	FieldName            = "name"
	FieldGender          = "gender"
	FieldRegion          = "region"
	FieldRole            = "role"
)

var (
	phoneRegex    = regexp.MustCompile(`^\+\d{7,14}$`)
	passwordRegex = regexp.MustCompile(`^[A-Za-z0-9!@#$%^&*-]{6,}$`)
	otpRegex      = regexp.MustCompile(`^\d{4}$`)
	telegramRegex = regexp.MustCompile(`^@\w{3,}$`)
	nameRegex     = regexp.MustCompile(`^[a-zA-Zа-яА-Я\s]{2,}$`)
)

// Genders offered by the profile form.
var Genders = []string{"male", "female"}

// Regions offered by the profile form.
var Regions = []string{
	"tashkent_city",
	"tashkent",
	"andijan",
	"bukhara",
	"fergana",
	"jizzakh",
	"kashkadarya",
	"khorezm",
	"namangan",
	"navoi",
	"samarkand",
	"surkhandarya",
	"syrdarya",
	"karakalpakstan",
}

// ValidatePhone checks a composed phone number (country code + digits).
func ValidatePhone(phone string) error {
	if !phoneRegex.MatchString(phone) {
		return &FieldError{Field: FieldPhone, Err: ErrInvalidPhone}
	}
	return nil
}

// ValidatePassword checks the allowed charset, a minimum length of 6 and the
// presence of at least one letter and one digit.
func ValidatePassword(password string) error {
	if !passwordRegex.MatchString(password) {
		return &FieldError{Field: FieldPassword, Err: ErrInvalidPassword}
	}

	var hasLetter, hasDigit bool
	for _, r := range password {
		switch {
		case r < unicode.MaxASCII && unicode.IsLetter(r):
			hasLetter = true
		case unicode.IsDigit(r):
			hasDigit = true
		}
	}
	if !hasLetter || !hasDigit {
		return &FieldError{Field: FieldPassword, Err: ErrInvalidPassword}
	}
	return nil
}

// ValidateConfirmPassword checks that the confirmation equals the password.
func ValidateConfirmPassword(password, confirm string) error {
	if password != confirm {
		return &FieldError{Field: FieldConfirmPassword, Err: ErrPasswordMismatch}
	}
	return nil
}

// ValidateOTP checks a 4-digit verification code.
func ValidateOTP(code string) error {
	if !otpRegex.MatchString(code) {
		return &FieldError{Field: FieldCode, Err: ErrInvalidOTP}
	}
	return nil
}

// ValidateTelegram checks a telegram handle such as "@username".
func ValidateTelegram(handle string) error {
	if !telegramRegex.MatchString(handle) {
		return &FieldError{Field: FieldTelegram, Err: ErrInvalidTelegram}
	}
	return nil
}

// ValidateName checks a display name (latin or cyrillic letters and spaces).
func ValidateName(name string) error {
	if !nameRegex.MatchString(name) {
		return &FieldError{Field: FieldName, Err: ErrInvalidName}
	}
	return nil
}

// ValidateGender checks that a gender was selected from Genders.
func ValidateGender(gender string) error {
	if !contains(Genders, gender) {
		return &FieldError{Field: FieldGender, Err: ErrGenderRequired}
	}
	return nil
}

// ValidateRegion checks that a region was selected from Regions.
func ValidateRegion(region string) error {
	if !contains(Regions, region) {
		return &FieldError{Field: FieldRegion, Err: ErrRegionRequired}
	}
	return nil
}

// ValidateRole checks the account role.
func ValidateRole(role string) error {
	if role != RoleClient && role != RoleProvider {
		return &FieldError{Field: FieldRole, Err: ErrInvalidRole}
	}
	return nil
}

// Profile is the data collected on the last registration form.
type Profile struct {
	Name            string
	Password        string
	ConfirmPassword string
	Gender          string
	Region          string
}

// Validate returns the first failing rule, checked in form order:
// name, password, confirmation, gender, region.
func (p Profile) Validate() error {
	checks := []func() error{
		func() error { return ValidateName(p.Name) },
		func() error { return ValidatePassword(p.Password) },
		func() error { return ValidateConfirmPassword(p.Password, p.ConfirmPassword) },
		func() error { return ValidateGender(p.Gender) },
		func() error { return ValidateRegion(p.Region) },
	}
	for _, check := range checks {
		if err := check(); err != nil {
			return err
		}
	}
	return nil
}

// NormalizeTelegram prefixes a bare username with "@".
func NormalizeTelegram(handle string) string {
	handle = strings.TrimSpace(handle)
	if handle != "" && !strings.HasPrefix(handle, "@") {
		return "@" + handle
	}
	return handle
}

// ComposePhone joins a country code ("+998" or "998") and a local number,
// dropping spaces, dashes and parentheses.
func ComposePhone(countryCode, number string) string {
	clean := func(s string) string {
		return strings.Map(func(r rune) rune {
			if unicode.IsDigit(r) {
				return r
			}
			return -1
		}, s)
	}
	return "+" + clean(countryCode) + clean(number)
}

func contains(list []string, v string) bool {
	if v == "" {
		return false
	}
	for _, item := range list {
		if item == v {
			return true
		}
	}
	return false
}
