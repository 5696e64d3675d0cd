package validate

import (
	"errors"
	"reflect"
	"regexp"
	"strings"

	"github.com/go-playground/validator/v10"

	"techypad/internal/domain"
)

var (
	rePhone     = regexp.MustCompile(`^[0-9+\-\s()]+$`)
	rePincode   = regexp.MustCompile(`^[0-9]{6}$`)
	rePlaceName = regexp.MustCompile(`^[\p{L}][\p{L} .'\-]*$`)
)

var v = newValidator()

func newValidator() *validator.Validate {
	val := validator.New(validator.WithRequiredStructEnabled())
	val.RegisterTagNameFunc(func(f reflect.StructField) string {
		if name := strings.SplitN(f.Tag.Get("form"), ",", 2)[0]; name != "" && name != "-" {
			return name
		}
		return f.Name
	})
	_ = val.RegisterValidation("phone", func(fl validator.FieldLevel) bool {
		return rePhone.MatchString(fl.Field().String())
	})
	_ = val.RegisterValidation("pincode", func(fl validator.FieldLevel) bool {
		return rePincode.MatchString(fl.Field().String())
	})
	_ = val.RegisterValidation("placename", func(fl validator.FieldLevel) bool {
		return rePlaceName.MatchString(fl.Field().String())
	})
	return val
}

// Shipping is the checkout form. Field names match the form inputs.
type Shipping struct {
	FirstName string `form:"firstName" validate:"required,max=50"`
	LastName  string `form:"lastName" validate:"required,max=50"`
	Email     string `form:"email" validate:"required,email,max=100"`
	Phone     string `form:"phone" validate:"required,min=10,max=15,phone"`
	Address   string `form:"address" validate:"required,min=5,max=200"`
	City      string `form:"city" validate:"required,min=2,max=50,placename"`
	State     string `form:"state" validate:"required,min=2,max=50,placename"`
	Zip       string `form:"zip" validate:"pincode"`
	Country   string `form:"country" validate:"required,min=2,max=50"`
}

func (s *Shipping) Trim() {
	for _, p := range []*string{&s.FirstName, &s.LastName, &s.Email, &s.Phone, &s.Address, &s.City, &s.State, &s.Zip, &s.Country} {
		*p = strings.TrimSpace(*p)
	}
}

func (s Shipping) FullName() string {
	return strings.TrimSpace(s.FirstName + " " + s.LastName)
}

type SignUp struct {
	Name     string `form:"name" validate:"max=100"`
	Email    string `form:"email" validate:"required,email,max=100"`
	Password string `form:"password" validate:"required,min=6,max=72"`
}

type SignIn struct {
	Email    string `form:"email" validate:"required,email,max=100"`
	Password string `form:"password" validate:"required,max=72"`
}

// messages[field][tag]; a field's "" entry is its fallback.
var messages = map[string]map[string]string{
	"firstName": {"required": "First name is required", "max": "First name too long"},
	"lastName":  {"required": "Last name is required", "max": "Last name too long"},
	"email":     {"": "Invalid email address", "max": "Email too long"},
	"phone": {
		"required": "Phone must be at least 10 digits", "min": "Phone must be at least 10 digits",
		"max": "Phone too long", "phone": "Invalid phone number",
	},
	"address": {"required": "Address is required", "min": "Address is required", "max": "Address too long"},
	"city":    {"required": "City is required", "min": "City is required", "max": "City name too long", "placename": "Invalid city name"},
	"state":   {"required": "State is required", "min": "State is required", "max": "State name too long", "placename": "Invalid state name"},
	"zip":     {"": "PIN code must be exactly 6 digits"},
	"country": {"required": "Country is required", "min": "Country is required", "max": "Country name too long"},
	"name":    {"": "Name too long"},
	"password": {
		"required": "Password is required", "min": "Password should be at least 6 characters",
		"max": "Password too long",
	},
}

// Struct runs every rule and returns the first failure message per field,
// or nil when s is valid.
func Struct(s any) map[string]string {
	err := v.Struct(s)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return map[string]string{"form": "Invalid input"}
	}
	out := make(map[string]string, len(verrs))
	for _, fe := range verrs {
		field := fe.Field()
		if _, seen := out[field]; seen {
			continue
		}
		out[field] = message(field, fe.Tag())
	}
	return out
}

func message(field, tag string) string {
	if m, ok := messages[field]; ok {
		if msg, ok := m[tag]; ok {
			return msg
		}
		if msg, ok := m[""]; ok {
			return msg
		}
	}
	return "Invalid " + field
}

// Checkout trims the form in place and validates it.
func Checkout(s *Shipping) map[string]string {
	s.Trim()
	return Struct(s)
}

func Email(s string) (string, bool) {
	s = strings.TrimSpace(s)
	return s, v.Var(s, "required,email,max=100") == nil
}

// TrackingLink accepts "" (clears the link) or printable text up to 500 chars.
func TrackingLink(s string) (string, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return "", true
	}
	return s, v.Var(s, "max=500,printascii") == nil
}

// WebLink reports whether s is safe to render as an href.
func WebLink(s string) bool {
	return v.Var(s, "url,startsnotwith=javascript") == nil &&
		(strings.HasPrefix(s, "http://") || strings.HasPrefix(s, "https://"))
}

func OrderStatus(s string) (domain.OrderStatus, bool) {
	st := domain.OrderStatus(strings.ToLower(strings.TrimSpace(s)))
	return st, st.Valid()
}

// Truncate cuts s to at most n runes.
func Truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
