package validate

import (
	"regexp"
	"strings"

	"github.com/go-playground/validator/v10"

	"quiz-registration-service/internal/domain"
)

var (
	phoneRe   = regexp.MustCompile(`^[0-9]{10}$`)
	pincodeRe = regexp.MustCompile(`^[0-9]{6}$`)
	gmailRe   = regexp.MustCompile(`@gmail\.com$`)
)

// messages maps struct field + failed tag to the message surfaced to callers.
var messages = map[string]string{
	"Name.min":                "Name must be at least 2 characters",
	"Qualification.min":       "Qualification is required",
	"Email.required":          "Invalid email address",
	"Email.email":             "Invalid email address",
	"Email.gmail":             "Only Gmail addresses are allowed",
	"Phone.phone10":           "Enter valid 10 digit mobile number",
	"State.min":               "State is required",
	"City.min":                "City is required",
	"Pincode.pincode6":        "Enter valid 6 digit pincode",
	"ParticipantRef.required": "Participant ID required",
	"Answers.required":        "Answers are required",
}

// Validator applies the declarative schema rules for registrations and
// submissions before anything is persisted.
type Validator struct {
	v *validator.Validate
}

func New() *Validator {
	v := validator.New(validator.WithRequiredStructEnabled())
	mustRegister(v, "phone10", phoneRe)
	mustRegister(v, "pincode6", pincodeRe)
	mustRegisterLower(v, "gmail", gmailRe)
	return &Validator{v: v}
}

func mustRegister(v *validator.Validate, tag string, re *regexp.Regexp) {
	err := v.RegisterValidation(tag, func(fl validator.FieldLevel) bool {
		return re.MatchString(fl.Field().String())
	})
	if err != nil {
		panic(err)
	}
}

// mustRegisterLower matches case-insensitively; the gmail domain check must
// accept A@GMAIL.com.
func mustRegisterLower(v *validator.Validate, tag string, re *regexp.Regexp) {
	err := v.RegisterValidation(tag, func(fl validator.FieldLevel) bool {
		return re.MatchString(strings.ToLower(fl.Field().String()))
	})
	if err != nil {
		panic(err)
	}
}

// Registration checks a registration payload and reports every violated rule.
func (va *Validator) Registration(reg domain.Registration) error {
	return va.check(reg)
}

// Submission checks a quiz-answer payload.
func (va *Validator) Submission(draft domain.SubmissionDraft) error {
	return va.check(draft)
}

func (va *Validator) check(payload any) error {
	err := va.v.Struct(payload)
	if err == nil {
		return nil
	}
	verrs, ok := err.(validator.ValidationErrors)
	if !ok {
		return err
	}
	collected := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		key := fe.StructField() + "." + fe.Tag()
		if msg, ok := messages[key]; ok {
			collected = append(collected, msg)
		} else {
			collected = append(collected, "Invalid value for "+fe.StructField())
		}
	}
	return &domain.ValidationError{Messages: collected}
}
