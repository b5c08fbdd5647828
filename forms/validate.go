package forms

import (
	"errors"
	"sync"

	"github.com/go-playground/validator/v10"

	"marketing-site/pkg/site"
)

// Validation messages shown to submitters.
const (
	MsgRequired     = "Please complete all required fields."
	MsgInvalidEmail = "Please enter a valid email address."
)

var (
	vOnce sync.Once
	vInst *validator.Validate
)

func getValidator() *validator.Validate {
	vOnce.Do(func() {
		vInst = validator.New(validator.WithRequiredStructEnabled())
		_ = vInst.RegisterValidation("probablyemail", func(fl validator.FieldLevel) bool {
			return isProbablyEmail(fl.Field().String())
		})
	})
	return vInst
}

// validationError carries the user-facing message for a rejected submission.
type validationError struct {
	msg string
}

func (e *validationError) Error() string { return e.msg }

// decode builds the typed submission for form from raw fields, or returns a
// *validationError. Missing required fields take precedence over a malformed email.
func decode(form site.FormType, raw map[string]any) (site.Submission, error) {
	str := func(key string) string { return asTrimmedString(raw[key]) }

	var sub site.Submission
	switch form {
	case site.FormContact:
		sub = &site.Contact{
			Name:    str("name"),
			Email:   str("email"),
			Phone:   str("phone"),
			Service: str("service"),
			Message: str("message"),
		}
	case site.FormQuote:
		sub = &site.Quote{
			Name:              str("name"),
			Email:             str("email"),
			Phone:             str("phone"),
			Address:           str("address"),
			ServiceType:       str("serviceType"),
			Timeframe:         str("timeframe"),
			Budget:            str("budget"),
			JobDetails:        str("jobDetails"),
			CalculatorSummary: str("calculatorSummary"),
		}
	case site.FormSubscribe:
		s := &site.Subscribe{
			Email:   str("email"),
			Context: str("turnstileContext"),
		}
		if s.FromPopup() {
			s.OfferCode = truncate(str("offerCode"), MaxOfferCode)
			s.OfferHeadline = truncate(str("offerHeadline"), MaxOfferHeadline)
		}
		sub = s
	default:
		return nil, errors.New("unknown form " + string(form))
	}

	if err := getValidator().Struct(sub); err != nil {
		return nil, toValidationError(err)
	}
	return sub, nil
}

func toValidationError(err error) error {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}
	for _, fe := range verrs {
		if fe.Tag() == "required" {
			return &validationError{msg: MsgRequired}
		}
	}
	for _, fe := range verrs {
		if fe.Tag() == "probablyemail" {
			return &validationError{msg: MsgInvalidEmail}
		}
	}
	return &validationError{msg: MsgRequired}
}
