package api

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
)

var validate = validator.New(validator.WithRequiredStructEnabled())

// Validate checks the join request before any network call. The field rules
// mirror the server's: six-character alphanumeric code, student name at most
// twenty characters after trimming, and a two-digit rejoin PIN when present.
func (r *JoinRequest) Validate() error {
	r.Code = strings.ToUpper(strings.TrimSpace(r.Code))
	r.StudentName = strings.TrimSpace(r.StudentName)
	r.RejoinPin = strings.TrimSpace(r.RejoinPin)

	if err := validate.Struct(r); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			return fmt.Errorf("%s", fieldMessage(verrs[0]))
		}
		return err
	}
	return nil
}

func fieldMessage(fe validator.FieldError) string {
	switch fe.Field() {
	case "Code":
		return "enter the 6-character join code"
	case "StudentName":
		if fe.Tag() == "max" {
			return "student name must be 20 characters or fewer"
		}
		return "enter your name"
	case "RejoinPin":
		return "rejoin PIN must be 2 digits"
	}
	return fe.Error()
}
