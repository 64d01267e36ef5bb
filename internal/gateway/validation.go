package gateway

import (
	"errors"
	"fmt"
	"reflect"
	"strconv"
	"strings"
	"sync"
	"time"

	"shareit/internal/models"

	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
)

// clockSkew tolerates a start equal to "now" as typed by the client.
const clockSkew = time.Second

// validationError is rendered as 400 with its message.
type validationError struct {
	msg string
}

func (e *validationError) Error() string { return e.msg }

func invalid(format string, args ...any) error {
	return &validationError{msg: fmt.Sprintf(format, args...)}
}

// bindingMessage turns binder errors into a short client-facing message.
func bindingMessage(err error) string {
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) && len(verrs) > 0 {
		fe := verrs[0]
		field := fe.Field()
		switch fe.Tag() {
		case "required":
			return fmt.Sprintf("%s is required", field)
		case "email":
			return fmt.Sprintf("%s must be a well-formed email address", field)
		case "gt":
			return fmt.Sprintf("%s must be greater than %s", field, fe.Param())
		default:
			return fmt.Sprintf("%s is invalid (%s)", field, fe.Tag())
		}
	}
	return "invalid JSON body: " + err.Error()
}

var registerJSONNames sync.Once

// useJSONFieldNames makes validator report fields by their JSON names.
func useJSONFieldNames() {
	registerJSONNames.Do(func() {
		v, ok := binding.Validator.Engine().(*validator.Validate)
		if !ok {
			return
		}
		v.RegisterTagNameFunc(func(fld reflect.StructField) string {
			name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
			if name == "-" {
				return ""
			}
			return name
		})
	})
}

func parseUserID(raw string) (int64, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 0, invalid("header %s is required", models.HeaderUserID)
	}
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, invalid("header %s must be a positive integer", models.HeaderUserID)
	}
	return id, nil
}

func parsePathID(raw string) error {
	if _, err := strconv.ParseInt(raw, 10, 64); err != nil {
		return invalid("invalid id %q", raw)
	}
	return nil
}

func validateNewUser(u *models.User) error {
	if strings.TrimSpace(u.Email) == "" {
		return invalid("email is required")
	}
	return nil
}

func validateNewItem(it *models.Item) error {
	if strings.TrimSpace(it.Name) == "" {
		return invalid("name must not be blank")
	}
	if strings.TrimSpace(it.Description) == "" {
		return invalid("description must not be blank")
	}
	if it.RequestID != nil && *it.RequestID <= 0 {
		return invalid("requestId must be positive")
	}
	return nil
}

func validateNewBooking(b *models.NewBooking, now time.Time) error {
	if b.Start == nil || b.Start.IsZero() {
		return invalid("start is required")
	}
	if b.End == nil || b.End.IsZero() {
		return invalid("end is required")
	}
	if b.Start.Before(now.Add(-clockSkew)) {
		return invalid("start must be in the present or future")
	}
	if !b.End.After(now) {
		return invalid("end must be in the future")
	}
	return nil
}

func validateText(field, value string) error {
	if strings.TrimSpace(value) == "" {
		return invalid("%s must not be blank", field)
	}
	return nil
}

func parseApproved(raw string) error {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "true", "false":
		return nil
	case "":
		return invalid("parameter approved is required")
	default:
		return invalid("parameter approved must be true or false, got %q", raw)
	}
}
