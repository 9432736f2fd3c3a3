package config

import (
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/shaiso/aybuctl/internal/telemetry"
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterValidation("loglevel", validateLogLevel)
	return v
}

// validateLogLevel принимает те же имена уровней, что и telemetry.ParseLevel.
func validateLogLevel(fl validator.FieldLevel) bool {
	_, ok := telemetry.ParseLevel(fl.Field().String())
	return ok
}

// secondsToDurationHook принимает таймаут в секундах ("30", "2.5", 30),
// как было принято в старом конфиге. Строки с единицами ("30s", "1m")
// обрабатывает следующий hook.
func secondsToDurationHook(from reflect.Type, to reflect.Type, data any) (any, error) {
	if to != reflect.TypeOf(time.Duration(0)) {
		return data, nil
	}

	switch v := data.(type) {
	case string:
		s := strings.TrimSpace(v)
		if s == "" {
			return time.Duration(0), nil
		}
		secs, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return data, nil
		}
		return time.Duration(secs * float64(time.Second)), nil
	case float64:
		return time.Duration(v * float64(time.Second)), nil
	default:
		return data, nil
	}
}
