package helpers

import (
	"fmt"
	"reflect"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stockplus/backend/mpesa"
	"github.com/thedevsaddam/govalidator"
)

func init() {
	govalidator.AddCustomRule("date_ISO8601", func(field string, rule string, message string, value interface{}) error {
		dateLayoutISO8601 := "2006-01-02"
		rv := reflect.ValueOf(value)
		if rv.Kind() == reflect.String {
			date := value.(string)
			if _, err := time.Parse(dateLayoutISO8601, date); err != nil {
				if message != "" {
					return fmt.Errorf(message)
				}
				return fmt.Errorf("The %s field must be ISO8601 yyyy-mm-dd date ", field)
			}
		}
		return nil
	})
	govalidator.AddCustomRule("array_string", func(field string, rule string, message string, value interface{}) error {
		rv := reflect.ValueOf(value)
		if rv.Kind() == reflect.Array || rv.Kind() == reflect.Slice {
			arr, ok := value.([]string)
			if !ok {
				return fmt.Errorf("The %s field must be array of string", field)
			}
			for _, v := range arr {
				if v == "" {
					if message != "" {
						return fmt.Errorf(message)
					}
					return fmt.Errorf("The %s field must be array of string not empty", field)
				}
			}
		}
		return nil
	})
	govalidator.AddCustomRule("positive_amount", func(field string, rule string, message string, value interface{}) error {
		amount, ok := ToDecimal(value)
		if !ok || !amount.IsPositive() {
			if message != "" {
				return fmt.Errorf(message)
			}
			return fmt.Errorf("The %s field must be a positive amount", field)
		}
		return nil
	})
	govalidator.AddCustomRule("mpesa_phone", func(field string, rule string, message string, value interface{}) error {
		phone, ok := value.(string)
		if !ok {
			return fmt.Errorf("The %s field must be a string", field)
		}
		if _, err := mpesa.NormalizePhone(phone); err != nil {
			if message != "" {
				return fmt.Errorf(message)
			}
			return fmt.Errorf("The %s field must be a Safaricom mobile number", field)
		}
		return nil
	})
}

// ToDecimal converts a decoded JSON number to a decimal.
func ToDecimal(value interface{}) (decimal.Decimal, bool) {
	switch v := value.(type) {
	case decimal.Decimal:
		return v, true
	case float64:
		return decimal.NewFromFloat(v), true
	case float32:
		return decimal.NewFromFloat32(v), true
	case int:
		return decimal.NewFromInt(int64(v)), true
	case int64:
		return decimal.NewFromInt(v), true
	case string:
		d, err := decimal.NewFromString(v)
		return d, err == nil
	}
	return decimal.Zero, false
}
