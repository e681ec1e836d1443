package main

import (
	"arena/src/config"
	"time"

	"github.com/go-playground/validator/v10"
)

var isoDateValidatorFunc validator.Func = func(fl validator.FieldLevel) bool {
	date, ok := fl.Field().Interface().(string)
	if !ok {
		return false
	}
	_, err := time.Parse(config.DATE_FORMAT, date)
	return err == nil
}

var daysOfWeekValidatorFunc validator.Func = func(fl validator.FieldLevel) bool {
	days, ok := fl.Field().Interface().([]int)
	if !ok {
		return false
	}
	seen := make(map[int]bool, len(days))
	for _, d := range days {
		if d < 1 || d > 7 || seen[d] {
			return false
		}
		seen[d] = true
	}
	return true
}

func registerValidators(v *validator.Validate) {
	v.RegisterValidation("isodate", isoDateValidatorFunc)
	v.RegisterValidation("daysofweek", daysOfWeekValidatorFunc)
}
