package http

import (
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/taskmaster/wbs/internal/ports"
)

// CustomValidator wraps the validator
type CustomValidator struct {
	validator *validator.Validate
}

// NewValidator builds the request validator: field rules come from the validate
// tags on the ports request types, date ordering from the struct-level checks below.
func NewValidator() *CustomValidator {
	v := validator.New()

	// Report json names so error details match the request body.
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		if name == "" {
			return fld.Name
		}
		return name
	})

	v.RegisterStructValidation(validateCreateTask, ports.CreateTaskRequest{})
	v.RegisterStructValidation(validateUpdateTask, ports.UpdateTaskRequest{})
	v.RegisterStructValidation(validateCreateEntry, ports.CreateTimeEntryRequest{})
	v.RegisterStructValidation(validateUpdateEntry, ports.UpdateTimeEntryRequest{})
	v.RegisterStructValidation(validateFilter, ports.TimeEntryFilter{})

	return &CustomValidator{validator: v}
}

// Validate validates structs
func (cv *CustomValidator) Validate(i interface{}) error {
	return cv.validator.Struct(i)
}

// Task dates may coincide; entry end times must be strictly after the start.

func validateCreateTask(sl validator.StructLevel) {
	req := sl.Current().Interface().(ports.CreateTaskRequest)
	if req.StartDate != nil && req.EndDate != nil && req.EndDate.Before(*req.StartDate) {
		sl.ReportError(req.EndDate, "end_date", "EndDate", "gtefield", "start_date")
	}
}

func validateUpdateTask(sl validator.StructLevel) {
	req := sl.Current().Interface().(ports.UpdateTaskRequest)
	if req.StartDate != nil && req.EndDate != nil && req.EndDate.Before(*req.StartDate) {
		sl.ReportError(req.EndDate, "end_date", "EndDate", "gtefield", "start_date")
	}
}

func validateCreateEntry(sl validator.StructLevel) {
	req := sl.Current().Interface().(ports.CreateTimeEntryRequest)
	if req.EndTime != nil && !req.EndTime.After(req.StartTime) {
		sl.ReportError(req.EndTime, "end_time", "EndTime", "gtfield", "start_time")
	}
}

func validateUpdateEntry(sl validator.StructLevel) {
	req := sl.Current().Interface().(ports.UpdateTimeEntryRequest)
	if req.StartTime != nil && req.EndTime != nil && !req.EndTime.After(*req.StartTime) {
		sl.ReportError(req.EndTime, "end_time", "EndTime", "gtfield", "start_time")
	}
}

func validateFilter(sl validator.StructLevel) {
	f := sl.Current().Interface().(ports.TimeEntryFilter)
	// ISO dates order lexically.
	if f.StartDate != nil && f.EndDate != nil && *f.EndDate < *f.StartDate {
		sl.ReportError(f.EndDate, "end_date", "EndDate", "gtefield", "start_date")
	}
}

// validationDetails flattens validator errors into field -> failed rule.
func validationDetails(err error) map[string]string {
	verrs, ok := err.(validator.ValidationErrors)
	if !ok {
		return nil
	}
	details := make(map[string]string, len(verrs))
	for _, fe := range verrs {
		rule := fe.Tag()
		if fe.Param() != "" {
			rule += "=" + fe.Param()
		}
		details[fe.Field()] = rule
	}
	return details
}
