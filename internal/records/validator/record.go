package validator

import (
	"errors"
	"fmt"
	"reflect"
	"sicakap/pkg/logger"
	"sicakap/pkg/model"
	"strings"

	"github.com/go-playground/validator/v10"
)

type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

func (v ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", v.Field, v.Message)
}

type ValidationErrors []ValidationError

func (v ValidationErrors) Error() string {
	if len(v) == 0 {
		return ""
	}
	var messages []string
	for _, err := range v {
		messages = append(messages, err.Error())
	}
	return fmt.Sprintf("validation failed: %d error(s): [%s]", len(v), strings.Join(messages, "; "))
}

// Fields maps each failing json field to its message, the shape the form highlights.
func (v ValidationErrors) Fields() map[string]string {
	fields := make(map[string]string, len(v))
	for _, err := range v {
		fields[err.Field] = err.Message
	}
	return fields
}

const (
	docSKPWNI = "no_skpwni"
	docSKDWNI = "no_skdwni"
	docSKBWNI = "no_skbwni"
	docKK     = "no_kk"
)

// requiredDocuments lists the supporting documents each service code must carry.
var requiredDocuments = map[string][]string{
	model.ServiceMoveOut:       {docSKPWNI},
	model.ServiceMoveIn:        {docSKDWNI, docKK},
	model.ServiceCancel:        {docSKBWNI, docKK},
	model.ServiceCancelMoveOut: {docSKBWNI, docSKPWNI},
	model.ServiceSameVillage:   {docKK},
	model.ServiceLocal:         {docSKPWNI, docSKDWNI, docSKBWNI, docKK},
}

var documentLabels = map[string]string{
	docSKPWNI: "SKPWNI number",
	docSKDWNI: "SKDWNI number",
	docSKBWNI: "SKBWNI number",
	docKK:     "KK number",
}

type RecordValidator struct {
	validate *validator.Validate
	logger   *logger.Logger
}

func NewRecordValidator(log *logger.Logger) *RecordValidator {
	v := validator.New()

	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})

	v.RegisterStructValidation(validateRequiredDocuments, model.Record{})

	log.Info("Record validator initialized successfully")

	return &RecordValidator{
		validate: v,
		logger:   log,
	}
}

// RequiredDocuments returns the document fields serviceCode requires, in form order.
func RequiredDocuments(serviceCode string) []string {
	return append([]string(nil), requiredDocuments[serviceCode]...)
}

func validateRequiredDocuments(sl validator.StructLevel) {
	record := sl.Current().Interface().(model.Record)

	values := map[string]string{
		docSKPWNI: record.NoSKPWNI,
		docSKDWNI: record.NoSKDWNI,
		docSKBWNI: record.NoSKBWNI,
		docKK:     record.NoKK,
	}

	for _, doc := range requiredDocuments[record.ServiceCode] {
		if strings.TrimSpace(values[doc]) == "" {
			sl.ReportError(values[doc], doc, doc, "required_for_service", record.ServiceCode)
		}
	}
}

func (v *RecordValidator) Validate(record *model.Record) error {
	if err := v.validate.Struct(record); err != nil {
		var validationErrs validator.ValidationErrors
		if errors.As(err, &validationErrs) {
			return v.translateValidationErrors(validationErrs)
		}
		return err
	}
	return nil
}

func (v *RecordValidator) ValidateFilter(filter *model.RecordFilter) error {
	var errs ValidationErrors
	if filter.Status != "" {
		if err := v.validate.Var(filter.Status, "oneof=DIPROSES SELESAI DITOLAK"); err != nil {
			errs = append(errs, ValidationError{Field: "status", Message: "status must be one of: DIPROSES SELESAI DITOLAK"})
		}
	}
	if filter.ServiceCode != "" {
		if err := v.validate.Var(filter.ServiceCode, "oneof=P D B BP PSD L"); err != nil {
			errs = append(errs, ValidationError{Field: "service_code", Message: "service_code must be one of: P D B BP PSD L"})
		}
	}
	for field, value := range map[string]string{"start_date": filter.StartDate, "end_date": filter.EndDate} {
		if value != "" && !model.SystemDate(value).Valid() {
			errs = append(errs, ValidationError{Field: field, Message: field + " must be formatted as YYYY-MM-DD"})
		}
	}
	if len(errs) > 0 {
		return errs
	}
	return nil
}

func (v *RecordValidator) translateValidationErrors(errs validator.ValidationErrors) ValidationErrors {
	var validationErrors ValidationErrors

	for _, err := range errs {
		message := err.Error()

		switch err.Tag() {
		case "required":
			message = fmt.Sprintf("%s is required", err.Field())
		case "required_for_service":
			message = fmt.Sprintf("%s is required for service %s", documentLabels[err.Field()], err.Param())
		case "min":
			message = fmt.Sprintf("%s must be at least %s", err.Field(), err.Param())
		case "max":
			message = fmt.Sprintf("%s must be at most %s", err.Field(), err.Param())
		case "len":
			message = fmt.Sprintf("%s must be exactly %s digits", err.Field(), err.Param())
		case "numeric":
			message = fmt.Sprintf("%s must contain digits only", err.Field())
		case "datetime":
			message = fmt.Sprintf("%s must be formatted as YYYY-MM-DD", err.Field())
		case "e164":
			message = fmt.Sprintf("%s must be a valid phone number (e.g., +6281234567890)", err.Field())
		case "email":
			message = fmt.Sprintf("%s must be a valid email address", err.Field())
		case "oneof":
			message = fmt.Sprintf("%s must be one of: %s", err.Field(), err.Param())
		}

		validationErrors = append(validationErrors, ValidationError{
			Field:   err.Field(),
			Message: message,
		})
	}

	return validationErrors
}
