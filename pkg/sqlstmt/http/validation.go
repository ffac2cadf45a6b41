package http

import (
	"net/http"
	"os"
	"reflect"
	"strings"
	"sync"

	"github.com/go-playground/locales/en"
	"github.com/go-playground/locales/zh"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	enTrans "github.com/go-playground/validator/v10/translations/en"
	zhTrans "github.com/go-playground/validator/v10/translations/zh"
)

var (
	validate     *validator.Validate
	trans        ut.Translator
	validateOnce sync.Once
)

func initValidator() {
	validate = validator.New(validator.WithRequiredStructEnabled())
	validate.SetTagName("binding")

	// field names in messages follow the json tag
	validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" || name == "" {
			return fld.Name
		}

		return name
	})

	switch os.Getenv("VALIDATION_LOCALE") {
	case "zh":
		loc := zh.New()
		uni := ut.New(loc, loc)
		trans, _ = uni.GetTranslator("zh")
		_ = zhTrans.RegisterDefaultTranslations(validate, trans)
	default: // "en" or unset
		loc := en.New()
		uni := ut.New(loc, loc)
		trans, _ = uni.GetTranslator("en")
		_ = enTrans.RegisterDefaultTranslations(validate, trans)
	}
}

func getValidator() *validator.Validate {
	validateOnce.Do(initValidator)

	return validate
}

func getTranslator() ut.Translator {
	validateOnce.Do(initValidator)

	return trans
}

// validateStruct validates the given struct using "binding" tags.
func validateStruct(i any) error {
	err := getValidator().Struct(i)
	if err == nil {
		return nil
	}

	if validationErrors, ok := err.(validator.ValidationErrors); ok {
		return &ValidationError{Errors: validationErrors}
	}

	return err
}

// ValidationError wraps validator.ValidationErrors and renders them with the
// configured locale.
type ValidationError struct {
	Errors validator.ValidationErrors
}

func (e *ValidationError) Error() string {
	t := getTranslator()

	msgs := make([]string, 0, len(e.Errors))
	for _, fe := range e.Errors {
		msgs = append(msgs, fe.Translate(t))
	}

	return strings.Join(msgs, "; ")
}

// StatusCode returns 400 Bad Request for validation errors.
func (*ValidationError) StatusCode() int {
	return http.StatusBadRequest
}
