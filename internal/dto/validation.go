package dto

import (
	"sync"

	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"

	"github.com/pse-app/pse-sub001/internal/core/domain"
)

var registerOnce sync.Once

// RegisterValidations installs the custom binding tags used by the request DTOs
// on gin's validator engine. It is safe to call more than once.
func RegisterValidations() error {
	var err error
	registerOnce.Do(func() {
		v, ok := binding.Validator.Engine().(*validator.Validate)
		if !ok {
			return
		}
		err = v.RegisterValidation("amount", validateAmount)
	})
	return err
}

// validateAmount accepts any exact decimal string.
func validateAmount(fl validator.FieldLevel) bool {
	_, err := domain.ParseAmount(fl.Field().String())
	return err == nil
}
