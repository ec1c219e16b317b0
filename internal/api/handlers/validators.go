package handlers

import (
	"fmt"
	"sync"

	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"

	"stays/internal/models"
)

var registerOnce sync.Once

// RegisterValidators installs the custom binding tags on gin's validator. It must run
// before any handler binds a ListingInput; repeated calls are no-ops.
func RegisterValidators() error {
	var err error
	registerOnce.Do(func() {
		v, ok := binding.Validator.Engine().(*validator.Validate)
		if !ok {
			err = fmt.Errorf("unexpected binding validator engine %T", binding.Validator.Engine())
			return
		}
		err = v.RegisterValidation("property_type", validatePropertyType)
	})
	return err
}

func validatePropertyType(fl validator.FieldLevel) bool {
	return models.PropertyType(fl.Field().String()).Valid()
}
