// Package validator provides custom validation functions for Gin's binding engine.
package validator

import (
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"

	"divvy/internal/split"
)

// Register registers all custom validators with the Gin binding engine.
func Register() {
	if v, ok := binding.Validator.Engine().(*validator.Validate); ok {
		_ = v.RegisterValidation("split_strategy", validateSplitStrategy)
		_ = v.RegisterValidation("transaction_type", validateTransactionType)
	}
}

func validateSplitStrategy(fl validator.FieldLevel) bool {
	return split.Valid(split.Strategy(fl.Field().String()))
}

func validateTransactionType(fl validator.FieldLevel) bool {
	switch fl.Field().String() {
	case "", "expense", "settle":
		return true
	}
	return false
}
