// Package validation validates configuration and definitions.
//
// Struct tag validation uses go-playground/validator; field names in
// messages come from the yaml or mapstructure tag:
//
//	type StageDefinition struct {
//	    ID         string `yaml:"id" validate:"required"`
//	    Capability string `yaml:"capability" validate:"required"`
//	}
//	err := validation.Validate(def)
//
// Programmatic checks collect field errors the same way:
//
//	v := validation.New()
//	v.Required("base_url", cfg.BaseURL).OneOf("dialect", cfg.Dialect, dialects)
//	if err := v.Validate(); err != nil { ... }
//
// Both return an INVALID_INPUT AppError whose "fields" detail lists every
// failing field.
package validation
