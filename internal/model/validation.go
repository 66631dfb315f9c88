package model

import (
	validation "github.com/go-ozzo/ozzo-validation/v4"
)

const (
	// MaxTextLength is the longest text, in runes, accepted for any single field.
	MaxTextLength = 10000
	// MaxListItems is the largest number of items accepted in ctos or futureTalkingPoints.
	MaxListItems = 100
)

var textRule = validation.RuneLength(0, MaxTextLength)

// rulesFor returns the validation rules of the field with the given key.
func rulesFor(key string) []validation.Rule {
	switch key {
	case "name":
		return []validation.Rule{validation.Required, textRule}
	case "importance":
		return []validation.Rule{validation.In(ImportanceLow, ImportanceMedium, ImportanceHigh)}
	case "ctos", "futureTalkingPoints":
		return []validation.Rule{validation.Length(0, MaxListItems), validation.Each(textRule)}
	default:
		return []validation.Rule{textRule}
	}
}

func validateFields(fields []Field) error {
	errs := validation.Errors{}
	for _, f := range fields {
		value := f.Value
		// StringList is a driver.Valuer, which ozzo would turn into its JSON text.
		if list, ok := value.(StringList); ok {
			value = []string(list)
		}
		if err := validation.Validate(value, rulesFor(f.Key)...); err != nil {
			errs[f.Key] = err
		}
	}
	return errs.Filter()
}

// Validate checks a connection that is about to be created.
func (c *Connection) Validate() error {
	return validateFields(c.Fields())
}

// Validate checks the fields present in the patch. Absent fields are not validated, so a patch
// without a name is fine while a patch with an empty name is not.
func (p *ConnectionPatch) Validate() error {
	return validateFields(p.Fields())
}
