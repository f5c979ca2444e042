package schema

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
)

// nameRE constrains logical model names to a safe identifier subset.
var nameRE = regexp.MustCompile(`^[A-Za-z0-9_.-]+$`)

// Variant selects collection-specific field extensions on top of the base
// master-data shape. It replaces runtime schema mutation with a small,
// explicit sum type chosen by a discriminant at lookup time.
type Variant string

const (
	// VariantBase is the plain master-data shape with no extensions.
	VariantBase Variant = "base"
	// VariantEquipmentCategory extends the base shape with
	// equipment-category fields.
	VariantEquipmentCategory Variant = "equipment_category"
	// VariantIndustryType extends the base shape with industry-type fields.
	VariantIndustryType Variant = "industry_type"
)

// Valid reports whether v is one of the known variants.
func (v Variant) Valid() bool {
	switch v {
	case VariantBase, VariantEquipmentCategory, VariantIndustryType:
		return true
	}
	return false
}

func (v Variant) String() string { return string(v) }

// Index describes a single index on the backing collection. Keys preserve
// declaration order; Direction is 1 for ascending, -1 for descending.
type Index struct {
	Keys   []IndexKey `yaml:"keys" json:"keys"`
	Unique bool       `yaml:"unique,omitempty" json:"unique,omitempty"`
	Name   string     `yaml:"name,omitempty" json:"name,omitempty"`
}

// IndexKey is one field of an index definition.
type IndexKey struct {
	Field     string `yaml:"field" json:"field"`
	Direction int    `yaml:"direction" json:"direction"`
}

// Definition describes one logical model: the named schema that gets bound to
// a tenant's storage namespace. The Fields map is opaque to this layer; it is
// carried for the benefit of whatever validates business entities.
type Definition struct {
	Name       string            `yaml:"name" json:"name"`
	Collection string            `yaml:"collection,omitempty" json:"collection,omitempty"`
	Variant    Variant           `yaml:"variant,omitempty" json:"variant,omitempty"`
	Indexes    []Index           `yaml:"indexes,omitempty" json:"indexes,omitempty"`
	Fields     map[string]string `yaml:"fields,omitempty" json:"fields,omitempty"`
}

// Normalize fills derivable defaults: an empty Collection becomes the
// lowercased Name, and an empty Variant becomes VariantBase. It returns the
// normalized copy without mutating the receiver.
func (d Definition) Normalize() Definition {
	if d.Collection == "" {
		d.Collection = strings.ToLower(d.Name)
	}
	if d.Variant == "" {
		d.Variant = VariantBase
	}
	return d
}

// Validate checks that the definition is well-formed after normalization.
func (d Definition) Validate() error {
	var errs []error
	if d.Name == "" {
		errs = append(errs, errors.New("name is required"))
	} else if !nameRE.MatchString(d.Name) {
		errs = append(errs, fmt.Errorf("name %q contains invalid characters", d.Name))
	}
	if d.Collection == "" {
		errs = append(errs, errors.New("collection is required"))
	}
	if !d.Variant.Valid() {
		errs = append(errs, fmt.Errorf("unknown variant %q", d.Variant))
	}
	for i, idx := range d.Indexes {
		if len(idx.Keys) == 0 {
			errs = append(errs, fmt.Errorf("index %d has no keys", i))
			continue
		}
		for _, k := range idx.Keys {
			if k.Field == "" {
				errs = append(errs, fmt.Errorf("index %d has an empty field", i))
			}
			if k.Direction != 1 && k.Direction != -1 {
				errs = append(errs, fmt.Errorf("index %d field %q has direction %d, want 1 or -1", i, k.Field, k.Direction))
			}
		}
	}
	if len(errs) > 0 {
		return errors.Join(append([]error{ErrInvalidDefinition}, errs...)...)
	}
	return nil
}

// Fallback returns the generic shape used when a caller asks for a model that
// was never registered: a base-variant definition with a single non-unique
// index on the tenant-scoped natural key.
func Fallback(name string) Definition {
	return Definition{
		Name:    name,
		Variant: VariantBase,
		Indexes: []Index{
			{Keys: []IndexKey{{Field: "code", Direction: 1}}},
		},
		Fields: map[string]string{
			"code": "string",
			"name": "string",
		},
	}.Normalize()
}
