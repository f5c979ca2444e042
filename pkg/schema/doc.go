// Package schema defines the logical-model descriptors shared by the
// connection and registry layers.
//
// A Definition names a logical model, the collection backing it, the indexes
// the binding step must ensure, and a Variant discriminant selecting
// collection-specific field extensions. Definitions are plain data: this
// package never touches storage.
//
// # Variants
//
// Collection-specific shapes are expressed as a small sum type rather than
// runtime schema mutation. VariantBase is the plain master-data shape;
// VariantEquipmentCategory and VariantIndustryType add their respective field
// extensions. Consumers switch on the discriminant at lookup time.
//
// # Catalogue files
//
// The process-start registration call typically reads a YAML catalogue:
//
//	defs, err := schema.LoadFile("schemas.yaml")
//	if err != nil {
//		log.Fatal(err)
//	}
//	if err := reg.RegisterSchemas(defs...); err != nil {
//		log.Fatal(err)
//	}
package schema
