// Package ejschema validates JSON documents against schemas that follow the
// extension-schema convention: the document's own <prefix>schema property
// names the base schema, and any object within the document may carry a
// <prefix>extensionSchemas property listing additional schemas that apply
// to just that subtree.
//
// The package provides:
//
//   - A Validator orchestrating base-schema and recursive extension-schema
//     validation with strict/lenient handling of missing schemas
//   - A stable error model via Errors (JSON Pointer, code, message)
//   - An Instance wrapper with document-pointer queries over parsed data
//   - A schema location registry under loader/ resolving identifiers from
//     local files, bundled resources, and HTTP, with directory discovery
//     and a persistable location-mapping format
//
// Design policy:
//   - Keep only public APIs in the root package; put detailed
//     implementations under internal/.
//   - Place schema resolution under loader/, the evaluation capability
//     under eval/, and the CLI under cmd/ejschema.
//   - Prefer black-box testing against public APIs.
//
// Typical usage:
//
//	reg, err := loader.FromDirectory("schemas", loader.DirOptions{})
//	v := ejschema.New(ejschema.Options{Registry: reg})
//	errs, err := v.ValidateFile(ctx, "record.json", ejschema.ValidateOpt{})
package ejschema
