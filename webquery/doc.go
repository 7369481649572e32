// Package webquery turns string-encoded web query parameters into a typed predicate tree
// and compiles that tree into store-specific criteria.
//
// A request like
//
//	status=active&age=_f_range_18..65&name=_f_contains_smith&_order=-created&_limit=10
//
// is decoded into an Envelope holding:
//   - the top-level predicate tree (Leaf and Group nodes)
//   - orderings, limit, offset and the "compute total size" flag
//   - an optional subclass filter plus fetch depth and expand hints
//
// Constraint strings follow a small grammar:
//
//	constraint := equality | control
//	equality   := <any string not starting with '_'>
//	control    := "_null" | "_notnull" | "_f_" ("eq" | "neq" | "starts" | "contains" | "range") "_" param
//
// Field paths are resolved by a PropertyResolver, values are coerced by a Coercer according to the
// field's FieldType. Encode walks the tree and calls a FragmentBackend, which builds the store fragments.
//
// Common usage pattern:
//
//	decoder, err := webquery.NewDecoder(resolver, webquery.WithMaxLimit(1000))
//	if err != nil {
//		// handle error
//	}
//
//	envelope, err := decoder.Decode(request.URL.Query())
//	if webquery.IsBadConstraint(err) {
//		// respond with 400
//	}
//
//	fragment, ok := webquery.Encode(envelope.Constraints(), backend)
package webquery
