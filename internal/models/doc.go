// Package models defines the domain entities exchanged with the mailworx webservice.
//
// The types are transport-agnostic: the SOAP wire shapes live in the services package and are mapped onto these.
//
//   - [SecurityContext] : account credentials attached to every remote call
//   - [Profile] : a named, static subscriber group used as send target
//   - [Subscriber] : meta data plus a list of typed [Field] values
//   - [Campaign] : an email send definition built from a template
//   - [SectionDefinition] / [Section] : a content block schema and a populated block
//   - [MDBFile] : a file in the remote media database
//
// # Fields
//
// [Field] is a tagged variant keyed by [FieldKind]. The webservice transports every value as an untyped string;
// the typed constructors ([TextField], [BooleanField], [NumberField], [DateTimeField], [SelectionField], [MDBField])
// render that string, and [NewField] parses operator input for a given kind.
//
// Identifiers are GUIDs; [uuid.Nil] means "no id".
package models
