// Package codec provides the encodings used to store structured documents as
// record values.
//
// Available codecs:
//   - JSON: human-readable, interoperable with other tools reading the database
//   - GOB: Go's self-describing binary format, compact for Go-only consumers
//
// Codecs are selected by name with ByName, which is how the command line
// tool resolves the --codec flag.
package codec
