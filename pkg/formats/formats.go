// Package formats provides codecs for the mesh text formats used by imported
// models and scene archives.
package formats
