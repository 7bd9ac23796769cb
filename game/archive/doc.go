// Package archive exports session event logs as parquet files.
//
// Each event becomes one EventRow stamped with a random export ID, the
// session ID and the configuration name. Files are zstd-compressed and
// carry the schema version in their key/value metadata, so a finished
// game can be loaded into any columnar tool for analysis.
package archive
