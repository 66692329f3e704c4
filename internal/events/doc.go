// Package events defines the unified event record and the adapters that
// move records in and out of the pipeline.
//
// A Record is a type plus a flat field map and travels as one JSON object
// per line. FileBus appends records to a log, Tailer follows a log by byte
// offset, and StreamPublisher fans records out to gRPC subscribers as
// google.protobuf.Struct messages.
package events
