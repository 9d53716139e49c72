package logger

// Standard field keys. Use them consistently so logs can be filtered by field.
const (
	KeyXID       = "xid"
	KeyProgram   = "program"
	KeyVersion   = "version"
	KeyProcedure = "procedure"
	KeyStatus    = "status"
	KeyHandle    = "handle"
	KeyPath      = "path"
	KeyFilename  = "filename"

	KeyAddr     = "addr"
	KeyOp       = "op"
	KeyBytes    = "bytes"
	KeyOffset   = "offset"
	KeyCount    = "count"
	KeyDuration = "duration"
	KeyError    = "error"

	KeyRunID = "run_id"
	KeyStep  = "step"
	KeyStore = "store"
)
