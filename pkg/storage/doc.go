// Package storage holds what the request log backends share: sentinel
// errors, page size clamping and tenant scoping through the context.
// The backends themselves live in the memory and postgres subpackages and
// satisfy transport.RequestLog.
package storage
