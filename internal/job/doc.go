// Package job implements a generic retrying background job engine: a
// fixed-size worker pool draining a single intake queue, executing opaque
// payloads with bounded inline retries, and quarantining terminally failed
// jobs for manual replay.
package job
