package metrics

import "errors"

// ErrWriteFailed wraps a failure to write the metrics textfile.
var ErrWriteFailed = errors.New("metrics textfile write failed")
