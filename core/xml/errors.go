package xml

import "errors"

// ErrNoRoot is returned when a document contains no root element.
var ErrNoRoot = errors.New("document has no root element")
