package catalog

import "errors"

// Sentinel errors for catalog loading.
var (
	ErrLoadCatalog    = errors.New("load catalog failed")
	ErrInvalidCatalog = errors.New("invalid catalog")
)
