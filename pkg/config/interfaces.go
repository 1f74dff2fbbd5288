package config

import "context"

// ConfigLoader populates dst from a configuration source. The path argument
// is loader-specific; the env loader ignores it.
type ConfigLoader interface {
	Load(ctx context.Context, path string, dst interface{}) error
}

// Validator lets a configuration struct check itself after loading. Loaders
// call it automatically; implementations conventionally also fill defaults
// for unset fields.
type Validator interface {
	Validate() error
}
