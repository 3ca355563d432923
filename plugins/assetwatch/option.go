package assetwatch

import "github.com/bft-labs/toiopose/pkg/toiopose"

// WithAssetWatch returns a toiopose Option that re-draws the cube model
// whenever the asset file is rewritten.
//
// Usage:
//
//	p, err := toiopose.New(cfg,
//	    assetwatch.WithAssetWatch(assetwatch.Config{
//	        DebounceDelay: 200 * time.Millisecond,
//	    }),
//	)
func WithAssetWatch(cfg Config) toiopose.Option {
	return toiopose.WithPlugin(New(cfg))
}

// WithDefaultAssetWatch enables asset watching with a 100ms debounce.
func WithDefaultAssetWatch() toiopose.Option {
	return WithAssetWatch(DefaultConfig())
}
