package toiopose

import "context"

// Plugin extends a run with optional behavior.
type Plugin interface {
	// Name identifies the plugin in logs.
	Name() string

	// Initialize is called after the scene is drawn and before the cube
	// is connected. An error aborts the run.
	Initialize(ctx context.Context, cfg PluginConfig) error

	// Shutdown is called when Run returns.
	Shutdown(ctx context.Context) error
}

// PluginConfig is what a plugin gets to work with.
type PluginConfig struct {
	AssetPath string
	Scene     string
	Entity    string

	// Renderer is the run's renderer. It is safe for concurrent use.
	Renderer Renderer

	Logger Logger
}
