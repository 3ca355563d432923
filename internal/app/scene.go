package app

import (
	"context"
	"fmt"

	"github.com/bft-labs/toiopose/internal/domain"
	"github.com/bft-labs/toiopose/internal/ports"
)

// Scene paths used by SetupScene.
const (
	WorldPath = "world"
	AxisPath  = "world/axis"
	MatPath   = "mat"
)

// DefaultSceneName is the scene a renderer is initialized with.
const DefaultSceneName = "toio_posture_viewer"

// SceneConfig describes the static content drawn before streaming starts.
type SceneConfig struct {
	Name string

	// Entity is where the cube model is placed and where poses go.
	Entity string

	// AssetPath is the cube's 3D model file.
	AssetPath string

	// MatImage is an optional play mat image logged under MatPath.
	MatImage string
}

// AxisArrows returns the X, Y and Z arrows (red, green, blue) drawn at the
// world origin.
func AxisArrows() domain.Arrows3D {
	return domain.Arrows3D{
		Origins: [][3]float64{{0, 0, 0}, {0, 0, 0}, {0, 0, 0}},
		Vectors: [][3]float64{{0.1, 0, 0}, {0, 0.1, 0}, {0, 0, 0.1}},
		Colors:  [][3]float64{{1, 0, 0}, {0, 1, 0}, {0, 0, 1}},
		Labels:  []string{"X", "Y", "Z"},
	}
}

// SetupScene initializes r and draws the coordinate frame and the cube
// model.
func SetupScene(ctx context.Context, r ports.Renderer, cfg SceneConfig, logger ports.Logger) error {
	if cfg.Name == "" {
		cfg.Name = DefaultSceneName
	}
	if cfg.Entity == "" {
		cfg.Entity = DefaultEntityPath
	}

	logger.Info("load", ports.String("asset", cfg.AssetPath))
	if err := r.Init(ctx, cfg.Name); err != nil {
		return fmt.Errorf("init renderer: %w", err)
	}

	if err := r.LogStatic(WorldPath, domain.ViewCoordinates{System: domain.RightHandZDown}); err != nil {
		return fmt.Errorf("log view coordinates: %w", err)
	}
	if cfg.MatImage != "" {
		if err := r.LogStatic(MatPath, domain.EncodedImage{Path: cfg.MatImage}); err != nil {
			return fmt.Errorf("log mat image: %w", err)
		}
	}
	if err := r.Log(AxisPath, AxisArrows()); err != nil {
		return fmt.Errorf("log axis: %w", err)
	}
	if err := r.Log(cfg.Entity, domain.Asset3D{Path: cfg.AssetPath}); err != nil {
		return fmt.Errorf("log asset: %w", err)
	}
	return nil
}
