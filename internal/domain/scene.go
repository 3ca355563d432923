package domain

// Record is a value a renderer can log at an entity path.
type Record interface {
	// Kind names the record type on the wire (e.g. "pose", "asset3d").
	Kind() string
}

// PoseUpdate is the renderer-facing orientation of an entity.
// Quaternion is stored in x, y, z, w order.
type PoseUpdate struct {
	Quaternion [4]float64 `json:"quaternion_xyzw"`
}

func (PoseUpdate) Kind() string { return "pose" }

// Coordinate systems understood by the viewer.
const (
	RightHandZDown = "RIGHT_HAND_Z_DOWN"
	RightHandZUp   = "RIGHT_HAND_Z_UP"
)

// ViewCoordinates declares the axis convention of an entity subtree.
type ViewCoordinates struct {
	System string `json:"system"`
}

func (ViewCoordinates) Kind() string { return "view_coordinates" }

// Arrows3D is a batch of arrows, typically used to annotate axes.
type Arrows3D struct {
	Origins [][3]float64 `json:"origins"`
	Vectors [][3]float64 `json:"vectors"`
	Colors  [][3]float64 `json:"colors"`
	Labels  []string     `json:"labels"`
}

func (Arrows3D) Kind() string { return "arrows3d" }

// Asset3D references a mesh file (glTF, GLB, OBJ) rendered at the entity.
type Asset3D struct {
	Path string `json:"path"`
}

func (Asset3D) Kind() string { return "asset3d" }

// EncodedImage references an encoded image file (PNG, JPEG).
type EncodedImage struct {
	Path string `json:"path"`
}

func (EncodedImage) Kind() string { return "encoded_image" }

// Envelope is the wire form of a logged record used by network sinks.
type Envelope struct {
	Scene  string `json:"scene,omitempty"`
	Path   string `json:"path"`
	Kind   string `json:"kind"`
	Static bool   `json:"static"`
	Data   Record `json:"data"`
}

// NewEnvelope wraps rec for transmission.
func NewEnvelope(scene, path string, rec Record, static bool) Envelope {
	return Envelope{
		Scene:  scene,
		Path:   path,
		Kind:   rec.Kind(),
		Static: static,
		Data:   rec,
	}
}
