package toio

// GATT identifiers of the toio Core Cube.
const (
	ServiceUUID       = "10b20100-5b3b-4571-9508-cf3efcd7bbae"
	IDUUID            = "10b20101-5b3b-4571-9508-cf3efcd7bbae"
	MotorUUID         = "10b20102-5b3b-4571-9508-cf3efcd7bbae"
	LightUUID         = "10b20103-5b3b-4571-9508-cf3efcd7bbae"
	SoundUUID         = "10b20104-5b3b-4571-9508-cf3efcd7bbae"
	SensorUUID        = "10b20106-5b3b-4571-9508-cf3efcd7bbae"
	ButtonUUID        = "10b20107-5b3b-4571-9508-cf3efcd7bbae"
	BatteryUUID       = "10b20108-5b3b-4571-9508-cf3efcd7bbae"
	ConfigurationUUID = "10b201ff-5b3b-4571-9508-cf3efcd7bbae"
)

// DefaultLocalName is the name a cube advertises.
const DefaultLocalName = "toio Core Cube"
