package protocol

// Light namespace messages.

type LightGet struct{}

type LightSetColor struct {
	Stream   uint8
	Color    HSBK
	Duration uint32 // milliseconds
}

type LightSetWaveform struct {
	Stream    uint8
	Transient bool
	Color     HSBK
	Period    uint32 // milliseconds
	Cycles    float32
	SkewRatio int16
	Waveform  Waveform
}

type LightSetDimAbsolute struct {
	Brightness int16
	Duration   uint32
}

type LightSetDimRelative struct {
	Brightness int32
	Duration   uint32
}

// LightState is the full light state reply to LightGet.
type LightState struct {
	Color HSBK
	Dim   int16
	Power uint16
	Label string `lifx:"size=32"`
	Tags  uint64
}

type LightGetPower struct{}

type LightSetPower struct {
	Level    uint16
	Duration uint32
}

type LightStatePower struct {
	Level uint16
}

func (LightGet) Type() MessageType            { return 101 }
func (LightSetColor) Type() MessageType       { return 102 }
func (LightSetWaveform) Type() MessageType    { return 103 }
func (LightSetDimAbsolute) Type() MessageType { return 104 }
func (LightSetDimRelative) Type() MessageType { return 105 }
func (LightState) Type() MessageType          { return 107 }
func (LightGetPower) Type() MessageType       { return 116 }
func (LightSetPower) Type() MessageType       { return 117 }
func (LightStatePower) Type() MessageType     { return 118 }
