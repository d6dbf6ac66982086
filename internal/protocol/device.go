package protocol

import "github.com/google/uuid"

// Device namespace messages. Field order is wire order; strings carry their
// fixed capacity in the lifx tag.

type SetSite struct {
	Site Site
}

type GetPanGateway struct{}

type StatePanGateway struct {
	Service Service
	Port    uint32
}

type GetTime struct{}

type SetTime struct {
	Time uint64
}

type StateTime struct {
	Time uint64
}

type GetResetSwitch struct{}

type StateResetSwitch struct {
	Position uint8
}

type GetDummyLoad struct{}

type SetDummyLoad struct {
	On bool
}

type StateDummyLoad struct {
	On bool
}

type GetMeshInfo struct{}

// StateMeshInfo reports radio statistics for the mesh interface.
type StateMeshInfo struct {
	Signal         float32
	Tx             uint32
	Rx             uint32
	McuTemperature int16
}

type GetMeshFirmware struct{}

type StateMeshFirmware struct {
	Build   uint64
	Install uint64
	Version uint32
}

type GetWifiInfo struct{}

type StateWifiInfo struct {
	Signal         float32
	Tx             uint32
	Rx             uint32
	McuTemperature int16
}

type GetWifiFirmware struct{}

type StateWifiFirmware struct {
	Build   uint64
	Install uint64
	Version uint32
}

type GetPower struct{}

type SetPower struct {
	Level uint16
}

type StatePower struct {
	Level uint16
}

type GetLabel struct{}

type SetLabel struct {
	Label string `lifx:"size=32"`
}

type StateLabel struct {
	Label string `lifx:"size=32"`
}

type GetTags struct{}

type SetTags struct {
	Tags uint64
}

type StateTags struct {
	Tags uint64
}

type GetTagLabels struct {
	Tags uint64
}

type SetTagLabels struct {
	Tags  uint64
	Label string `lifx:"size=32"`
}

type StateTagLabels struct {
	Tags  uint64
	Label string `lifx:"size=32"`
}

type GetVersion struct{}

type StateVersion struct {
	Vendor  uint32
	Product uint32
	Version uint32
}

type GetInfo struct{}

// StateInfo carries device clock, uptime and downtime in nanoseconds.
type StateInfo struct {
	Time     uint64
	Uptime   uint64
	Downtime uint64
}

type GetMcuRailVoltage struct{}

type StateMcuRailVoltage struct {
	Voltage uint32
}

type Reboot struct{}

type SetFactoryTestMode struct {
	On bool
}

type DisableFactoryTestMode struct{}

type StateFactoryTestMode struct {
	On       bool
	Disabled bool
}

type GetLocation struct{}

type SetLocation struct {
	Location  uuid.UUID
	Label     string `lifx:"size=32"`
	UpdatedAt uint64
}

type StateLocation struct {
	Location  uuid.UUID
	Label     string `lifx:"size=32"`
	UpdatedAt uint64
}

type GetGroup struct{}

type SetGroup struct {
	Group     uuid.UUID
	Label     string `lifx:"size=32"`
	UpdatedAt uint64
}

type StateGroup struct {
	Group     uuid.UUID
	Label     string `lifx:"size=32"`
	UpdatedAt uint64
}

type EchoRequest struct {
	Payload [EchoPayloadSize]byte
}

type EchoResponse struct {
	Payload [EchoPayloadSize]byte
}

func (SetSite) Type() MessageType                { return 1 }
func (GetPanGateway) Type() MessageType          { return 2 }
func (StatePanGateway) Type() MessageType        { return 3 }
func (GetTime) Type() MessageType                { return 4 }
func (SetTime) Type() MessageType                { return 5 }
func (StateTime) Type() MessageType              { return 6 }
func (GetResetSwitch) Type() MessageType         { return 7 }
func (StateResetSwitch) Type() MessageType       { return 8 }
func (GetDummyLoad) Type() MessageType           { return 9 }
func (SetDummyLoad) Type() MessageType           { return 10 }
func (StateDummyLoad) Type() MessageType         { return 11 }
func (GetMeshInfo) Type() MessageType            { return 12 }
func (StateMeshInfo) Type() MessageType          { return 13 }
func (GetMeshFirmware) Type() MessageType        { return 14 }
func (StateMeshFirmware) Type() MessageType      { return 15 }
func (GetWifiInfo) Type() MessageType            { return 16 }
func (StateWifiInfo) Type() MessageType          { return 17 }
func (GetWifiFirmware) Type() MessageType        { return 18 }
func (StateWifiFirmware) Type() MessageType      { return 19 }
func (GetPower) Type() MessageType               { return 20 }
func (SetPower) Type() MessageType               { return 21 }
func (StatePower) Type() MessageType             { return 22 }
func (GetLabel) Type() MessageType               { return 23 }
func (SetLabel) Type() MessageType               { return 24 }
func (StateLabel) Type() MessageType             { return 25 }
func (GetTags) Type() MessageType                { return 26 }
func (SetTags) Type() MessageType                { return 27 }
func (StateTags) Type() MessageType              { return 28 }
func (GetTagLabels) Type() MessageType           { return 29 }
func (SetTagLabels) Type() MessageType           { return 30 }
func (StateTagLabels) Type() MessageType         { return 31 }
func (GetVersion) Type() MessageType             { return 32 }
func (StateVersion) Type() MessageType           { return 33 }
func (GetInfo) Type() MessageType                { return 34 }
func (StateInfo) Type() MessageType              { return 35 }
func (GetMcuRailVoltage) Type() MessageType      { return 36 }
func (StateMcuRailVoltage) Type() MessageType    { return 37 }
func (Reboot) Type() MessageType                 { return 38 }
func (SetFactoryTestMode) Type() MessageType     { return 39 }
func (DisableFactoryTestMode) Type() MessageType { return 40 }
func (StateFactoryTestMode) Type() MessageType   { return 41 }
func (GetLocation) Type() MessageType            { return 48 }
func (SetLocation) Type() MessageType            { return 49 }
func (StateLocation) Type() MessageType          { return 50 }
func (GetGroup) Type() MessageType               { return 51 }
func (SetGroup) Type() MessageType               { return 52 }
func (StateGroup) Type() MessageType             { return 53 }
func (EchoRequest) Type() MessageType            { return 58 }
func (EchoResponse) Type() MessageType           { return 59 }
