package protocol

import (
	"errors"
	"fmt"
	"reflect"
	"sort"
	"strconv"
	"strings"

	"lifx-monitor/internal/wire"
)

// Message is implemented by every payload type in the catalog. Type methods
// use value receivers, so both T and *T satisfy it. Decoded messages are
// always pointers.
type Message interface {
	Type() MessageType
}

// Unknown carries a payload whose type code is not in the catalog.
type Unknown struct {
	Code    MessageType
	Payload []byte
}

func (u Unknown) Type() MessageType { return u.Code }

// Acknowledgement is sent by a device when a packet asked for an ack.
type Acknowledgement struct{}

func (Acknowledgement) Type() MessageType { return 45 }

// Descriptor describes one message type: its code, classification and the
// fixed payload layout derived from its Go struct.
type Descriptor struct {
	Type      MessageType
	Name      string
	Namespace Namespace
	Kind      Kind
	Size      int

	goType reflect.Type
	fields []fieldCodec
}

type fieldCodec struct {
	name  string
	index []int
	kind  reflect.Kind
	size  int
}

type entry struct {
	kind  Kind
	proto Message
}

type catalog struct {
	byType   map[MessageType]*Descriptor
	byGoType map[reflect.Type]*Descriptor
}

// messages is built once at init and never mutated.
var messages = mustCatalog([]entry{
	{KindCommand, SetSite{}},
	{KindQuery, GetPanGateway{}},
	{KindState, StatePanGateway{}},
	{KindQuery, GetTime{}},
	{KindCommand, SetTime{}},
	{KindState, StateTime{}},
	{KindQuery, GetResetSwitch{}},
	{KindState, StateResetSwitch{}},
	{KindQuery, GetDummyLoad{}},
	{KindCommand, SetDummyLoad{}},
	{KindState, StateDummyLoad{}},
	{KindQuery, GetMeshInfo{}},
	{KindState, StateMeshInfo{}},
	{KindQuery, GetMeshFirmware{}},
	{KindState, StateMeshFirmware{}},
	{KindQuery, GetWifiInfo{}},
	{KindState, StateWifiInfo{}},
	{KindQuery, GetWifiFirmware{}},
	{KindState, StateWifiFirmware{}},
	{KindQuery, GetPower{}},
	{KindCommand, SetPower{}},
	{KindState, StatePower{}},
	{KindQuery, GetLabel{}},
	{KindCommand, SetLabel{}},
	{KindState, StateLabel{}},
	{KindQuery, GetTags{}},
	{KindCommand, SetTags{}},
	{KindState, StateTags{}},
	{KindQuery, GetTagLabels{}},
	{KindCommand, SetTagLabels{}},
	{KindState, StateTagLabels{}},
	{KindQuery, GetVersion{}},
	{KindState, StateVersion{}},
	{KindQuery, GetInfo{}},
	{KindState, StateInfo{}},
	{KindQuery, GetMcuRailVoltage{}},
	{KindState, StateMcuRailVoltage{}},
	{KindCommand, Reboot{}},
	{KindCommand, SetFactoryTestMode{}},
	{KindCommand, DisableFactoryTestMode{}},
	{KindState, StateFactoryTestMode{}},
	{KindState, Acknowledgement{}},
	{KindQuery, GetLocation{}},
	{KindCommand, SetLocation{}},
	{KindState, StateLocation{}},
	{KindQuery, GetGroup{}},
	{KindCommand, SetGroup{}},
	{KindState, StateGroup{}},
	{KindQuery, EchoRequest{}},
	{KindState, EchoResponse{}},

	{KindQuery, LightGet{}},
	{KindCommand, LightSetColor{}},
	{KindCommand, LightSetWaveform{}},
	{KindCommand, LightSetDimAbsolute{}},
	{KindCommand, LightSetDimRelative{}},
	{KindState, LightState{}},
	{KindQuery, LightGetPower{}},
	{KindCommand, LightSetPower{}},
	{KindState, LightStatePower{}},
})

func mustCatalog(entries []entry) *catalog {
	c, err := newCatalog(entries)
	if err != nil {
		panic(err)
	}
	return c
}

func newCatalog(entries []entry) (*catalog, error) {
	c := &catalog{
		byType:   make(map[MessageType]*Descriptor, len(entries)),
		byGoType: make(map[reflect.Type]*Descriptor, len(entries)),
	}
	for _, e := range entries {
		t := reflect.TypeOf(e.proto)
		fields, size, err := layoutOf(t, nil)
		if err != nil {
			return nil, fmt.Errorf("protocol: %s: %w", t.Name(), err)
		}
		d := &Descriptor{
			Type:      e.proto.Type(),
			Name:      t.Name(),
			Namespace: namespaceOf(e.proto.Type()),
			Kind:      e.kind,
			Size:      size,
			goType:    t,
			fields:    fields,
		}
		if prev, dup := c.byType[d.Type]; dup {
			return nil, fmt.Errorf("protocol: type %d registered twice (%s, %s)", d.Type, prev.Name, d.Name)
		}
		c.byType[d.Type] = d
		c.byGoType[t] = d
	}
	return c, nil
}

// layoutOf flattens a struct into its sequential wire fields.
func layoutOf(t reflect.Type, prefix []int) ([]fieldCodec, int, error) {
	var fields []fieldCodec
	total := 0
	for i := 0; i < t.NumField(); i++ {
		sf := t.Field(i)
		index := append(append([]int(nil), prefix...), i)
		fc := fieldCodec{name: sf.Name, index: index, kind: sf.Type.Kind()}

		switch sf.Type.Kind() {
		case reflect.Uint8, reflect.Bool:
			fc.size = 1
		case reflect.Uint16, reflect.Int16:
			fc.size = 2
		case reflect.Uint32, reflect.Int32, reflect.Float32:
			fc.size = 4
		case reflect.Uint64:
			fc.size = 8
		case reflect.String:
			n, err := tagSize(sf.Tag.Get("lifx"))
			if err != nil {
				return nil, 0, fmt.Errorf("field %s: %w", sf.Name, err)
			}
			fc.size = n
		case reflect.Array:
			if sf.Type.Elem().Kind() != reflect.Uint8 {
				return nil, 0, fmt.Errorf("field %s: only byte arrays are supported", sf.Name)
			}
			fc.size = sf.Type.Len()
		case reflect.Struct:
			nested, n, err := layoutOf(sf.Type, index)
			if err != nil {
				return nil, 0, err
			}
			fields = append(fields, nested...)
			total += n
			continue
		default:
			return nil, 0, fmt.Errorf("field %s: unsupported kind %s", sf.Name, sf.Type.Kind())
		}

		fields = append(fields, fc)
		total += fc.size
	}
	return fields, total, nil
}

func tagSize(tag string) (int, error) {
	for _, part := range strings.Split(tag, ",") {
		if v, ok := strings.CutPrefix(part, "size="); ok {
			n, err := strconv.Atoi(v)
			if err != nil || n <= 0 {
				return 0, fmt.Errorf("invalid size %q", v)
			}
			return n, nil
		}
	}
	return 0, errors.New("string field needs a lifx:\"size=N\" tag")
}

// Lookup returns the descriptor for a type code.
func Lookup(t MessageType) (Descriptor, bool) {
	d, ok := messages.byType[t]
	if !ok {
		return Descriptor{}, false
	}
	return *d, true
}

// Descriptors returns every known descriptor ordered by type code.
func Descriptors() []Descriptor {
	out := make([]Descriptor, 0, len(messages.byType))
	for _, d := range messages.byType {
		out = append(out, *d)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].Type < out[j].Type
	})
	return out
}

// PayloadSize returns the payload size for a type code, or -1 if the code is
// unknown.
func PayloadSize(t MessageType) int {
	if d, ok := messages.byType[t]; ok {
		return d.Size
	}
	return -1
}

// Name returns a printable name for a type code.
func Name(t MessageType) string {
	if d, ok := messages.byType[t]; ok {
		return d.Name
	}
	return fmt.Sprintf("Unknown(%d)", t)
}

// DecodePayload decodes the payload of type t found at buf[off:]. Bytes past
// the descriptor's size are ignored. Unknown codes yield an *Unknown holding
// a copy of the remaining bytes.
func DecodePayload(t MessageType, buf []byte, off int) (Message, error) {
	off = min(max(off, 0), len(buf))
	have := len(buf) - off

	d, ok := messages.byType[t]
	if !ok {
		payload := make([]byte, have)
		copy(payload, buf[off:])
		return &Unknown{Code: t, Payload: payload}, nil
	}

	if have < d.Size {
		return nil, &DecodeError{Type: t, Name: d.Name, Need: d.Size, Have: have}
	}

	v := reflect.New(d.goType)
	elem := v.Elem()
	r := wire.NewReader(buf[off:off+d.Size], 0)
	for _, f := range d.fields {
		fv := elem.FieldByIndex(f.index)
		switch f.kind {
		case reflect.Uint8:
			fv.SetUint(uint64(r.Uint8()))
		case reflect.Uint16:
			fv.SetUint(uint64(r.Uint16()))
		case reflect.Uint32:
			fv.SetUint(uint64(r.Uint32()))
		case reflect.Uint64:
			fv.SetUint(r.Uint64())
		case reflect.Int16:
			fv.SetInt(int64(r.Int16()))
		case reflect.Int32:
			fv.SetInt(int64(r.Int32()))
		case reflect.Float32:
			fv.SetFloat(float64(r.Float32()))
		case reflect.Bool:
			fv.SetBool(r.Bool())
		case reflect.String:
			fv.SetString(r.String(f.size))
		case reflect.Array:
			r.BytesInto(fv.Slice(0, f.size).Bytes())
		}
	}
	if err := r.Err(); err != nil {
		return nil, fmt.Errorf("decode %s: %w", d.Name, err)
	}
	return v.Interface().(Message), nil
}

// EncodePayload encodes msg into a new slice of exactly its payload size.
func EncodePayload(msg Message) ([]byte, error) {
	switch u := msg.(type) {
	case *Unknown:
		return append([]byte(nil), u.Payload...), nil
	case Unknown:
		return append([]byte(nil), u.Payload...), nil
	}

	v := reflect.ValueOf(msg)
	if v.Kind() == reflect.Pointer {
		if v.IsNil() {
			return nil, &EncodeError{Err: errors.New("nil message")}
		}
		v = v.Elem()
	}

	d, ok := messages.byGoType[v.Type()]
	if !ok {
		return nil, &EncodeError{Type: msg.Type(), Err: fmt.Errorf("%s is not a catalog message", v.Type())}
	}

	// Work on an addressable copy so byte arrays can be sliced.
	cp := reflect.New(d.goType).Elem()
	cp.Set(v)

	buf := make([]byte, d.Size)
	w := wire.NewWriter(buf)
	for _, f := range d.fields {
		fv := cp.FieldByIndex(f.index)
		switch f.kind {
		case reflect.Uint8:
			w.Uint8(uint8(fv.Uint()))
		case reflect.Uint16:
			w.Uint16(uint16(fv.Uint()))
		case reflect.Uint32:
			w.Uint32(uint32(fv.Uint()))
		case reflect.Uint64:
			w.Uint64(fv.Uint())
		case reflect.Int16:
			w.Int16(int16(fv.Int()))
		case reflect.Int32:
			w.Int32(int32(fv.Int()))
		case reflect.Float32:
			w.Float32(float32(fv.Float()))
		case reflect.Bool:
			w.Bool(fv.Bool())
		case reflect.String:
			w.String(f.name, fv.String(), f.size)
		case reflect.Array:
			w.Bytes(f.name, fv.Slice(0, f.size).Bytes(), f.size)
		}
	}
	if err := w.Err(); err != nil {
		return nil, &EncodeError{Type: d.Type, Name: d.Name, Err: err}
	}
	return buf, nil
}
