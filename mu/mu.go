// Copyright 2021 Canonical Ltd.
// Licensed under the LGPLv3 with static-linking exception.
// See LICENCE file for details.

package mu

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"
	"reflect"
	"strings"

	"golang.org/x/xerrors"
)

var (
	customMuType reflect.Type = reflect.TypeOf((*customMuIface)(nil)).Elem()
	unionType    reflect.Type = reflect.TypeOf((*Union)(nil)).Elem()
	rawBytesType reflect.Type = reflect.TypeOf(RawBytes(nil))
)

type customMuIface interface {
	CustomMarshaller
	CustomUnmarshaller
}

// CustomMarshaller is implemented by types that require custom marshalling
// behaviour because they are non-standard and not directly supported by the
// marshalling code. Implementations must also implement CustomUnmarshaller.
type CustomMarshaller interface {
	Marshal(w io.Writer) error
}

// CustomUnmarshaller is implemented by types that require custom
// unmarshalling behaviour. It must be implemented with a pointer receiver.
type CustomUnmarshaller interface {
	Unmarshal(r Reader) error
}

// Reader groups io.Reader with a method to obtain the number of remaining
// bytes that can be read.
type Reader interface {
	io.Reader
	Len() int
}

// RawBytes is a byte slice that is marshalled and unmarshalled without a
// size field. The slice must be pre-allocated to the correct length by the
// caller during unmarshalling.
type RawBytes []byte

type empty struct{}

// NilUnionValue is a special value, returned from implementations of
// Union.Select to indicate that a union contains no data for a particular
// selector value.
var NilUnionValue empty

// Union is implemented by structure types that correspond to TPMU prefixed
// TPM types. Implementations must take a pointer receiver, and Select must
// return a pointer to the field selected by the supplied selector value,
// NilUnionValue if the selector marks an empty union, or nil if the selector
// value is invalid.
type Union interface {
	Select(selector reflect.Value) interface{}
}

// InvalidSelectorError is returned as a wrapped error from the unmarshalling
// functions when a union type indicates that a selector value is invalid.
type InvalidSelectorError struct {
	Selector reflect.Value
}

func (e *InvalidSelectorError) Error() string {
	return fmt.Sprintf("invalid selector value: %v", e.Selector)
}

// InvalidBoolValueError is returned as a wrapped error from the
// unmarshalling functions when an octet being decoded to a boolean has a
// value other than 0 or 1. The TPM defines a boolean to be exactly one of
// those two octets, so anything else is a protocol violation rather than a
// decoding choice.
type InvalidBoolValueError struct {
	Value uint8
}

func (e *InvalidBoolValueError) Error() string {
	return fmt.Sprintf("invalid boolean value: 0x%02x", e.Value)
}

// Error is returned from the marshalling and unmarshalling functions to
// provide context of where an error occurred.
type Error struct {
	// Index indicates the argument on which this error occurred.
	Index int

	Op   string
	path []string
	err  error
}

func (e *Error) Error() string {
	s := new(bytes.Buffer)
	fmt.Fprintf(s, "cannot %s argument %d", e.Op, e.Index)
	if len(e.path) > 0 {
		fmt.Fprintf(s, " (%s)", strings.Join(e.path, "."))
	}
	fmt.Fprintf(s, ": %v", e.err)
	return s.String()
}

func (e *Error) Unwrap() error {
	return e.err
}

type options struct {
	selector string
	sized    bool
	raw      bool
}

func parseStructFieldMuOptions(f reflect.StructField) (out options) {
	s := f.Tag.Get("tpm2")
	for _, part := range strings.Split(s, ",") {
		switch {
		case strings.HasPrefix(part, "selector:"):
			out.selector = part[9:]
		case part == "sized":
			out.sized = true
		case part == "raw":
			out.raw = true
		}
	}
	return
}

type wrappedValue struct {
	value interface{}
	opts  options
}

// Raw converts the supplied value, which should be a slice, to one that is
// marshalled and unmarshalled without a corresponding size or length field.
func Raw(val interface{}) *wrappedValue {
	return &wrappedValue{value: val, opts: options{raw: true}}
}

// Sized converts the supplied value, which must be a pointer, to one that is
// marshalled and unmarshalled with a 16-bit size field.
func Sized(val interface{}) *wrappedValue {
	return &wrappedValue{value: val, opts: options{sized: true}}
}

type context struct {
	op      string
	index   int
	path    []string
	parent  reflect.Value
	options options
}

func (c *context) enterStructField(s reflect.Value, i int) (f reflect.Value, exit func()) {
	origOptions := c.options
	origParent := c.parent
	c.options = parseStructFieldMuOptions(s.Type().Field(i))
	c.parent = s
	c.path = append(c.path, s.Type().Field(i).Name)

	return s.Field(i), func() {
		c.path = c.path[:len(c.path)-1]
		c.parent = origParent
		c.options = origOptions
	}
}

func (c *context) enterListElem(l reflect.Value, i int) (elem reflect.Value, exit func()) {
	origOptions := c.options
	origParent := c.parent
	c.options = options{}
	c.parent = reflect.Value{}
	c.path = append(c.path, fmt.Sprintf("[%d]", i))

	return l.Index(i), func() {
		c.path = c.path[:len(c.path)-1]
		c.parent = origParent
		c.options = origOptions
	}
}

func (c *context) enterUnionElem(u reflect.Value) (elem reflect.Value, exit func(), err error) {
	if !c.parent.IsValid() {
		panic(fmt.Sprintf("union type %s is not inside a struct", u.Type()))
	}
	if c.options.selector == "" {
		panic(fmt.Sprintf("no selector member defined for union type %s", u.Type()))
	}

	selectorVal := c.parent.FieldByName(c.options.selector)
	if !selectorVal.IsValid() {
		panic(fmt.Sprintf("selector name %s for union type %s does not reference a valid field",
			c.options.selector, u.Type()))
	}

	p := u.Addr().Interface().(Union).Select(selectorVal)
	switch {
	case p == nil:
		return reflect.Value{}, nil, &InvalidSelectorError{selectorVal}
	case p == NilUnionValue:
		return reflect.Value{}, nil, nil
	}

	origOptions := c.options
	origParent := c.parent
	c.options.selector = ""
	c.parent = reflect.Value{}

	return reflect.ValueOf(p).Elem(), func() {
		c.parent = origParent
		c.options = origOptions
	}, nil
}

func (c *context) enterSizedType() (exit func()) {
	origOptions := c.options
	c.options.sized = false

	return func() {
		c.options = origOptions
	}
}

func (c *context) newError(err error) error {
	if err == io.EOF {
		// All io.EOF is unexpected here.
		err = io.ErrUnexpectedEOF
	}
	path := make([]string, len(c.path))
	copy(path, c.path)
	return &Error{Index: c.index, Op: c.op, path: path, err: err}
}

type muKind int

const (
	kindUnsupported muKind = iota
	kindPrimitive
	kindSized
	kindList
	kindStruct
	kindUnion
	kindCustom
	kindRawBytes
)

func kindOf(t reflect.Type) muKind {
	if reflect.PtrTo(t).Implements(customMuType) {
		return kindCustom
	}

	switch t.Kind() {
	case reflect.Bool, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return kindPrimitive
	case reflect.Slice:
		switch {
		case t == rawBytesType:
			return kindRawBytes
		case t.Elem().Kind() == reflect.Uint8:
			return kindSized
		}
		return kindList
	case reflect.Struct:
		if reflect.PtrTo(t).Implements(unionType) {
			return kindUnion
		}
		return kindStruct
	default:
		return kindUnsupported
	}
}

type marshaller struct {
	*context
	w      io.Writer
	nbytes int
}

func (m *marshaller) Write(p []byte) (n int, err error) {
	n, err = m.w.Write(p)
	m.nbytes += n
	return
}

func (m *marshaller) marshalSized(v reflect.Value) error {
	exit := m.enterSizedType()
	defer exit()

	if v.Kind() == reflect.Ptr && v.IsNil() {
		if err := binary.Write(m, binary.BigEndian, uint16(0)); err != nil {
			return m.newError(err)
		}
		return nil
	}

	tmpBuf := new(bytes.Buffer)
	sm := &marshaller{context: m.context, w: tmpBuf}
	if err := sm.marshalValue(v); err != nil {
		return err
	}
	if tmpBuf.Len() > math.MaxUint16 {
		return m.newError(errors.New("sized value size greater than 2^16-1"))
	}
	if err := binary.Write(m, binary.BigEndian, uint16(tmpBuf.Len())); err != nil {
		return m.newError(err)
	}
	if _, err := tmpBuf.WriteTo(m); err != nil {
		return m.newError(err)
	}
	return nil
}

func (m *marshaller) marshalSizedBytes(v reflect.Value) error {
	if v.Len() > math.MaxUint16 {
		return m.newError(errors.New("sized buffer length greater than 2^16-1"))
	}
	if err := binary.Write(m, binary.BigEndian, uint16(v.Len())); err != nil {
		return m.newError(err)
	}
	if _, err := m.Write(v.Bytes()); err != nil {
		return m.newError(err)
	}
	return nil
}

func (m *marshaller) marshalRawList(v reflect.Value) error {
	for i := 0; i < v.Len(); i++ {
		elem, exit := m.enterListElem(v, i)
		if err := m.marshalValue(elem); err != nil {
			exit()
			return err
		}
		exit()
	}
	return nil
}

func (m *marshaller) marshalRaw(v reflect.Value) error {
	if v.Type().Elem().Kind() == reflect.Uint8 {
		if _, err := m.Write(v.Bytes()); err != nil {
			return m.newError(err)
		}
		return nil
	}
	return m.marshalRawList(v)
}

func (m *marshaller) marshalList(v reflect.Value) error {
	if int64(v.Len()) > math.MaxUint32 {
		return m.newError(errors.New("list length greater than 2^32-1"))
	}
	if err := binary.Write(m, binary.BigEndian, uint32(v.Len())); err != nil {
		return m.newError(err)
	}
	return m.marshalRawList(v)
}

func (m *marshaller) marshalStruct(v reflect.Value) error {
	for i := 0; i < v.NumField(); i++ {
		f, exit := m.enterStructField(v, i)
		if err := m.marshalValue(f); err != nil {
			exit()
			return err
		}
		exit()
	}
	return nil
}

func (m *marshaller) marshalUnion(v reflect.Value) error {
	// An invalid selector is ignored during marshalling so that
	// domain-to-wire conversion is total. The TPM rejects a malformed
	// parameter area itself.
	elem, exit, _ := m.enterUnionElem(v)
	if !elem.IsValid() {
		return nil
	}
	defer exit()
	return m.marshalValue(elem)
}

func (m *marshaller) marshalPrimitive(v reflect.Value) error {
	if v.Kind() == reflect.Bool {
		b := uint8(0)
		if v.Bool() {
			b = 1
		}
		if err := binary.Write(m, binary.BigEndian, b); err != nil {
			return m.newError(err)
		}
		return nil
	}
	if err := binary.Write(m, binary.BigEndian, v.Interface()); err != nil {
		return m.newError(err)
	}
	return nil
}

func (m *marshaller) marshalPtr(v reflect.Value) error {
	p := v
	if v.IsNil() {
		p = reflect.New(v.Type().Elem())
	}
	return m.marshalValue(p.Elem())
}

func (m *marshaller) marshalCustom(v reflect.Value) error {
	if !v.Type().Implements(customMuType) {
		v = v.Addr()
	}
	if err := v.Interface().(CustomMarshaller).Marshal(m); err != nil {
		return m.newError(err)
	}
	return nil
}

func (m *marshaller) marshalValue(v reflect.Value) error {
	switch {
	case m.options.sized && kindOf(v.Type()) != kindSized:
		return m.marshalSized(v)
	case m.options.raw:
		return m.marshalRaw(v)
	}

	if v.Kind() == reflect.Ptr {
		return m.marshalPtr(v)
	}

	switch kindOf(v.Type()) {
	case kindPrimitive:
		return m.marshalPrimitive(v)
	case kindSized:
		return m.marshalSizedBytes(v)
	case kindList:
		return m.marshalList(v)
	case kindStruct:
		return m.marshalStruct(v)
	case kindUnion:
		return m.marshalUnion(v)
	case kindCustom:
		return m.marshalCustom(v)
	case kindRawBytes:
		return m.marshalRaw(v)
	}

	panic(fmt.Sprintf("cannot marshal unsupported type %s", v.Type()))
}

func (m *marshaller) marshal(vals ...interface{}) (int, error) {
	for i, v := range vals {
		m.index = i
		m.options = options{}
		if w, isWrapped := v.(*wrappedValue); isWrapped {
			m.options = w.opts
			v = w.value
		}
		if err := m.marshalValue(reflect.ValueOf(v)); err != nil {
			return m.nbytes, err
		}
	}
	return m.nbytes, nil
}

type unmarshaller struct {
	*context
	r      io.Reader
	sz     int64
	nbytes int
}

func (u *unmarshaller) Read(p []byte) (n int, err error) {
	n, err = u.r.Read(p)
	u.nbytes += n
	return
}

func (u *unmarshaller) Len() int {
	return int(u.sz - int64(u.nbytes))
}

func readerSize(r io.Reader) int64 {
	switch rImpl := r.(type) {
	case *bytes.Reader:
		return int64(rImpl.Len())
	case *bytes.Buffer:
		return int64(rImpl.Len())
	case *io.LimitedReader:
		sz := readerSize(rImpl.R)
		if rImpl.N < sz {
			sz = rImpl.N
		}
		return sz
	default:
		return 1<<63 - 1
	}
}

func (u *unmarshaller) unmarshalSized(v reflect.Value) error {
	exit := u.enterSizedType()
	defer exit()

	var size uint16
	if err := binary.Read(u, binary.BigEndian, &size); err != nil {
		return u.newError(err)
	}

	switch {
	case size == 0:
		return nil
	case int(size) > u.Len():
		return u.newError(errors.New("sized value has a size larger than the remaining bytes"))
	}

	su := &unmarshaller{context: u.context, r: io.LimitReader(u, int64(size)), sz: int64(size)}
	return su.unmarshalValue(v)
}

func (u *unmarshaller) unmarshalSizedBytes(v reflect.Value) error {
	var size uint16
	if err := binary.Read(u, binary.BigEndian, &size); err != nil {
		return u.newError(err)
	}
	if int(size) > u.Len() {
		return u.newError(errors.New("sized buffer has a size larger than the remaining bytes"))
	}

	v.Set(reflect.MakeSlice(v.Type(), int(size), int(size)))
	if _, err := io.ReadFull(u, v.Bytes()); err != nil {
		return u.newError(err)
	}
	return nil
}

func (u *unmarshaller) unmarshalRawList(v reflect.Value, n int) (reflect.Value, error) {
	for i := 0; i < n; i++ {
		v = reflect.Append(v, reflect.Zero(v.Type().Elem()))
		elem, exit := u.enterListElem(v, i)
		if err := u.unmarshalValue(elem); err != nil {
			exit()
			return reflect.Value{}, err
		}
		exit()
	}
	return v, nil
}

func (u *unmarshaller) unmarshalRaw(v reflect.Value) error {
	if v.Type().Elem().Kind() == reflect.Uint8 {
		if _, err := io.ReadFull(u, v.Bytes()); err != nil {
			return u.newError(err)
		}
		return nil
	}
	s, err := u.unmarshalRawList(v.Slice(0, 0), v.Len())
	if err != nil {
		return err
	}
	v.Set(s)
	return nil
}

func (u *unmarshaller) unmarshalList(v reflect.Value) error {
	var length uint32
	if err := binary.Read(u, binary.BigEndian, &length); err != nil {
		return u.newError(err)
	}
	s, err := u.unmarshalRawList(reflect.MakeSlice(v.Type(), 0, 0), int(length))
	if err != nil {
		return err
	}
	v.Set(s)
	return nil
}

func (u *unmarshaller) unmarshalStruct(v reflect.Value) error {
	for i := 0; i < v.NumField(); i++ {
		f, exit := u.enterStructField(v, i)
		if err := u.unmarshalValue(f); err != nil {
			exit()
			return err
		}
		exit()
	}
	return nil
}

func (u *unmarshaller) unmarshalUnion(v reflect.Value) error {
	elem, exit, err := u.enterUnionElem(v)
	if err != nil {
		return u.newError(err)
	}
	if !elem.IsValid() {
		return nil
	}
	defer exit()
	return u.unmarshalValue(elem)
}

func (u *unmarshaller) unmarshalPrimitive(v reflect.Value) error {
	if v.Kind() == reflect.Bool {
		var b uint8
		if err := binary.Read(u, binary.BigEndian, &b); err != nil {
			return u.newError(err)
		}
		if b > 1 {
			return u.newError(&InvalidBoolValueError{b})
		}
		v.SetBool(b == 1)
		return nil
	}
	if err := binary.Read(u, binary.BigEndian, v.Addr().Interface()); err != nil {
		return u.newError(err)
	}
	return nil
}

func (u *unmarshaller) unmarshalPtr(v reflect.Value) error {
	if v.IsNil() {
		v.Set(reflect.New(v.Type().Elem()))
	}
	return u.unmarshalValue(v.Elem())
}

func (u *unmarshaller) unmarshalCustom(v reflect.Value) error {
	if v.Kind() != reflect.Ptr {
		v = v.Addr()
	}
	if err := v.Interface().(CustomUnmarshaller).Unmarshal(u); err != nil {
		return u.newError(err)
	}
	return nil
}

func (u *unmarshaller) unmarshalValue(v reflect.Value) error {
	switch {
	case u.options.sized && kindOf(v.Type()) != kindSized:
		return u.unmarshalSized(v)
	case u.options.raw:
		return u.unmarshalRaw(v)
	}

	if v.Kind() == reflect.Ptr {
		return u.unmarshalPtr(v)
	}

	switch kindOf(v.Type()) {
	case kindPrimitive:
		return u.unmarshalPrimitive(v)
	case kindSized:
		return u.unmarshalSizedBytes(v)
	case kindList:
		return u.unmarshalList(v)
	case kindStruct:
		return u.unmarshalStruct(v)
	case kindUnion:
		return u.unmarshalUnion(v)
	case kindCustom:
		return u.unmarshalCustom(v)
	case kindRawBytes:
		return u.unmarshalRaw(v)
	}

	panic(fmt.Sprintf("cannot unmarshal unsupported type %s", v.Type()))
}

func (u *unmarshaller) unmarshal(vals ...interface{}) (int, error) {
	for i, v := range vals {
		u.index = i
		u.options = options{}
		if w, isWrapped := v.(*wrappedValue); isWrapped {
			u.options = w.opts
			v = w.value
		}

		val := reflect.ValueOf(v)
		if val.Kind() != reflect.Ptr {
			panic(fmt.Sprintf("cannot unmarshal to non-pointer type %s", val.Type()))
		}
		if val.IsNil() {
			panic(fmt.Sprintf("cannot unmarshal to nil pointer of type %s", val.Type()))
		}

		if err := u.unmarshalValue(val.Elem()); err != nil {
			return u.nbytes, err
		}
	}
	return u.nbytes, nil
}

// MarshalToWriter marshals vals to w in the TPM wire format, in the order in
// which they are provided. Pointers are automatically dereferenced, with nil
// pointers marshalled as the zero value of the pointed-to type.
//
// The number of bytes written to w are returned. If this function does not
// complete successfully, it will return an error and the number of bytes
// written.
func MarshalToWriter(w io.Writer, vals ...interface{}) (int, error) {
	m := &marshaller{context: &context{op: "marshal"}, w: w}
	return m.marshal(vals...)
}

// MarshalToBytes marshals vals to a new byte slice in the TPM wire format,
// in the order in which they are provided.
func MarshalToBytes(vals ...interface{}) ([]byte, error) {
	buf := new(bytes.Buffer)
	if _, err := MarshalToWriter(buf, vals...); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// MustMarshalToBytes is the same as MarshalToBytes, except that it panics if
// it encounters an error.
func MustMarshalToBytes(vals ...interface{}) []byte {
	b, err := MarshalToBytes(vals...)
	if err != nil {
		panic(err)
	}
	return b
}

// UnmarshalFromReader unmarshals data read from r to vals in the TPM wire
// format, in the order in which they are provided. Each of vals must be a
// non-nil pointer to the destination value.
//
// The number of bytes consumed from r are returned. If this function does
// not complete successfully, it will return an error and the number of bytes
// consumed.
func UnmarshalFromReader(r io.Reader, vals ...interface{}) (int, error) {
	u := &unmarshaller{context: &context{op: "unmarshal"}, r: r, sz: readerSize(r)}
	return u.unmarshal(vals...)
}

// UnmarshalFromBytes unmarshals data from b to vals in the TPM wire format,
// in the order in which they are provided. See UnmarshalFromReader.
func UnmarshalFromBytes(b []byte, vals ...interface{}) (int, error) {
	return UnmarshalFromReader(bytes.NewReader(b), vals...)
}

// IsInvalidSelector indicates whether the supplied error is or wraps an
// *InvalidSelectorError.
func IsInvalidSelector(err error) bool {
	var e *InvalidSelectorError
	return xerrors.As(err, &e)
}
