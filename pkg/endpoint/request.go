package endpoint

import (
	"context"
	"encoding"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"reflect"
	"sync"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/gorilla/schema"
)

// defaultMaxMemory bounds multipart form parsing.
const defaultMaxMemory = 32 << 20

// valueKey is the single key scalar values are decoded under.
const valueKey = "v"

var (
	// structDecoder binds struct parameters from query or form values.
	structDecoder = schema.NewDecoder()
	// valueDecoder converts scalar values; unknown keys are errors so an
	// unsupported type is reported rather than left zero.
	valueDecoder = schema.NewDecoder()

	wrappers sync.Map // reflect.Type -> wrapper struct type
)

func init() {
	structDecoder.IgnoreUnknownKeys(true)
}

// Request is the per-request context handed to handler closures and filters.
type Request struct {
	Request  *http.Request
	Writer   http.ResponseWriter
	Services *Services
}

// Context returns the request context.
func (r *Request) Context() context.Context {
	return r.Request.Context()
}

// File is an uploaded file with its header.
type File struct {
	multipart.File
	Header *multipart.FileHeader
}

var (
	contextType     = typeOf[context.Context]()
	httpRequestType = typeOf[*http.Request]()
	writerType      = typeOf[http.ResponseWriter]()
	requestType     = typeOf[*Request]()
	servicesType    = typeOf[*Services]()
	fileHeaderType  = typeOf[*multipart.FileHeader]()
	multipartType   = typeOf[multipart.File]()
	fileType        = typeOf[File]()
	filePtrType     = typeOf[*File]()
	uuidType        = typeOf[uuid.UUID]()
	textType        = typeOf[encoding.TextUnmarshaler]()
)

// Route binds a route parameter. A missing value is a bad request.
func Route[T any](r *Request, name string) (T, error) {
	var zero T
	raw := chi.URLParam(r.Request, name)
	if raw == "" {
		return zero, BadRequest(fmt.Errorf("missing route parameter %q", name))
	}
	return parseAs[T](raw, "route parameter", name)
}

// Query binds a query parameter. Slice types collect every value. A missing
// value yields the zero value. A struct type is filled from the whole query
// string, matching keys to fields by name or `schema` tag.
func Query[T any](r *Request, name string) (T, error) {
	var zero T
	if isStructParam(typeOf[T]()) {
		return decodeStruct[T](r.Request.URL.Query(), "query parameter", name)
	}
	values, ok := r.Request.URL.Query()[name]
	if !ok || len(values) == 0 {
		return zero, nil
	}
	return parseValues[T](values, "query parameter", name)
}

// Header binds a request header. A missing header yields the zero value.
func Header[T any](r *Request, name string) (T, error) {
	var zero T
	values := r.Request.Header.Values(name)
	if len(values) == 0 {
		return zero, nil
	}
	return parseValues[T](values, "header", name)
}

// Form binds a form field, or an uploaded file for file types. A struct
// type is filled from every form value.
func Form[T any](r *Request, name string) (T, error) {
	var zero T
	if isFileType(typeOf[T]()) {
		return bindFile[T](r, name)
	}
	if err := parseForm(r.Request); err != nil {
		return zero, err
	}
	if isStructParam(typeOf[T]()) {
		return decodeStruct[T](r.Request.Form, "form", name)
	}
	values, ok := r.Request.Form[name]
	if !ok || len(values) == 0 {
		return zero, nil
	}
	return parseValues[T](values, "form field", name)
}

// FormFile returns the uploaded file called name.
func FormFile(r *Request, name string) (*File, error) {
	if err := parseForm(r.Request); err != nil {
		return nil, err
	}
	f, h, err := r.Request.FormFile(name)
	if err != nil {
		if errors.Is(err, http.ErrMissingFile) {
			return nil, BadRequest(fmt.Errorf("missing form file %q", name))
		}
		return nil, BadRequest(fmt.Errorf("invalid form file %q: %w", name, err))
	}
	return &File{File: f, Header: h}, nil
}

// Body decodes the JSON request body into T.
func Body[T any](r *Request) (T, error) {
	var v T
	if r.Request.Body == nil {
		return v, BadRequest(errors.New("request body is empty"))
	}
	if err := json.NewDecoder(r.Request.Body).Decode(&v); err != nil {
		if errors.Is(err, io.EOF) {
			return v, BadRequest(errors.New("request body is empty"))
		}
		return v, BadRequest(fmt.Errorf("invalid request body: %w", err))
	}
	return v, nil
}

// Service resolves T from the request's services.
func Service[T any](r *Request) (T, error) {
	return Resolve[T](r.Services)
}

// Infer binds a parameter without an explicit source: request plumbing types
// first, then a registered service, then the route value, then the query.
// Unregistered struct types bind from the whole query string.
func Infer[T any](r *Request, name string) (T, error) {
	var zero T
	t := typeOf[T]()

	if v, ok := special(r, t); ok {
		out, _ := v.(T)
		return out, nil
	}
	if isFileType(t) {
		return bindFile[T](r, name)
	}
	if r.Services.Has(t) {
		return Resolve[T](r.Services)
	}
	if isStructParam(t) {
		return Query[T](r, name)
	}
	if chi.URLParam(r.Request, name) != "" {
		return Route[T](r, name)
	}
	if _, ok := r.Request.URL.Query()[name]; ok {
		return Query[T](r, name)
	}
	return zero, nil
}

func special(r *Request, t reflect.Type) (any, bool) {
	switch t {
	case contextType:
		return r.Context(), true
	case httpRequestType:
		return r.Request, true
	case writerType:
		return r.Writer, true
	case requestType:
		return r, true
	case servicesType:
		return r.Services, true
	}
	return nil, false
}

func isFileType(t reflect.Type) bool {
	switch t {
	case fileHeaderType, multipartType, fileType, filePtrType:
		return true
	}
	return false
}

func bindFile[T any](r *Request, name string) (T, error) {
	var zero T
	f, err := FormFile(r, name)
	if err != nil {
		return zero, err
	}
	var v any
	switch typeOf[T]() {
	case fileHeaderType:
		v = f.Header
	case multipartType:
		v = f.File
	case fileType:
		v = *f
	default:
		v = f
	}
	out, _ := v.(T)
	return out, nil
}

func parseForm(req *http.Request) error {
	if req.MultipartForm != nil || req.PostForm != nil {
		return nil
	}
	err := req.ParseMultipartForm(defaultMaxMemory)
	if err != nil && !errors.Is(err, http.ErrNotMultipart) {
		return BadRequest(fmt.Errorf("invalid form: %w", err))
	}
	return nil
}

func parseAs[T any](raw, kind, name string) (T, error) {
	return parseValues[T]([]string{raw}, kind, name)
}

func parseValues[T any](values []string, kind, name string) (T, error) {
	var v T
	if err := decodeValues(reflect.ValueOf(&v).Elem(), values); err != nil {
		return v, BadRequest(fmt.Errorf("invalid %s %q: %w", kind, name, err))
	}
	return v, nil
}

// decodeStruct fills a struct parameter, or a pointer to one, from values.
// Keys without a matching field are ignored.
func decodeStruct[T any](values url.Values, kind, name string) (T, error) {
	var v T
	target := any(&v)
	if rv := reflect.ValueOf(&v).Elem(); rv.Kind() == reflect.Pointer {
		rv.Set(reflect.New(rv.Type().Elem()))
		target = rv.Interface()
	}
	if err := structDecoder.Decode(target, values); err != nil {
		return v, BadRequest(fmt.Errorf("invalid %s %q: %w", kind, name, err))
	}
	return v, nil
}

// isStructParam reports whether t binds a whole set of values rather than a
// single key.
func isStructParam(t reflect.Type) bool {
	if t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	return t.Kind() == reflect.Struct && !textual(t) && !isFileType(t)
}

// textual reports whether t, or the type t points to, parses itself from text.
func textual(t reflect.Type) bool {
	if t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	return t == uuidType || reflect.PointerTo(t).Implements(textType)
}

// decodeValues fills v from raw values. Text-parsed types and slices of them
// are unmarshaled directly; other scalars and slices go through schema's
// converters as the single field of a wrapper struct.
func decodeValues(v reflect.Value, values []string) error {
	t := v.Type()
	switch {
	case textual(t):
		return unmarshalText(v, values[0])
	case t.Kind() == reflect.Slice && textual(t.Elem()):
		out := reflect.MakeSlice(t, len(values), len(values))
		for i, raw := range values {
			if err := unmarshalText(out.Index(i), raw); err != nil {
				return err
			}
		}
		v.Set(out)
		return nil
	case isStructParam(t):
		return fmt.Errorf("unsupported type %s", t)
	}

	w := reflect.New(wrapperOf(t))
	if err := valueDecoder.Decode(w.Interface(), map[string][]string{valueKey: values}); err != nil {
		var me schema.MultiError
		if errors.As(err, &me) {
			switch me[valueKey].(type) {
			case schema.UnknownKeyError:
				return fmt.Errorf("unsupported type %s", t)
			case schema.ConversionError:
				return fmt.Errorf("cannot convert %q to %s", values[len(values)-1], t)
			}
		}
		return err
	}
	v.Set(w.Elem().Field(0))
	return nil
}

func unmarshalText(v reflect.Value, raw string) error {
	if v.Kind() == reflect.Pointer {
		elem := reflect.New(v.Type().Elem())
		if err := unmarshalText(elem.Elem(), raw); err != nil {
			return err
		}
		v.Set(elem)
		return nil
	}
	if v.Type() == uuidType {
		id, err := uuid.Parse(raw)
		if err != nil {
			return err
		}
		v.Set(reflect.ValueOf(id))
		return nil
	}
	return v.Addr().Interface().(encoding.TextUnmarshaler).UnmarshalText([]byte(raw))
}

// wrapperOf returns struct{ V t `schema:"v"` }, built once per type.
func wrapperOf(t reflect.Type) reflect.Type {
	if w, ok := wrappers.Load(t); ok {
		return w.(reflect.Type)
	}
	w, _ := wrappers.LoadOrStore(t, reflect.StructOf([]reflect.StructField{{
		Name: "V",
		Type: t,
		Tag:  reflect.StructTag(`schema:"` + valueKey + `"`),
	}}))
	return w.(reflect.Type)
}
