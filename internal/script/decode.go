package script

import (
	"bytes"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/understudy-dev/understudy/internal/value"
)

// Document mirrors the YAML shape of a configuration file. It exists so the
// decoder can reject unknown fields before payloads are converted to Values.
type Document struct {
	SharedState map[string]any            `yaml:"shared_state,omitempty"`
	Services    map[string]ServiceDocument `yaml:"services"`
}

// ServiceDocument is the YAML shape of one service entry.
type ServiceDocument struct {
	InitialState map[string]any            `yaml:"initial_state,omitempty"`
	Bindings     map[string]string         `yaml:"bindings,omitempty"`
	Methods      map[string]MethodDocument `yaml:"methods"`
}

// MethodDocument is the YAML shape of one method specification.
type MethodDocument struct {
	Policy    string             `yaml:"policy,omitempty"`
	Responses []ResponseDocument `yaml:"responses"`
}

// ResponseDocument is the YAML shape of one scripted response.
// Outcome defaults to "success" when omitted.
type ResponseDocument struct {
	Outcome string         `yaml:"outcome,omitempty"`
	Value   any            `yaml:"value,omitempty"`
	Error   *ErrorDocument `yaml:"error,omitempty"`
	DelayMS int64          `yaml:"delay_ms,omitempty"`
	Updates map[string]any `yaml:"updates,omitempty"`
}

// ErrorDocument is the YAML shape of a scripted error detail.
type ErrorDocument struct {
	Code    string `yaml:"code"`
	Message string `yaml:"message,omitempty"`
}

// Decode parses a configuration document into an immutable Configuration.
// Unknown fields are rejected to catch typos like "respones:".
func Decode(data []byte) (*Configuration, error) {
	var doc Document
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&doc); err != nil {
		return nil, fmt.Errorf("parse configuration: %w", err)
	}
	return build(&doc)
}

// DecodeFile reads and decodes a configuration file.
func DecodeFile(path string) (*Configuration, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read configuration file: %w", err)
	}
	return Decode(data)
}

// FromDocument converts an already-decoded document. Scenario files embed
// configuration documents inline and decode them as part of the scenario.
func FromDocument(doc *Document) (*Configuration, error) {
	return build(doc)
}

// build converts a decoded document into the engine's configuration model.
func build(doc *Document) (*Configuration, error) {
	shared, err := value.MapFromGo(doc.SharedState)
	if err != nil {
		return nil, fmt.Errorf("shared_state: %w", err)
	}

	cfg := &Configuration{
		SharedState: shared,
		Services:    make(map[string]ServiceEntry, len(doc.Services)),
	}

	for name, svcDoc := range doc.Services {
		entry, err := buildService(&svcDoc)
		if err != nil {
			return nil, fmt.Errorf("service %q: %w", name, err)
		}
		cfg.Services[name] = entry
	}

	return cfg, nil
}

func buildService(doc *ServiceDocument) (ServiceEntry, error) {
	initial, err := value.MapFromGo(doc.InitialState)
	if err != nil {
		return ServiceEntry{}, fmt.Errorf("initial_state: %w", err)
	}

	entry := ServiceEntry{
		InitialState: initial,
		Bindings:     doc.Bindings,
		Methods:      make(map[string]MethodSpec, len(doc.Methods)),
	}

	for method, methodDoc := range doc.Methods {
		spec, err := buildMethod(&methodDoc)
		if err != nil {
			return ServiceEntry{}, fmt.Errorf("method %q: %w", method, err)
		}
		entry.Methods[method] = spec
	}

	return entry, nil
}

func buildMethod(doc *MethodDocument) (MethodSpec, error) {
	policy, err := PolicyFromString(doc.Policy)
	if err != nil {
		return MethodSpec{}, err
	}

	spec := MethodSpec{Policy: policy}
	for i, respDoc := range doc.Responses {
		resp, err := buildResponse(&respDoc)
		if err != nil {
			return MethodSpec{}, fmt.Errorf("responses[%d]: %w", i, err)
		}
		spec.Responses = append(spec.Responses, resp)
	}

	return spec, nil
}

func buildResponse(doc *ResponseDocument) (Response, error) {
	resp := Response{}

	switch doc.Outcome {
	case "", "success":
		resp.Outcome = OutcomeSuccess
	case "error":
		resp.Outcome = OutcomeError
	default:
		return Response{}, fmt.Errorf("unknown outcome %q", doc.Outcome)
	}

	if doc.Value != nil {
		v, err := value.FromGo(doc.Value)
		if err != nil {
			return Response{}, fmt.Errorf("value: %w", err)
		}
		resp.Value = v
	}

	if doc.Error != nil {
		if resp.Outcome != OutcomeError {
			return Response{}, fmt.Errorf("error detail declared on a success outcome")
		}
		resp.Error = &ErrorDetail{Code: doc.Error.Code, Message: doc.Error.Message}
	}

	if doc.DelayMS < 0 {
		return Response{}, fmt.Errorf("delay_ms must be non-negative, got %d", doc.DelayMS)
	}
	resp.Delay = time.Duration(doc.DelayMS) * time.Millisecond

	if doc.Updates != nil {
		updates, err := value.MapFromGo(doc.Updates)
		if err != nil {
			return Response{}, fmt.Errorf("updates: %w", err)
		}
		resp.Updates = updates
	}

	return resp, nil
}
