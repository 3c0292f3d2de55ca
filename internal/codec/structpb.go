// Package codec converts window feature records to and from protobuf
// Struct messages, the payload format used on NATS and gRPC.
package codec

import (
	"WindowSpectra/internal/model"
	"encoding/json"
	"fmt"

	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/types/known/structpb"
)

// Envelope is a record together with the run it came from.
type Envelope struct {
	SessionID string
	Source    string
	WindowID  int // 1-based position within the run
	Record    model.WindowFeatureRecord
}

// RecordToStruct converts a record to a Struct keyed by its JSON field names.
func RecordToStruct(rec model.WindowFeatureRecord) (*structpb.Struct, error) {
	return ToStruct(rec)
}

// ToStruct converts any JSON-encodable object to a Struct.
func ToStruct(v any) (*structpb.Struct, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("failed to encode %T: %w", v, err)
	}
	var fields map[string]any
	if err := json.Unmarshal(data, &fields); err != nil {
		return nil, fmt.Errorf("failed to flatten %T: %w", v, err)
	}
	return structpb.NewStruct(fields)
}

// StructToRecord is the inverse of RecordToStruct.
func StructToRecord(s *structpb.Struct) (model.WindowFeatureRecord, error) {
	var rec model.WindowFeatureRecord
	data, err := json.Marshal(s.AsMap())
	if err != nil {
		return rec, fmt.Errorf("failed to encode struct: %w", err)
	}
	if err := json.Unmarshal(data, &rec); err != nil {
		return rec, fmt.Errorf("failed to decode record: %w", err)
	}
	return rec, nil
}

// EnvelopeToStruct wraps a record and its run metadata into one Struct.
func EnvelopeToStruct(env Envelope) (*structpb.Struct, error) {
	rec, err := RecordToStruct(env.Record)
	if err != nil {
		return nil, err
	}
	return &structpb.Struct{Fields: map[string]*structpb.Value{
		"session_id": structpb.NewStringValue(env.SessionID),
		"source":     structpb.NewStringValue(env.Source),
		"window_id":  structpb.NewNumberValue(float64(env.WindowID)),
		"record":     structpb.NewStructValue(rec),
	}}, nil
}

// StructToEnvelope is the inverse of EnvelopeToStruct.
func StructToEnvelope(s *structpb.Struct) (Envelope, error) {
	f := s.GetFields()
	env := Envelope{
		SessionID: f["session_id"].GetStringValue(),
		Source:    f["source"].GetStringValue(),
		WindowID:  int(f["window_id"].GetNumberValue()),
	}
	recStruct := f["record"].GetStructValue()
	if recStruct == nil {
		return env, fmt.Errorf("envelope for window %d carries no record", env.WindowID)
	}
	rec, err := StructToRecord(recStruct)
	if err != nil {
		return env, err
	}
	env.Record = rec
	return env, nil
}

// MarshalEnvelope encodes an envelope to protobuf wire format.
func MarshalEnvelope(env Envelope) ([]byte, error) {
	s, err := EnvelopeToStruct(env)
	if err != nil {
		return nil, err
	}
	return proto.Marshal(s)
}

// UnmarshalEnvelope decodes protobuf wire bytes produced by MarshalEnvelope.
func UnmarshalEnvelope(data []byte) (Envelope, error) {
	var s structpb.Struct
	if err := proto.Unmarshal(data, &s); err != nil {
		return Envelope{}, fmt.Errorf("failed to unmarshal protobuf: %w", err)
	}
	return StructToEnvelope(&s)
}
