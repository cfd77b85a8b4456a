package state_stores

import (
	"encoding/json"
	"fmt"

	"google.golang.org/protobuf/encoding/protojson"
	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/types/known/structpb"
)

// Records are kept as structpb.Struct so every store can persist them
// through the same proto.Message interface.

func NewRecord() proto.Message { return &structpb.Struct{} }

func Encode(v any) (*structpb.Struct, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	s := &structpb.Struct{}
	if err := protojson.Unmarshal(data, s); err != nil {
		return nil, fmt.Errorf("encode record: %w", err)
	}
	return s, nil
}

func Decode(msg proto.Message, v any) error {
	data, err := protojson.Marshal(msg)
	if err != nil {
		return fmt.Errorf("decode record: %w", err)
	}
	return json.Unmarshal(data, v)
}

// Save encodes v and stores it under key without expiry.
func Save(store StateStore, key string, v any) error {
	record, err := Encode(v)
	if err != nil {
		return err
	}
	return store.Set(key, record, -1)
}

// Load decodes the record stored under key into a T.
func Load[T any](store StateStore, key string) (T, bool, error) {
	var out T
	msg, found, err := store.Get(key, NewRecord)
	if err != nil {
		return out, false, err
	}
	if !found {
		return out, false, nil
	}
	if err := Decode(msg, &out); err != nil {
		return out, true, err
	}
	return out, true, nil
}

// LoadAll decodes every record whose key starts with prefix.
func LoadAll[T any](store StateStore, prefix string) ([]T, error) {
	keys, err := store.Keys(prefix)
	if err != nil {
		return nil, err
	}
	out := make([]T, 0, len(keys))
	for _, key := range keys {
		v, found, err := Load[T](store, key)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", key, err)
		}
		if found {
			out = append(out, v)
		}
	}
	return out, nil
}
