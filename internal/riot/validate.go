package riot

import (
	"bytes"
	"encoding/json"
	"errors"
)

var (
	errNotObject     = errors.New("payload is not a JSON object")
	errMissingFields = errors.New("payload has neither metadata nor info")
	errNoFrames      = errors.New("timeline has neither info.frames nor metadata")
)

// ValidateMatchPayload checks that raw looks like a match: a non-empty JSON
// object with a metadata or info object.
func ValidateMatchPayload(raw json.RawMessage) error {
	obj, err := decodeObject(raw)
	if err != nil {
		return err
	}
	if isObject(obj["metadata"]) || isObject(obj["info"]) {
		return nil
	}
	return errMissingFields
}

// ValidateTimelinePayload checks that raw looks like a timeline: a JSON
// object with info.frames or a metadata object.
func ValidateTimelinePayload(raw json.RawMessage) error {
	obj, err := decodeObject(raw)
	if err != nil {
		return err
	}
	if isObject(obj["metadata"]) {
		return nil
	}
	if info, ok := obj["info"]; ok && isObject(info) {
		var fields map[string]json.RawMessage
		if err := json.Unmarshal(info, &fields); err == nil {
			if frames := bytes.TrimSpace(fields["frames"]); len(frames) > 0 && frames[0] == '[' {
				return nil
			}
		}
	}
	return errNoFrames
}

func decodeObject(raw json.RawMessage) (map[string]json.RawMessage, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || trimmed[0] != '{' {
		return nil, errNotObject
	}
	var obj map[string]json.RawMessage
	if err := json.Unmarshal(trimmed, &obj); err != nil {
		return nil, err
	}
	if len(obj) == 0 {
		return nil, errNotObject
	}
	return obj, nil
}

func isObject(raw json.RawMessage) bool {
	trimmed := bytes.TrimSpace(raw)
	return len(trimmed) > 0 && trimmed[0] == '{'
}
