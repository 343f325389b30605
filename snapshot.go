package vfx

import (
	"encoding/json"
	"fmt"

	"github.com/gogpu/vfx/graph"
)

// Snapshot is the editor-owned document describing what to render: the
// node graph, per-node properties, and the current clock sample.
//
// The engine never mutates a snapshot. Update normalizes a private copy
// of the graph, so a snapshot may carry dangling or duplicate edges
// mid-edit and still render.
//
// Snapshots marshal to JSON with node properties as a tagged union on
// a "type" field, so documents survive a round trip through storage or
// the wire (see NodeProps).
type Snapshot struct {
	Graph     graph.Graph                `json:"graph"`
	NodeProps map[graph.NodeID]NodeProps `json:"node_props"`
	Time      float64                    `json:"time"`
	Dt        float64                    `json:"dt"`
	Audio     [4]float64                 `json:"audio"`
}

// snapshotJSON mirrors Snapshot with properties kept raw so the tagged
// union can be resolved manually.
type snapshotJSON struct {
	Graph     graph.Graph                      `json:"graph"`
	NodeProps map[graph.NodeID]json.RawMessage `json:"node_props"`
	Time      float64                          `json:"time"`
	Dt        float64                          `json:"dt"`
	Audio     [4]float64                       `json:"audio"`
}

// MarshalJSON implements json.Marshaler.
func (s Snapshot) MarshalJSON() ([]byte, error) {
	out := snapshotJSON{
		Graph: s.Graph,
		Time:  s.Time,
		Dt:    s.Dt,
		Audio: s.Audio,
	}
	if s.NodeProps != nil {
		out.NodeProps = make(map[graph.NodeID]json.RawMessage, len(s.NodeProps))
		for id, props := range s.NodeProps {
			raw, err := marshalProps(props)
			if err != nil {
				return nil, fmt.Errorf("node %v: %w", id, err)
			}
			out.NodeProps[id] = raw
		}
	}
	return json.Marshal(out)
}

// UnmarshalJSON implements json.Unmarshaler.
func (s *Snapshot) UnmarshalJSON(data []byte) error {
	var in snapshotJSON
	if err := json.Unmarshal(data, &in); err != nil {
		return err
	}
	s.Graph = in.Graph
	s.Time = in.Time
	s.Dt = in.Dt
	s.Audio = in.Audio
	s.NodeProps = nil
	if in.NodeProps != nil {
		s.NodeProps = make(map[graph.NodeID]NodeProps, len(in.NodeProps))
		for id, raw := range in.NodeProps {
			props, err := unmarshalProps(raw)
			if err != nil {
				return fmt.Errorf("node %v: %w", id, err)
			}
			s.NodeProps[id] = props
		}
	}
	return nil
}

// marshalProps encodes one property set with its "type" tag.
func marshalProps(p NodeProps) ([]byte, error) {
	switch v := p.(type) {
	case *EffectProps:
		return json.Marshal(struct {
			Type string `json:"type"`
			*EffectProps
		}{KindEffect, v})
	case *ImageProps:
		return json.Marshal(struct {
			Type string `json:"type"`
			*ImageProps
		}{KindImage, v})
	case *OutputProps:
		return json.Marshal(struct {
			Type string `json:"type"`
			*OutputProps
		}{KindOutput, v})
	case nil:
		return nil, fmt.Errorf("nil node properties")
	}
	return nil, fmt.Errorf("%w: %T", ErrUnknownNodeType, p)
}

// unmarshalProps decodes one property set by its "type" tag.
func unmarshalProps(data []byte) (NodeProps, error) {
	var probe struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal(data, &probe); err != nil {
		return nil, err
	}
	switch probe.Type {
	case KindEffect:
		p := &EffectProps{}
		if err := json.Unmarshal(data, p); err != nil {
			return nil, err
		}
		return p, nil
	case KindImage:
		p := &ImageProps{}
		if err := json.Unmarshal(data, p); err != nil {
			return nil, err
		}
		return p, nil
	case KindOutput:
		p := &OutputProps{}
		if err := json.Unmarshal(data, p); err != nil {
			return nil, err
		}
		return p, nil
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownNodeType, probe.Type)
}
