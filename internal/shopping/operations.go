package shopping

import (
	"encoding/json"
	"strings"
)

// Action names an edit operation on the wire.
type Action string

const (
	ActionAdd     Action = "add"
	ActionRemove  Action = "remove"
	ActionReplace Action = "replace"
	ActionUpdate  Action = "update"
)

// Operation is one edit instruction: Add, Remove, Replace, Update or Unknown.
type Operation interface {
	Action() Action
	isOperation()
}

type Add struct {
	NewItem  string `json:"new_item"`
	Quantity string `json:"quantity"`
	Category string `json:"category,omitempty"`
}

type Remove struct {
	Target string `json:"target"`
}

type Replace struct {
	Target   string `json:"target"`
	NewItem  string `json:"new_item"`
	Quantity string `json:"quantity"`
}

type Update struct {
	Target   string `json:"target"`
	Quantity string `json:"quantity"`
}

// Unknown carries an action the engine does not understand. It is skipped.
type Unknown struct {
	Name string `json:"action"`
}

func (Add) Action() Action       { return ActionAdd }
func (Remove) Action() Action    { return ActionRemove }
func (Replace) Action() Action   { return ActionReplace }
func (Update) Action() Action    { return ActionUpdate }
func (u Unknown) Action() Action { return Action(u.Name) }

func (Add) isOperation()     {}
func (Remove) isOperation()  {}
func (Replace) isOperation() {}
func (Update) isOperation()  {}
func (Unknown) isOperation() {}

// DecodeOperations validates model output of the form {"changes": [...]} or a
// bare array. Malformed input yields no operations, never an error.
func DecodeOperations(data []byte) []Operation {
	var doc any
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil
	}

	var list []any
	switch v := doc.(type) {
	case map[string]any:
		list, _ = v["changes"].([]any)
	case []any:
		list = v
	}

	ops := make([]Operation, 0, len(list))
	for _, raw := range list {
		fields, ok := raw.(map[string]any)
		if !ok {
			ops = append(ops, Unknown{})
			continue
		}
		ops = append(ops, decodeOperation(fields))
	}
	return ops
}

func decodeOperation(fields map[string]any) Operation {
	str := func(key string) string {
		s, _ := fields[key].(string)
		return strings.TrimSpace(s)
	}

	switch action := strings.ToLower(str("action")); Action(action) {
	case ActionAdd:
		return Add{NewItem: str("new_item"), Quantity: str("quantity"), Category: str("category")}
	case ActionRemove:
		return Remove{Target: str("target")}
	case ActionReplace:
		return Replace{Target: str("target"), NewItem: str("new_item"), Quantity: str("quantity")}
	case ActionUpdate:
		return Update{Target: str("target"), Quantity: str("quantity")}
	default:
		return Unknown{Name: action}
	}
}

// MarshalOperations writes operations back in the model's wire shape.
func MarshalOperations(ops []Operation) ([]byte, error) {
	out := make([]map[string]string, 0, len(ops))
	for _, op := range ops {
		m := map[string]string{"action": string(op.Action())}
		switch o := op.(type) {
		case Add:
			m["new_item"], m["quantity"] = o.NewItem, o.Quantity
			if o.Category != "" {
				m["category"] = o.Category
			}
		case Remove:
			m["target"] = o.Target
		case Replace:
			m["target"], m["new_item"], m["quantity"] = o.Target, o.NewItem, o.Quantity
		case Update:
			m["target"], m["quantity"] = o.Target, o.Quantity
		}
		out = append(out, m)
	}
	return json.Marshal(out)
}
