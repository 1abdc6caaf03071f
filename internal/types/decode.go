package types

import (
	"fmt"
	"math"

	"github.com/Rixmerz/MultiComputer/input"
	"github.com/tidwall/gjson"
)

// Decode builds a Command of the given family from a JSON object. The
// discriminator (action, key or shortcut) is checked before anything else
// is read, so callers never see a Command with an unknown variant.
func Decode(kind Kind, body []byte) (Command, error) {
	if !gjson.ValidBytes(body) {
		return nil, fmt.Errorf("%w: malformed JSON body", ErrInvalidArgument)
	}
	return decode(kind, gjson.ParseBytes(body))
}

// DecodeFrame decodes one stream frame: an object carrying "type" (the
// command family), an optional "id" echoed on the reply, and the same
// fields as the HTTP body of that family.
func DecodeFrame(data []byte) (string, Command, error) {
	if !gjson.ValidBytes(data) {
		return "", nil, fmt.Errorf("%w: malformed JSON frame", ErrInvalidArgument)
	}
	frame := gjson.ParseBytes(data)
	id := frame.Get("id").String()
	cmd, err := decode(Kind(frame.Get("type").String()), frame)
	return id, cmd, err
}

func decode(kind Kind, obj gjson.Result) (Command, error) {
	if !obj.IsObject() {
		return nil, fmt.Errorf("%w: expected a JSON object", ErrInvalidArgument)
	}
	switch kind {
	case KindType:
		return TypeText{Text: obj.Get("text").String()}, nil
	case KindSpecial:
		key := SpecialKeyName(obj.Get("key").String())
		if !key.Valid() {
			return nil, fmt.Errorf("%w: unrecognized special key %q", ErrInvalidArgument, key)
		}
		return SpecialKey{Key: key}, nil
	case KindShortcut:
		name := ShortcutName(obj.Get("shortcut").String())
		if !name.Valid() {
			return nil, fmt.Errorf("%w: unrecognized shortcut %q", ErrInvalidArgument, name)
		}
		return Shortcut{Name: name}, nil
	case KindMouse:
		return decodeMouse(obj)
	default:
		return nil, fmt.Errorf("%w: unknown command type %q", ErrInvalidArgument, kind)
	}
}

func decodeMouse(obj gjson.Result) (Command, error) {
	f := gjson.GetMany(obj.Raw, "action", "x", "y", "button", "to_x", "to_y", "amount")
	action, x, y, button, toX, toY, amount := f[0], f[1], f[2], f[3], f[4], f[5], f[6]

	op := MouseOp(action.String())
	if !op.Valid() {
		return nil, fmt.Errorf("%w: unrecognized action %q", ErrInvalidArgument, op)
	}
	btn, ok := input.ParseButton(button.String())
	if !ok {
		return nil, fmt.Errorf("%w: unrecognized button %q", ErrInvalidArgument, button.String())
	}

	m := MouseAction{
		Action: op,
		X:      saturatedInt(x),
		Y:      saturatedInt(y),
		Button: btn,
		ToX:    saturatedInt(x),
		ToY:    saturatedInt(y),
		Amount: 1,
	}
	if toX.Exists() {
		m.ToX = saturatedInt(toX)
	}
	if toY.Exists() {
		m.ToY = saturatedInt(toY)
	}
	if amount.Exists() {
		m.Amount = saturatedInt(amount)
	}
	return m, nil
}

// saturatedInt reads a JSON number truncated toward zero. Values beyond the
// int32 range saturate, so an absurd coordinate still clamps to the near edge.
func saturatedInt(r gjson.Result) int {
	f := r.Float()
	switch {
	case f >= math.MaxInt32:
		return math.MaxInt32
	case f <= math.MinInt32:
		return math.MinInt32
	}
	return int(f)
}
