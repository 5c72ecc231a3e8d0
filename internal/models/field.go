package models

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
)

// FieldKind tags the value type of a [Field].
type FieldKind int

const (
	KindUnknown FieldKind = iota
	KindText
	KindBoolean
	KindNumber
	KindDateTime
	KindSelection
	KindMDB
)

// DateTimeLayout is the layout used to render date values.
const DateTimeLayout = "2006-01-02T15:04:05"

// String returns the webservice type name of the kind.
func (k FieldKind) String() string {
	switch k {
	case KindText:
		return "TextField"
	case KindBoolean:
		return "BooleanField"
	case KindNumber:
		return "NumberField"
	case KindDateTime:
		return "DateTimeField"
	case KindSelection:
		return "SelectionField"
	case KindMDB:
		return "MdbField"
	default:
		return "Field"
	}
}

// KindFromTypeName maps a webservice type name (TextField, MdbField, ...) to its kind.
//
// Unrecognized names map to [KindUnknown].
func KindFromTypeName(name string) FieldKind {
	for k := KindText; k <= KindMDB; k++ {
		if k.String() == name {
			return k
		}
	}
	return KindUnknown
}

// ParseKind parses the short kind names used in subscriber CSV headers.
func ParseKind(s string) (FieldKind, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "text", "memo":
		return KindText, nil
	case "bool", "boolean":
		return KindBoolean, nil
	case "number", "int":
		return KindNumber, nil
	case "date", "datetime":
		return KindDateTime, nil
	case "selection", "select":
		return KindSelection, nil
	case "mdb", "file":
		return KindMDB, nil
	default:
		return KindUnknown, fmt.Errorf("unknown field kind %q", s)
	}
}

// SelectionElement is one option of a selection field.
type SelectionElement struct {
	Caption      string
	InternalName string
}

// Field is a named value of one of the webservice field types.
//
// Value always holds the untyped string representation sent over the wire.
// Selections is only populated on selection fields returned by definition lookups.
type Field struct {
	Kind         FieldKind
	InternalName string
	Value        string
	Selections   []SelectionElement
}

// TextField returns a text field. Memo fields are text fields as well.
func TextField(name, value string) Field {
	return Field{Kind: KindText, InternalName: name, Value: value}
}

// BooleanField returns a true/false field.
func BooleanField(name string, value bool) Field {
	v := "False"
	if value {
		v = "True"
	}
	return Field{Kind: KindBoolean, InternalName: name, Value: v}
}

// NumberField returns a numeric field.
func NumberField(name string, value int64) Field {
	return Field{Kind: KindNumber, InternalName: name, Value: strconv.FormatInt(value, 10)}
}

// DateTimeField returns a date field.
func DateTimeField(name string, value time.Time) Field {
	return Field{Kind: KindDateTime, InternalName: name, Value: value.Format(DateTimeLayout)}
}

// SelectionField returns a selection field with the given option internal names selected.
func SelectionField(name string, values ...string) Field {
	return Field{Kind: KindSelection, InternalName: name, Value: strings.Join(values, ",")}
}

// MDBField returns a field referencing a file of the media database.
func MDBField(name string, fileID uuid.UUID) Field {
	return Field{Kind: KindMDB, InternalName: name, Value: fileID.String()}
}

// NewField validates raw against kind and returns the field.
//
// An empty raw value is accepted for every kind and clears the field on import.
func NewField(kind FieldKind, name, raw string) (Field, error) {
	raw = strings.TrimSpace(raw)
	if name == "" {
		return Field{}, fmt.Errorf("field name must not be empty")
	}
	if raw == "" {
		if kind == KindUnknown {
			return Field{}, fmt.Errorf("field %s: unknown kind", name)
		}
		return Field{Kind: kind, InternalName: name}, nil
	}

	switch kind {
	case KindText:
		return TextField(name, raw), nil
	case KindBoolean:
		b, err := strconv.ParseBool(raw)
		if err != nil {
			return Field{}, fmt.Errorf("field %s: %q is not a boolean", name, raw)
		}
		return BooleanField(name, b), nil
	case KindNumber:
		n, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return Field{}, fmt.Errorf("field %s: %q is not a number", name, raw)
		}
		return NumberField(name, n), nil
	case KindDateTime:
		for _, layout := range []string{DateTimeLayout, time.RFC3339, time.DateOnly} {
			if t, err := time.Parse(layout, raw); err == nil {
				return DateTimeField(name, t), nil
			}
		}
		return Field{}, fmt.Errorf("field %s: %q is not a date", name, raw)
	case KindSelection:
		return SelectionField(name, splitSelection(raw)...), nil
	case KindMDB:
		id, err := uuid.Parse(raw)
		if err != nil {
			return Field{}, fmt.Errorf("field %s: %q is not a file id", name, raw)
		}
		return MDBField(name, id), nil
	default:
		return Field{}, fmt.Errorf("field %s: unknown kind", name)
	}
}

// Values returns the selected options of a selection field. Both , and ; separate values.
func (f Field) Values() []string {
	if f.Kind != KindSelection {
		return nil
	}
	return splitSelection(f.Value)
}

// String renders the field as name=value (Kind).
func (f Field) String() string {
	return fmt.Sprintf("%s=%q (%s)", f.InternalName, f.Value, f.Kind)
}

func splitSelection(raw string) []string {
	parts := strings.FieldsFunc(raw, func(r rune) bool { return r == ',' || r == ';' })
	values := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			values = append(values, p)
		}
	}
	return values
}
