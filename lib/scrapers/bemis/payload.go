package bemis

import (
	"net/url"
	"strings"
)

type Field struct {
	Name  string
	Value string
}

// Payload is the ordered set of form fields POSTed to the portal. Order is
// preserved so the encoded body matches what the portal's own frontend
// would send.
type Payload []Field

func (p Payload) Encode() string {
	var buf strings.Builder
	for i, field := range p {
		if i > 0 {
			buf.WriteByte('&')
		}
		buf.WriteString(url.QueryEscape(field.Name))
		buf.WriteByte('=')
		buf.WriteString(url.QueryEscape(field.Value))
	}
	return buf.String()
}

func (p Payload) Get(name string) (string, bool) {
	for _, field := range p {
		if field.Name == name {
			return field.Value, true
		}
	}
	return "", false
}

// BuildPayload maps a StudentRecord onto the portal's exact field schema.
// Every field in AllStudentFields ends up in the payload: the record's
// value verbatim when supplied, empty string otherwise. The record id
// defaults to "0".
func BuildPayload(record StudentRecord, schoolId, formToken string) Payload {
	payload := make(Payload, 0, len(AllStudentFields)+2)

	id := record[FieldId]
	if id == "" {
		id = "0"
	}
	payload = append(payload,
		Field{FieldId, id},
		Field{FieldSchoolId, schoolId},
		Field{VerificationTokenField, formToken},
	)

	for _, name := range AllStudentFields {
		if name == FieldId {
			continue
		}
		value, ok := record[name]
		if !ok {
			value = ""
		}
		payload = append(payload, Field{name, value})
	}

	// hard invariant, not best effort: the portal's binder chokes when a
	// mandatory key is missing entirely
	for _, name := range RequiredStudentFields {
		_, present := payload.Get(name)
		if !present {
			payload = append(payload, Field{name, record[name]})
		}
	}

	return payload
}
