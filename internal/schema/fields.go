// Package schema defines the fixed candidate-profile schema: the ten
// fields the interview collects and their topic grouping.
package schema

// Field is one of the ten recognized candidate-profile attributes.
type Field string

const (
	FieldName            Field = "name"
	FieldEmail           Field = "email"
	FieldPhone           Field = "phone"
	FieldExperience      Field = "experience"
	FieldDesiredPosition Field = "desired_position"
	FieldCurrentLocation Field = "current_location"
	FieldLanguages       Field = "languages"
	FieldFrameworks      Field = "frameworks"
	FieldDatabases       Field = "databases"
	FieldTools           Field = "tools"
)

// Fields lists all recognized fields in collection order. Profile fields
// come first; the four skill-topic fields follow in the order technical
// questioning walks through them.
var Fields = []Field{
	FieldName,
	FieldEmail,
	FieldPhone,
	FieldExperience,
	FieldDesiredPosition,
	FieldCurrentLocation,
	FieldLanguages,
	FieldFrameworks,
	FieldDatabases,
	FieldTools,
}

// Label returns the human-readable name used when talking to the candidate.
func Label(f Field) string {
	switch f {
	case FieldName:
		return "Name"
	case FieldEmail:
		return "Email"
	case FieldPhone:
		return "Phone Number"
	case FieldExperience:
		return "Experience"
	case FieldDesiredPosition:
		return "Desired Position"
	case FieldCurrentLocation:
		return "Current Location"
	case FieldLanguages:
		return "Programming Languages"
	case FieldFrameworks:
		return "Frameworks"
	case FieldDatabases:
		return "Databases"
	case FieldTools:
		return "Tools"
	default:
		return string(f)
	}
}

// Topic classifies a field for interview sequencing.
type Topic string

const (
	TopicPersonal  Topic = "personal"
	TopicLanguage  Topic = "language"
	TopicFramework Topic = "framework"
	TopicDatabase  Topic = "database"
	TopicTool      Topic = "tool"
	TopicNone      Topic = "none"
)

// TopicOf returns the topic grouping for a field, or TopicNone for
// unrecognized field names.
func TopicOf(f Field) Topic {
	switch f {
	case FieldLanguages:
		return TopicLanguage
	case FieldFrameworks:
		return TopicFramework
	case FieldDatabases:
		return TopicDatabase
	case FieldTools:
		return TopicTool
	case FieldName, FieldEmail, FieldPhone, FieldExperience, FieldDesiredPosition, FieldCurrentLocation:
		return TopicPersonal
	default:
		return TopicNone
	}
}

// Known reports whether name is one of the ten recognized fields.
func Known(name string) bool {
	return TopicOf(Field(name)) != TopicNone
}

// Profile is the collected candidate profile: at most one value per field.
type Profile map[Field]string

// Complete reports whether all ten recognized fields have a value.
// Unrecognized keys never count toward completion.
func (p Profile) Complete() bool {
	return len(p.Missing()) == 0
}

// Missing returns the recognized fields without a value, in collection order.
func (p Profile) Missing() []Field {
	var missing []Field
	for _, f := range Fields {
		if _, ok := p[f]; !ok {
			missing = append(missing, f)
		}
	}
	return missing
}
