package bemis

// StudentRecord is a flat mapping from the portal's fully-qualified field
// names (e.g. "student.Surname") to string values. It is produced by the
// extraction service or handed in by the frontend, consumed exactly once
// by a submission attempt, and never persisted.
type StudentRecord map[string]string

const (
	FieldId       = "id"
	FieldSchoolId = "schoolid"
)

// AllStudentFields is the exhaustive, ordered list of every field the
// portal's student creation form recognizes. The portal's server-side
// binder expects each one to be present in the POST body even when empty.
//
// "student.MotherOccption" is misspelled upstream; the misspelling is a
// compatibility requirement, not a bug to fix.
var AllStudentFields = []string{
	"id",
	"student.SchoolId",
	"student.Surname",
	"student.FirstName",
	"student.OtherName",
	"student.Email",
	"student.Gender",
	"student.DateOfBirth",
	"student.Religion",
	"student.Nationality",
	"student.OriginState",
	"student.OriginLGA",
	"student.MotherTongue",
	"student.DisabilityGroup",
	"student.FathersName",
	"student.MotherName",
	"student.FathersOccupation",
	"student.MotherOccption",
	"student.GuardianName",
	"student.GuardianOccupation",
	"student.GuardianRelationship",
	"student.GuardianPhoneNumber",
	"student.MobileNumber",
	"student.HomeAddress",
	"student.Street",
	"student.City",
	"student.ResidenceState",
	"student.Section",
	"student.Class",
	"student.House",
	"student.Sport",
	"student.Club",
	"student.AdmissionNumber",
	"student.DateOfAdmission",
	"student.PreviousSchoolAttended",
	"student.PreviousClass",
	"student.Repeater",
	"student.SpecialNeed",
	"student.MediumOfInstruction",
	"student.BloodGroup",
	"student.Genotype",
	"student.Allergies",
	"student.MedicalConditions",
	"student.Medications",
	"student.EmergencyContactName",
	"student.EmergencyContactPhone",
	"student.EmergencyContactRelationship",
	"student.TransportMeans",
	"student.Notes",
}

// RequiredStudentFields must carry a value (possibly empty) in every
// payload regardless of what the caller supplied.
var RequiredStudentFields = []string{
	"student.Surname",
	"student.FirstName",
	"student.Gender",
	"student.DateOfBirth",
	"student.Religion",
	"student.Nationality",
	"student.OriginState",
	"student.OriginLGA",
	"student.FathersName",
	"student.MotherName",
	"student.FathersOccupation",
	"student.GuardianName",
	"student.GuardianOccupation",
	"student.Street",
	"student.City",
	"student.Section",
	"student.Class",
	"student.Repeater",
}
