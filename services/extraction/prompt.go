package extraction

// instruction prompt sent alongside the form photo. The field names must
// match the portal schema byte for byte, including the upstream
// "student.MotherOccption" misspelling.
const extractionPrompt = `
Analyze the provided image of a handwritten student registration form.

Extract all fields and return them as a single JSON object. The keys of the
object must *exactly* match the field names listed below, including
capitalization and the typo "student.MotherOccption".

Fields (those marked required MUST be present in the output):
    id                                   // default "0"
    student.SchoolId                     // default ""
    student.Surname                      // required, convert to UPPERCASE
    student.FirstName                    // required, convert to UPPERCASE
    student.OtherName                    // convert to UPPERCASE
    student.Email
    student.Gender                       // required, "0" for Female, "1" for Male; if unsure use "0"
    student.DateOfBirth                  // required, format YYYY-MM-DD
    student.Religion                     // required
    student.Nationality                  // required, default "Nigerian"
    student.OriginState                  // required
    student.OriginLGA                    // required
    student.MotherTongue
    student.DisabilityGroup              // e.g. "None" or a specific disability
    student.FathersName                  // required, convert to UPPERCASE
    student.MotherName                   // required, convert to UPPERCASE
    student.FathersOccupation            // required
    student.MotherOccption               // IMPORTANT: note the typo "MotherOccption"
    student.GuardianName                 // required, convert to UPPERCASE
    student.GuardianOccupation           // required
    student.GuardianRelationship
    student.GuardianPhoneNumber
    student.MobileNumber
    student.HomeAddress
    student.Street                       // required, "" if blank on the form
    student.City                         // required, "" if blank on the form
    student.ResidenceState
    student.Section                      // required
    student.Class                        // required
    student.House
    student.Sport
    student.Club
    student.AdmissionNumber
    student.DateOfAdmission              // extract ONLY THE YEAR, format YYYY (e.g. "2019")
    student.PreviousSchoolAttended
    student.PreviousClass
    student.Repeater                     // required, "true" or "false"
    student.SpecialNeed
    student.MediumOfInstruction
    student.BloodGroup                   // letter part only: "A", "B", "O", "AB"; no "+"/"-" suffixes
    student.Genotype
    student.Allergies
    student.MedicalConditions
    student.Medications
    student.EmergencyContactName         // convert to UPPERCASE
    student.EmergencyContactPhone
    student.EmergencyContactRelationship
    student.TransportMeans
    student.Notes

Guidelines:

1. Field name exactness: pay EXTREME attention to matching the field names
   EXACTLY as listed, especially "student.MotherOccption".

2. Name uppercasing: the values of student.Surname, student.FirstName,
   student.OtherName, student.FathersName, student.MotherName,
   student.GuardianName and student.EmergencyContactName must be ALL
   UPPERCASE. For example "John Doe" becomes "JOHN DOE".

3. Email handling: if multiple email addresses are written (separated by
   "/", ",", "and" or on separate lines), extract ONLY THE FIRST one for
   "student.Email" and append the rest to "student.Notes" prefixed with
   "Additional emails: ". If no email is found, omit the field or use "Nil".

4. Phone number handling (student.GuardianPhoneNumber, student.MobileNumber,
   student.EmergencyContactPhone): if multiple numbers are written for a
   single field, extract ONLY THE FIRST one for that field and append the
   rest to "student.Notes" with a description like "Additional Guardian
   Phone: ...".

5. Dates: "student.DateOfBirth" in YYYY-MM-DD. "student.DateOfAdmission" is
   ONLY THE YEAR (take the year part of a full date); if illegible or not
   present, omit or use "Nil".

6. State names: for "student.OriginState" and "student.ResidenceState",
   strip a trailing " State" suffix (e.g. "Imo State" becomes "Imo").

7. Guardian info: if no guardian info is given or it is marked "same as
   father", use the father's name and occupation for the guardian fields.

8. Class & section mapping: use only the handwritten class value
   (case-insensitive) to determine both Section and Class. Match the
   portal's casing for Section (e.g. "lower Basic", "middle Basic").
   - PRE-NURSERY / CRECHE -> Class "PRE-NURSERY", Section "lower Basic"
   - NURSERY / KINDERGARTEN / PREPARATORY / GRADE K -> Class "Kindergarten", Section "lower Basic"
   - GRADE 1 / BASIC 1 / 1 -> Class "Basic 1", Section "lower Basic"
   - GRADE 2 / BASIC 2 / 2 -> Class "Basic 2", Section "lower Basic"
   - GRADE 3 / BASIC 3 / 3 -> Class "Basic 3", Section "lower Basic"
   - GRADE 4 / BASIC 4 / 4 -> Class "Basic 4", Section "middle Basic"
   - GRADE 5 / BASIC 5 / 5 -> Class "Basic 5", Section "middle Basic"
   - GRADE 6 / BASIC 6 / 6 -> Class "Basic 6", Section "middle Basic"

9. PreviousClass mapping: apply the same mapping rules used for Class.

10. General rules: omit missing optional fields or use "Nil". Required
    fields MUST have a value; if a required handwritten value is blank or
    illegible, use "Nil" or "" as appropriate, but the key MUST be present.
    The output MUST be a single valid JSON object with no explanatory text
    before or after it.
`
