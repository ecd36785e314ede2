package model

// Log is a medical record entry. Description carries the embedded doctor
// note and blood test markers, or the structured description document.
// @Description Medical record information
type Log struct {
	ID          string `json:"_id" example:"65a1f0c2e4b0a1b2c3d4e900"`
	UserEmail   string `json:"user_email,omitempty" example:"jane@example.com"`
	DoctorID    string `json:"doctor_id" example:"65a1f0c2e4b0a1b2c3d4e600"`
	CategoryID  string `json:"category_id" example:"65a1f0c2e4b0a1b2c3d4e800"`
	CreatedAt   string `json:"createdAt" example:"2024-05-01T09:30:00.000Z"`
	Description string `json:"description" example:"[DoctorNote:\"Patient stable\"]{Bloodtest}HGB:\"13.2\"/]"`
}

// Appointment is a scheduled visit with a doctor.
// @Description Appointment information
type Appointment struct {
	ID          string `json:"_id" example:"65a1f0c2e4b0a1b2c3d4ea00"`
	UserEmail   string `json:"user_email,omitempty" example:"jane@example.com"`
	DoctorID    string `json:"doctor_id" example:"65a1f0c2e4b0a1b2c3d4e600"`
	Date        string `json:"date" example:"2024-06-10T10:00:00.000Z"`
	Description string `json:"description" example:"Follow-up blood count"`
}
