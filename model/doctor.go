package model

// Doctor is a practitioner affiliated with one hospital.
type Doctor struct {
	ID         string `json:"_id" example:"65a1f0c2e4b0a1b2c3d4e600"`
	Email      string `json:"doctor_email" example:"dr.house@example.com"`
	HospitalID string `json:"hospital_id" example:"65a1f0c2e4b0a1b2c3d4e700"`
}

// Hospital is referenced by Doctor.
type Hospital struct {
	ID   string `json:"_id" example:"65a1f0c2e4b0a1b2c3d4e700"`
	Name string `json:"name" example:"City Hospital"`
}

// Category labels a medical record.
type Category struct {
	ID   string `json:"_id" example:"65a1f0c2e4b0a1b2c3d4e800"`
	Name string `json:"cname" example:"Hematology"`
}
