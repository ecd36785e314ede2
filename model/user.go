package model

// User is the patient profile served by the remote data service.
// @Description Patient profile information
type User struct {
	ID         string `json:"_id" example:"65a1f0c2e4b0a1b2c3d4e5f6"`
	FirstName  string `json:"f_name" example:"Jane"`
	LastName   string `json:"l_name" example:"Doe"`
	Email      string `json:"email" example:"jane@example.com"`
	Phone      string `json:"phone" example:"0791234567"`
	DOB        string `json:"dob" example:"1990-04-12T00:00:00.000Z"`
	BloodType  string `json:"blood_type" example:"O+"`
	RoleName   string `json:"role_name" example:"Patient"`
	Image      string `json:"image,omitempty" example:"https://cdn.example.com/avatar.png"`
	LocationID string `json:"location_id,omitempty" example:"65a1f0c2e4b0a1b2c3d4e5f7"`
}

// FullName joins first and last name the way the profile header renders it.
func (u User) FullName() string {
	switch {
	case u.FirstName == "":
		return u.LastName
	case u.LastName == "":
		return u.FirstName
	}
	return u.FirstName + " " + u.LastName
}

// Location is an address referenced by a User.
// @Description Address information
type Location struct {
	ID       string `json:"_id" example:"65a1f0c2e4b0a1b2c3d4e5f7"`
	City     string `json:"city" example:"Amman"`
	Street   string `json:"street" example:"Rainbow St"`
	Address1 string `json:"address1" example:"Building 12"`
	Address2 string `json:"address2" example:"Floor 3"`
}
