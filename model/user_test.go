package model

import "testing"

func TestUserFullName(t *testing.T) {
	tests := []struct {
		name string
		user User
		want string
	}{
		{name: "both", user: User{FirstName: "Jane", LastName: "Doe"}, want: "Jane Doe"},
		{name: "first only", user: User{FirstName: "Jane"}, want: "Jane"},
		{name: "last only", user: User{LastName: "Doe"}, want: "Doe"},
		{name: "neither", user: User{}, want: ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.user.FullName(); got != tt.want {
				t.Errorf("FullName() = %q, want %q", got, tt.want)
			}
		})
	}
}
