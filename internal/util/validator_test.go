package util

import "testing"

func TestValidateEmail(t *testing.T) {
	valid := []string{"owner@acme.test", "a.b+tag@sub.domain.org"}
	for _, email := range valid {
		if err := ValidateEmail(email); err != nil {
			t.Errorf("ValidateEmail(%q) = %v", email, err)
		}
	}

	invalid := []string{"", "plainaddress", "@missing-local.test", "user@"}
	for _, email := range invalid {
		if err := ValidateEmail(email); err == nil {
			t.Errorf("ValidateEmail(%q) must fail", email)
		}
	}
}

func TestValidatePassword(t *testing.T) {
	if err := ValidatePassword("secret12"); err != nil {
		t.Errorf("8 chars must pass: %v", err)
	}
	if err := ValidatePassword("short"); err == nil {
		t.Error("short password must fail")
	}
}

func TestValidateUsername(t *testing.T) {
	valid := []string{"viewer", "user_01", "a-b-c", "abc"}
	for _, username := range valid {
		if err := ValidateUsername(username); err != nil {
			t.Errorf("ValidateUsername(%q) = %v", username, err)
		}
	}

	invalid := []string{"", "ab", "with space", "emoji💥", "this-username-is-way-too-long"}
	for _, username := range invalid {
		if err := ValidateUsername(username); err == nil {
			t.Errorf("ValidateUsername(%q) must fail", username)
		}
	}
}
