// Lumigate - Authentication Gateway and Session Security Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/lumigate

package validation

import (
	"strings"
	"testing"

	"github.com/tomtom215/lumigate/internal/models"
)

func validRegisterRequest() models.RegisterRequest {
	return models.RegisterRequest{
		Email:           "user@example.com",
		Username:        "someuser",
		Password:        "longenoughpassword",
		PasswordConfirm: "longenoughpassword",
	}
}

func TestValidateStruct_Valid(t *testing.T) {
	req := validRegisterRequest()
	if err := ValidateStruct(&req); err != nil {
		t.Errorf("ValidateStruct() error = %v, want nil", err)
	}
}

func TestValidateStruct_MissingEmail(t *testing.T) {
	req := validRegisterRequest()
	req.Email = ""

	verr := ValidateStruct(&req)
	if verr == nil {
		t.Fatal("ValidateStruct() = nil for missing email")
	}
	if len(verr.Errors()) != 1 {
		t.Fatalf("Errors() = %d entries, want 1", len(verr.Errors()))
	}
	if verr.Errors()[0].Tag() != "required" {
		t.Errorf("Tag() = %v, want required", verr.Errors()[0].Tag())
	}
}

func TestValidateStruct_BadEmail(t *testing.T) {
	req := validRegisterRequest()
	req.Email = "not-an-address"

	verr := ValidateStruct(&req)
	if verr == nil {
		t.Fatal("ValidateStruct() = nil for malformed email")
	}
	if !strings.Contains(verr.Error(), "valid email") {
		t.Errorf("Error() = %v, want email message", verr.Error())
	}
}

func TestValidateStruct_PasswordMismatch(t *testing.T) {
	req := validRegisterRequest()
	req.PasswordConfirm = "differentpassword"

	verr := ValidateStruct(&req)
	if verr == nil {
		t.Fatal("ValidateStruct() = nil for mismatched confirmation")
	}
	if verr.Errors()[0].Tag() != "eqfield" {
		t.Errorf("Tag() = %v, want eqfield", verr.Errors()[0].Tag())
	}
}

func TestValidateStruct_PasswordTooShort(t *testing.T) {
	req := validRegisterRequest()
	req.Password = "short"
	req.PasswordConfirm = "short"

	verr := ValidateStruct(&req)
	if verr == nil {
		t.Fatal("ValidateStruct() = nil for short password")
	}
}

func TestValidateStruct_RedactsPasswordValues(t *testing.T) {
	req := validRegisterRequest()
	req.Password = "short"
	req.PasswordConfirm = "short"

	verr := ValidateStruct(&req)
	if verr == nil {
		t.Fatal("ValidateStruct() = nil")
	}

	for _, e := range verr.Errors() {
		if strings.Contains(strings.ToLower(e.Field()), "password") {
			if e.Value() != "[REDACTED]" {
				t.Errorf("password field value = %v, want [REDACTED]", e.Value())
			}
		}
	}

	apiErr := verr.ToAPIError()
	if apiErr.Code != "VALIDATION_ERROR" {
		t.Errorf("Code = %v, want VALIDATION_ERROR", apiErr.Code)
	}
	if strings.Contains(apiErr.Message, "short") {
		t.Error("submitted password leaked into error message")
	}
}

func TestToAPIError_MultipleFields(t *testing.T) {
	req := models.RegisterRequest{}

	verr := ValidateStruct(&req)
	if verr == nil {
		t.Fatal("ValidateStruct() = nil for empty request")
	}

	apiErr := verr.ToAPIError()
	if apiErr.Code != "VALIDATION_ERROR" {
		t.Errorf("Code = %v, want VALIDATION_ERROR", apiErr.Code)
	}
	if apiErr.Details == nil {
		t.Fatal("Details = nil, want per-field entries")
	}
	fields, ok := apiErr.Details["fields"].([]map[string]interface{})
	if !ok {
		t.Fatalf("Details[fields] has type %T", apiErr.Details["fields"])
	}
	if len(fields) < 3 {
		t.Errorf("fields = %d entries, want one per missing field", len(fields))
	}
}

func TestGetValidator_Singleton(t *testing.T) {
	if GetValidator() != GetValidator() {
		t.Error("GetValidator() returned distinct instances")
	}
}
