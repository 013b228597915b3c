package handlers

import (
	"encoding/json"
	"strings"

	"github.com/go-playground/validator/v10"
)

const (
	RuleIdentifierPresent = "identifier_present"
	RuleEmailFormat       = "email_format"
	RulePhoneDigits       = "phone_digits"
)

var validate = validator.New()

// IdentifyRequest is the body of POST /identify. Both fields are optional
// individually; absent, null and blank values are all treated as absent.
type IdentifyRequest struct {
	Email       *string `json:"email"`
	PhoneNumber *string `json:"phoneNumber"`

	// set when the field was present but not a JSON string
	emailMistyped bool
	phoneMistyped bool
}

func (r *IdentifyRequest) UnmarshalJSON(data []byte) error {
	var raw struct {
		Email       json.RawMessage `json:"email"`
		PhoneNumber json.RawMessage `json:"phoneNumber"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	r.Email, r.emailMistyped = decodeStringField(raw.Email)
	r.PhoneNumber, r.phoneMistyped = decodeStringField(raw.PhoneNumber)
	return nil
}

func decodeStringField(raw json.RawMessage) (*string, bool) {
	if len(raw) == 0 || string(raw) == "null" {
		return nil, false
	}
	var value string
	if err := json.Unmarshal(raw, &value); err != nil {
		return nil, true
	}
	return &value, false
}

// Sanitize trims both fields and drops blank ones.
func (r *IdentifyRequest) Sanitize() {
	r.Email = trimToNil(r.Email)
	r.PhoneNumber = trimToNil(r.PhoneNumber)
}

func trimToNil(value *string) *string {
	if value == nil {
		return nil
	}
	trimmed := strings.TrimSpace(*value)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}

// ValidationRule is a single named check over a sanitized request.
type ValidationRule struct {
	Name    string
	Message string
	Check   func(req *IdentifyRequest) bool
}

// RuleResult records the outcome of one rule.
type RuleResult struct {
	Rule    string
	Passed  bool
	Message string
}

// ValidationError is returned for the first rule a request fails.
type ValidationError struct {
	Rule    string
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

// IdentifyRules returns the request rules in evaluation order.
func IdentifyRules() []ValidationRule {
	return []ValidationRule{
		{
			Name:    RuleIdentifierPresent,
			Message: "Either email or phoneNumber should be provided",
			Check: func(req *IdentifyRequest) bool {
				return req.Email != nil || req.PhoneNumber != nil || req.emailMistyped || req.phoneMistyped
			},
		},
		{
			Name:    RuleEmailFormat,
			Message: "Invalid email",
			Check: func(req *IdentifyRequest) bool {
				if req.emailMistyped {
					return false
				}
				return req.Email == nil || validate.Var(*req.Email, "email") == nil
			},
		},
		{
			Name:    RulePhoneDigits,
			Message: "Invalid phoneNumber",
			Check: func(req *IdentifyRequest) bool {
				if req.phoneMistyped {
					return false
				}
				return req.PhoneNumber == nil || validate.Var(*req.PhoneNumber, "number") == nil
			},
		},
	}
}

// ValidateRequest runs rules in order and stops at the first failure. The
// results cover every rule evaluated, the failing one last.
func ValidateRequest(req *IdentifyRequest, rules []ValidationRule) ([]RuleResult, error) {
	results := make([]RuleResult, 0, len(rules))
	for _, rule := range rules {
		if rule.Check(req) {
			results = append(results, RuleResult{Rule: rule.Name, Passed: true})
			continue
		}
		results = append(results, RuleResult{Rule: rule.Name, Passed: false, Message: rule.Message})
		return results, &ValidationError{Rule: rule.Name, Message: rule.Message}
	}
	return results, nil
}
