package audit

import (
	libinjection "github.com/corazawaf/libinjection-go"
)

// InjectionCheckResult contains the result of an injection check on a trigger
// payload metadata value.
type InjectionCheckResult struct {
	IsSQLi      bool   // True if SQL injection pattern detected
	Fingerprint string // libinjection fingerprint of the detected pattern
	FieldName   string // Name of the metadata field that failed the check
	FieldValue  any    // The value that was checked
}

// CheckFieldForInjection uses libinjection to detect SQL injection patterns
// in a trigger payload metadata value.
//
// Only string values are checked - numbers, booleans, and other types cannot
// contain SQL injection patterns and will return nil (no injection detected).
//
// Returns nil if no injection is detected, or an InjectionCheckResult with
// details about the detected pattern.
func CheckFieldForInjection(fieldName string, value any) *InjectionCheckResult {
	strValue, ok := value.(string)
	if !ok {
		return nil
	}

	isSQLi, fingerprint := libinjection.IsSQLi(strValue)
	if isSQLi {
		return &InjectionCheckResult{
			IsSQLi:      true,
			Fingerprint: string(fingerprint),
			FieldName:   fieldName,
			FieldValue:  value,
		}
	}

	return nil
}

// CheckMetadata validates all trigger metadata values for SQL injection
// attempts before the payload is relayed to the automation engine.
//
// Returns a slice of InjectionCheckResult for each field that failed the
// injection check. Returns an empty slice if all fields are clean.
func CheckMetadata(metadata map[string]any) []*InjectionCheckResult {
	var results []*InjectionCheckResult
	for name, value := range metadata {
		if result := CheckFieldForInjection(name, value); result != nil {
			results = append(results, result)
		}
	}
	return results
}
