// Package template substitutes bracketed placeholder tokens in action
// configuration strings with values drawn from the triggering event.
//
// The token set is fixed: [customer_name], [customer_address],
// [job_number], and [job_value]. Each occurrence is replaced with the
// corresponding value, or the empty string when the event carries none.
// Anything outside the fixed set, bracketed or not, is left verbatim.
// Resolution is pure and total: it never fails, and missing data yields
// empty substitutions rather than errors.
package template

import (
	"strconv"
	"strings"

	"github.com/c360/ruleflow/automation"
)

// Placeholder tokens recognized by Resolve.
const (
	TokenCustomerName    = "[customer_name]"
	TokenCustomerAddress = "[customer_address]"
	TokenJobNumber       = "[job_number]"
	TokenJobValue        = "[job_value]"
)

// Values holds the resolved text for each placeholder token. Fields left
// empty substitute as the empty string.
type Values struct {
	CustomerName    string
	CustomerAddress string
	JobNumber       string

	// JobValue is pre-formatted with exactly two decimal places
	// ("499.99", "500.00"), or empty when the event carries no job.
	JobValue string
}

// FromEvent extracts placeholder values from an event. Customer fields
// come from the nested customer record of job-shaped payloads, directly
// from the customer record of customer-shaped payloads, or from the
// invoice's customer; job fields come from the job record. Payloads that
// carry no such record yield empty values.
func FromEvent(evt automation.Event) Values {
	var v Values

	if c, ok := evt.CustomerRecord(); ok {
		v.CustomerName = c.Name
		v.CustomerAddress = c.Address
	}

	if j, ok := evt.JobRecord(); ok {
		v.JobNumber = j.Number
		v.JobValue = strconv.FormatFloat(j.Value, 'f', 2, 64)
	}

	return v
}

// Resolve replaces every occurrence of the fixed token set in s with the
// corresponding value. Unknown tokens stay verbatim.
func Resolve(s string, v Values) string {
	if s == "" || !strings.Contains(s, "[") {
		return s
	}

	return strings.NewReplacer(
		TokenCustomerName, v.CustomerName,
		TokenCustomerAddress, v.CustomerAddress,
		TokenJobNumber, v.JobNumber,
		TokenJobValue, v.JobValue,
	).Replace(s)
}
