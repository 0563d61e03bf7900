package engine

import (
	"fmt"
	"strings"

	"github.com/c360/ruleflow/automation"
	"github.com/c360/ruleflow/errors"
)

// EvaluateConditions evaluates a rule's generic conditions against an
// event and reports whether all of them hold. An empty condition list
// holds trivially. A condition referencing a field the event does not
// carry fails without error; an unknown operator or field name returns
// an error.
//
// This is an extension point: conditions are part of the rule model and
// fully evaluable here, but Match does not call this function, so
// conditions never constrain matching on their own. Callers that want
// condition-gated dispatch filter the matched rules themselves.
//
// Comparison is numeric when both sides are numeric, otherwise on the
// string forms. Supported fields mirror the event payload union:
// trigger_kind, customer_name, customer_address, customer_email,
// customer_phone, job_number, job_value, job_status, new_status,
// previous_status, task_title, invoice_number, invoice_amount,
// days_overdue, item_name, and stock.
func EvaluateConditions(conds []automation.Condition, evt automation.Event) (bool, error) {
	for _, c := range conds {
		ok, err := evaluateCondition(c, evt)
		if err != nil {
			return false, err
		}
		if !ok {
			return false, nil
		}
	}
	return true, nil
}

func evaluateCondition(c automation.Condition, evt automation.Event) (bool, error) {
	value, present, err := eventField(evt, c.Field)
	if err != nil {
		return false, err
	}
	if !present {
		return false, nil
	}

	switch c.Operator {
	case automation.OpEquals:
		return compareValues(value, c.Value) == 0, nil
	case automation.OpGreaterThan:
		return compareValues(value, c.Value) > 0, nil
	case automation.OpLessThan:
		return compareValues(value, c.Value) < 0, nil
	case automation.OpContains:
		return strings.Contains(stringForm(value), stringForm(c.Value)), nil
	default:
		return false, errors.WrapInvalid(errors.ErrInvalidData, "Engine", "EvaluateConditions",
			fmt.Sprintf("unsupported operator %q", c.Operator))
	}
}

// eventField resolves a condition field name against the event payload.
// The second return is false when the event's kind carries no such
// record (a job field on a customer event, say).
func eventField(evt automation.Event, field string) (any, bool, error) {
	switch field {
	case "trigger_kind":
		return string(evt.Kind), true, nil

	case "customer_name", "customer_address", "customer_email", "customer_phone":
		c, ok := evt.CustomerRecord()
		if !ok {
			return nil, false, nil
		}
		switch field {
		case "customer_name":
			return c.Name, true, nil
		case "customer_address":
			return c.Address, true, nil
		case "customer_email":
			return c.Email, true, nil
		default:
			return c.Phone, true, nil
		}

	case "job_number", "job_value", "job_status":
		j, ok := evt.JobRecord()
		if !ok {
			return nil, false, nil
		}
		switch field {
		case "job_number":
			return j.Number, true, nil
		case "job_value":
			return j.Value, true, nil
		default:
			return j.Status, true, nil
		}

	case "new_status", "previous_status":
		if evt.JobStatus == nil {
			return nil, false, nil
		}
		if field == "new_status" {
			return evt.JobStatus.NewStatus, true, nil
		}
		return evt.JobStatus.PreviousStatus, true, nil

	case "task_title":
		if evt.Task == nil {
			return nil, false, nil
		}
		return evt.Task.Task.Title, true, nil

	case "invoice_number", "invoice_amount", "days_overdue":
		if evt.Invoice == nil {
			return nil, false, nil
		}
		switch field {
		case "invoice_number":
			return evt.Invoice.Invoice.Number, true, nil
		case "invoice_amount":
			return evt.Invoice.Invoice.Amount, true, nil
		default:
			return evt.Invoice.DaysOverdue, true, nil
		}

	case "item_name", "stock":
		if evt.Inventory == nil {
			return nil, false, nil
		}
		if field == "item_name" {
			return evt.Inventory.Item.Name, true, nil
		}
		return evt.Inventory.Item.Stock, true, nil

	default:
		return nil, false, errors.WrapInvalid(errors.ErrInvalidData, "Engine", "EvaluateConditions",
			fmt.Sprintf("unknown condition field %q", field))
	}
}

// compareValues orders two values: numerically when both sides are
// numeric, otherwise by their string forms.
func compareValues(a, b any) int {
	aNum, aIsNum := toFloat64(a)
	bNum, bIsNum := toFloat64(b)

	if aIsNum && bIsNum {
		switch {
		case aNum < bNum:
			return -1
		case aNum > bNum:
			return 1
		default:
			return 0
		}
	}

	return strings.Compare(stringForm(a), stringForm(b))
}

func stringForm(v any) string {
	if s, ok := v.(string); ok {
		return s
	}
	return fmt.Sprintf("%v", v)
}

func toFloat64(v any) (float64, bool) {
	switch val := v.(type) {
	case float64:
		return val, true
	case float32:
		return float64(val), true
	case int:
		return float64(val), true
	case int8:
		return float64(val), true
	case int16:
		return float64(val), true
	case int32:
		return float64(val), true
	case int64:
		return float64(val), true
	case uint:
		return float64(val), true
	case uint8:
		return float64(val), true
	case uint16:
		return float64(val), true
	case uint32:
		return float64(val), true
	case uint64:
		return float64(val), true
	default:
		return 0, false
	}
}
