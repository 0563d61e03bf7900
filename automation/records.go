package automation

import "time"

// Customer is the business record behind new_customer events and the
// customer sub-record of jobs and invoices.
type Customer struct {
	Name    string `json:"name"`
	Address string `json:"address,omitempty"`
	Email   string `json:"email,omitempty"`
	Phone   string `json:"phone,omitempty"`
}

// Job is a job or estimate record. Value is the final quoted amount.
type Job struct {
	Number   string   `json:"number"`
	Value    float64  `json:"value"`
	Status   string   `json:"status,omitempty"`
	Customer Customer `json:"customer"`
}

// Task is a work item, referenced by task_completed events.
type Task struct {
	Title       string    `json:"title"`
	JobNumber   string    `json:"job_number,omitempty"`
	CompletedAt time.Time `json:"completed_at"`
}

// Invoice is a billing record, referenced by invoice_overdue events.
type Invoice struct {
	Number   string    `json:"number"`
	Amount   float64   `json:"amount"`
	DueDate  time.Time `json:"due_date"`
	Customer Customer  `json:"customer"`
}

// InventoryItem is a stock record, referenced by inventory_low events.
type InventoryItem struct {
	Name  string `json:"name"`
	Stock int    `json:"stock"`
	Unit  string `json:"unit,omitempty"`
}
