package models

// ClientType distinguishes people from organisations.
type ClientType string

const (
	ClientTypeIndividual ClientType = "Individual"
	ClientTypeCompany    ClientType = "Company"
)

// ClientStatus is the relationship stage of a client.
type ClientStatus string

const (
	ClientStatusLead     ClientStatus = "Lead"
	ClientStatusActive   ClientStatus = "Active"
	ClientStatusInactive ClientStatus = "Inactive"
	ClientStatusArchived ClientStatus = "Archived"
)

// ClientTags is the fixed tag vocabulary for clients.
var ClientTags = []string{"VIP", "Regular", "New", "Potential", "Inactive", "Priority", "Partner", "Referral"}

var (
	ClientTypes    = []string{string(ClientTypeIndividual), string(ClientTypeCompany)}
	ClientStatuses = []string{string(ClientStatusLead), string(ClientStatusActive), string(ClientStatusInactive), string(ClientStatusArchived)}
)

// ProjectStatus is the lifecycle state of a project.
type ProjectStatus string

const (
	ProjectStatusNotStarted ProjectStatus = "Not Started"
	ProjectStatusInProgress ProjectStatus = "In Progress"
	ProjectStatusOnHold     ProjectStatus = "On Hold"
	ProjectStatusCompleted  ProjectStatus = "Completed"
)

var ProjectStatuses = []string{
	string(ProjectStatusNotStarted), string(ProjectStatusInProgress),
	string(ProjectStatusOnHold), string(ProjectStatusCompleted),
}

// Priority is shared by projects and tasks.
type Priority string

const (
	PriorityLow    Priority = "Low"
	PriorityMedium Priority = "Medium"
	PriorityHigh   Priority = "High"
	PriorityUrgent Priority = "Urgent"
)

var Priorities = []string{string(PriorityLow), string(PriorityMedium), string(PriorityHigh), string(PriorityUrgent)}

// TaskType classifies a task.
type TaskType string

const (
	TaskTypeTask      TaskType = "Task"
	TaskTypeMilestone TaskType = "Milestone"
	TaskTypeBug       TaskType = "Bug"
	TaskTypeFeature   TaskType = "Feature"
	TaskTypeResearch  TaskType = "Research"
	TaskTypeReview    TaskType = "Review"
)

var TaskTypes = []string{
	string(TaskTypeTask), string(TaskTypeMilestone), string(TaskTypeBug),
	string(TaskTypeFeature), string(TaskTypeResearch), string(TaskTypeReview),
}

// InvoiceStatus represents the status of an invoice.
type InvoiceStatus string

const (
	InvoiceStatusDraft   InvoiceStatus = "draft"
	InvoiceStatusPending InvoiceStatus = "pending"
	InvoiceStatusPaid    InvoiceStatus = "paid"
	InvoiceStatusOverdue InvoiceStatus = "overdue"
)

var InvoiceStatuses = []string{
	string(InvoiceStatusDraft), string(InvoiceStatusPending),
	string(InvoiceStatusPaid), string(InvoiceStatusOverdue),
}

// NotificationType enumerates every notification the system emits.
type NotificationType string

const (
	NotificationWelcome          NotificationType = "welcome"
	NotificationProjectDueSoon   NotificationType = "project_due_soon"
	NotificationTaskDueSoon      NotificationType = "task_due_soon"
	NotificationPaymentReceived  NotificationType = "payment_received"
	NotificationInvoiceSent      NotificationType = "invoice_sent"
	NotificationClientAdded      NotificationType = "client_added"
	NotificationProjectCompleted NotificationType = "project_completed"
	NotificationTaskCompleted    NotificationType = "task_completed"
	NotificationReminder         NotificationType = "reminder"
	NotificationProjectOverdue   NotificationType = "project_overdue"
	NotificationTaskOverdue      NotificationType = "task_overdue"
	NotificationInvoiceOverdue   NotificationType = "invoice_overdue"
)

// Notification priorities.
const (
	NotificationPriorityLow    = "low"
	NotificationPriorityMedium = "medium"
	NotificationPriorityHigh   = "high"
)

// Entity type names used by history entries and notification references.
const (
	EntityProject = "project"
	EntityTask    = "task"
	EntityInvoice = "invoice"
	EntityReceipt = "receipt"
	EntityClient  = "client"
)

// Contains reports whether v is in list.
func Contains(list []string, v string) bool {
	for _, s := range list {
		if s == v {
			return true
		}
	}
	return false
}
