package service

import "pettycash/internal/models"

// transitions is the one-directional requisition status graph. A status not
// present here is terminal.
var transitions = map[models.RequisitionStatus][]models.RequisitionStatus{
	models.StatusDraft:           {models.StatusSubmitted},
	models.StatusSubmitted:       {models.StatusAuthorised, models.StatusRejected},
	models.StatusAuthorised:      {models.StatusDisbursed, models.StatusRejected},
	models.StatusDisbursed:       {models.StatusReceived},
	models.StatusReceived:        {models.StatusChangeSubmitted},
	models.StatusChangeSubmitted: {models.StatusCompleted},
}

// operationSources maps each named operation to the statuses it is legal
// from. Expense updates are allowed from DISBURSED and RECEIVED (while the
// requestor still holds cash and receipts).
var operationSources = map[string][]models.RequisitionStatus{
	"submit":         {models.StatusDraft},
	"authorise":      {models.StatusSubmitted},
	"reject":         {models.StatusSubmitted, models.StatusAuthorised},
	"disburse":       {models.StatusAuthorised},
	"acknowledge":    {models.StatusDisbursed},
	"updateExpenses": {models.StatusDisbursed, models.StatusReceived},
	"submitChange":   {models.StatusReceived},
	"confirmChange":  {models.StatusChangeSubmitted},
}

// operationTargets maps each operation to the status it produces.
var operationTargets = map[string]models.RequisitionStatus{
	"submit":        models.StatusSubmitted,
	"authorise":     models.StatusAuthorised,
	"reject":        models.StatusRejected,
	"disburse":      models.StatusDisbursed,
	"acknowledge":   models.StatusReceived,
	"submitChange":  models.StatusChangeSubmitted,
	"confirmChange": models.StatusCompleted,
}

// CanTransition reports whether moving from one status directly to another is
// legal.
func CanTransition(from, to models.RequisitionStatus) bool {
	for _, next := range transitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// CheckOperation validates that a named operation is legal from the current
// status, returning InvalidStateTransition with diagnostics otherwise.
func CheckOperation(requisitionID string, current models.RequisitionStatus, operation string) error {
	for _, s := range operationSources[operation] {
		if s == current {
			return nil
		}
	}
	return &models.InvalidStateTransition{
		RequisitionID: requisitionID,
		Current:       current,
		Attempted:     operation,
	}
}

// OperationSources returns the statuses a named operation may start from.
func OperationSources(operation string) []models.RequisitionStatus {
	return operationSources[operation]
}

// OperationFor maps a requested target status to the named operation that
// produces it, for the PATCH status endpoint. Unknown targets return "".
func OperationFor(target models.RequisitionStatus) string {
	for op, t := range operationTargets {
		if t == target {
			return op
		}
	}
	return ""
}

// TargetOf returns the status a named operation moves a requisition to.
func TargetOf(operation string) models.RequisitionStatus {
	return operationTargets[operation]
}
