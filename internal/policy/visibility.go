package policy

import (
	"task-marketplace-api/internal/apperr"
	"task-marketplace-api/internal/models"
)

// Access is the visibility level a requester has on a task.
type Access int

const (
	AccessNone Access = iota
	AccessRead
	AccessParticipant
)

// CanView classifies the requester against the task. An empty requesterID
// means anonymous. Pure function: callers pass current state, nothing is
// cached here.
func CanView(task *models.Task, requesterID string) Access {
	if task.IsParticipant(requesterID) {
		return AccessParticipant
	}

	switch task.Status {
	case models.StatusActive:
		if task.IsTargeted {
			// Targeted tasks are visible only to the customer and the
			// targeted tasker while open.
			return AccessNone
		}
		return AccessRead
	default:
		// scheduled, completed, cancelled: participants only.
		return AccessNone
	}
}

// ViewError maps a denied view to the error the caller should surface:
// Unauthenticated for anonymous requesters, Forbidden otherwise. Returns nil
// when the requester may view the task.
func ViewError(task *models.Task, requesterID string) error {
	if CanView(task, requesterID) != AccessNone {
		return nil
	}
	if requesterID == "" {
		return apperr.New(apperr.KindUnauthenticated, "authentication required")
	}
	return apperr.New(apperr.KindForbidden, "no access to this task")
}

// CanListApplications reports whether the requester may list a task's
// applications. While the task is active only the customer may; once it has
// been scheduled (or later), the selected tasker may as well.
func CanListApplications(task *models.Task, requesterID string) bool {
	if requesterID == "" {
		return false
	}
	if task.CustomerID == requesterID {
		return true
	}
	if task.Status == models.StatusActive {
		return false
	}
	return task.SelectedTaskerID != nil && *task.SelectedTaskerID == requesterID
}

// CanApply reports whether taskerID may apply to the task, based purely on
// targeting and ownership. Status and range checks belong to the engine.
func CanApply(task *models.Task, taskerID string) bool {
	if taskerID == "" || taskerID == task.CustomerID {
		return false
	}
	if task.IsTargeted {
		return task.TargetedTaskerID != nil && *task.TargetedTaskerID == taskerID
	}
	return true
}
