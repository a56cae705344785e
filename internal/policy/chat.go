package policy

import (
	"task-marketplace-api/internal/models"
)

// CanExchange reports whether userA and userB may exchange messages about the
// task. Exactly one side must be the customer; who the counterpart may be
// depends on the task status:
//
//   - active: any tasker with a pending or confirmed application, plus the
//     targeted tasker on targeted tasks
//   - scheduled and later: only the selected tasker
//
// Must be evaluated on every send and every conversation fetch; the answer
// changes as the task moves through its lifecycle.
func CanExchange(task *models.Task, applications []models.Application, userA, userB string) bool {
	if userA == "" || userB == "" || userA == userB {
		return false
	}

	var counterpart string
	switch task.CustomerID {
	case userA:
		counterpart = userB
	case userB:
		counterpart = userA
	default:
		return false
	}

	switch task.Status {
	case models.StatusActive:
		if task.IsTargeted && task.TargetedTaskerID != nil && *task.TargetedTaskerID == counterpart {
			return true
		}
		for _, app := range applications {
			if app.TaskerID != counterpart {
				continue
			}
			if app.Status == models.ApplicationPending || app.Status == models.ApplicationConfirmed {
				return true
			}
		}
		return false
	default:
		return task.SelectedTaskerID != nil && *task.SelectedTaskerID == counterpart
	}
}
