// internal/app/features/auditlog/types.go
package auditlog

import "github.com/dalemusser/sevadesk/internal/app/store/audit"

const maxLimit = 500

// eventTypesForCategory returns the event types for a given category.
// If category is empty, returns all event types.
func eventTypesForCategory(category string) []string {
	calendarEvents := []string{
		audit.EventCardsApproved,
		audit.EventCardsShifted,
		audit.EventBypassToggled,
		audit.EventDateChanged,
		audit.EventCardsConfirmed,
		audit.EventCardsRejected,
		audit.EventCardsOut,
		audit.EventCardsQualified,
		audit.EventConfirmContended,
	}

	adminEvents := []string{
		audit.EventContainerUnlocked,
		audit.EventContainerRelocked,
		audit.EventContainerLimitChanged,
		audit.EventCooldownSet,
		audit.EventCooldownCleared,
		audit.EventLeasesReaped,
	}

	switch category {
	case audit.CategoryCalendar:
		return calendarEvents
	case audit.CategoryAdmin:
		return adminEvents
	case "":
		all := make([]string, 0, len(calendarEvents)+len(adminEvents))
		all = append(all, calendarEvents...)
		all = append(all, adminEvents...)
		return all
	default:
		return nil
	}
}

func knownEventType(category, eventType string) bool {
	for _, e := range eventTypesForCategory(category) {
		if e == eventType {
			return true
		}
	}
	return false
}
