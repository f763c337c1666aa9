package mission

import (
	"fmt"

	"github.com/elliotttmiller/sentinel/internal/events"
)

// engineSource is the Source field on every record the engine emits.
const engineSource = "mission-engine"

// Record constructors for the engine's event vocabulary. Each constructor
// corresponds to one logical transition of the mission automaton; the engine
// pushes exactly one of these per transition.

func startedRecord(m *Mission) events.EventRecord {
	return events.NewRecord(events.EventMissionStarted, engineSource, events.SeverityInfo,
		fmt.Sprintf("mission %s started", m.ID),
		map[string]any{
			"mission_id": m.ID,
			"agent_type": m.AgentType,
			"percent":    m.Progress,
		})
}

func progressRecord(m *Mission, stageID string, percent int) events.EventRecord {
	return events.NewRecord(events.EventMissionProgress, engineSource, events.SeverityInfo,
		fmt.Sprintf("mission %s: stage %s complete (%d%%)", m.ID, stageID, percent),
		map[string]any{
			"mission_id": m.ID,
			"stage":      stageID,
			"percent":    percent,
		})
}

func healingRecord(m *Mission, errText string, attempt int) events.EventRecord {
	return events.NewRecord(events.EventMissionHealing, engineSource, events.SeverityWarning,
		fmt.Sprintf("mission %s healing after failure (attempt %d)", m.ID, attempt),
		map[string]any{
			"mission_id": m.ID,
			"error":      errText,
			"attempt":    attempt,
		})
}

func completedRecord(m *Mission, result string) events.EventRecord {
	return events.NewRecord(events.EventMissionCompleted, engineSource, events.SeveritySuccess,
		fmt.Sprintf("mission %s completed", m.ID),
		map[string]any{
			"mission_id": m.ID,
			"result":     result,
		})
}

func failedRecord(m *Mission, errText string, attempts int) events.EventRecord {
	return events.NewRecord(events.EventMissionFailed, engineSource, events.SeverityError,
		fmt.Sprintf("mission %s failed after %d healing attempts", m.ID, attempts),
		map[string]any{
			"mission_id": m.ID,
			"error":      errText,
			"attempts":   attempts,
		})
}

func errorRecord(m *Mission, stageID, errText string) events.EventRecord {
	return events.NewRecord(events.EventMissionError, engineSource, events.SeverityError,
		fmt.Sprintf("mission %s: orchestration fault in stage %s", m.ID, stageID),
		map[string]any{
			"mission_id": m.ID,
			"stage":      stageID,
			"error":      errText,
		})
}

func cancelledRecord(m *Mission) events.EventRecord {
	return events.NewRecord(events.EventMissionCancelled, engineSource, events.SeverityWarning,
		fmt.Sprintf("mission %s cancelled", m.ID),
		map[string]any{
			"mission_id": m.ID,
		})
}
