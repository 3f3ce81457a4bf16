package chgevent

import "fmt"

// Tracker accumulates pending PDR changes on the terminus side between
// change-event transmissions, then composes a ChangeEvent from the
// accumulated state.
type Tracker struct {
	deletes  []uint32
	adds     []uint32
	modifies []uint32
}

// NewTracker returns an empty change tracker.
func NewTracker() *Tracker {
	return &Tracker{}
}

// RecordDelete records a PDR deletion (entry is a handle or PDR type
// depending on the format the caller will later request from
// BuildEvent).
func (t *Tracker) RecordDelete(entry uint32) error {
	if len(t.deletes) >= MaxChangeEntries {
		return fmt.Errorf("record delete %d: %w", entry, ErrTooManyEntries)
	}
	t.deletes = append(t.deletes, entry)
	return nil
}

// RecordAdd records a PDR addition.
func (t *Tracker) RecordAdd(entry uint32) error {
	if len(t.adds) >= MaxChangeEntries {
		return fmt.Errorf("record add %d: %w", entry, ErrTooManyEntries)
	}
	t.adds = append(t.adds, entry)
	return nil
}

// RecordModify records a PDR modification.
func (t *Tracker) RecordModify(entry uint32) error {
	if len(t.modifies) >= MaxChangeEntries {
		return fmt.Errorf("record modify %d: %w", entry, ErrTooManyEntries)
	}
	t.modifies = append(t.modifies, entry)
	return nil
}

// HasChanges reports whether any change has been recorded since the
// last Clear.
func (t *Tracker) HasChanges() bool {
	return len(t.deletes) > 0 || len(t.adds) > 0 || len(t.modifies) > 0
}

// Clear discards all accumulated changes.
func (t *Tracker) Clear() {
	t.deletes = nil
	t.adds = nil
	t.modifies = nil
}

// BuildEvent composes a ChangeEvent from the tracker's accumulated
// state, in the required record order (deletes, adds, modifies). If
// no changes are pending, it returns refreshEntireRepository. If the
// composed event would exceed maxMsgSize once encoded (0 disables the
// check), it falls back to refreshEntireRepository rather than return
// a change event a transport could not deliver in one message.
func (t *Tracker) BuildEvent(format EventFormat, maxMsgSize int) ChangeEvent {
	if !t.HasChanges() {
		return ChangeEvent{Format: FormatRefreshEntireRepository}
	}

	event := ChangeEvent{Format: format}

	if len(t.deletes) > 0 {
		event.ChangeRecords = append(event.ChangeRecords, ChangeRecord{
			Operation:     OpRecordsDeleted,
			ChangeEntries: t.deletes,
		})
	}
	if len(t.adds) > 0 {
		event.ChangeRecords = append(event.ChangeRecords, ChangeRecord{
			Operation:     OpRecordsAdded,
			ChangeEntries: t.adds,
		})
	}
	if len(t.modifies) > 0 {
		event.ChangeRecords = append(event.ChangeRecords, ChangeRecord{
			Operation:     OpRecordsModified,
			ChangeEntries: t.modifies,
		})
	}

	if len(event.ChangeRecords) > MaxChangeRecords {
		return ChangeEvent{Format: FormatRefreshEntireRepository}
	}
	if maxMsgSize > 0 && EncodedSize(event) > maxMsgSize {
		return ChangeEvent{Format: FormatRefreshEntireRepository}
	}

	return event
}
