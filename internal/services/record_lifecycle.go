package services

import (
	"context"
	"fmt"

	"github.com/looplab/fsm"
	"github.com/prudhvinik1/intakesync/internal/models"
)

const (
	eventSubmit      = "submit"
	eventAcknowledge = "acknowledge"
	eventExhaust     = "exhaust"
	eventRetry       = "retry"
)

// local -> pending happens right before the first remote attempt. synced is
// terminal. failed only leaves through an operator retry.
func newRecordFSM(current models.RecordStatus) *fsm.FSM {
	return fsm.NewFSM(
		string(current),
		fsm.Events{
			{Name: eventSubmit, Src: []string{string(models.RecordLocal)}, Dst: string(models.RecordPending)},
			{Name: eventAcknowledge, Src: []string{string(models.RecordPending)}, Dst: string(models.RecordSynced)},
			{Name: eventExhaust, Src: []string{string(models.RecordPending)}, Dst: string(models.RecordFailed)},
			{Name: eventRetry, Src: []string{string(models.RecordFailed)}, Dst: string(models.RecordPending)},
		},
		fsm.Callbacks{},
	)
}

// advanceRecord applies event to record.Status, rejecting transitions the
// lifecycle does not allow.
func advanceRecord(ctx context.Context, record *models.ClientRecord, event string) error {
	f := newRecordFSM(record.Status)
	if err := f.Event(ctx, event); err != nil {
		return fmt.Errorf("record %s: %w", record.ID, err)
	}
	record.Status = models.RecordStatus(f.Current())
	return nil
}
