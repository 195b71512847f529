// ABOUTME: Note history edits for deals on the pipeline board
// ABOUTME: Stamps, prunes and saves the encoded notes field with rollback on failure
package pipeline

import (
	"context"

	"github.com/harperreed/dealflow/api"
	"github.com/harperreed/dealflow/models"
	"github.com/harperreed/dealflow/notes"
)

// AddNote appends a stamped fragment to a deal's notes.
func (b *Board) AddNote(ctx context.Context, dealID, text string, attachments []models.Attachment) (string, error) {
	return b.setNotes(ctx, "add deal note", dealID, func(raw string) (string, error) {
		return notes.Append(raw, text, attachments, b.opts.Now()), nil
	})
}

// EditNote rewrites the fragment at index. Emptying it removes the fragment.
func (b *Board) EditNote(ctx context.Context, dealID string, index int, text string) (string, error) {
	return b.setNotes(ctx, "edit deal note", dealID, func(raw string) (string, error) {
		return notes.EditAt(raw, index, text, b.opts.Now())
	})
}

// SaveNotes stores a raw notes field after pruning empty fragments.
func (b *Board) SaveNotes(ctx context.Context, dealID, raw string) (string, error) {
	return b.setNotes(ctx, "save deal notes", dealID, func(string) (string, error) {
		return notes.Prune(raw), nil
	})
}

func (b *Board) setNotes(ctx context.Context, name, dealID string, edit func(raw string) (string, error)) (string, error) {
	var before, after string

	err := b.run(ctx, command{
		name: name,
		apply: func(stages []models.Stage) ([]models.Stage, error) {
			si, di := dealIndex(stages, dealID)
			if si < 0 {
				return nil, ErrDealNotFound
			}
			deal := &stages[si].Deals[di]
			updated, err := edit(deal.Notes)
			if err != nil {
				return nil, err
			}
			before, after = deal.Notes, updated
			deal.Notes = updated
			return stages, nil
		},
		persist: func(ctx context.Context) error {
			if models.IsTempID(dealID) || before == after {
				return nil
			}
			return b.backend.UpdateDeal(ctx, dealID, api.DealPatch{Notes: &after})
		},
		compensate: func(context.Context) {
			_ = b.mutate(func(stages []models.Stage) ([]models.Stage, error) {
				if si, di := dealIndex(stages, dealID); si >= 0 {
					stages[si].Deals[di].Notes = before
				}
				return stages, nil
			})
		},
	})
	if err != nil {
		return "", err
	}
	return after, nil
}

// NotePreview returns the short label shown on a deal card.
func (b *Board) NotePreview(dealID string) (string, error) {
	deal, _, err := b.Deal(dealID)
	if err != nil {
		return "", err
	}
	return notes.PreviewLabel(deal.Notes, b.opts.Now()), nil
}
