package cli

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dmitrijs2005/sealkeeper/internal/client/models"
	"github.com/dmitrijs2005/sealkeeper/internal/client/services"
	"github.com/dmitrijs2005/sealkeeper/internal/common"
)

// getSimpleText is an indirection used to facilitate testing.
var getSimpleText = GetSimpleText

// List prints one page of records matching query, followed by the stats of
// the whole snapshot. Offline it shows the cached snapshot.
func (a *App) List(ctx context.Context, query string) error {
	a.view = ViewState{Query: query}
	return a.printPage(ctx)
}

func (a *App) NextPage(ctx context.Context) error {
	a.view.Page++
	return a.printPage(ctx)
}

func (a *App) PrevPage(ctx context.Context) error {
	if a.view.Page > 0 {
		a.view.Page--
	}
	return a.printPage(ctx)
}

func (a *App) snapshot(ctx context.Context) ([]models.Record, error) {
	if a.Mode() == ModeOnline {
		return a.records.Records(), nil
	}
	return a.records.LoadCached(ctx)
}

func (a *App) printPage(ctx context.Context) error {
	all, err := a.snapshot(ctx)
	if err != nil {
		a.logger.Error(ctx, "list failed", "error", err)
		return err
	}

	matched := Filter(all, a.view.Query)
	page, current, pages := Paginate(matched, a.view.Page)
	a.view.Page = current

	if len(page) == 0 {
		fmt.Fprintln(a.out, "No records")
	}
	for _, r := range page {
		fmt.Fprintln(a.out, formatRow(r))
	}
	fmt.Fprintf(a.out, "Page %d/%d (%d matching)\n", current+1, pages, len(matched))

	st := services.ComputeStats(all)
	fmt.Fprintf(a.out, "Total: %d  Verified: %d  Average score: %.1f\n", st.Total, st.Verified, st.AverageScore)
	return nil
}

func formatRow(r models.Record) string {
	state := "encrypted"
	if r.IsVerified {
		state = "verified"
	}
	return fmt.Sprintf("%s  %-20s  score=%-3d  %s", r.ID, r.Name, r.PublicScore, state)
}

// Create prompts for name, value and description and stores a new record.
func (a *App) Create(ctx context.Context) error {
	name, err := getSimpleText(a.reader, "Enter name", a.out)
	if err != nil {
		return err
	}
	value, err := getSimpleText(a.reader, "Enter secret value (integer)", a.out)
	if err != nil {
		return err
	}
	description, err := getSimpleText(a.reader, "Enter description", a.out)
	if err != nil {
		return err
	}

	rec, err := a.records.CreateRecord(ctx, name, value, description)
	if err != nil {
		return err
	}
	fmt.Fprintln(a.out, "Created", rec.ID)
	return nil
}

// Show prints a single record. The value shown is the verified one when the
// record is verified, the session-decrypted one when present, or nothing.
func (a *App) Show(ctx context.Context, id string) error {
	r, ok := a.records.Record(id)
	if !ok {
		fmt.Fprintln(a.out, "Record not found:", id)
		return common.ErrorNotFound
	}

	fmt.Fprintf(a.out, "ID:          %s\n", r.ID)
	fmt.Fprintf(a.out, "Name:        %s\n", r.Name)
	fmt.Fprintf(a.out, "Description: %s\n", r.Description)
	fmt.Fprintf(a.out, "Score:       %d\n", r.PublicScore)
	fmt.Fprintf(a.out, "Secondary:   %d\n", r.SecondaryPublicValue)
	fmt.Fprintf(a.out, "Creator:     %s\n", r.Creator)
	fmt.Fprintf(a.out, "Created:     %s\n", r.CreatedTime().UTC().Format(time.RFC3339))
	fmt.Fprintf(a.out, "Handle:      %s\n", r.EncryptedValueHandle)

	switch {
	case r.IsVerified:
		fmt.Fprintf(a.out, "Value:       %d (verified)\n", r.VerifiedValue)
	default:
		if v, ok := a.records.Decrypted(id); ok {
			fmt.Fprintf(a.out, "Value:       %d (decrypted)\n", v)
		} else {
			fmt.Fprintln(a.out, "Value:       <encrypted>")
		}
	}
	return nil
}

// Decrypt runs the decryption and on-chain verification of a record.
func (a *App) Decrypt(ctx context.Context, id string) error {
	value, ok, err := a.records.RequestDecryption(ctx, id)
	if err != nil {
		if errors.Is(err, common.ErrAlreadyInProgress) {
			fmt.Fprintln(a.out, "Decryption already in progress for", id)
		}
		return err
	}
	if ok {
		fmt.Fprintf(a.out, "%s = %d\n", id, value)
	}
	return nil
}

// Hide drops the session-decrypted value of a record.
func (a *App) Hide(ctx context.Context, id string) error {
	a.records.Forget(id)
	return nil
}

func (a *App) Refresh(ctx context.Context) error {
	recs, err := a.records.Refresh(ctx)
	if err != nil {
		return err
	}
	fmt.Fprintf(a.out, "Loaded %d records\n", len(recs))
	return nil
}

func (a *App) Check(ctx context.Context) error {
	return a.records.CheckAvailability(ctx)
}

func (a *App) Status(ctx context.Context) error {
	st := a.records.Status()
	if !st.Visible {
		fmt.Fprintln(a.out, "No pending transactions")
		return nil
	}
	fmt.Fprintf(a.out, "[%s] %s\n", st.Phase, st.Message)
	return nil
}
