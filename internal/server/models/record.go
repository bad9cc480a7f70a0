// Package models defines the ledger node's persistent data model.
package models

import (
	"strconv"
	"time"

	"github.com/dmitrijs2005/sealkeeper/internal/ledger"
)

// Record is a stored confidential record. Handle references the ciphertext
// payload in the blob store; VerifiedValue is meaningful only once
// IsVerified is true.
type Record struct {
	ContractAddress      string
	ID                   string
	Position             int64
	Name                 string
	Description          string
	PublicScore          int64
	SecondaryPublicValue int64
	Creator              string
	CreatedAt            time.Time
	Handle               string
	IsVerified           bool
	VerifiedValue        int64
}

// View is the public projection sent to clients.
func (r *Record) View() ledger.RecordView {
	return ledger.RecordView{
		ID:                   r.ID,
		Name:                 r.Name,
		Description:          r.Description,
		PublicScore:          strconv.FormatInt(r.PublicScore, 10),
		SecondaryPublicValue: strconv.FormatInt(r.SecondaryPublicValue, 10),
		Creator:              r.Creator,
		CreatedAt:            strconv.FormatInt(r.CreatedAt.Unix(), 10),
		IsVerified:           r.IsVerified,
		VerifiedValue:        strconv.FormatInt(r.VerifiedValue, 10),
	}
}
