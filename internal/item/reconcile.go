package item

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"asset-tracker-backend/internal/model"
	"asset-tracker-backend/internal/parse"
	"asset-tracker-backend/internal/store"
)

// RecordKind names a nested history collection of an item.
type RecordKind string

const (
	Maintenance RecordKind = "maintenanceRecords"
	Loans       RecordKind = "loanRecords"
)

// maintenanceInput and loanInput are the accepted element shapes. Client ids
// and item ids are not read; the store assigns both.
type maintenanceInput struct {
	FailureDate     string `json:"failureDate"`
	Cause           string `json:"cause"`
	Action          string `json:"action"`
	ResultCondition string `json:"resultCondition"`
	Technician      string `json:"technician"`
	CompletionDate  string `json:"completionDate"`
	// Photos is an array, or a string holding a serialized array or a single
	// reference.
	Photos json.RawMessage `json:"photos"`
}

func (in maintenanceInput) record() (model.MaintenanceRecord, error) {
	photos, err := decodePhotos(in.Photos)
	if err != nil {
		return model.MaintenanceRecord{}, err
	}
	return model.MaintenanceRecord{
		FailureDate:     in.FailureDate,
		Cause:           in.Cause,
		Action:          in.Action,
		ResultCondition: in.ResultCondition,
		Technician:      in.Technician,
		CompletionDate:  in.CompletionDate,
		Photos:          photos,
	}, nil
}

func decodePhotos(raw json.RawMessage) ([]string, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return []string{}, nil
	}
	if trimmed[0] != '"' {
		return parse.StringList("photos", string(trimmed))
	}

	var text string
	if err := json.Unmarshal(trimmed, &text); err != nil {
		return nil, &parse.ParseError{Field: "photos", Err: err}
	}
	text = strings.TrimSpace(text)
	switch {
	case text == "":
		return []string{}, nil
	case strings.HasPrefix(text, "["):
		return parse.StringList("photos", text)
	default:
		return []string{text}, nil
	}
}

type loanInput struct {
	BorrowerName    string  `json:"borrowerName"`
	Department      string  `json:"department"`
	BorrowDate      string  `json:"borrowDate"`
	ReturnDate      *string `json:"returnDate"`
	ReturnCondition string  `json:"returnCondition"`
	Notes           string  `json:"notes"`
	ReturnedBy      string  `json:"returnedBy"`
}

func (in loanInput) record() model.LoanRecord {
	returnDate := in.ReturnDate
	if returnDate != nil && strings.TrimSpace(*returnDate) == "" {
		returnDate = nil
	}
	return model.LoanRecord{
		BorrowerName:    in.BorrowerName,
		Department:      in.Department,
		BorrowDate:      in.BorrowDate,
		ReturnDate:      returnDate,
		ReturnCondition: in.ReturnCondition,
		Notes:           in.Notes,
		ReturnedBy:      in.ReturnedBy,
	}
}

// Reconcile replaces every persisted record of kind for itemID with the
// records in raw. raw is a JSON array, or a JSON string holding one. An empty
// array clears the collection.
//
// Malformed JSON returns a *parse.ParseError and a payload that is not an
// array of records returns a *store.ValidationError. In both cases nothing
// is written.
func (s *Service) Reconcile(ctx context.Context, itemID string, kind RecordKind, raw []byte) error {
	elems, err := parse.RecordList(string(kind), raw)
	if err != nil {
		if errors.Is(err, parse.ErrNotList) {
			return &store.ValidationError{Field: string(kind), Reason: "must be an array of records"}
		}
		return err
	}

	switch kind {
	case Maintenance:
		records := make([]model.MaintenanceRecord, len(elems))
		for i, elem := range elems {
			var in maintenanceInput
			if err := json.Unmarshal(elem, &in); err != nil {
				return elementError(kind, i, err)
			}
			rec, err := in.record()
			if err != nil {
				return elementError(kind, i, err)
			}
			records[i] = rec
		}
		return s.store.ReplaceMaintenance(ctx, itemID, records)
	case Loans:
		records := make([]model.LoanRecord, len(elems))
		for i, elem := range elems {
			var in loanInput
			if err := json.Unmarshal(elem, &in); err != nil {
				return elementError(kind, i, err)
			}
			records[i] = in.record()
		}
		return s.store.ReplaceLoans(ctx, itemID, records)
	default:
		return &store.ValidationError{Field: "kind", Reason: fmt.Sprintf("unknown record kind %q", kind)}
	}
}

func elementError(kind RecordKind, i int, err error) error {
	return &store.ValidationError{Field: fmt.Sprintf("%s[%d]", kind, i), Reason: err.Error()}
}

// recoverable reports whether a reconcile failure only skips that collection.
func recoverable(err error) bool {
	var perr *parse.ParseError
	var verr *store.ValidationError
	return errors.As(err, &perr) || errors.As(err, &verr)
}
