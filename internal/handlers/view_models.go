package handlers

import (
	"time"

	"summerfest/internal/models"
	"summerfest/internal/service"
)

// AttendanceView is the JSON form of an attendance record
type AttendanceView struct {
	ID           int64   `json:"id"`
	ChildID      int64   `json:"child_id"`
	FamilyID     int64   `json:"family_id"`
	Date         string  `json:"date"`
	CheckInTime  string  `json:"check_in_time"`
	CheckOutTime *string `json:"check_out_time,omitempty"`
	Status       string  `json:"status"`
	ChargeAmount string  `json:"charge_amount"`
	ChargeReason string  `json:"charge_reason"`
	Notes        string  `json:"notes,omitempty"`
}

func newAttendanceView(rec models.Attendance) AttendanceView {
	v := AttendanceView{
		ID:           rec.ID,
		ChildID:      rec.ChildID,
		FamilyID:     rec.FamilyID,
		Date:         models.DateKey(rec.Date),
		CheckInTime:  rec.CheckInTime.Format(time.RFC3339),
		Status:       rec.Status.String(),
		ChargeAmount: rec.ChargeAmount.StringFixed(2),
		ChargeReason: rec.ChargeReason,
		Notes:        rec.Notes,
	}
	if rec.CheckOutTime != nil {
		out := rec.CheckOutTime.Format(time.RFC3339)
		v.CheckOutTime = &out
	}
	return v
}

// CheckInView is returned by POST /checkin
type CheckInView struct {
	Status     string         `json:"status"`
	Attendance AttendanceView `json:"attendance"`
	Amount     string         `json:"amount"`
	Reason     string         `json:"reason"`
	Balance    string         `json:"balance,omitempty"`
	Warning    string         `json:"warning,omitempty"`
}

func newCheckInView(result *service.CheckInResult) CheckInView {
	return CheckInView{
		Status:     StatusCheckedIn,
		Attendance: newAttendanceView(result.Record),
		Amount:     result.Amount.StringFixed(2),
		Reason:     result.Reason,
		Balance:    result.Balance.StringFixed(2),
	}
}

// ChargeView is a priced but unrecorded check-in
type ChargeView struct {
	ChildID int64  `json:"child_id"`
	Date    string `json:"date"`
	Amount  string `json:"amount"`
	Reason  string `json:"reason"`
}

// TransactionView is the JSON form of a ledger entry
type TransactionView struct {
	ID          int64   `json:"id"`
	Amount      string  `json:"amount"`
	Type        string  `json:"type"`
	Method      string  `json:"method"`
	Description string  `json:"description"`
	ExternalRef *string `json:"external_ref,omitempty"`
	RecordedBy  string  `json:"recorded_by,omitempty"`
	CreatedAt   string  `json:"created_at"`
}

func newTransactionView(txn models.LedgerTransaction) TransactionView {
	return TransactionView{
		ID:          txn.ID,
		Amount:      txn.Amount.StringFixed(2),
		Type:        string(txn.Type),
		Method:      string(txn.Method),
		Description: txn.Description,
		ExternalRef: txn.ExternalRef,
		RecordedBy:  txn.RecordedBy,
		CreatedAt:   txn.CreatedAt.Format(time.RFC3339),
	}
}

// LedgerView is returned by GET /families/{id}/ledger
type LedgerView struct {
	FamilyID     int64             `json:"family_id"`
	Balance      string            `json:"balance"`
	Transactions []TransactionView `json:"transactions"`
}

// PassView is the JSON form of a pass
type PassView struct {
	Type      string `json:"type"`
	ValidFrom string `json:"valid_from"`
	ValidTo   string `json:"valid_to"`
}

// SummaryView is returned by GET /families/{id}/summary
type SummaryView struct {
	FamilyID           int64      `json:"family_id"`
	Policy             string     `json:"policy"`
	WeekStart          string     `json:"week_start"`
	WeekEnd            string     `json:"week_end"`
	FamilySize         int        `json:"family_size"`
	UniqueSignIns      int        `json:"unique_sign_ins"`
	Threshold          int        `json:"threshold"`
	WeeklyCharges      string     `json:"weekly_charges"`
	WeeklyCap          string     `json:"weekly_cap"`
	RemainingAllowance string     `json:"remaining_allowance"`
	NextChargeAmount   string     `json:"next_charge_amount"`
	NextChargeReason   string     `json:"next_charge_reason"`
	CurrentBalance     string     `json:"current_balance"`
	ActivePasses       []PassView `json:"active_passes"`
}

func newSummaryView(s *models.WeeklySummary) SummaryView {
	v := SummaryView{
		FamilyID:           s.FamilyID,
		Policy:             s.Policy,
		WeekStart:          models.DateKey(s.WeekStart),
		WeekEnd:            models.DateKey(s.WeekEnd),
		FamilySize:         s.FamilySize,
		UniqueSignIns:      s.UniqueSignIns,
		Threshold:          s.Threshold,
		WeeklyCharges:      s.WeeklyCharges.StringFixed(2),
		WeeklyCap:          s.WeeklyCap.StringFixed(2),
		RemainingAllowance: s.RemainingAllowance.StringFixed(2),
		NextChargeAmount:   s.NextChargeAmount.StringFixed(2),
		NextChargeReason:   s.NextChargeReason,
		CurrentBalance:     s.CurrentBalance.StringFixed(2),
		ActivePasses:       []PassView{},
	}
	for _, p := range s.ActivePasses {
		v.ActivePasses = append(v.ActivePasses, PassView{
			Type:      string(p.Type),
			ValidFrom: models.DateKey(p.ValidFrom),
			ValidTo:   models.DateKey(p.ValidTo),
		})
	}
	return v
}
